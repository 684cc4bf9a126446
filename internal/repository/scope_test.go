package repository

import (
	"context"
	"testing"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func visibleQuoteIDs(t *testing.T, db *gorm.DB, ctx context.Context) []uuid.UUID {
	t.Helper()
	var ids []uuid.UUID
	require.NoError(t, ApplyQuoteScope(ctx, db.Model(&domain.Quote{})).Pluck("quotes.id", &ids).Error)
	return ids
}

func TestApplyQuoteScope(t *testing.T) {
	db := testutil.SetupTestDB(t)
	owner := testutil.CreateProfile(t, db, domain.RoleClient)
	other := testutil.CreateProfile(t, db, domain.RoleClient)
	partnerProfile, partner := testutil.CreatePartner(t, db, "16")
	admin := testutil.CreateProfile(t, db, domain.RoleAdmin)

	open := testutil.CreateQuote(t, db, owner)
	closedWithBid := testutil.CreateQuote(t, db, owner)
	closedWithoutBid := testutil.CreateQuote(t, db, other)
	testutil.CreateBid(t, db, closedWithBid, partner, 120000)
	require.NoError(t, db.Model(&domain.Quote{}).
		Where("id IN ?", []uuid.UUID{closedWithBid.ID, closedWithoutBid.ID}).
		Update("status", domain.QuoteStatusClosed).Error)

	t.Run("client sees own quotes", func(t *testing.T) {
		ids := visibleQuoteIDs(t, db, testutil.AsUser(context.Background(), owner))
		assert.ElementsMatch(t, []uuid.UUID{open.ID, closedWithBid.ID}, ids)
	})

	t.Run("partner sees open quotes and those bid on", func(t *testing.T) {
		ids := visibleQuoteIDs(t, db, testutil.AsUser(context.Background(), partnerProfile))
		assert.ElementsMatch(t, []uuid.UUID{open.ID, closedWithBid.ID}, ids)
	})

	t.Run("admin sees everything", func(t *testing.T) {
		ids := visibleQuoteIDs(t, db, testutil.AsUser(context.Background(), admin))
		assert.Len(t, ids, 3)
	})

	t.Run("no actor sees nothing", func(t *testing.T) {
		assert.Empty(t, visibleQuoteIDs(t, db, context.Background()))
	})
}

func TestApplyPartyScope(t *testing.T) {
	db := testutil.SetupTestDB(t)
	client := testutil.CreateProfile(t, db, domain.RoleClient)
	stranger := testutil.CreateProfile(t, db, domain.RoleClient)
	partnerProfile, partner := testutil.CreatePartner(t, db, "31")
	otherPartnerProfile, _ := testutil.CreatePartner(t, db, "25")

	quote := testutil.CreateQuote(t, db, client)
	bid := testutil.CreateBid(t, db, quote, partner, 50000)
	order := testutil.CreateOrder(t, db, quote, bid, domain.OrderStatusPending)

	repo := NewOrderRepository(db)
	for _, tc := range []struct {
		name    string
		profile *domain.Profile
		visible bool
	}{
		{"client", client, true},
		{"partner", partnerProfile, true},
		{"stranger", stranger, false},
		{"other partner", otherPartnerProfile, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := repo.GetByID(testutil.AsUser(context.Background(), tc.profile), order.ID)
			if tc.visible {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrNotFound)
			}
		})
	}
}

func TestApplyMessageScope(t *testing.T) {
	db := testutil.SetupTestDB(t)
	client := testutil.CreateProfile(t, db, domain.RoleClient)
	partnerProfile, _ := testutil.CreatePartner(t, db, "16")
	outsider := testutil.CreateProfile(t, db, domain.RoleClient)
	quote := testutil.CreateQuote(t, db, client)

	msg := &domain.Message{QuoteID: quote.ID, SenderID: client.ID, ReceiverID: partnerProfile.ID, Content: "Bonjour"}
	require.NoError(t, db.Create(msg).Error)

	count := func(p *domain.Profile) int64 {
		var n int64
		require.NoError(t, ApplyMessageScope(testutil.AsUser(context.Background(), p), db.Model(&domain.Message{})).Count(&n).Error)
		return n
	}
	assert.EqualValues(t, 1, count(client))
	assert.EqualValues(t, 1, count(partnerProfile))
	assert.EqualValues(t, 0, count(outsider))
}

func TestApplyPartnerScope(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, approved := testutil.CreatePartner(t, db, "16")
	pendingProfile, pending := testutil.CreatePartner(t, db, "31")
	require.NoError(t, db.Model(pending).Update("status", domain.PartnerStatusPending).Error)
	client := testutil.CreateProfile(t, db, domain.RoleClient)

	ids := func(p *domain.Profile) []uuid.UUID {
		var out []uuid.UUID
		require.NoError(t, ApplyPartnerScope(testutil.AsUser(context.Background(), p), db.Model(&domain.Partner{})).Pluck("partners.id", &out).Error)
		return out
	}
	assert.ElementsMatch(t, []uuid.UUID{approved.ID}, ids(client))
	assert.ElementsMatch(t, []uuid.UUID{approved.ID, pending.ID}, ids(pendingProfile))
}

func TestBidRepository_OneAcceptedBidPerQuote(t *testing.T) {
	db := testutil.SetupTestDB(t)
	client := testutil.CreateProfile(t, db, domain.RoleClient)
	_, first := testutil.CreatePartner(t, db, "16")
	_, second := testutil.CreatePartner(t, db, "09")
	quote := testutil.CreateQuote(t, db, client)
	a := testutil.CreateBid(t, db, quote, first, 1000)
	b := testutil.CreateBid(t, db, quote, second, 900)

	repo := NewBidRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Accept(ctx, quote.ID, a.ID, a.CreatedAt))

	// accepting twice is a no-op compare-and-swap failure
	assert.ErrorIs(t, repo.Accept(ctx, quote.ID, a.ID, a.CreatedAt), domain.ErrConflict)

	// the partial unique index rejects a second accepted bid even without the status guard
	err := db.Model(&domain.Bid{}).Where("id = ?", b.ID).Update("status", domain.BidStatusAccepted).Error
	require.Error(t, err)
	assert.ErrorIs(t, translateError(err, "bid"), domain.ErrConflict)
}

func TestBidRepository_OneBidPerPartner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	client := testutil.CreateProfile(t, db, domain.RoleClient)
	_, partner := testutil.CreatePartner(t, db, "16")
	quote := testutil.CreateQuote(t, db, client)
	testutil.CreateBid(t, db, quote, partner, 1000)

	err := NewBidRepository(db).Create(context.Background(), &domain.Bid{
		QuoteID: quote.ID, PartnerID: partner.ID, Amount: 800, DeliveryDays: 5, Status: domain.BidStatusPending,
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestQuoteRepository_TransitionStatusIsCompareAndSwap(t *testing.T) {
	db := testutil.SetupTestDB(t)
	client := testutil.CreateProfile(t, db, domain.RoleClient)
	quote := testutil.CreateQuote(t, db, client)
	repo := NewQuoteRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.TransitionStatus(ctx, quote.ID, domain.QuoteStatusOpen, domain.QuoteStatusClosed))
	assert.ErrorIs(t, repo.TransitionStatus(ctx, quote.ID, domain.QuoteStatusOpen, domain.QuoteStatusClosed), domain.ErrConflict)

	stored, err := repo.FindByID(ctx, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusClosed, stored.Status)
	assert.NotNil(t, stored.ClosedAt)
}

func TestTranslateError(t *testing.T) {
	assert.Nil(t, translateError(nil, "quote"))
	assert.ErrorIs(t, translateError(gorm.ErrRecordNotFound, "quote"), domain.ErrNotFound)
	assert.ErrorIs(t, translateError(gorm.ErrDuplicatedKey, "bid"), domain.ErrConflict)
	assert.ErrorIs(t, translateError(context.DeadlineExceeded, "order"), domain.ErrTransient)
	assert.ErrorIs(t, translateError(assert.AnError, "order"), assert.AnError)
	assert.NotErrorIs(t, translateError(assert.AnError, "order"), domain.ErrTransient)
}

func TestBuildOrderClause(t *testing.T) {
	fields := map[string]string{"createdAt": "created_at", "deadline": "deadline"}
	assert.Equal(t, "deadline ASC", BuildOrderClause(SortConfig{Field: "deadline", Order: SortOrderAsc}, fields, "created_at"))
	assert.Equal(t, "created_at DESC", BuildOrderClause(SortConfig{Field: "id; DROP TABLE quotes", Order: "desc"}, fields, "created_at"))
}

func TestNormalizePage(t *testing.T) {
	page, size := NormalizePage(0, 0, 20)
	assert.Equal(t, 1, page)
	assert.Equal(t, 20, size)

	_, size = NormalizePage(3, 10000, 20)
	assert.Equal(t, MaxPageSize, size)
}
