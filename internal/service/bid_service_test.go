package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/service"
	"github.com/atelier-dz/cnc-marketplace-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccept_BracketScenario(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	p1Profile, _ := testutil.CreatePartner(t, f.db, "16")
	p2Profile, _ := testutil.CreatePartner(t, f.db, "31")

	q1, err := f.quotes.Create(as(client), &domain.CreateQuoteRequest{
		PartName: "Bracket",
		Material: "Aluminum",
		Quantity: 50,
	})
	require.NoError(t, err)

	b1, err := f.bids.Submit(as(p1Profile), q1.ID, &domain.SubmitBidRequest{Amount: 45000, DeliveryDays: 5})
	require.NoError(t, err)
	b2, err := f.bids.Submit(as(p2Profile), q1.ID, &domain.SubmitBidRequest{Amount: 52000, DeliveryDays: 3})
	require.NoError(t, err)

	result, err := f.bids.Accept(as(client), q1.ID, b1.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.BidStatusAccepted, result.AcceptedBid.Status)
	assert.Equal(t, b1.ID, result.AcceptedBid.ID)
	assert.Equal(t, domain.QuoteStatusAwarded, result.Quote.Status)
	require.NotNil(t, result.Quote.WinningBidID)
	assert.Equal(t, b1.ID, *result.Quote.WinningBidID)
	assert.Equal(t, []uuid.UUID{b2.ID}, result.RejectedBidIDs)
	assert.Equal(t, b1.ID, result.Order.BidID)
	assert.Equal(t, 45000.0, result.Order.TotalAmount)
	assert.Equal(t, domain.OrderStatusPending, result.Order.Status)

	// persisted state
	stored1, err := f.bidRepo.FindByID(context.Background(), b1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BidStatusAccepted, stored1.Status)
	stored2, err := f.bidRepo.FindByID(context.Background(), b2.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BidStatusRejected, stored2.Status)

	accepted, err := f.bidRepo.CountByStatus(context.Background(), q1.ID, domain.BidStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, int64(1), accepted)

	var orders []domain.Order
	require.NoError(t, f.db.Where("quote_id = ?", q1.ID).Find(&orders).Error)
	require.Len(t, orders, 1)
	assert.Equal(t, b1.ID, orders[0].BidID)
	assert.Equal(t, 45000.0, orders[0].TotalAmount)

	quote, err := f.quoteRepo.FindByID(context.Background(), q1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusAwarded, quote.Status)
	require.NotNil(t, quote.WinningBidID)
	assert.Equal(t, b1.ID, *quote.WinningBidID)

	// side effects
	assert.Len(t, eventsOfType(f.recorder, client.ID, domain.NotificationTypeBidReceived), 2)
	won := eventsOfType(f.recorder, p1Profile.ID, domain.NotificationTypeBidAccepted)
	require.Len(t, won, 1)
	assert.True(t, won[0].SendEmail)
	assert.Len(t, eventsOfType(f.recorder, p2Profile.ID, domain.NotificationTypeBidRejected), 1)
}

func TestAccept_SecondAcceptanceConflicts(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	quote := testutil.CreateQuote(t, f.db, client)
	_, p1 := testutil.CreatePartner(t, f.db, "16")
	_, p2 := testutil.CreatePartner(t, f.db, "09")
	b1 := testutil.CreateBid(t, f.db, quote, p1, 45000)
	b2 := testutil.CreateBid(t, f.db, quote, p2, 52000)

	_, err := f.bids.Accept(as(client), quote.ID, b1.ID)
	require.NoError(t, err)

	_, err = f.bids.Accept(as(client), quote.ID, b2.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))

	var count int64
	require.NoError(t, f.db.Model(&domain.Order{}).Where("quote_id = ?", quote.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAccept_ConcurrentAcceptancesAwardOnce(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	quote := testutil.CreateQuote(t, f.db, client)
	_, p1 := testutil.CreatePartner(t, f.db, "16")
	_, p2 := testutil.CreatePartner(t, f.db, "09")
	bids := []*domain.Bid{
		testutil.CreateBid(t, f.db, quote, p1, 45000),
		testutil.CreateBid(t, f.db, quote, p2, 52000),
	}

	errs := make([]error, len(bids))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i, bid := range bids {
		wg.Add(1)
		go func(i int, bidID uuid.UUID) {
			defer wg.Done()
			<-start
			_, errs[i] = f.bids.Accept(as(client), quote.ID, bidID)
		}(i, bid.ID)
	}
	close(start)
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrConflict)
	}
	assert.Equal(t, 1, succeeded)

	accepted, err := f.bidRepo.CountByStatus(context.Background(), quote.ID, domain.BidStatusAccepted)
	require.NoError(t, err)
	assert.Equal(t, int64(1), accepted)

	var orders []domain.Order
	require.NoError(t, f.db.Where("quote_id = ?", quote.ID).Find(&orders).Error)
	require.Len(t, orders, 1)

	stored, err := f.quoteRepo.FindByID(context.Background(), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusAwarded, stored.Status)
	require.NotNil(t, stored.WinningBidID)
	assert.Equal(t, orders[0].BidID, *stored.WinningBidID)
}

func TestAccept_StorageRejectsSecondAcceptedBid(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	quote := testutil.CreateQuote(t, f.db, client)
	_, p1 := testutil.CreatePartner(t, f.db, "16")
	_, p2 := testutil.CreatePartner(t, f.db, "09")
	b1 := testutil.CreateBid(t, f.db, quote, p1, 45000)
	b2 := testutil.CreateBid(t, f.db, quote, p2, 52000)

	now := time.Now().UTC()
	require.NoError(t, f.bidRepo.Accept(context.Background(), quote.ID, b1.ID, now))

	// the partial unique index holds even when the workflow checks are bypassed
	err := f.bidRepo.Accept(context.Background(), quote.ID, b2.ID, now)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestAccept_AllowedOnClosedQuote(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	quote := testutil.CreateQuote(t, f.db, client)
	_, p1 := testutil.CreatePartner(t, f.db, "16")
	bid := testutil.CreateBid(t, f.db, quote, p1, 30000)

	_, err := f.quotes.Close(as(client), quote.ID)
	require.NoError(t, err)

	result, err := f.bids.Accept(as(client), quote.ID, bid.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusAwarded, result.Quote.Status)
	assert.Empty(t, result.RejectedBidIDs)
}

func TestAccept_OnlyQuoteOwner(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	other := testutil.CreateProfile(t, f.db, domain.RoleClient)
	quote := testutil.CreateQuote(t, f.db, client)
	partnerProfile, partner := testutil.CreatePartner(t, f.db, "16")
	bid := testutil.CreateBid(t, f.db, quote, partner, 30000)

	_, err := f.bids.Accept(as(other), quote.ID, bid.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.bids.Accept(as(partnerProfile), quote.ID, bid.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.bids.Accept(context.Background(), quote.ID, bid.ID)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAccept_BidFromAnotherQuote(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	q1 := testutil.CreateQuote(t, f.db, client)
	q2 := testutil.CreateQuote(t, f.db, client)
	_, partner := testutil.CreatePartner(t, f.db, "16")
	bid := testutil.CreateBid(t, f.db, q2, partner, 30000)

	_, err := f.bids.Accept(as(client), q1.ID, bid.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAccept_NotificationFailureKeepsAcceptance(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	quote := testutil.CreateQuote(t, f.db, client)
	_, partner := testutil.CreatePartner(t, f.db, "16")
	bid := testutil.CreateBid(t, f.db, quote, partner, 30000)
	f.recorder.Err = errors.New("smtp down")

	result, err := f.bids.Accept(as(client), quote.ID, bid.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, result.Order.Status)
}

func TestSubmit_Rules(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	quote := testutil.CreateQuote(t, f.db, client)
	partnerProfile, _ := testutil.CreatePartner(t, f.db, "16")
	req := &domain.SubmitBidRequest{Amount: 12000, DeliveryDays: 7, Note: "Finition anodisée"}

	t.Run("duplicate bid conflicts", func(t *testing.T) {
		_, err := f.bids.Submit(as(partnerProfile), quote.ID, req)
		require.NoError(t, err)
		_, err = f.bids.Submit(as(partnerProfile), quote.ID, req)
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("pending workshop is refused", func(t *testing.T) {
		pendingProfile := testutil.CreateProfile(t, f.db, domain.RolePartner)
		require.NoError(t, f.db.Create(&domain.Partner{
			ProfileID:   pendingProfile.ID,
			CompanyName: "Atelier en attente",
			WilayaCode:  "16",
			Status:      domain.PartnerStatusPending,
		}).Error)
		_, err := f.bids.Submit(as(pendingProfile), quote.ID, req)
		assert.ErrorIs(t, err, service.ErrPartnerProfileRequired)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("client cannot bid", func(t *testing.T) {
		_, err := f.bids.Submit(as(client), quote.ID, req)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("invalid terms", func(t *testing.T) {
		other, _ := testutil.CreatePartner(t, f.db, "31")
		_, err := f.bids.Submit(as(other), quote.ID, &domain.SubmitBidRequest{Amount: 0, DeliveryDays: 3})
		assert.ErrorIs(t, err, domain.ErrValidation)
		_, err = f.bids.Submit(as(other), quote.ID, &domain.SubmitBidRequest{Amount: 100, DeliveryDays: 0})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("closed quote", func(t *testing.T) {
		closedQuote := testutil.CreateQuote(t, f.db, client)
		_, err := f.quotes.Close(as(client), closedQuote.ID)
		require.NoError(t, err)
		other, _ := testutil.CreatePartner(t, f.db, "25")
		_, err = f.bids.Submit(as(other), closedQuote.ID, req)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("expired deadline", func(t *testing.T) {
		expired := testutil.CreateQuote(t, f.db, client)
		past := time.Now().UTC().Add(-time.Hour)
		require.NoError(t, f.db.Model(expired).Update("deadline", past).Error)
		other, _ := testutil.CreatePartner(t, f.db, "25")
		_, err := f.bids.Submit(as(other), expired.ID, req)
		assert.ErrorIs(t, err, service.ErrQuoteNotOpen)
	})
}

func TestUpdateAndWithdraw(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	quote := testutil.CreateQuote(t, f.db, client)
	partnerProfile, partner := testutil.CreatePartner(t, f.db, "16")
	intruder, _ := testutil.CreatePartner(t, f.db, "16")
	bid := testutil.CreateBid(t, f.db, quote, partner, 30000)

	updated, err := f.bids.Update(as(partnerProfile), bid.ID, &domain.UpdateBidRequest{Amount: 28000, DeliveryDays: 8})
	require.NoError(t, err)
	assert.Equal(t, 28000.0, updated.Amount)
	assert.Equal(t, 8, updated.DeliveryDays)

	_, err = f.bids.Update(as(intruder), bid.ID, &domain.UpdateBidRequest{Amount: 1, DeliveryDays: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, f.bids.Withdraw(as(partnerProfile), bid.ID))
	_, err = f.bidRepo.FindByID(context.Background(), bid.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWithdraw_DecidedBidConflicts(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	quote := testutil.CreateQuote(t, f.db, client)
	partnerProfile, partner := testutil.CreatePartner(t, f.db, "16")
	bid := testutil.CreateBid(t, f.db, quote, partner, 30000)

	_, err := f.bids.Accept(as(client), quote.ID, bid.ID)
	require.NoError(t, err)

	err = f.bids.Withdraw(as(partnerProfile), bid.ID)
	assert.ErrorIs(t, err, service.ErrBidNotPending)
}

func TestListForQuote_Scoping(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	quote := testutil.CreateQuote(t, f.db, client)
	p1Profile, p1 := testutil.CreatePartner(t, f.db, "16")
	_, p2 := testutil.CreatePartner(t, f.db, "31")
	testutil.CreateBid(t, f.db, quote, p1, 40000)
	testutil.CreateBid(t, f.db, quote, p2, 35000)

	all, err := f.bids.ListForQuote(as(client), quote.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, 35000.0, all[0].Amount, "cheapest first")

	own, err := f.bids.ListForQuote(as(p1Profile), quote.ID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, p1.ID, own[0].PartnerID)

	mine, err := f.bids.ListMine(as(p1Profile), 1, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), mine.Total)
}
