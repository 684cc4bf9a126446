package service_test

import (
	"testing"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/repository"
	"github.com/atelier-dz/cnc-marketplace-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validQuoteRequest() *domain.CreateQuoteRequest {
	deadline := time.Now().UTC().Add(72 * time.Hour)
	budget := 60000.0
	return &domain.CreateQuoteRequest{
		PartName:       "  Support moteur ",
		Material:       "Aluminium 6061",
		Quantity:       25,
		DeliveryWilaya: "9",
		TargetBudget:   &budget,
		Deadline:       &deadline,
	}
}

func TestQuoteCreate(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)

	dto, err := f.quotes.Create(as(client), validQuoteRequest())
	require.NoError(t, err)
	assert.Equal(t, "Support moteur", dto.PartName)
	assert.Equal(t, "09", dto.DeliveryWilaya)
	assert.Equal(t, domain.QuoteStatusOpen, dto.Status)
	assert.Equal(t, client.ID, dto.ClientID)
	assert.Zero(t, dto.BidCount)
}

func TestQuoteCreate_Validation(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	past := time.Now().UTC().Add(-time.Hour)
	negative := -1.0

	tests := []struct {
		name   string
		mutate func(*domain.CreateQuoteRequest)
	}{
		{"missing part name", func(r *domain.CreateQuoteRequest) { r.PartName = " " }},
		{"zero quantity", func(r *domain.CreateQuoteRequest) { r.Quantity = 0 }},
		{"unknown wilaya", func(r *domain.CreateQuoteRequest) { r.DeliveryWilaya = "72" }},
		{"past deadline", func(r *domain.CreateQuoteRequest) { r.Deadline = &past }},
		{"negative budget", func(r *domain.CreateQuoteRequest) { r.TargetBudget = &negative }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validQuoteRequest()
			tt.mutate(req)
			_, err := f.quotes.Create(as(client), req)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	partner, _ := testutil.CreatePartner(t, f.db, "16")
	_, err := f.quotes.Create(as(partner), validQuoteRequest())
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestQuoteUpdateAndDelete_OnlyWithoutBids(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	created, err := f.quotes.Create(as(client), validQuoteRequest())
	require.NoError(t, err)

	req := validQuoteRequest()
	req.Quantity = 40
	updated, err := f.quotes.Update(as(client), created.ID, req)
	require.NoError(t, err)
	assert.Equal(t, 40, updated.Quantity)

	other := testutil.CreateProfile(t, f.db, domain.RoleClient)
	_, err = f.quotes.Update(as(other), created.ID, req)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	quote, err := f.quoteRepo.FindByID(as(client), created.ID)
	require.NoError(t, err)
	_, partner := testutil.CreatePartner(t, f.db, "16")
	testutil.CreateBid(t, f.db, quote, partner, 50000)

	_, err = f.quotes.Update(as(client), created.ID, req)
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.ErrorIs(t, f.quotes.Delete(as(client), created.ID), domain.ErrConflict)

	fresh, err := f.quotes.Create(as(client), validQuoteRequest())
	require.NoError(t, err)
	require.NoError(t, f.quotes.Delete(as(client), fresh.ID))
	_, err = f.quotes.Get(as(client), fresh.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQuoteCloseAndReopen(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	quote := testutil.CreateQuote(t, f.db, client)

	closed, err := f.quotes.Close(as(client), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusClosed, closed.Status)

	_, err = f.quotes.Close(as(client), quote.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	reopened, err := f.quotes.Reopen(as(client), quote.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusOpen, reopened.Status)

	partner, _ := testutil.CreatePartner(t, f.db, "16")
	_, err = f.quotes.Close(as(partner), quote.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.quotes.Close(asAdmin(t, f.db), quote.ID)
	require.NoError(t, err)

	past := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, f.db.Model(&domain.Quote{}).Where("id = ?", quote.ID).Update("deadline", past).Error)
	_, err = f.quotes.Reopen(as(client), quote.ID)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCloseExpired(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	expiring := testutil.CreateQuote(t, f.db, client)
	later := testutil.CreateQuote(t, f.db, client)

	farDeadline := time.Now().UTC().Add(30 * 24 * time.Hour)
	require.NoError(t, f.db.Model(&domain.Quote{}).Where("id = ?", later.ID).Update("deadline", farDeadline).Error)

	now := time.Now().UTC().Add(10 * 24 * time.Hour)
	closed, err := f.quotes.CloseExpired(as(client), now, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	got, err := f.quotes.Get(as(client), expiring.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusClosed, got.Status)

	got, err = f.quotes.Get(as(client), later.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteStatusOpen, got.Status)

	assert.Len(t, eventsOfType(f.recorder, client.ID, domain.NotificationTypeQuoteClosed), 1)

	closed, err = f.quotes.CloseExpired(as(client), now, 50)
	require.NoError(t, err)
	assert.Zero(t, closed)
}

func TestQuoteList_Scoping(t *testing.T) {
	f := newFixture(t)
	alice := testutil.CreateProfile(t, f.db, domain.RoleClient)
	bob := testutil.CreateProfile(t, f.db, domain.RoleClient)
	open := testutil.CreateQuote(t, f.db, alice)
	closedQuote := testutil.CreateQuote(t, f.db, alice)
	testutil.CreateQuote(t, f.db, bob)
	_, err := f.quotes.Close(as(alice), closedQuote.ID)
	require.NoError(t, err)

	list, err := f.quotes.List(as(alice), 1, 20, repository.QuoteFilters{}, repository.DefaultSortConfig())
	require.NoError(t, err)
	assert.EqualValues(t, 2, list.Total)

	workshop, _ := testutil.CreatePartner(t, f.db, "16")
	list, err = f.quotes.List(as(workshop), 1, 20, repository.QuoteFilters{}, repository.DefaultSortConfig())
	require.NoError(t, err)
	assert.EqualValues(t, 2, list.Total, "open quotes of both clients")
	for _, q := range list.Data.([]domain.QuoteDTO) {
		assert.NotEqual(t, closedQuote.ID, q.ID)
	}

	status := domain.QuoteStatusOpen
	list, err = f.quotes.List(as(alice), 1, 20, repository.QuoteFilters{Status: &status}, repository.DefaultSortConfig())
	require.NoError(t, err)
	require.EqualValues(t, 1, list.Total)
	assert.Equal(t, open.ID, list.Data.([]domain.QuoteDTO)[0].ID)

	bad := domain.QuoteStatus("archived")
	_, err = f.quotes.List(as(alice), 1, 20, repository.QuoteFilters{Status: &bad}, repository.DefaultSortConfig())
	assert.ErrorIs(t, err, domain.ErrValidation)
}
