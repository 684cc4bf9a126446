package service_test

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/service"
	"github.com/atelier-dz/cnc-marketplace-api/internal/storage"
	"github.com/atelier-dz/cnc-marketplace-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuotePDF_NumberIsStablePerBid(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	quote := testutil.CreateQuote(t, f.db, client)
	partnerProfile, partner := testutil.CreatePartner(t, f.db, "16")
	bid := testutil.CreateBid(t, f.db, quote, partner, 45000)

	first, err := f.documents.QuotePDF(as(client), quote.ID, bid.ID, service.DocumentOptions{})
	require.NoError(t, err)
	year := time.Now().Year()
	assert.Equal(t, fmt.Sprintf("DEV-%d-000001", year), first.Record.Number)
	assert.Equal(t, first.Record.Number+".pdf", first.Filename)
	assert.True(t, bytes.HasPrefix(first.Content, []byte("%PDF")))

	// 45 000 + 500 same-wilaya shipping + 19% of 45 000
	assert.Equal(t, "45000", first.Totals.Subtotal.String())
	assert.Equal(t, "500", first.Totals.Shipping.String())
	assert.Equal(t, "8550", first.Totals.Tax.String())
	assert.Equal(t, "54050", first.Totals.Total.String())
	assert.InDelta(t, 54050, first.Record.Total, 0.001)

	again, err := f.documents.QuotePDF(as(partnerProfile), quote.ID, bid.ID, service.DocumentOptions{WeightKg: 3})
	require.NoError(t, err)
	assert.Equal(t, first.Record.Number, again.Record.Number)
	assert.Equal(t, first.Record.ID, again.Record.ID)

	current, err := f.numbers.GetCurrentSequence(as(client), domain.DocumentKindQuote, year)
	require.NoError(t, err)
	assert.Equal(t, 1, current)
}

func TestQuotePDF_Access(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	quote := testutil.CreateQuote(t, f.db, client)
	_, partner := testutil.CreatePartner(t, f.db, "16")
	bid := testutil.CreateBid(t, f.db, quote, partner, 45000)

	otherClient := testutil.CreateProfile(t, f.db, domain.RoleClient)
	_, err := f.documents.QuotePDF(as(otherClient), quote.ID, bid.ID, service.DocumentOptions{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	otherWorkshop, _ := testutil.CreatePartner(t, f.db, "31")
	_, err = f.documents.QuotePDF(as(otherWorkshop), quote.ID, bid.ID, service.DocumentOptions{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	otherQuote := testutil.CreateQuote(t, f.db, client)
	_, err = f.documents.QuotePDF(as(client), otherQuote.ID, bid.ID, service.DocumentOptions{})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.documents.QuotePDF(as(client), quote.ID, bid.ID, service.DocumentOptions{WeightKg: 5000})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestInvoicePDF(t *testing.T) {
	f := newFixture(t)
	s := newOrder(t, f, domain.OrderStatusConfirmed)
	year := time.Now().Year()

	invoice, err := f.documents.InvoicePDF(as(s.client), s.order.ID, service.DocumentOptions{})
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("FAC-%d-000001", year), invoice.Record.Number)
	assert.Equal(t, domain.DocumentKindInvoice, invoice.Record.Kind)
	require.NotNil(t, invoice.Record.OrderID)
	assert.Equal(t, s.order.ID, *invoice.Record.OrderID)
	assert.Equal(t, "54050", invoice.Totals.Total.String())

	again, err := f.documents.InvoicePDF(as(s.partnerProfile), s.order.ID, service.DocumentOptions{})
	require.NoError(t, err)
	assert.Equal(t, invoice.Record.Number, again.Record.Number)

	_, err = f.documents.InvoicePDF(as(s.client), s.order.ID, service.DocumentOptions{TaxExempt: true})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	exempt, err := f.documents.InvoicePDF(asAdmin(t, f.db), s.order.ID, service.DocumentOptions{TaxExempt: true})
	require.NoError(t, err)
	assert.Equal(t, invoice.Record.Number, exempt.Record.Number)
	assert.True(t, exempt.Totals.Tax.IsZero())
	assert.Equal(t, "45500", exempt.Totals.Total.String())

	cancelled := newOrder(t, f, domain.OrderStatusCancelled)
	_, err = f.documents.InvoicePDF(as(cancelled.client), cancelled.order.ID, service.DocumentOptions{})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestArchiveAndList(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	quote := testutil.CreateQuote(t, f.db, client)
	partnerProfile, partner := testutil.CreatePartner(t, f.db, "16")
	bid := testutil.CreateBid(t, f.db, quote, partner, 45000)

	rendered, err := f.documents.QuotePDF(as(client), quote.ID, bid.ID, service.DocumentOptions{})
	require.NoError(t, err)

	archived, err := f.documents.Archive(as(client), rendered)
	require.NoError(t, err)
	assert.Equal(t, rendered.Record.Number, archived.Number)
	assert.True(t, strings.HasPrefix(archived.URL, storage.LocalSignedPath+"?token="))
	assert.NotEmpty(t, archived.ExpiresAt)

	rc, err := f.storage.Download(as(client), rendered.Record.StoragePath)
	require.NoError(t, err)
	stored, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, rendered.Content, stored)

	// re-archiving replaces the stored file
	previous := rendered.Record.StoragePath
	_, err = f.documents.Archive(as(client), rendered)
	require.NoError(t, err)
	assert.NotEqual(t, previous, rendered.Record.StoragePath)
	_, err = f.storage.Download(as(client), previous)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	docs, err := f.documents.ListForQuote(as(client), quote.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.NotEmpty(t, docs[0].URL)

	_, err = f.documents.ListForQuote(as(partnerProfile), quote.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
