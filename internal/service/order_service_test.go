package service_test

import (
	"context"
	"testing"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderSetup struct {
	client         *domain.Profile
	partnerProfile *domain.Profile
	partner        *domain.Partner
	order          *domain.Order
}

func newOrder(t *testing.T, f *fixture, status domain.OrderStatus) orderSetup {
	t.Helper()
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	quote := testutil.CreateQuote(t, f.db, client)
	partnerProfile, partner := testutil.CreatePartner(t, f.db, "16")
	bid := testutil.CreateBid(t, f.db, quote, partner, 45000)
	return orderSetup{
		client:         client,
		partnerProfile: partnerProfile,
		partner:        partner,
		order:          testutil.CreateOrder(t, f.db, quote, bid, status),
	}
}

func TestUpdateStatus_ClientNotifiedOncePerVisibleStep(t *testing.T) {
	f := newFixture(t)
	s := newOrder(t, f, domain.OrderStatusPending)

	steps := []struct {
		actor    *domain.Profile
		status   domain.OrderStatus
		notifies bool
	}{
		{s.partnerProfile, domain.OrderStatusConfirmed, true},
		{s.partnerProfile, domain.OrderStatusInProduction, true},
		{s.partnerProfile, domain.OrderStatusQC, false},
		{s.partnerProfile, domain.OrderStatusShipped, true},
		{s.client, domain.OrderStatusDelivered, true},
	}

	for _, step := range steps {
		before := len(eventsOfType(f.recorder, s.client.ID, domain.NotificationTypeOrderStatus))

		dto, err := f.orders.UpdateStatus(as(step.actor), s.order.ID, step.status)
		require.NoError(t, err, "transition to %s", step.status)
		assert.Equal(t, step.status, dto.Status)

		events := eventsOfType(f.recorder, s.client.ID, domain.NotificationTypeOrderStatus)
		if step.notifies {
			require.Len(t, events, before+1, "transition to %s", step.status)
			last := events[len(events)-1]
			assert.Contains(t, last.Title, "Commande")
			require.NotNil(t, last.EntityID)
			assert.Equal(t, s.order.ID, *last.EntityID)
		} else {
			assert.Len(t, events, before, "transition to %s", step.status)
		}
	}

	order, err := f.orderRepo.GetByID(as(s.client), s.order.ID)
	require.NoError(t, err)
	assert.NotNil(t, order.ConfirmedAt)
	assert.NotNil(t, order.ShippedAt)
	assert.NotNil(t, order.DeliveredAt)

	partner, err := f.partnerRepo.FindByID(context.Background(), s.partner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, partner.CompletedJobs)
}

func TestUpdateStatus_CancelSendsNoClientNotification(t *testing.T) {
	f := newFixture(t)
	s := newOrder(t, f, domain.OrderStatusPending)

	dto, err := f.orders.UpdateStatus(as(s.client), s.order.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, dto.Status)
	assert.Empty(t, dto.NextStatuses)

	assert.Empty(t, eventsOfType(f.recorder, s.client.ID, domain.NotificationTypeOrderStatus))
	assert.Len(t, eventsOfType(f.recorder, s.partnerProfile.ID, domain.NotificationTypeOrderStatus), 1)
}

func TestUpdateStatus_InvalidTransitions(t *testing.T) {
	f := newFixture(t)
	s := newOrder(t, f, domain.OrderStatusPending)

	_, err := f.orders.UpdateStatus(as(s.partnerProfile), s.order.ID, domain.OrderStatusShipped)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.orders.UpdateStatus(as(s.partnerProfile), s.order.ID, domain.OrderStatusPending)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.orders.UpdateStatus(as(s.partnerProfile), s.order.ID, domain.OrderStatus("lost"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	shipped := newOrder(t, f, domain.OrderStatusShipped)
	_, err = f.orders.UpdateStatus(as(shipped.client), shipped.order.ID, domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Empty(t, f.recorder.Events)
}

func TestUpdateStatus_RoleRules(t *testing.T) {
	f := newFixture(t)
	s := newOrder(t, f, domain.OrderStatusPending)
	stranger, _ := testutil.CreatePartner(t, f.db, "16")

	_, err := f.orders.UpdateStatus(as(s.client), s.order.ID, domain.OrderStatusConfirmed)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.orders.UpdateStatus(as(s.partnerProfile), s.order.ID, domain.OrderStatusCancelled)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.orders.UpdateStatus(as(stranger), s.order.ID, domain.OrderStatusConfirmed)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	dto, err := f.orders.UpdateStatus(asAdmin(t, f.db), s.order.ID, domain.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, dto.Status)
}

func TestSetTracking(t *testing.T) {
	f := newFixture(t)
	s := newOrder(t, f, domain.OrderStatusInProduction)

	dto, err := f.orders.SetTracking(as(s.partnerProfile), s.order.ID, &domain.SetTrackingRequest{
		Carrier:        "Yalidine",
		TrackingNumber: "YAL-778812",
	})
	require.NoError(t, err)
	assert.Equal(t, "Yalidine", dto.Carrier)

	_, err = f.orders.SetTracking(as(s.client), s.order.ID, &domain.SetTrackingRequest{Carrier: "x", TrackingNumber: "y"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.orders.UpdateStatus(as(s.partnerProfile), s.order.ID, domain.OrderStatusShipped)
	require.NoError(t, err)
	events := eventsOfType(f.recorder, s.client.ID, domain.NotificationTypeOrderStatus)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Message, "YAL-778812")
}

func TestRate(t *testing.T) {
	f := newFixture(t)
	s := newOrder(t, f, domain.OrderStatusDelivered)

	dto, err := f.orders.Rate(as(s.client), s.order.ID, 4)
	require.NoError(t, err)
	require.NotNil(t, dto.Rating)
	assert.Equal(t, 4, *dto.Rating)

	partner, err := f.partnerRepo.FindByID(context.Background(), s.partner.ID)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, partner.Rating, 0.001)
	assert.Equal(t, 1, partner.RatingCount)

	_, err = f.orders.Rate(as(s.client), s.order.ID, 5)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.orders.Rate(as(s.client), s.order.ID, 6)
	assert.ErrorIs(t, err, domain.ErrValidation)

	pending := newOrder(t, f, domain.OrderStatusPending)
	_, err = f.orders.Rate(as(pending.client), pending.order.ID, 3)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = f.orders.Rate(as(s.partnerProfile), s.order.ID, 5)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
