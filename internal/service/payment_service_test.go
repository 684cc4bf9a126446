package service_test

import (
	"testing"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/repository"
	"github.com/atelier-dz/cnc-marketplace-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentCreate_DefaultsToOrderTotal(t *testing.T) {
	f := newFixture(t)
	s := newOrder(t, f, domain.OrderStatusConfirmed)

	dto, err := f.payments.Create(as(s.client), &domain.CreatePaymentRequest{
		OrderID:   s.order.ID,
		Method:    domain.PaymentMethodCCP,
		Reference: " CCP-0042 ",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, dto.Status)
	assert.InDelta(t, 45000, dto.Amount, 0.001)
	assert.Equal(t, "CCP-0042", dto.Reference)
	assert.Equal(t, s.partner.ID, dto.PartnerID)
}

func TestPaymentCreate_Rules(t *testing.T) {
	f := newFixture(t)
	s := newOrder(t, f, domain.OrderStatusPending)

	t.Run("one active payment per order", func(t *testing.T) {
		_, err := f.payments.Create(as(s.client), &domain.CreatePaymentRequest{OrderID: s.order.ID, Method: domain.PaymentMethodBaridiMob})
		require.NoError(t, err)

		_, err = f.payments.Create(as(s.client), &domain.CreatePaymentRequest{OrderID: s.order.ID, Method: domain.PaymentMethodCash})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("unknown method", func(t *testing.T) {
		_, err := f.payments.Create(as(s.client), &domain.CreatePaymentRequest{OrderID: s.order.ID, Method: "bitcoin"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("non positive amount", func(t *testing.T) {
		other := newOrder(t, f, domain.OrderStatusPending)
		zero := 0.0
		_, err := f.payments.Create(as(other.client), &domain.CreatePaymentRequest{OrderID: other.order.ID, Method: domain.PaymentMethodCCP, Amount: &zero})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("workshop cannot pay", func(t *testing.T) {
		_, err := f.payments.Create(as(s.partnerProfile), &domain.CreatePaymentRequest{OrderID: s.order.ID, Method: domain.PaymentMethodCCP})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("cancelled order", func(t *testing.T) {
		cancelled := newOrder(t, f, domain.OrderStatusCancelled)
		_, err := f.payments.Create(as(cancelled.client), &domain.CreatePaymentRequest{OrderID: cancelled.order.ID, Method: domain.PaymentMethodCCP})
		assert.ErrorIs(t, err, domain.ErrConflict)
	})

	t.Run("order of another client", func(t *testing.T) {
		intruder := testutil.CreateProfile(t, f.db, domain.RoleClient)
		_, err := f.payments.Create(as(intruder), &domain.CreatePaymentRequest{OrderID: s.order.ID, Method: domain.PaymentMethodCCP})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestPaymentEscrowFlow(t *testing.T) {
	f := newFixture(t)
	s := newOrder(t, f, domain.OrderStatusConfirmed)
	admin := asAdmin(t, f.db)

	payment, err := f.payments.Create(as(s.client), &domain.CreatePaymentRequest{OrderID: s.order.ID, Method: domain.PaymentMethodBankTransfer})
	require.NoError(t, err)

	_, err = f.payments.Hold(as(s.client), payment.ID, "")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.payments.Release(admin, payment.ID, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	held, err := f.payments.Hold(admin, payment.ID, "virement reçu")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusHeld, held.Status)
	assert.Equal(t, "virement reçu", held.AdminNote)
	assert.NotNil(t, held.HeldAt)

	assert.Len(t, eventsOfType(f.recorder, s.client.ID, domain.NotificationTypePaymentUpdate), 1)
	assert.Len(t, eventsOfType(f.recorder, s.partnerProfile.ID, domain.NotificationTypePaymentUpdate), 1)

	released, err := f.payments.Release(admin, payment.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusReleased, released.Status)
	assert.NotNil(t, released.ReleasedAt)

	events := eventsOfType(f.recorder, s.partnerProfile.ID, domain.NotificationTypePaymentUpdate)
	require.Len(t, events, 2)
	assert.True(t, events[1].SendEmail)
	assert.Equal(t, "45000.00", events[1].Details["amount"])

	_, err = f.payments.Refund(admin, payment.ID, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	// a released payment still blocks a new one
	_, err = f.payments.Create(as(s.client), &domain.CreatePaymentRequest{OrderID: s.order.ID, Method: domain.PaymentMethodCCP})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestPaymentFail_AllowsNewPayment(t *testing.T) {
	f := newFixture(t)
	s := newOrder(t, f, domain.OrderStatusConfirmed)
	admin := asAdmin(t, f.db)

	first, err := f.payments.Create(as(s.client), &domain.CreatePaymentRequest{OrderID: s.order.ID, Method: domain.PaymentMethodSatimCard})
	require.NoError(t, err)

	failed, err := f.payments.Fail(admin, first.ID, "aucun virement")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, failed.Status)
	assert.Empty(t, f.recorder.Events)

	second, err := f.payments.Create(as(s.client), &domain.CreatePaymentRequest{OrderID: s.order.ID, Method: domain.PaymentMethodCCP})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	held := domain.PaymentStatusHeld
	list, err := f.payments.List(admin, 1, 20, repository.PaymentFilters{OrderID: &s.order.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 2, list.Total)

	list, err = f.payments.List(as(s.client), 1, 20, repository.PaymentFilters{Status: &held})
	require.NoError(t, err)
	assert.EqualValues(t, 0, list.Total)
}
