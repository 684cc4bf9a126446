package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var allOrderStatuses = []OrderStatus{
	OrderStatusPending, OrderStatusConfirmed, OrderStatusInProduction, OrderStatusQC,
	OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled,
}

func TestOrderStatus_Transitions(t *testing.T) {
	allowed := map[OrderStatus][]OrderStatus{
		OrderStatusPending:      {OrderStatusConfirmed, OrderStatusCancelled},
		OrderStatusConfirmed:    {OrderStatusInProduction},
		OrderStatusInProduction: {OrderStatusQC, OrderStatusShipped},
		OrderStatusQC:           {OrderStatusShipped},
		OrderStatusShipped:      {OrderStatusDelivered},
	}

	for _, from := range allOrderStatuses {
		for _, to := range allOrderStatuses {
			want := false
			for _, next := range allowed[from] {
				if next == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestOrderStatus_CancelOnlyFromPending(t *testing.T) {
	for _, from := range allOrderStatuses {
		assert.Equal(t, from == OrderStatusPending, from.CanTransitionTo(OrderStatusCancelled), from)
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	for _, s := range allOrderStatuses {
		terminal := s == OrderStatusDelivered || s == OrderStatusCancelled
		assert.Equal(t, terminal, s.IsTerminal(), s)
		assert.Equal(t, terminal, len(s.NextStatuses()) == 0, s)
	}
}

func TestOrderStatus_NextStatusesIsACopy(t *testing.T) {
	next := OrderStatusPending.NextStatuses()
	next[0] = OrderStatusDelivered
	assert.True(t, OrderStatusPending.CanTransitionTo(OrderStatusConfirmed))
}

func TestOrderStatus_IsValid(t *testing.T) {
	for _, s := range allOrderStatuses {
		assert.True(t, s.IsValid(), s)
		assert.NotEqual(t, string(s), s.Label(), "missing label for %s", s)
	}
	assert.False(t, OrderStatus("lost").IsValid())
}

func TestPaymentStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to PaymentStatus
		want     bool
	}{
		{PaymentStatusPending, PaymentStatusHeld, true},
		{PaymentStatusPending, PaymentStatusFailed, true},
		{PaymentStatusPending, PaymentStatusReleased, false},
		{PaymentStatusPending, PaymentStatusRefunded, false},
		{PaymentStatusHeld, PaymentStatusReleased, true},
		{PaymentStatusHeld, PaymentStatusRefunded, true},
		{PaymentStatusHeld, PaymentStatusFailed, false},
		{PaymentStatusReleased, PaymentStatusRefunded, false},
		{PaymentStatusRefunded, PaymentStatusHeld, false},
		{PaymentStatusFailed, PaymentStatusPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestPaymentStatus_IsActive(t *testing.T) {
	assert.True(t, PaymentStatusPending.IsActive())
	assert.True(t, PaymentStatusHeld.IsActive())
	assert.True(t, PaymentStatusReleased.IsActive())
	assert.False(t, PaymentStatusRefunded.IsActive())
	assert.False(t, PaymentStatusFailed.IsActive())
}

func TestQuoteStatus_CanAward(t *testing.T) {
	assert.True(t, QuoteStatusOpen.CanAward())
	assert.True(t, QuoteStatusClosed.CanAward())
	assert.False(t, QuoteStatusAwarded.CanAward())
}

func TestUserRole_IsValid(t *testing.T) {
	for _, r := range []UserRole{RoleClient, RolePartner, RoleAdmin} {
		assert.True(t, r.IsValid(), r)
	}
	assert.False(t, UserRole("").IsValid())
	assert.False(t, UserRole("manager").IsValid())
}
