package domain

// orderTransitions lists the statuses reachable from each order status.
// delivered and cancelled are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:      {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:    {OrderStatusInProduction},
	OrderStatusInProduction: {OrderStatusQC, OrderStatusShipped},
	OrderStatusQC:           {OrderStatusShipped},
	OrderStatusShipped:      {OrderStatusDelivered},
}

// IsValid checks if the OrderStatus is a valid enum value
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusInProduction, OrderStatusQC,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether next is reachable from s in one step
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from s in one step
func (s OrderStatus) NextStatuses() []OrderStatus {
	next := orderTransitions[s]
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

// NotifiesClient reports whether entering this status sends the client a notification
func (s OrderStatus) NotifiesClient() bool {
	switch s {
	case OrderStatusConfirmed, OrderStatusInProduction, OrderStatusShipped, OrderStatusDelivered:
		return true
	}
	return false
}

// Label returns the French label shown to users
func (s OrderStatus) Label() string {
	switch s {
	case OrderStatusPending:
		return "En attente"
	case OrderStatusConfirmed:
		return "Confirmée"
	case OrderStatusInProduction:
		return "En production"
	case OrderStatusQC:
		return "Contrôle qualité"
	case OrderStatusShipped:
		return "Expédiée"
	case OrderStatusDelivered:
		return "Livrée"
	case OrderStatusCancelled:
		return "Annulée"
	}
	return string(s)
}

// CanTransitionTo reports whether the payment may move to next.
// released and refunded both require the funds to be held first.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch s {
	case PaymentStatusPending:
		return next == PaymentStatusHeld || next == PaymentStatusFailed
	case PaymentStatusHeld:
		return next == PaymentStatusReleased || next == PaymentStatusRefunded
	}
	return false
}

// Label returns the French label shown to users
func (s PaymentStatus) Label() string {
	switch s {
	case PaymentStatusPending:
		return "En attente de vérification"
	case PaymentStatusHeld:
		return "Fonds bloqués (séquestre)"
	case PaymentStatusReleased:
		return "Fonds versés au partenaire"
	case PaymentStatusRefunded:
		return "Remboursé"
	case PaymentStatusFailed:
		return "Échoué"
	}
	return string(s)
}
