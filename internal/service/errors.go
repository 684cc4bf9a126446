package service

import (
	"context"
	"fmt"

	"github.com/atelier-dz/cnc-marketplace-api/internal/auth"
	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
)

// Service errors wrap the domain categories so handlers can map them with
// errors.Is while keeping a French message for the client.
var (
	// ErrUserContextRequired is returned when the request carries no authenticated user
	ErrUserContextRequired = fmt.Errorf("%w: authentification requise", domain.ErrUnauthorized)

	// ErrPartnerProfileRequired is returned when a partner action is attempted without an approved workshop
	ErrPartnerProfileRequired = fmt.Errorf("%w: profil atelier approuvé requis", domain.ErrForbidden)

	// ErrQuoteNotOpen is returned when bidding or editing is attempted on a quote that no longer accepts it
	ErrQuoteNotOpen = fmt.Errorf("%w: la demande de devis n'est plus ouverte", domain.ErrConflict)

	// ErrQuoteAlreadyAwarded is returned by a second acceptance on the same quote
	ErrQuoteAlreadyAwarded = fmt.Errorf("%w: la demande de devis a déjà été attribuée", domain.ErrConflict)

	// ErrBidNotPending is returned when a decided bid is edited, withdrawn or accepted
	ErrBidNotPending = fmt.Errorf("%w: l'offre n'est plus en attente", domain.ErrConflict)

	// ErrInvalidTransition is returned for a status change the state machine does not allow
	ErrInvalidTransition = fmt.Errorf("%w: changement de statut non autorisé", domain.ErrValidation)
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrValidation, fmt.Sprintf(format, args...))
}

func forbidden(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrForbidden, fmt.Sprintf(format, args...))
}

func conflict(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrConflict, fmt.Sprintf(format, args...))
}

// currentUser returns the authenticated actor or ErrUserContextRequired
func currentUser(ctx context.Context) (*auth.UserContext, error) {
	user, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUserContextRequired
	}
	return user, nil
}

// paginate wraps a page of DTOs
func paginate(data interface{}, total int64, page, pageSize int) *domain.PaginatedResponse {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return &domain.PaginatedResponse{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
