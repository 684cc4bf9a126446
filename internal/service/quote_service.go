package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/mapper"
	"github.com/atelier-dz/cnc-marketplace-api/internal/notify"
	"github.com/atelier-dz/cnc-marketplace-api/internal/repository"
	"github.com/atelier-dz/cnc-marketplace-api/internal/shipping"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuoteService handles the client side of requests for quotation
type QuoteService struct {
	quoteRepo *repository.QuoteRepository
	notifier  notify.Dispatcher
	logger    *zap.Logger
}

func NewQuoteService(quoteRepo *repository.QuoteRepository, notifier notify.Dispatcher, logger *zap.Logger) *QuoteService {
	return &QuoteService{
		quoteRepo: quoteRepo,
		notifier:  notifier,
		logger:    logger,
	}
}

// Create publishes a new quote for the current client
func (s *QuoteService) Create(ctx context.Context, req *domain.CreateQuoteRequest) (*domain.QuoteDTO, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsClient() {
		return nil, forbidden("seuls les clients peuvent publier une demande de devis")
	}

	quote := &domain.Quote{
		ClientID: user.UserID,
		Status:   domain.QuoteStatusOpen,
	}
	if err := applyQuoteRequest(quote, req, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.quoteRepo.Create(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to create quote: %w", err)
	}

	s.logger.Info("quote created",
		zap.String("quoteID", quote.ID.String()),
		zap.String("clientID", user.UserID.String()),
		zap.String("material", quote.Material),
		zap.Int("quantity", quote.Quantity),
	)
	dto := mapper.ToQuoteDTO(quote, 0)
	return &dto, nil
}

func (s *QuoteService) Get(ctx context.Context, id uuid.UUID) (*domain.QuoteDTO, error) {
	quote, err := s.quoteRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	counts, err := s.quoteRepo.CountBids(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("failed to count bids: %w", err)
	}
	dto := mapper.ToQuoteDTO(quote, counts[id])
	return &dto, nil
}

func (s *QuoteService) List(ctx context.Context, page, pageSize int, filters repository.QuoteFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, invalid("statut de devis invalide: %s", *filters.Status)
	}
	page, pageSize = repository.NormalizePage(page, pageSize, 20)

	quotes, total, err := s.quoteRepo.List(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list quotes: %w", err)
	}

	ids := make([]uuid.UUID, len(quotes))
	for i := range quotes {
		ids[i] = quotes[i].ID
	}
	counts, err := s.quoteRepo.CountBids(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to count bids: %w", err)
	}

	dtos := make([]domain.QuoteDTO, len(quotes))
	for i := range quotes {
		dtos[i] = mapper.ToQuoteDTO(&quotes[i], counts[quotes[i].ID])
	}
	return paginate(dtos, total, page, pageSize), nil
}

// Update edits a quote while it is open and nobody has bid on it yet
func (s *QuoteService) Update(ctx context.Context, id uuid.UUID, req *domain.UpdateQuoteRequest) (*domain.QuoteDTO, error) {
	quote, err := s.editableQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyQuoteRequest(quote, req, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := s.quoteRepo.Update(ctx, quote); err != nil {
		return nil, fmt.Errorf("failed to update quote: %w", err)
	}
	dto := mapper.ToQuoteDTO(quote, 0)
	return &dto, nil
}

// Delete removes a quote while it is open and nobody has bid on it yet
func (s *QuoteService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.editableQuote(ctx, id); err != nil {
		return err
	}
	if err := s.quoteRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete quote: %w", err)
	}
	s.logger.Info("quote deleted", zap.String("quoteID", id.String()))
	return nil
}

// Close stops bidding. Bids already received can still be accepted.
func (s *QuoteService) Close(ctx context.Context, id uuid.UUID) (*domain.QuoteDTO, error) {
	return s.transition(ctx, id, domain.QuoteStatusOpen, domain.QuoteStatusClosed)
}

// Reopen resumes bidding on a closed quote
func (s *QuoteService) Reopen(ctx context.Context, id uuid.UUID) (*domain.QuoteDTO, error) {
	quote, err := s.ownedQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	if quote.Deadline != nil && !quote.Deadline.After(time.Now().UTC()) {
		return nil, invalid("l'échéance est dépassée, modifiez-la avant de rouvrir")
	}
	return s.transition(ctx, id, domain.QuoteStatusClosed, domain.QuoteStatusOpen)
}

func (s *QuoteService) transition(ctx context.Context, id uuid.UUID, from, to domain.QuoteStatus) (*domain.QuoteDTO, error) {
	quote, err := s.ownedQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	if quote.Status != from {
		return nil, conflict("la demande de devis est %s", quote.Status)
	}
	if err := s.quoteRepo.TransitionStatus(ctx, id, from, to); err != nil {
		return nil, fmt.Errorf("failed to change quote status: %w", err)
	}
	s.logger.Info("quote status changed",
		zap.String("quoteID", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
	return s.Get(ctx, id)
}

// CloseExpired closes open quotes whose deadline has passed and tells their
// owners. It returns the number of quotes closed.
func (s *QuoteService) CloseExpired(ctx context.Context, now time.Time, batchSize int) (int, error) {
	quotes, err := s.quoteRepo.ListExpiredOpen(ctx, now, batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired quotes: %w", err)
	}

	closed := 0
	for i := range quotes {
		quote := &quotes[i]
		err := s.quoteRepo.TransitionStatus(ctx, quote.ID, domain.QuoteStatusOpen, domain.QuoteStatusClosed)
		if errors.Is(err, domain.ErrConflict) {
			continue
		}
		if err != nil {
			return closed, fmt.Errorf("failed to close quote %s: %w", quote.ID, err)
		}
		closed++

		entityID := quote.ID
		if err := s.notifier.Notify(ctx, notify.Event{
			UserID:     quote.ClientID,
			Type:       domain.NotificationTypeQuoteClosed,
			Title:      "Appel d'offres clôturé",
			Message:    fmt.Sprintf("L'échéance de « %s » est passée, les offres reçues restent consultables.", quote.PartName),
			Link:       "/quotes/" + quote.ID.String(),
			EntityType: "quote",
			EntityID:   &entityID,
		}); err != nil {
			s.logger.Warn("failed to notify quote closure", zap.String("quoteID", quote.ID.String()), zap.Error(err))
		}
	}
	return closed, nil
}

// ownedQuote loads a quote the current user may manage
func (s *QuoteService) ownedQuote(ctx context.Context, id uuid.UUID) (*domain.Quote, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	quote, err := s.quoteRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	if quote.ClientID != user.UserID && !user.IsAdmin() {
		return nil, forbidden("cette demande de devis ne vous appartient pas")
	}
	return quote, nil
}

func (s *QuoteService) editableQuote(ctx context.Context, id uuid.UUID) (*domain.Quote, error) {
	quote, err := s.ownedQuote(ctx, id)
	if err != nil {
		return nil, err
	}
	if quote.Status != domain.QuoteStatusOpen {
		return nil, ErrQuoteNotOpen
	}
	counts, err := s.quoteRepo.CountBids(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("failed to count bids: %w", err)
	}
	if counts[id] > 0 {
		return nil, conflict("des offres ont déjà été reçues pour cette demande")
	}
	return quote, nil
}

func applyQuoteRequest(quote *domain.Quote, req *domain.CreateQuoteRequest, now time.Time) error {
	partName := strings.TrimSpace(req.PartName)
	material := strings.TrimSpace(req.Material)
	if partName == "" || material == "" {
		return invalid("la pièce et la matière sont obligatoires")
	}
	if req.Quantity < 1 {
		return invalid("la quantité doit être au moins 1")
	}
	if req.TargetBudget != nil && *req.TargetBudget <= 0 {
		return invalid("le budget cible doit être positif")
	}

	wilaya := ""
	if req.DeliveryWilaya != "" {
		code, ok := shipping.NormalizeCode(req.DeliveryWilaya)
		if !ok {
			return invalid("wilaya inconnue: %s", req.DeliveryWilaya)
		}
		wilaya = code
	}

	var deadline *time.Time
	if req.Deadline != nil {
		d := req.Deadline.UTC()
		if !d.After(now) {
			return invalid("l'échéance doit être dans le futur")
		}
		deadline = &d
	}

	quote.PartName = partName
	quote.Material = material
	quote.Quantity = req.Quantity
	quote.Description = strings.TrimSpace(req.Description)
	quote.DeliveryWilaya = wilaya
	quote.TargetBudget = req.TargetBudget
	quote.Deadline = deadline
	return nil
}
