package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/mapper"
	"github.com/atelier-dz/cnc-marketplace-api/internal/metrics"
	"github.com/atelier-dz/cnc-marketplace-api/internal/notify"
	"github.com/atelier-dz/cnc-marketplace-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BidService handles partner bids and the acceptance workflow that turns a
// bid into an order
type BidService struct {
	db          *gorm.DB
	bidRepo     *repository.BidRepository
	quoteRepo   *repository.QuoteRepository
	partnerRepo *repository.PartnerRepository
	orderRepo   *repository.OrderRepository
	notifier    notify.Dispatcher
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewBidService(
	db *gorm.DB,
	bidRepo *repository.BidRepository,
	quoteRepo *repository.QuoteRepository,
	partnerRepo *repository.PartnerRepository,
	orderRepo *repository.OrderRepository,
	notifier notify.Dispatcher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *BidService {
	return &BidService{
		db:          db,
		bidRepo:     bidRepo,
		quoteRepo:   quoteRepo,
		partnerRepo: partnerRepo,
		orderRepo:   orderRepo,
		notifier:    notifier,
		metrics:     m,
		logger:      logger,
	}
}

// Submit places the current partner's bid on an open quote
func (s *BidService) Submit(ctx context.Context, quoteID uuid.UUID, req *domain.SubmitBidRequest) (*domain.BidDTO, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsPartner() {
		return nil, forbidden("seuls les ateliers peuvent soumettre une offre")
	}
	partner, err := approvedPartner(ctx, s.partnerRepo, user.UserID)
	if err != nil {
		return nil, err
	}
	if err := validateBidTerms(req); err != nil {
		return nil, err
	}

	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	if err := acceptsBids(quote, time.Now().UTC()); err != nil {
		return nil, err
	}

	bid := &domain.Bid{
		QuoteID:      quoteID,
		PartnerID:    partner.ID,
		Amount:       req.Amount,
		DeliveryDays: req.DeliveryDays,
		Note:         strings.TrimSpace(req.Note),
		Status:       domain.BidStatusPending,
	}
	if err := s.bidRepo.Create(ctx, bid); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, conflict("vous avez déjà soumis une offre pour cette demande")
		}
		return nil, fmt.Errorf("failed to create bid: %w", err)
	}
	s.metrics.BidSubmitted()

	s.logger.Info("bid submitted",
		zap.String("bidID", bid.ID.String()),
		zap.String("quoteID", quoteID.String()),
		zap.String("partnerID", partner.ID.String()),
		zap.Float64("amount", bid.Amount),
	)

	entityID := quote.ID
	if err := s.notifier.Notify(ctx, notify.Event{
		UserID:     quote.ClientID,
		Type:       domain.NotificationTypeBidReceived,
		Title:      "Nouvelle offre reçue",
		Message:    fmt.Sprintf("%s propose %s DZD pour « %s », livraison en %d jours.", partner.CompanyName, formatDZD(bid.Amount), quote.PartName, bid.DeliveryDays),
		Link:       "/quotes/" + quote.ID.String(),
		EntityType: "quote",
		EntityID:   &entityID,
		SendEmail:  true,
		Details: map[string]string{
			"partName":     quote.PartName,
			"partner":      partner.CompanyName,
			"amount":       formatDZD(bid.Amount),
			"deliveryDays": fmt.Sprint(bid.DeliveryDays),
		},
	}); err != nil {
		s.logger.Warn("failed to notify bid received", zap.String("bidID", bid.ID.String()), zap.Error(err))
	}

	dto := mapper.ToBidDTO(bid)
	return &dto, nil
}

// Update changes the terms of the current partner's pending bid
func (s *BidService) Update(ctx context.Context, bidID uuid.UUID, req *domain.UpdateBidRequest) (*domain.BidDTO, error) {
	bid, err := s.ownBid(ctx, bidID)
	if err != nil {
		return nil, err
	}
	if err := validateBidTerms(req); err != nil {
		return nil, err
	}
	quote, err := s.quoteRepo.FindByID(ctx, bid.QuoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	if err := acceptsBids(quote, time.Now().UTC()); err != nil {
		return nil, err
	}

	bid.Amount = req.Amount
	bid.DeliveryDays = req.DeliveryDays
	bid.Note = strings.TrimSpace(req.Note)
	if err := s.bidRepo.UpdateTerms(ctx, bid); err != nil {
		return nil, fmt.Errorf("failed to update bid: %w", err)
	}

	updated, err := s.bidRepo.FindByID(ctx, bidID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload bid: %w", err)
	}
	dto := mapper.ToBidDTO(updated)
	return &dto, nil
}

// Withdraw deletes the current partner's pending bid
func (s *BidService) Withdraw(ctx context.Context, bidID uuid.UUID) error {
	bid, err := s.ownBid(ctx, bidID)
	if err != nil {
		return err
	}
	if err := s.bidRepo.DeletePending(ctx, bid.ID); err != nil {
		return fmt.Errorf("failed to withdraw bid: %w", err)
	}
	s.logger.Info("bid withdrawn", zap.String("bidID", bidID.String()), zap.String("quoteID", bid.QuoteID.String()))
	return nil
}

// ListForQuote returns the bids on a quote the caller may see. The quote
// owner sees all of them, a partner only its own.
func (s *BidService) ListForQuote(ctx context.Context, quoteID uuid.UUID) ([]domain.BidDTO, error) {
	if _, err := s.quoteRepo.GetByID(ctx, quoteID); err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	bids, err := s.bidRepo.ListForQuote(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	dtos := make([]domain.BidDTO, len(bids))
	for i := range bids {
		dtos[i] = mapper.ToBidDTO(&bids[i])
	}
	return dtos, nil
}

// ListMine returns the current partner's bids across all quotes
func (s *BidService) ListMine(ctx context.Context, page, pageSize int, status *domain.BidStatus) (*domain.PaginatedResponse, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	partner, err := s.partnerRepo.GetByProfileID(ctx, user.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrPartnerProfileRequired
		}
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}
	if status != nil && !status.IsValid() {
		return nil, invalid("statut d'offre invalide: %s", *status)
	}

	page, pageSize = repository.NormalizePage(page, pageSize, 20)
	bids, total, err := s.bidRepo.ListByPartner(ctx, partner.ID, page, pageSize, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list bids: %w", err)
	}
	dtos := make([]domain.BidDTO, len(bids))
	for i := range bids {
		dtos[i] = mapper.ToBidDTO(&bids[i])
	}
	return paginate(dtos, total, page, pageSize), nil
}

// Accept awards the quote to one bid. In a single transaction the bid is
// accepted, its siblings rejected, the quote awarded and the order created.
// Notifications go out after commit and never undo the acceptance.
func (s *BidService) Accept(ctx context.Context, quoteID, bidID uuid.UUID) (*domain.AcceptBidResultDTO, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	if quote.ClientID != user.UserID && !user.IsAdmin() {
		return nil, forbidden("seul le client peut accepter une offre")
	}
	if !quote.Status.CanAward() {
		return nil, ErrQuoteAlreadyAwarded
	}

	bid, err := s.bidRepo.FindByID(ctx, bidID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}
	if bid.QuoteID != quoteID {
		return nil, fmt.Errorf("bid %w on this quote", domain.ErrNotFound)
	}
	if bid.Status != domain.BidStatusPending {
		return nil, ErrBidNotPending
	}

	now := time.Now().UTC()
	var (
		order    domain.Order
		rejected []domain.Bid
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		bids := s.bidRepo.WithTx(tx)
		if err := bids.Accept(ctx, quoteID, bidID, now); err != nil {
			return err
		}
		var err error
		rejected, err = bids.RejectOthers(ctx, quoteID, bidID, now)
		if err != nil {
			return err
		}
		if err := s.quoteRepo.WithTx(tx).Award(ctx, quoteID, bidID, now); err != nil {
			return err
		}
		order = domain.Order{
			QuoteID:     quoteID,
			BidID:       bidID,
			PartnerID:   bid.PartnerID,
			ClientID:    quote.ClientID,
			TotalAmount: bid.Amount,
			Status:      domain.OrderStatusPending,
		}
		return s.orderRepo.WithTx(tx).Create(ctx, &order)
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("%w (%v)", ErrQuoteAlreadyAwarded, err)
		}
		return nil, fmt.Errorf("failed to accept bid: %w", err)
	}
	s.metrics.BidAccepted()

	s.logger.Info("bid accepted",
		zap.String("quoteID", quoteID.String()),
		zap.String("bidID", bidID.String()),
		zap.String("orderID", order.ID.String()),
		zap.Int("rejected", len(rejected)),
	)

	s.notifyAcceptance(ctx, quote, bid, &order, rejected)

	awarded, err := s.quoteRepo.FindByID(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload quote: %w", err)
	}
	counts, err := s.quoteRepo.CountBids(ctx, []uuid.UUID{quoteID})
	if err != nil {
		return nil, fmt.Errorf("failed to count bids: %w", err)
	}
	bid.Status = domain.BidStatusAccepted
	bid.DecidedAt = &now

	rejectedIDs := make([]uuid.UUID, len(rejected))
	for i := range rejected {
		rejectedIDs[i] = rejected[i].ID
	}
	return &domain.AcceptBidResultDTO{
		Quote:          mapper.ToQuoteDTO(awarded, counts[quoteID]),
		AcceptedBid:    mapper.ToBidDTO(bid),
		RejectedBidIDs: rejectedIDs,
		Order:          mapper.ToOrderDTO(&order),
	}, nil
}

func (s *BidService) notifyAcceptance(ctx context.Context, quote *domain.Quote, bid *domain.Bid, order *domain.Order, rejected []domain.Bid) {
	winner, err := s.partnerRepo.FindByID(ctx, bid.PartnerID)
	if err != nil {
		s.logger.Warn("failed to load winning partner", zap.String("partnerID", bid.PartnerID.String()), zap.Error(err))
	} else {
		orderID := order.ID
		if err := s.notifier.Notify(ctx, notify.Event{
			UserID:     winner.ProfileID,
			Type:       domain.NotificationTypeBidAccepted,
			Title:      "Votre offre a été acceptée",
			Message:    fmt.Sprintf("Votre offre de %s DZD pour « %s » a été retenue. Une commande a été créée.", formatDZD(bid.Amount), quote.PartName),
			Link:       "/orders/" + order.ID.String(),
			EntityType: "order",
			EntityID:   &orderID,
			SendEmail:  true,
			Details: map[string]string{
				"partName": quote.PartName,
				"amount":   formatDZD(bid.Amount),
			},
		}); err != nil {
			s.logger.Warn("failed to notify accepted bid", zap.String("bidID", bid.ID.String()), zap.Error(err))
		}
	}

	for i := range rejected {
		loser, err := s.partnerRepo.FindByID(ctx, rejected[i].PartnerID)
		if err != nil {
			s.logger.Warn("failed to load rejected partner", zap.String("partnerID", rejected[i].PartnerID.String()), zap.Error(err))
			continue
		}
		quoteID := quote.ID
		if err := s.notifier.Notify(ctx, notify.Event{
			UserID:     loser.ProfileID,
			Type:       domain.NotificationTypeBidRejected,
			Title:      "Offre non retenue",
			Message:    fmt.Sprintf("Le client a retenu une autre offre pour « %s ».", quote.PartName),
			Link:       "/quotes/" + quote.ID.String(),
			EntityType: "quote",
			EntityID:   &quoteID,
		}); err != nil {
			s.logger.Warn("failed to notify rejected bid", zap.String("bidID", rejected[i].ID.String()), zap.Error(err))
		}
	}
}

// ownBid loads a bid that belongs to the current partner
func (s *BidService) ownBid(ctx context.Context, bidID uuid.UUID) (*domain.Bid, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsPartner() {
		return nil, forbidden("seuls les ateliers peuvent modifier une offre")
	}
	partner, err := s.partnerRepo.GetByProfileID(ctx, user.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrPartnerProfileRequired
		}
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}
	bid, err := s.bidRepo.GetByID(ctx, bidID)
	if err != nil {
		return nil, fmt.Errorf("failed to get bid: %w", err)
	}
	if bid.PartnerID != partner.ID {
		return nil, forbidden("cette offre ne vous appartient pas")
	}
	if bid.Status != domain.BidStatusPending {
		return nil, ErrBidNotPending
	}
	return bid, nil
}

func acceptsBids(quote *domain.Quote, now time.Time) error {
	if quote.Status != domain.QuoteStatusOpen {
		return ErrQuoteNotOpen
	}
	if quote.Deadline != nil && !quote.Deadline.After(now) {
		return ErrQuoteNotOpen
	}
	return nil
}

func validateBidTerms(req *domain.SubmitBidRequest) error {
	if req.Amount <= 0 {
		return invalid("le montant doit être positif")
	}
	if req.DeliveryDays < 1 {
		return invalid("le délai de livraison doit être d'au moins un jour")
	}
	return nil
}

// formatDZD renders an amount with two decimals for messages
func formatDZD(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}
