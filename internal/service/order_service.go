package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/auth"
	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/mapper"
	"github.com/atelier-dz/cnc-marketplace-api/internal/metrics"
	"github.com/atelier-dz/cnc-marketplace-api/internal/notify"
	"github.com/atelier-dz/cnc-marketplace-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OrderService drives orders through production and shipment
type OrderService struct {
	db          *gorm.DB
	orderRepo   *repository.OrderRepository
	partnerRepo *repository.PartnerRepository
	quoteRepo   *repository.QuoteRepository
	notifier    notify.Dispatcher
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewOrderService(
	db *gorm.DB,
	orderRepo *repository.OrderRepository,
	partnerRepo *repository.PartnerRepository,
	quoteRepo *repository.QuoteRepository,
	notifier notify.Dispatcher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		db:          db,
		orderRepo:   orderRepo,
		partnerRepo: partnerRepo,
		quoteRepo:   quoteRepo,
		notifier:    notifier,
		metrics:     m,
		logger:      logger,
	}
}

func (s *OrderService) Get(ctx context.Context, id uuid.UUID) (*domain.OrderDTO, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	dto := mapper.ToOrderDTO(order)
	return &dto, nil
}

func (s *OrderService) List(ctx context.Context, page, pageSize int, filters repository.OrderFilters, sort repository.SortConfig) (*domain.PaginatedResponse, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, invalid("statut de commande invalide: %s", *filters.Status)
	}
	page, pageSize = repository.NormalizePage(page, pageSize, 20)

	orders, total, err := s.orderRepo.List(ctx, page, pageSize, filters, sort)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	dtos := make([]domain.OrderDTO, len(orders))
	for i := range orders {
		dtos[i] = mapper.ToOrderDTO(&orders[i])
	}
	return paginate(dtos, total, page, pageSize), nil
}

// UpdateStatus moves an order one step through its state machine. The
// workshop drives production, the client may cancel a pending order or
// confirm delivery, and admins may apply any valid step.
func (s *OrderService) UpdateStatus(ctx context.Context, id uuid.UUID, next domain.OrderStatus) (*domain.OrderDTO, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if !next.IsValid() {
		return nil, invalid("statut de commande inconnu: %s", next)
	}
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if !order.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, order.Status, next)
	}
	if err := s.checkTransitionRole(ctx, user, order, next); err != nil {
		return nil, err
	}

	from := order.Status
	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.WithTx(tx).TransitionStatus(ctx, id, from, next, now); err != nil {
			return err
		}
		if next == domain.OrderStatusDelivered {
			return s.partnerRepo.WithTx(tx).IncrementCompletedJobs(ctx, order.PartnerID)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	s.metrics.OrderTransition(string(next))

	s.logger.Info("order status changed",
		zap.String("orderID", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(next)),
		zap.String("actor", user.UserID.String()),
	)

	updated, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}
	s.notifyTransition(ctx, user, updated)

	dto := mapper.ToOrderDTO(updated)
	return &dto, nil
}

func (s *OrderService) checkTransitionRole(ctx context.Context, user *auth.UserContext, order *domain.Order, next domain.OrderStatus) error {
	switch {
	case user.IsAdmin():
		return nil
	case user.IsClient():
		if order.ClientID != user.UserID {
			return forbidden("cette commande ne vous appartient pas")
		}
		if next == domain.OrderStatusCancelled || next == domain.OrderStatusDelivered {
			return nil
		}
		return forbidden("seul l'atelier peut faire avancer la production")
	case user.IsPartner():
		if err := s.checkPartnerParty(ctx, user, order); err != nil {
			return err
		}
		if next == domain.OrderStatusCancelled {
			return forbidden("seul le client peut annuler une commande")
		}
		return nil
	}
	return forbidden("action non autorisée")
}

func (s *OrderService) checkPartnerParty(ctx context.Context, user *auth.UserContext, order *domain.Order) error {
	partner, err := s.partnerRepo.FindByID(ctx, order.PartnerID)
	if err != nil {
		return fmt.Errorf("failed to get partner: %w", err)
	}
	if partner.ProfileID != user.UserID {
		return forbidden("cette commande ne vous appartient pas")
	}
	return nil
}

// notifyTransition tells the client about the steps they care about and
// the workshop about a client cancellation or delivery confirmation.
func (s *OrderService) notifyTransition(ctx context.Context, actor *auth.UserContext, order *domain.Order) {
	partName := ""
	if quote, err := s.quoteRepo.FindByID(ctx, order.QuoteID); err == nil {
		partName = quote.PartName
	}
	orderID := order.ID
	link := "/orders/" + order.ID.String()
	label := order.Status.Label()

	if order.Status.NotifiesClient() {
		message := fmt.Sprintf("Votre commande « %s » est maintenant : %s.", partName, strings.ToLower(label))
		if order.Status == domain.OrderStatusShipped && order.TrackingNumber != "" {
			message += fmt.Sprintf(" Suivi %s : %s.", order.Carrier, order.TrackingNumber)
		}
		if err := s.notifier.Notify(ctx, notify.Event{
			UserID:     order.ClientID,
			Type:       domain.NotificationTypeOrderStatus,
			Title:      "Commande " + strings.ToLower(label),
			Message:    message,
			Link:       link,
			EntityType: "order",
			EntityID:   &orderID,
			SendEmail:  true,
			Details: map[string]string{
				"partName": partName,
				"status":   label,
			},
		}); err != nil {
			s.logger.Warn("failed to notify order status", zap.String("orderID", order.ID.String()), zap.Error(err))
		}
	}

	if actor.UserID != order.ClientID {
		return
	}
	if order.Status != domain.OrderStatusCancelled && order.Status != domain.OrderStatusDelivered {
		return
	}
	partner, err := s.partnerRepo.FindByID(ctx, order.PartnerID)
	if err != nil {
		s.logger.Warn("failed to load partner for notification", zap.String("orderID", order.ID.String()), zap.Error(err))
		return
	}
	if err := s.notifier.Notify(ctx, notify.Event{
		UserID:     partner.ProfileID,
		Type:       domain.NotificationTypeOrderStatus,
		Title:      "Commande " + strings.ToLower(label),
		Message:    fmt.Sprintf("Le client a marqué la commande « %s » comme %s.", partName, strings.ToLower(label)),
		Link:       link,
		EntityType: "order",
		EntityID:   &orderID,
	}); err != nil {
		s.logger.Warn("failed to notify partner of order status", zap.String("orderID", order.ID.String()), zap.Error(err))
	}
}

// SetTracking stores the carrier and tracking number given by the workshop
func (s *OrderService) SetTracking(ctx context.Context, id uuid.UUID, req *domain.SetTrackingRequest) (*domain.OrderDTO, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if !user.IsAdmin() {
		if !user.IsPartner() {
			return nil, forbidden("seul l'atelier renseigne le suivi")
		}
		if err := s.checkPartnerParty(ctx, user, order); err != nil {
			return nil, err
		}
	}
	if order.Status.IsTerminal() {
		return nil, conflict("la commande est %s", strings.ToLower(order.Status.Label()))
	}

	carrier := strings.TrimSpace(req.Carrier)
	tracking := strings.TrimSpace(req.TrackingNumber)
	if carrier == "" || tracking == "" {
		return nil, invalid("transporteur et numéro de suivi obligatoires")
	}
	if err := s.orderRepo.SetTracking(ctx, id, carrier, tracking); err != nil {
		return nil, fmt.Errorf("failed to set tracking: %w", err)
	}
	order.Carrier = carrier
	order.TrackingNumber = tracking

	dto := mapper.ToOrderDTO(order)
	return &dto, nil
}

// Rate records the client's 1-5 rating of a delivered order and folds it
// into the workshop's average
func (s *OrderService) Rate(ctx context.Context, id uuid.UUID, rating int) (*domain.OrderDTO, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if rating < 1 || rating > 5 {
		return nil, invalid("la note doit être comprise entre 1 et 5")
	}
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order.ClientID != user.UserID {
		return nil, forbidden("seul le client peut noter la commande")
	}
	if order.Status != domain.OrderStatusDelivered {
		return nil, conflict("seule une commande livrée peut être notée")
	}

	now := time.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.orderRepo.WithTx(tx).SetRating(ctx, id, rating, now); err != nil {
			return err
		}
		return s.partnerRepo.WithTx(tx).AddRating(ctx, order.PartnerID, rating)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to rate order: %w", err)
	}

	order.Rating = &rating
	order.RatedAt = &now
	dto := mapper.ToOrderDTO(order)
	return &dto, nil
}
