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
)

// PaymentService records escrow payments. Funds are verified and moved by
// an administrator; the platform only tracks their state.
type PaymentService struct {
	paymentRepo *repository.PaymentRepository
	orderRepo   *repository.OrderRepository
	partnerRepo *repository.PartnerRepository
	notifier    notify.Dispatcher
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewPaymentService(
	paymentRepo *repository.PaymentRepository,
	orderRepo *repository.OrderRepository,
	partnerRepo *repository.PartnerRepository,
	notifier notify.Dispatcher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		partnerRepo: partnerRepo,
		notifier:    notifier,
		metrics:     m,
		logger:      logger,
	}
}

// Create declares the client's payment for one of their orders
func (s *PaymentService) Create(ctx context.Context, req *domain.CreatePaymentRequest) (*domain.PaymentDTO, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if !req.Method.IsValid() {
		return nil, invalid("moyen de paiement inconnu: %s", req.Method)
	}

	order, err := s.orderRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order.ClientID != user.UserID {
		return nil, forbidden("seul le client de la commande peut la payer")
	}
	if order.Status == domain.OrderStatusCancelled {
		return nil, conflict("la commande est annulée")
	}

	amount := order.TotalAmount
	if req.Amount != nil {
		if *req.Amount <= 0 {
			return nil, invalid("le montant doit être positif")
		}
		amount = *req.Amount
	}

	active, err := s.paymentRepo.CountActiveForOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check payments: %w", err)
	}
	if active > 0 {
		return nil, conflict("un paiement est déjà en cours pour cette commande")
	}

	payment := &domain.Payment{
		OrderID:   order.ID,
		ClientID:  order.ClientID,
		PartnerID: order.PartnerID,
		Amount:    amount,
		Method:    req.Method,
		Status:    domain.PaymentStatusPending,
		Reference: strings.TrimSpace(req.Reference),
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, conflict("un paiement est déjà en cours pour cette commande")
		}
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}
	s.metrics.PaymentTransition(string(domain.PaymentStatusPending))

	s.logger.Info("payment declared",
		zap.String("paymentID", payment.ID.String()),
		zap.String("orderID", order.ID.String()),
		zap.String("method", string(payment.Method)),
		zap.Float64("amount", amount),
	)
	dto := mapper.ToPaymentDTO(payment)
	return &dto, nil
}

func (s *PaymentService) Get(ctx context.Context, id uuid.UUID) (*domain.PaymentDTO, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	dto := mapper.ToPaymentDTO(payment)
	return &dto, nil
}

func (s *PaymentService) List(ctx context.Context, page, pageSize int, filters repository.PaymentFilters) (*domain.PaginatedResponse, error) {
	if filters.Status != nil && !filters.Status.IsValid() {
		return nil, invalid("statut de paiement invalide: %s", *filters.Status)
	}
	page, pageSize = repository.NormalizePage(page, pageSize, 20)

	payments, total, err := s.paymentRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	dtos := make([]domain.PaymentDTO, len(payments))
	for i := range payments {
		dtos[i] = mapper.ToPaymentDTO(&payments[i])
	}
	return paginate(dtos, total, page, pageSize), nil
}

// Hold confirms that the client's funds were received and are held in escrow
func (s *PaymentService) Hold(ctx context.Context, id uuid.UUID, note string) (*domain.PaymentDTO, error) {
	return s.transition(ctx, id, domain.PaymentStatusHeld, note)
}

// Release pays the held funds out to the workshop
func (s *PaymentService) Release(ctx context.Context, id uuid.UUID, note string) (*domain.PaymentDTO, error) {
	return s.transition(ctx, id, domain.PaymentStatusReleased, note)
}

// Refund returns the held funds to the client
func (s *PaymentService) Refund(ctx context.Context, id uuid.UUID, note string) (*domain.PaymentDTO, error) {
	return s.transition(ctx, id, domain.PaymentStatusRefunded, note)
}

// Fail marks a declared payment that never arrived
func (s *PaymentService) Fail(ctx context.Context, id uuid.UUID, note string) (*domain.PaymentDTO, error) {
	return s.transition(ctx, id, domain.PaymentStatusFailed, note)
}

func (s *PaymentService) transition(ctx context.Context, id uuid.UUID, next domain.PaymentStatus, note string) (*domain.PaymentDTO, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, forbidden("réservé aux administrateurs")
	}

	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if !payment.Status.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, payment.Status, next)
	}

	now := time.Now().UTC()
	note = strings.TrimSpace(note)
	if err := s.paymentRepo.TransitionStatus(ctx, id, payment.Status, next, note, now); err != nil {
		return nil, fmt.Errorf("failed to update payment: %w", err)
	}
	s.metrics.PaymentTransition(string(next))

	s.logger.Info("payment status changed",
		zap.String("paymentID", id.String()),
		zap.String("from", string(payment.Status)),
		zap.String("to", string(next)),
		zap.String("admin", user.UserID.String()),
	)

	updated, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload payment: %w", err)
	}
	s.notifyParties(ctx, updated)

	dto := mapper.ToPaymentDTO(updated)
	return &dto, nil
}

// notifyParties tells client and workshop when funds are held, released or refunded
func (s *PaymentService) notifyParties(ctx context.Context, payment *domain.Payment) {
	switch payment.Status {
	case domain.PaymentStatusHeld, domain.PaymentStatusReleased, domain.PaymentStatusRefunded:
	default:
		return
	}

	recipients := []uuid.UUID{payment.ClientID}
	if partner, err := s.partnerRepo.FindByID(ctx, payment.PartnerID); err == nil {
		recipients = append(recipients, partner.ProfileID)
	} else {
		s.logger.Warn("failed to load partner for payment notification", zap.String("paymentID", payment.ID.String()), zap.Error(err))
	}

	label := payment.Status.Label()
	orderID := payment.OrderID
	for _, userID := range recipients {
		if err := s.notifier.Notify(ctx, notify.Event{
			UserID:     userID,
			Type:       domain.NotificationTypePaymentUpdate,
			Title:      "Paiement : " + strings.ToLower(label),
			Message:    fmt.Sprintf("Le paiement de %s DZD est passé au statut « %s ».", formatDZD(payment.Amount), label),
			Link:       "/orders/" + payment.OrderID.String(),
			EntityType: "order",
			EntityID:   &orderID,
			SendEmail:  true,
			Details: map[string]string{
				"amount": formatDZD(payment.Amount),
				"status": label,
			},
		}); err != nil {
			s.logger.Warn("failed to notify payment update", zap.String("paymentID", payment.ID.String()), zap.Error(err))
		}
	}
}
