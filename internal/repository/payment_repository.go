package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentFilters narrows payment listings
type PaymentFilters struct {
	Status  *domain.PaymentStatus
	OrderID *uuid.UUID
}

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	return translateError(r.db.WithContext(ctx).Create(payment).Error, "payment")
}

// GetByID returns a payment visible to the actor in ctx
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	var payment domain.Payment
	query := ApplyPartyScope(ctx, r.db.WithContext(ctx).Model(&domain.Payment{}), "payments").Where("payments.id = ?", id)
	if err := query.First(&payment).Error; err != nil {
		return nil, translateError(err, "payment")
	}
	return &payment, nil
}

func (r *PaymentRepository) List(ctx context.Context, page, pageSize int, filters PaymentFilters) ([]domain.Payment, int64, error) {
	var payments []domain.Payment
	var total int64

	query := ApplyPartyScope(ctx, r.db.WithContext(ctx).Model(&domain.Payment{}), "payments")
	if filters.Status != nil {
		query = query.Where("payments.status = ?", *filters.Status)
	}
	if filters.OrderID != nil {
		query = query.Where("payments.order_id = ?", *filters.OrderID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "payment")
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order("payments.created_at DESC").Find(&payments).Error
	return payments, total, translateError(err, "payment")
}

// CountActiveForOrder counts payments that still block a new payment on the order
func (r *PaymentRepository) CountActiveForOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Payment{}).
		Where("order_id = ? AND status IN ?", orderID, []domain.PaymentStatus{
			domain.PaymentStatusPending, domain.PaymentStatusHeld, domain.PaymentStatusReleased,
		}).
		Count(&count).Error
	return count, translateError(err, "payment")
}

// TransitionStatus is a compare-and-swap on the payment status
func (r *PaymentRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.PaymentStatus, note string, at time.Time) error {
	updates := map[string]interface{}{"status": to}
	if note != "" {
		updates["admin_note"] = note
	}
	switch to {
	case domain.PaymentStatusHeld:
		updates["held_at"] = at
	case domain.PaymentStatusReleased:
		updates["released_at"] = at
	case domain.PaymentStatusRefunded:
		updates["refunded_at"] = at
	case domain.PaymentStatusFailed:
		updates["failed_at"] = at
	}

	result := r.db.WithContext(ctx).Model(&domain.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return translateError(result.Error, "payment")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("payment status changed concurrently: %w", domain.ErrConflict)
	}
	return nil
}
