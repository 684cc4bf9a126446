package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderFilters narrows order listings
type OrderFilters struct {
	Status  *domain.OrderStatus
	QuoteID *uuid.UUID
}

var orderSortFields = map[string]string{
	"createdAt":   "orders.created_at",
	"updatedAt":   "orders.updated_at",
	"totalAmount": "orders.total_amount",
	"status":      "orders.status",
}

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *OrderRepository) WithTx(tx *gorm.DB) *OrderRepository {
	return &OrderRepository{db: tx}
}

// Create inserts an order. The unique index on bid_id guarantees one order per bid.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return translateError(r.db.WithContext(ctx).Create(order).Error, "order")
}

// GetByID returns an order visible to the actor in ctx
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	query := ApplyPartyScope(ctx, r.db.WithContext(ctx).Model(&domain.Order{}), "orders").Where("orders.id = ?", id)
	if err := query.First(&order).Error; err != nil {
		return nil, translateError(err, "order")
	}
	return &order, nil
}

func (r *OrderRepository) GetByBidID(ctx context.Context, bidID uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	if err := r.db.WithContext(ctx).First(&order, "bid_id = ?", bidID).Error; err != nil {
		return nil, translateError(err, "order")
	}
	return &order, nil
}

func (r *OrderRepository) List(ctx context.Context, page, pageSize int, filters OrderFilters, sort SortConfig) ([]domain.Order, int64, error) {
	var orders []domain.Order
	var total int64

	query := ApplyPartyScope(ctx, r.db.WithContext(ctx).Model(&domain.Order{}), "orders")
	if filters.Status != nil {
		query = query.Where("orders.status = ?", *filters.Status)
	}
	if filters.QuoteID != nil {
		query = query.Where("orders.quote_id = ?", *filters.QuoteID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "order")
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).
		Order(BuildOrderClause(sort, orderSortFields, "orders.created_at")).
		Find(&orders).Error
	return orders, total, translateError(err, "order")
}

// TransitionStatus moves the order from one status to the next, stamping the
// matching timestamp column. It fails with ErrConflict when the order has
// changed since it was read.
func (r *OrderRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, at time.Time) error {
	updates := map[string]interface{}{"status": to}
	switch to {
	case domain.OrderStatusConfirmed:
		updates["confirmed_at"] = at
	case domain.OrderStatusShipped:
		updates["shipped_at"] = at
	case domain.OrderStatusDelivered:
		updates["delivered_at"] = at
	case domain.OrderStatusCancelled:
		updates["cancelled_at"] = at
	}

	result := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return translateError(result.Error, "order")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("order status changed concurrently: %w", domain.ErrConflict)
	}
	return nil
}

func (r *OrderRepository) SetTracking(ctx context.Context, id uuid.UUID, carrier, trackingNumber string) error {
	err := r.db.WithContext(ctx).Model(&domain.Order{}).Where("id = ?", id).Updates(map[string]interface{}{
		"carrier":         carrier,
		"tracking_number": trackingNumber,
	}).Error
	return translateError(err, "order")
}

// SetRating records the client's rating once, on a delivered order
func (r *OrderRepository) SetRating(ctx context.Context, id uuid.UUID, rating int, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ? AND status = ? AND rating IS NULL", id, domain.OrderStatusDelivered).
		Updates(map[string]interface{}{
			"rating":   rating,
			"rated_at": at,
		})
	if result.Error != nil {
		return translateError(result.Error, "order")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("order already rated: %w", domain.ErrConflict)
	}
	return nil
}
