package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BidRepository struct {
	db *gorm.DB
}

func NewBidRepository(db *gorm.DB) *BidRepository {
	return &BidRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *BidRepository) WithTx(tx *gorm.DB) *BidRepository {
	return &BidRepository{db: tx}
}

// Create inserts a bid. A second bid from the same partner on the same quote
// violates idx_bids_quote_partner and yields ErrConflict.
func (r *BidRepository) Create(ctx context.Context, bid *domain.Bid) error {
	return translateError(r.db.WithContext(ctx).Create(bid).Error, "bid")
}

// GetByID returns a bid visible to the actor in ctx
func (r *BidRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Bid, error) {
	var bid domain.Bid
	query := ApplyBidScope(ctx, r.db.WithContext(ctx).Model(&domain.Bid{})).Where("bids.id = ?", id)
	if err := query.First(&bid).Error; err != nil {
		return nil, translateError(err, "bid")
	}
	return &bid, nil
}

// FindByID bypasses the access policy; for workflow internals only
func (r *BidRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Bid, error) {
	var bid domain.Bid
	if err := r.db.WithContext(ctx).First(&bid, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "bid")
	}
	return &bid, nil
}

// ListForQuote returns the bids on a quote visible to the actor, cheapest first
func (r *BidRepository) ListForQuote(ctx context.Context, quoteID uuid.UUID) ([]domain.Bid, error) {
	var bids []domain.Bid
	err := ApplyBidScope(ctx, r.db.WithContext(ctx).Model(&domain.Bid{})).
		Where("bids.quote_id = ?", quoteID).
		Order("bids.amount ASC, bids.created_at ASC").
		Find(&bids).Error
	return bids, translateError(err, "bid")
}

func (r *BidRepository) ListByPartner(ctx context.Context, partnerID uuid.UUID, page, pageSize int, status *domain.BidStatus) ([]domain.Bid, int64, error) {
	var bids []domain.Bid
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Bid{}).Where("partner_id = ?", partnerID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "bid")
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&bids).Error
	return bids, total, translateError(err, "bid")
}

// UpdateTerms rewrites amount, delay and note of a bid that is still pending
func (r *BidRepository) UpdateTerms(ctx context.Context, bid *domain.Bid) error {
	result := r.db.WithContext(ctx).Model(&domain.Bid{}).
		Where("id = ? AND status = ?", bid.ID, domain.BidStatusPending).
		Updates(map[string]interface{}{
			"amount":        bid.Amount,
			"delivery_days": bid.DeliveryDays,
			"note":          bid.Note,
		})
	if result.Error != nil {
		return translateError(result.Error, "bid")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("bid is no longer pending: %w", domain.ErrConflict)
	}
	return nil
}

// DeletePending removes a bid that has not been decided yet
func (r *BidRepository) DeletePending(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ? AND status = ?", id, domain.BidStatusPending).Delete(&domain.Bid{})
	if result.Error != nil {
		return translateError(result.Error, "bid")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("bid is no longer pending: %w", domain.ErrConflict)
	}
	return nil
}

// Accept flips one pending bid of the quote to accepted. Together with the
// partial unique index on accepted bids this rejects a second acceptance.
func (r *BidRepository) Accept(ctx context.Context, quoteID, bidID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&domain.Bid{}).
		Where("id = ? AND quote_id = ? AND status = ?", bidID, quoteID, domain.BidStatusPending).
		Updates(map[string]interface{}{
			"status":     domain.BidStatusAccepted,
			"decided_at": at,
		})
	if result.Error != nil {
		return translateError(result.Error, "bid")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("bid is not pending on this quote: %w", domain.ErrConflict)
	}
	return nil
}

// RejectOthers rejects every bid of the quote except keepID and returns the
// bids that were rejected by this call.
func (r *BidRepository) RejectOthers(ctx context.Context, quoteID, keepID uuid.UUID, at time.Time) ([]domain.Bid, error) {
	var siblings []domain.Bid
	err := r.db.WithContext(ctx).
		Where("quote_id = ? AND id <> ? AND status = ?", quoteID, keepID, domain.BidStatusPending).
		Find(&siblings).Error
	if err != nil {
		return nil, translateError(err, "bid")
	}
	if len(siblings) == 0 {
		return siblings, nil
	}

	ids := make([]uuid.UUID, len(siblings))
	for i := range siblings {
		ids[i] = siblings[i].ID
		siblings[i].Status = domain.BidStatusRejected
		siblings[i].DecidedAt = &at
	}
	err = r.db.WithContext(ctx).Model(&domain.Bid{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":     domain.BidStatusRejected,
			"decided_at": at,
		}).Error
	return siblings, translateError(err, "bid")
}

// PartnerHasBid reports whether the partner owned by profileID has bid on the quote
func (r *BidRepository) PartnerHasBid(ctx context.Context, quoteID, profileID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Bid{}).
		Where("quote_id = ? AND partner_id IN ("+partnerIDsOfProfile+")", quoteID, profileID).
		Count(&count).Error
	return count > 0, translateError(err, "bid")
}

// CountByStatus returns the number of bids of the quote in the given status
func (r *BidRepository) CountByStatus(ctx context.Context, quoteID uuid.UUID, status domain.BidStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Bid{}).
		Where("quote_id = ? AND status = ?", quoteID, status).
		Count(&count).Error
	return count, translateError(err, "bid")
}
