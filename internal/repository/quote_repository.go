package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuoteFilters narrows quote listings
type QuoteFilters struct {
	Status   *domain.QuoteStatus
	Material string
	Search   string
}

var quoteSortFields = map[string]string{
	"createdAt": "quotes.created_at",
	"updatedAt": "quotes.updated_at",
	"deadline":  "quotes.deadline",
	"quantity":  "quotes.quantity",
	"partName":  "quotes.part_name",
}

type QuoteRepository struct {
	db *gorm.DB
}

func NewQuoteRepository(db *gorm.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *QuoteRepository) WithTx(tx *gorm.DB) *QuoteRepository {
	return &QuoteRepository{db: tx}
}

func (r *QuoteRepository) Create(ctx context.Context, quote *domain.Quote) error {
	return translateError(r.db.WithContext(ctx).Create(quote).Error, "quote")
}

// GetByID returns a quote visible to the actor in ctx
func (r *QuoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Quote, error) {
	var quote domain.Quote
	query := ApplyQuoteScope(ctx, r.db.WithContext(ctx).Model(&domain.Quote{})).Where("quotes.id = ?", id)
	if err := query.First(&quote).Error; err != nil {
		return nil, translateError(err, "quote")
	}
	return &quote, nil
}

// FindByID bypasses the access policy; for workflow internals only
func (r *QuoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Quote, error) {
	var quote domain.Quote
	if err := r.db.WithContext(ctx).First(&quote, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "quote")
	}
	return &quote, nil
}

func (r *QuoteRepository) List(ctx context.Context, page, pageSize int, filters QuoteFilters, sort SortConfig) ([]domain.Quote, int64, error) {
	var quotes []domain.Quote
	var total int64

	query := ApplyQuoteScope(ctx, r.db.WithContext(ctx).Model(&domain.Quote{}))

	if filters.Status != nil {
		query = query.Where("quotes.status = ?", *filters.Status)
	}
	if filters.Material != "" {
		query = query.Where("LOWER(quotes.material) = ?", strings.ToLower(filters.Material))
	}
	if filters.Search != "" {
		pattern := "%" + strings.ToLower(filters.Search) + "%"
		query = query.Where("LOWER(quotes.part_name) LIKE ? OR LOWER(quotes.description) LIKE ?", pattern, pattern)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "quote")
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).
		Order(BuildOrderClause(sort, quoteSortFields, "quotes.created_at")).
		Find(&quotes).Error
	return quotes, total, translateError(err, "quote")
}

func (r *QuoteRepository) Update(ctx context.Context, quote *domain.Quote) error {
	return translateError(r.db.WithContext(ctx).Save(quote).Error, "quote")
}

func (r *QuoteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return translateError(r.db.WithContext(ctx).Delete(&domain.Quote{}, "id = ?", id).Error, "quote")
}

// TransitionStatus moves a quote from one status to another only if it is
// still in the expected status. Zero rows affected means another writer won.
func (r *QuoteRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to domain.QuoteStatus) error {
	updates := map[string]interface{}{"status": to}
	switch to {
	case domain.QuoteStatusClosed:
		updates["closed_at"] = time.Now()
	case domain.QuoteStatusOpen:
		updates["closed_at"] = nil
	}
	result := r.db.WithContext(ctx).Model(&domain.Quote{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return translateError(result.Error, "quote")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("quote is no longer %s: %w", from, domain.ErrConflict)
	}
	return nil
}

// Award marks the quote awarded with its winning bid. It is a compare-and-swap
// on the quote status: a quote already awarded yields ErrConflict.
func (r *QuoteRepository) Award(ctx context.Context, id, bidID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).Model(&domain.Quote{}).
		Where("id = ? AND status IN ?", id, []domain.QuoteStatus{domain.QuoteStatusOpen, domain.QuoteStatusClosed}).
		Updates(map[string]interface{}{
			"status":         domain.QuoteStatusAwarded,
			"winning_bid_id": bidID,
			"awarded_at":     at,
		})
	if result.Error != nil {
		return translateError(result.Error, "quote")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("quote already awarded: %w", domain.ErrConflict)
	}
	return nil
}

// ListExpiredOpen returns open quotes whose bidding deadline has passed
func (r *QuoteRepository) ListExpiredOpen(ctx context.Context, now time.Time, limit int) ([]domain.Quote, error) {
	var quotes []domain.Quote
	err := r.db.WithContext(ctx).
		Where("status = ? AND deadline IS NOT NULL AND deadline < ?", domain.QuoteStatusOpen, now).
		Order("deadline ASC").
		Limit(limit).
		Find(&quotes).Error
	return quotes, translateError(err, "quote")
}

// CountBids returns the number of bids per quote
func (r *QuoteRepository) CountBids(ctx context.Context, quoteIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(quoteIDs))
	if len(quoteIDs) == 0 {
		return counts, nil
	}
	var rows []struct {
		QuoteID uuid.UUID
		Count   int64
	}
	err := r.db.WithContext(ctx).Model(&domain.Bid{}).
		Select("quote_id, COUNT(*) AS count").
		Where("quote_id IN ?", quoteIDs).
		Group("quote_id").
		Scan(&rows).Error
	if err != nil {
		return nil, translateError(err, "bid")
	}
	for _, row := range rows {
		counts[row.QuoteID] = row.Count
	}
	return counts, nil
}
