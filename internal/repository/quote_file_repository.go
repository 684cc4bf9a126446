package repository

import (
	"context"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type QuoteFileRepository struct {
	db *gorm.DB
}

func NewQuoteFileRepository(db *gorm.DB) *QuoteFileRepository {
	return &QuoteFileRepository{db: db}
}

func (r *QuoteFileRepository) Create(ctx context.Context, file *domain.QuoteFile) error {
	return translateError(r.db.WithContext(ctx).Create(file).Error, "file")
}

func (r *QuoteFileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.QuoteFile, error) {
	var file domain.QuoteFile
	if err := r.db.WithContext(ctx).First(&file, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "file")
	}
	return &file, nil
}

// ListByQuote returns all files attached to a quote
func (r *QuoteFileRepository) ListByQuote(ctx context.Context, quoteID uuid.UUID) ([]domain.QuoteFile, error) {
	var files []domain.QuoteFile
	err := r.db.WithContext(ctx).
		Where("quote_id = ?", quoteID).
		Order("created_at DESC").
		Find(&files).Error
	return files, translateError(err, "file")
}

func (r *QuoteFileRepository) CountByQuote(ctx context.Context, quoteID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.QuoteFile{}).Where("quote_id = ?", quoteID).Count(&count).Error
	return count, translateError(err, "file")
}

func (r *QuoteFileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return translateError(r.db.WithContext(ctx).Delete(&domain.QuoteFile{}, "id = ?", id).Error, "file")
}
