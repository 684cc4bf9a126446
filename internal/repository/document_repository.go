package repository

import (
	"context"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, document *domain.Document) error {
	return translateError(r.db.WithContext(ctx).Create(document).Error, "document")
}

func (r *DocumentRepository) GetByNumber(ctx context.Context, number string) (*domain.Document, error) {
	var document domain.Document
	if err := r.db.WithContext(ctx).First(&document, "number = ?", number).Error; err != nil {
		return nil, translateError(err, "document")
	}
	return &document, nil
}

// FindForBid returns the archived devis issued for a bid, if any
func (r *DocumentRepository) FindForBid(ctx context.Context, bidID uuid.UUID) (*domain.Document, error) {
	var document domain.Document
	err := r.db.WithContext(ctx).
		Where("kind = ? AND bid_id = ?", domain.DocumentKindQuote, bidID).
		Order("created_at DESC").
		First(&document).Error
	if err != nil {
		return nil, translateError(err, "document")
	}
	return &document, nil
}

// FindForOrder returns the archived invoice issued for an order, if any
func (r *DocumentRepository) FindForOrder(ctx context.Context, orderID uuid.UUID) (*domain.Document, error) {
	var document domain.Document
	err := r.db.WithContext(ctx).
		Where("kind = ? AND order_id = ?", domain.DocumentKindInvoice, orderID).
		Order("created_at DESC").
		First(&document).Error
	if err != nil {
		return nil, translateError(err, "document")
	}
	return &document, nil
}

func (r *DocumentRepository) ListByQuote(ctx context.Context, quoteID uuid.UUID) ([]domain.Document, error) {
	var documents []domain.Document
	err := r.db.WithContext(ctx).Where("quote_id = ?", quoteID).Order("created_at DESC").Find(&documents).Error
	return documents, translateError(err, "document")
}

func (r *DocumentRepository) Update(ctx context.Context, document *domain.Document) error {
	return translateError(r.db.WithContext(ctx).Save(document).Error, "document")
}
