package repository

import (
	"context"
	"strings"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PartnerFilters narrows partner listings
type PartnerFilters struct {
	WilayaCode string
	Capability string
	Status     *domain.PartnerStatus
}

type PartnerRepository struct {
	db *gorm.DB
}

func NewPartnerRepository(db *gorm.DB) *PartnerRepository {
	return &PartnerRepository{db: db}
}

// WithTx returns a repository bound to an open transaction
func (r *PartnerRepository) WithTx(tx *gorm.DB) *PartnerRepository {
	return &PartnerRepository{db: tx}
}

func (r *PartnerRepository) Create(ctx context.Context, partner *domain.Partner) error {
	return translateError(r.db.WithContext(ctx).Create(partner).Error, "partner")
}

// GetByID returns a partner visible to the actor in ctx
func (r *PartnerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Partner, error) {
	var partner domain.Partner
	query := ApplyPartnerScope(ctx, r.db.WithContext(ctx).Model(&domain.Partner{})).Where("partners.id = ?", id)
	if err := query.First(&partner).Error; err != nil {
		return nil, translateError(err, "partner")
	}
	return &partner, nil
}

// FindByID bypasses the access policy; for workflow internals only
func (r *PartnerRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Partner, error) {
	var partner domain.Partner
	if err := r.db.WithContext(ctx).First(&partner, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "partner")
	}
	return &partner, nil
}

func (r *PartnerRepository) GetByProfileID(ctx context.Context, profileID uuid.UUID) (*domain.Partner, error) {
	var partner domain.Partner
	if err := r.db.WithContext(ctx).First(&partner, "profile_id = ?", profileID).Error; err != nil {
		return nil, translateError(err, "partner")
	}
	return &partner, nil
}

func (r *PartnerRepository) List(ctx context.Context, page, pageSize int, filters PartnerFilters) ([]domain.Partner, int64, error) {
	var partners []domain.Partner
	var total int64

	query := ApplyPartnerScope(ctx, r.db.WithContext(ctx).Model(&domain.Partner{}))

	if filters.WilayaCode != "" {
		query = query.Where("partners.wilaya_code = ?", filters.WilayaCode)
	}
	if filters.Capability != "" {
		// capabilities is a JSON array stored as text
		query = query.Where("LOWER(partners.capabilities) LIKE ?", "%\""+strings.ToLower(filters.Capability)+"\"%")
	}
	if filters.Status != nil {
		query = query.Where("partners.status = ?", *filters.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "partner")
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order("partners.rating DESC, partners.completed_jobs DESC").Find(&partners).Error
	return partners, total, translateError(err, "partner")
}

func (r *PartnerRepository) Update(ctx context.Context, partner *domain.Partner) error {
	return translateError(r.db.WithContext(ctx).Save(partner).Error, "partner")
}

func (r *PartnerRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.PartnerStatus, note string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&domain.Partner{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":      status,
		"review_note": note,
		"reviewed_at": now,
	})
	if result.Error != nil {
		return translateError(result.Error, "partner")
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound, "partner")
	}
	return nil
}

// IncrementCompletedJobs counts one more delivered order for the partner
func (r *PartnerRepository) IncrementCompletedJobs(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).Model(&domain.Partner{}).Where("id = ?", id).
		UpdateColumn("completed_jobs", gorm.Expr("completed_jobs + 1")).Error
	return translateError(err, "partner")
}

// AddRating folds one rating into the partner's running mean in a single statement
func (r *PartnerRepository) AddRating(ctx context.Context, id uuid.UUID, rating int) error {
	err := r.db.WithContext(ctx).Model(&domain.Partner{}).Where("id = ?", id).Updates(map[string]interface{}{
		"rating":       gorm.Expr("(rating * rating_count + ?) * 1.0 / (rating_count + 1)", rating),
		"rating_count": gorm.Expr("rating_count + 1"),
	}).Error
	return translateError(err, "partner")
}
