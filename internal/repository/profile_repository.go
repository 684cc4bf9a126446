package repository

import (
	"context"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	var profile domain.Profile
	err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err, "profile")
	}
	return &profile, nil
}

// GetByIDs loads several profiles at once, keyed by ID
func (r *ProfileRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.Profile, error) {
	out := make(map[uuid.UUID]domain.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var profiles []domain.Profile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, translateError(err, "profile")
	}
	for _, p := range profiles {
		out[p.ID] = p
	}
	return out, nil
}

// Upsert creates the profile on first sight and keeps the token-owned fields
// (email and role) in sync afterwards. Profile details edited by the user are
// left alone.
func (r *ProfileRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	var existing domain.Profile
	err := r.db.WithContext(ctx).First(&existing, "id = ?", profile.ID).Error
	if err == gorm.ErrRecordNotFound {
		return translateError(r.db.WithContext(ctx).Create(profile).Error, "profile")
	}
	if err != nil {
		return translateError(err, "profile")
	}

	if existing.Email == profile.Email && existing.Role == profile.Role {
		*profile = existing
		return nil
	}
	existing.Email = profile.Email
	existing.Role = profile.Role
	err = r.db.WithContext(ctx).Model(&existing).Updates(map[string]interface{}{
		"email": existing.Email,
		"role":  existing.Role,
	}).Error
	if err != nil {
		return translateError(err, "profile")
	}
	*profile = existing
	return nil
}

func (r *ProfileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	return translateError(r.db.WithContext(ctx).Save(profile).Error, "profile")
}
