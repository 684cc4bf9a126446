package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NumberSequenceRepository issues gap-free document numbers per prefix and year
type NumberSequenceRepository struct {
	db *gorm.DB
}

func NewNumberSequenceRepository(db *gorm.DB) *NumberSequenceRepository {
	return &NumberSequenceRepository{db: db}
}

// Next atomically increments and returns the sequence for prefix/year,
// creating it at 1 on first use. The row is locked for the duration of the
// transaction so concurrent callers never receive the same value.
func (r *NumberSequenceRepository) Next(ctx context.Context, prefix string, year int) (int, error) {
	var next int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq domain.NumberSequence
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("prefix = ? AND year = ?", prefix, year).
			First(&seq)

		switch {
		case errors.Is(result.Error, gorm.ErrRecordNotFound):
			seq = domain.NumberSequence{
				Prefix:       prefix,
				Year:         year,
				LastSequence: 1,
			}
			if err := tx.Create(&seq).Error; err != nil {
				return fmt.Errorf("failed to create number sequence: %w", err)
			}
			next = 1
		case result.Error != nil:
			return fmt.Errorf("failed to get number sequence: %w", result.Error)
		default:
			next = seq.LastSequence + 1
			if err := tx.Model(&seq).Updates(map[string]interface{}{
				"last_sequence": next,
				"updated_at":    time.Now(),
			}).Error; err != nil {
				return fmt.Errorf("failed to update number sequence: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, translateError(err, "number sequence")
	}
	return next, nil
}

// Current returns the last issued value, or 0 when none was issued yet
func (r *NumberSequenceRepository) Current(ctx context.Context, prefix string, year int) (int, error) {
	var seq domain.NumberSequence
	err := r.db.WithContext(ctx).Where("prefix = ? AND year = ?", prefix, year).First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, translateError(err, "number sequence")
	}
	return seq.LastSequence, nil
}

func (r *NumberSequenceRepository) List(ctx context.Context) ([]domain.NumberSequence, error) {
	var sequences []domain.NumberSequence
	err := r.db.WithContext(ctx).Order("prefix ASC, year DESC").Find(&sequences).Error
	return sequences, translateError(err, "number sequence")
}
