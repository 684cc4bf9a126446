package repository

import (
	"context"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create appends a message; messages are never edited afterwards
func (r *MessageRepository) Create(ctx context.Context, message *domain.Message) error {
	return translateError(r.db.WithContext(ctx).Create(message).Error, "message")
}

// ListForQuote returns the conversation on a quote visible to the actor,
// oldest first. A non-nil since returns only messages created after it.
func (r *MessageRepository) ListForQuote(ctx context.Context, quoteID uuid.UUID, since *time.Time, limit int) ([]domain.Message, error) {
	var messages []domain.Message
	query := ApplyMessageScope(ctx, r.db.WithContext(ctx).Model(&domain.Message{})).
		Where("messages.quote_id = ?", quoteID)
	if since != nil {
		query = query.Where("messages.created_at > ?", *since)
	}
	err := query.Order("messages.created_at ASC").Limit(limit).Find(&messages).Error
	return messages, translateError(err, "message")
}

func (r *MessageRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	var message domain.Message
	query := ApplyMessageScope(ctx, r.db.WithContext(ctx).Model(&domain.Message{})).Where("messages.id = ?", id)
	if err := query.First(&message).Error; err != nil {
		return nil, translateError(err, "message")
	}
	return &message, nil
}

// MarkRead flags the messages of a quote addressed to receiverID as read
func (r *MessageRepository) MarkRead(ctx context.Context, quoteID, receiverID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("quote_id = ? AND receiver_id = ? AND is_read = ?", quoteID, receiverID, false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": time.Now(),
		})
	return result.RowsAffected, translateError(result.Error, "message")
}

func (r *MessageRepository) CountUnread(ctx context.Context, receiverID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("receiver_id = ? AND is_read = ?", receiverID, false).
		Count(&count).Error
	return count, translateError(err, "message")
}
