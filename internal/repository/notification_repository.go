package repository

import (
	"context"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, notification *domain.Notification) error {
	return translateError(r.db.WithContext(ctx).Create(notification).Error, "notification")
}

func (r *NotificationRepository) CreateBatch(ctx context.Context, notifications []domain.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return translateError(r.db.WithContext(ctx).Create(&notifications).Error, "notification")
}

// GetForUser returns a notification only if it belongs to userID
func (r *NotificationRepository) GetForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Notification, error) {
	var notification domain.Notification
	err := r.db.WithContext(ctx).First(&notification, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return nil, translateError(err, "notification")
	}
	return &notification, nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, pageSize int, unreadOnly bool, notificationType string) ([]domain.Notification, int64, error) {
	var notifications []domain.Notification
	var total int64

	query := r.db.WithContext(ctx).Model(&domain.Notification{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("read = ?", false)
	}
	if notificationType != "" {
		query = query.Where("type = ?", notificationType)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translateError(err, "notification")
	}

	offset := (page - 1) * pageSize
	err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&notifications).Error
	return notifications, total, translateError(err, "notification")
}

func (r *NotificationRepository) MarkAsRead(ctx context.Context, id, userID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{
			"read":    true,
			"read_at": time.Now(),
		})
	if result.Error != nil {
		return translateError(result.Error, "notification")
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound, "notification")
	}
	return nil
}

func (r *NotificationRepository) MarkAllAsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Updates(map[string]interface{}{
			"read":    true,
			"read_at": time.Now(),
		})
	return result.RowsAffected, translateError(result.Error, "notification")
}

func (r *NotificationRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, translateError(err, "notification")
}

// CountForEntity counts the notifications a user received about one entity
func (r *NotificationRepository) CountForEntity(ctx context.Context, userID, entityID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Notification{}).
		Where("user_id = ? AND entity_id = ?", userID, entityID).
		Count(&count).Error
	return count, translateError(err, "notification")
}

// DeleteReadBefore purges read notifications older than cutoff
func (r *NotificationRepository) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("read = ? AND created_at < ?", true, cutoff).
		Delete(&domain.Notification{})
	return result.RowsAffected, translateError(result.Error, "notification")
}
