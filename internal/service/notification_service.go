package service

import (
	"context"
	"fmt"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/mapper"
	"github.com/atelier-dz/cnc-marketplace-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NotificationService serves the current user's in-app notifications.
// Notifications are created by notify.Dispatcher as workflow side effects.
type NotificationService struct {
	notificationRepo *repository.NotificationRepository
	logger           *zap.Logger
}

// NewNotificationService creates a new NotificationService instance
func NewNotificationService(
	notificationRepo *repository.NotificationRepository,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		logger:           logger,
	}
}

// GetForCurrentUser returns notifications for the current user with pagination
func (s *NotificationService) GetForCurrentUser(
	ctx context.Context,
	page int,
	pageSize int,
	unreadOnly bool,
	notificationType string,
) (*domain.PaginatedResponse, error) {
	userCtx, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	page, pageSize = repository.NormalizePage(page, pageSize, 20)

	notifications, total, err := s.notificationRepo.ListByUser(ctx, userCtx.UserID, page, pageSize, unreadOnly, notificationType)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	dtos := make([]domain.NotificationDTO, len(notifications))
	for i := range notifications {
		dtos[i] = mapper.ToNotificationDTO(&notifications[i])
	}
	return paginate(dtos, total, page, pageSize), nil
}

// GetByID returns one of the current user's notifications. Someone else's
// notification is reported as not found.
func (s *NotificationService) GetByID(ctx context.Context, id uuid.UUID) (*domain.NotificationDTO, error) {
	userCtx, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	notification, err := s.notificationRepo.GetForUser(ctx, id, userCtx.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	dto := mapper.ToNotificationDTO(notification)
	return &dto, nil
}

// MarkAsRead marks a notification as read
func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID uuid.UUID) error {
	userCtx, err := currentUser(ctx)
	if err != nil {
		return err
	}

	if err := s.notificationRepo.MarkAsRead(ctx, notificationID, userCtx.UserID); err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}

	s.logger.Debug("notification marked as read",
		zap.String("notificationID", notificationID.String()),
		zap.String("userID", userCtx.UserID.String()),
	)
	return nil
}

// MarkAllAsReadForUser marks all notifications for the current user as read
func (s *NotificationService) MarkAllAsReadForUser(ctx context.Context) (int64, error) {
	userCtx, err := currentUser(ctx)
	if err != nil {
		return 0, err
	}

	count, err := s.notificationRepo.MarkAllAsRead(ctx, userCtx.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications as read: %w", err)
	}

	s.logger.Info("all notifications marked as read",
		zap.String("userID", userCtx.UserID.String()),
		zap.Int64("count", count),
	)
	return count, nil
}

// GetUnreadCount returns the count of unread notifications for the current user
func (s *NotificationService) GetUnreadCount(ctx context.Context) (*domain.UnreadCountDTO, error) {
	userCtx, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}

	count, err := s.notificationRepo.CountUnread(ctx, userCtx.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return &domain.UnreadCountDTO{Count: count}, nil
}

// PurgeRead deletes read notifications older than retention
func (s *NotificationService) PurgeRead(ctx context.Context, now time.Time, retention time.Duration) (int64, error) {
	cutoff := now.Add(-retention)
	count, err := s.notificationRepo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}
	if count > 0 {
		s.logger.Info("read notifications purged",
			zap.Int64("count", count),
			zap.Time("cutoff", cutoff),
		)
	}
	return count, nil
}
