package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/auth"
	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// validNotificationTypes contains all valid notification type values
var validNotificationTypes = map[string]bool{
	string(domain.NotificationTypeBidReceived):     true,
	string(domain.NotificationTypeBidAccepted):     true,
	string(domain.NotificationTypeBidRejected):     true,
	string(domain.NotificationTypeOrderStatus):     true,
	string(domain.NotificationTypePaymentUpdate):   true,
	string(domain.NotificationTypeNewMessage):      true,
	string(domain.NotificationTypePartnerReviewed): true,
	string(domain.NotificationTypeQuoteClosed):     true,
}

// NotificationStream is the live feed behind the SSE endpoint
type NotificationStream interface {
	Subscribe(userID uuid.UUID) (<-chan domain.NotificationDTO, func())
}

// NotificationHandler handles HTTP requests for notifications
type NotificationHandler struct {
	notificationService *service.NotificationService
	stream              NotificationStream
	heartbeat           time.Duration
	logger              *zap.Logger
}

// NewNotificationHandler creates a NotificationHandler. heartbeat is the
// keep-alive interval of event streams.
func NewNotificationHandler(
	notificationService *service.NotificationService,
	stream NotificationStream,
	heartbeat time.Duration,
	logger *zap.Logger,
) *NotificationHandler {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	return &NotificationHandler{
		notificationService: notificationService,
		stream:              stream,
		heartbeat:           heartbeat,
		logger:              logger,
	}
}

// List godoc
// @Summary List notifications
// @Description Get paginated list of notifications for the current user
// @Tags Notifications
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param unreadOnly query bool false "Filter to show only unread notifications" default(false)
// @Param type query string false "Filter by notification type" Enums(bid_received, bid_accepted, bid_rejected, order_status, payment_update, new_message, partner_reviewed, quote_closed)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.NotificationDTO}
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	unreadOnly := r.URL.Query().Get("unreadOnly") == "true"
	notificationType := r.URL.Query().Get("type")

	if notificationType != "" && !validNotificationTypes[notificationType] {
		respondWithError(w, http.StatusBadRequest, "Type de notification inconnu: "+notificationType)
		return
	}

	result, err := h.notificationService.GetForCurrentUser(r.Context(), page, pageSize, unreadOnly, notificationType)
	if err != nil {
		respondError(w, h.logger, err, "list notifications")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetUnreadCount godoc
// @Summary Get unread notification count
// @Tags Notifications
// @Produce json
// @Success 200 {object} domain.UnreadCountDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /notifications/count [get]
func (h *NotificationHandler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.notificationService.GetUnreadCount(r.Context())
	if err != nil {
		respondError(w, h.logger, err, "count notifications")
		return
	}
	respondJSON(w, http.StatusOK, count)
}

// GetByID godoc
// @Summary Get a notification
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} domain.NotificationDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /notifications/{id} [get]
func (h *NotificationHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	notification, err := h.notificationService.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "get notification")
		return
	}
	respondJSON(w, http.StatusOK, notification)
}

// MarkAsRead godoc
// @Summary Mark a notification as read
// @Tags Notifications
// @Param id path string true "Notification ID"
// @Success 204
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /notifications/{id}/read [put]
func (h *NotificationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.notificationService.MarkAsRead(r.Context(), id); err != nil {
		respondError(w, h.logger, err, "mark notification read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkAllAsRead godoc
// @Summary Mark all notifications as read
// @Tags Notifications
// @Produce json
// @Success 200 {object} map[string]int64
// @Security BearerAuth
// @Router /notifications/read-all [put]
func (h *NotificationHandler) MarkAllAsRead(w http.ResponseWriter, r *http.Request) {
	count, err := h.notificationService.MarkAllAsReadForUser(r.Context())
	if err != nil {
		respondError(w, h.logger, err, "mark all notifications read")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// Stream godoc
// @Summary Stream notifications
// @Description Server-sent events: one "notification" event per new notification, comment heartbeats in between.
// @Description Events missed while disconnected are available from the list endpoint.
// @Tags Notifications
// @Produce text/event-stream
// @Success 200 {object} domain.NotificationDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /notifications/stream [get]
func (h *NotificationHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userCtx, ok := auth.FromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "Authentification requise")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, http.StatusInternalServerError, "Le streaming n'est pas supporté")
		return
	}

	events, cancel := h.stream.Subscribe(userCtx.UserID)
	defer cancel()

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "retry: 5000\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprintf(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case event, open := <-events:
			if !open {
				return
			}
			payload, err := json.Marshal(event)
			if err != nil {
				h.logger.Error("failed to encode notification event", zap.Error(err))
				continue
			}
			if _, err := fmt.Fprintf(w, "event: notification\nid: %s\ndata: %s\n\n", event.ID, payload); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
