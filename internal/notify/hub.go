package notify

import (
	"sync"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Hub fans notifications out to the server-sent event streams open on this
// process. Slow subscribers lose events rather than block publishers; the
// polling endpoints remain the source of truth.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uuid.UUID]map[*subscription]struct{}
	buffer  int
	closed  bool
	metrics *metrics.Metrics
	logger  *zap.Logger
}

type subscription struct {
	ch   chan domain.NotificationDTO
	once sync.Once
}

// NewHub creates a hub with the given per-subscriber buffer
func NewHub(buffer int, m *metrics.Metrics, logger *zap.Logger) *Hub {
	if buffer < 1 {
		buffer = 16
	}
	return &Hub{
		subs:    make(map[uuid.UUID]map[*subscription]struct{}),
		buffer:  buffer,
		metrics: m,
		logger:  logger,
	}
}

// Subscribe registers a stream for userID. The returned cancel function must
// be called when the stream ends; it closes the channel.
func (h *Hub) Subscribe(userID uuid.UUID) (<-chan domain.NotificationDTO, func()) {
	sub := &subscription{ch: make(chan domain.NotificationDTO, h.buffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*subscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	h.mu.Unlock()
	h.metrics.SSESubscribed()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if set, ok := h.subs[userID]; ok {
			if _, ok := set[sub]; ok {
				delete(set, sub)
				if len(set) == 0 {
					delete(h.subs, userID)
				}
				sub.once.Do(func() { close(sub.ch) })
				h.metrics.SSEUnsubscribed()
			}
		}
	}
	return sub.ch, cancel
}

// Publish delivers a notification to every stream of userID without blocking
func (h *Hub) Publish(userID uuid.UUID, notification domain.NotificationDTO) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[userID] {
		select {
		case sub.ch <- notification:
		default:
			h.logger.Debug("dropping notification for slow subscriber",
				zap.String("userID", userID.String()),
				zap.String("notificationID", notification.ID.String()),
			)
		}
	}
	return nil
}

// SubscriberCount returns the number of open streams for userID
func (h *Hub) SubscriberCount(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Close ends every stream. Subscribing after Close yields a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for userID, set := range h.subs {
		for sub := range set {
			sub.once.Do(func() { close(sub.ch) })
			h.metrics.SSEUnsubscribed()
		}
		delete(h.subs, userID)
	}
}
