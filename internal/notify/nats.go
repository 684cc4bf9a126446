package notify

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ConnectNATS opens a connection that keeps reconnecting for the lifetime of the process
func ConnectNATS(url string, logger *zap.Logger) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("cnc-marketplace-api"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return conn, nil
}

// wireEvent is the NATS payload
type wireEvent struct {
	UserID       uuid.UUID              `json:"userId"`
	Notification domain.NotificationDTO `json:"notification"`
}

// NATSBroadcaster publishes notifications on <prefix>.<userID> and relays
// every notification seen on <prefix>.* into the local hub, so a stream open
// on any replica receives events produced on any other.
type NATSBroadcaster struct {
	conn   *nats.Conn
	prefix string
	hub    *Hub
	logger *zap.Logger
	mu     sync.Mutex
	sub    *nats.Subscription
}

func NewNATSBroadcaster(conn *nats.Conn, prefix string, hub *Hub, logger *zap.Logger) *NATSBroadcaster {
	return &NATSBroadcaster{
		conn:   conn,
		prefix: strings.TrimSuffix(prefix, "."),
		hub:    hub,
		logger: logger,
	}
}

// Subject returns the subject carrying notifications for userID
func (b *NATSBroadcaster) Subject(userID uuid.UUID) string {
	return b.prefix + "." + userID.String()
}

func (b *NATSBroadcaster) Publish(userID uuid.UUID, notification domain.NotificationDTO) error {
	data, err := json.Marshal(wireEvent{UserID: userID, Notification: notification})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := b.conn.Publish(b.Subject(userID), data); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

// Start subscribes to the wildcard subject and feeds the local hub
func (b *NATSBroadcaster) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub != nil {
		return nil
	}
	sub, err := b.conn.Subscribe(b.prefix+".*", b.handle)
	if err != nil {
		return fmt.Errorf("subscribe to %s.*: %w", b.prefix, err)
	}
	b.sub = sub
	return nil
}

// Stop drains the connection, delivering in-flight messages first
func (b *NATSBroadcaster) Stop() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sub = nil
	if b.conn == nil || b.conn.IsClosed() {
		return nil
	}
	return b.conn.Drain()
}

func (b *NATSBroadcaster) handle(msg *nats.Msg) {
	var event wireEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		b.logger.Warn("discarding malformed notification", zap.String("subject", msg.Subject), zap.Error(err))
		return
	}
	if b.Subject(event.UserID) != msg.Subject {
		b.logger.Warn("notification subject does not match recipient",
			zap.String("subject", msg.Subject),
			zap.String("userID", event.UserID.String()),
		)
		return
	}
	_ = b.hub.Publish(event.UserID, event.Notification)
}
