package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/mapper"
	"github.com/atelier-dz/cnc-marketplace-api/internal/metrics"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store persists in-app notifications
type Store interface {
	Create(ctx context.Context, notification *domain.Notification) error
}

// ProfileLookup resolves the email address of a recipient
type ProfileLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
}

// Options configures a Service. Broadcaster and Emails may be nil.
type Options struct {
	AppName     string
	PublicURL   string
	Broadcaster Broadcaster
	Emails      *EmailQueue
	Templates   *Templates
	Metrics     *metrics.Metrics
	// OnStart and OnStop hook external transports (NATS) into the lifecycle
	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

// Service is the production Dispatcher
type Service struct {
	store    Store
	profiles ProfileLookup
	opts     Options
	logger   *zap.Logger
}

var _ Dispatcher = (*Service)(nil)

func NewService(store Store, profiles ProfileLookup, opts Options, logger *zap.Logger) *Service {
	if opts.AppName == "" {
		opts.AppName = "Usinage DZ"
	}
	return &Service{
		store:    store,
		profiles: profiles,
		opts:     opts,
		logger:   logger,
	}
}

func (s *Service) Start(ctx context.Context) error {
	if s.opts.Emails != nil {
		s.opts.Emails.Start()
	}
	if s.opts.OnStart != nil {
		if err := s.opts.OnStart(ctx); err != nil {
			return fmt.Errorf("start notification transport: %w", err)
		}
	}
	s.logger.Info("notification dispatcher started")
	return nil
}

// Stop flushes the email queue and stops the push transports
func (s *Service) Stop(ctx context.Context) error {
	var errs []error
	if s.opts.OnStop != nil {
		if err := s.opts.OnStop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if s.opts.Emails != nil {
		if err := s.opts.Emails.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("email queue: %w", err))
		}
	}
	s.logger.Info("notification dispatcher stopped")
	return errors.Join(errs...)
}

func (s *Service) Notify(ctx context.Context, event Event) error {
	if event.UserID == uuid.Nil {
		return fmt.Errorf("%w: notification without recipient", domain.ErrValidation)
	}

	notification := &domain.Notification{
		UserID:     event.UserID,
		Type:       string(event.Type),
		Title:      truncate(event.Title, 200),
		Message:    truncate(event.Message, 500),
		Link:       event.Link,
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
	}
	if err := s.store.Create(ctx, notification); err != nil {
		s.opts.Metrics.NotificationDispatched(string(event.Type), false)
		return fmt.Errorf("failed to store notification: %w", err)
	}
	s.opts.Metrics.NotificationDispatched(string(event.Type), true)

	if s.opts.Broadcaster != nil {
		if err := s.opts.Broadcaster.Publish(event.UserID, mapper.ToNotificationDTO(notification)); err != nil {
			s.logger.Warn("failed to push notification",
				zap.String("notificationID", notification.ID.String()),
				zap.Error(err),
			)
		}
	}

	if event.SendEmail {
		s.queueEmail(ctx, event)
	}
	return nil
}

func (s *Service) queueEmail(ctx context.Context, event Event) {
	if s.opts.Emails == nil || s.opts.Templates == nil || s.profiles == nil {
		return
	}

	profile, err := s.profiles.GetByID(ctx, event.UserID)
	if err != nil {
		s.logger.Warn("no email recipient for notification",
			zap.String("userID", event.UserID.String()),
			zap.Error(err),
		)
		return
	}
	if profile.Email == "" {
		return
	}

	html, err := s.opts.Templates.Render(string(event.Type), EmailData{
		AppName:       s.opts.AppName,
		RecipientName: profile.FullName,
		Title:         event.Title,
		Message:       event.Message,
		Link:          s.absoluteLink(event.Link),
		Details:       event.Details,
	})
	if err != nil {
		s.logger.Warn("failed to render email", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}

	s.opts.Emails.Enqueue(EmailMessage{
		To:      profile.Email,
		Subject: fmt.Sprintf("[%s] %s", s.opts.AppName, event.Title),
		HTML:    html,
	})
}

func (s *Service) absoluteLink(link string) string {
	if link == "" || s.opts.PublicURL == "" || strings.HasPrefix(link, "http") {
		return link
	}
	return strings.TrimSuffix(s.opts.PublicURL, "/") + "/" + strings.TrimPrefix(link, "/")
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// Recorder is an in-memory Dispatcher for tests and tools that must not
// touch the database.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
	Err    error
}

func (r *Recorder) Start(context.Context) error { return nil }
func (r *Recorder) Stop(context.Context) error  { return nil }

func (r *Recorder) Notify(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Events = append(r.Events, event)
	return nil
}

// For returns the recorded events addressed to userID
func (r *Recorder) For(userID uuid.UUID) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.Events {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}
