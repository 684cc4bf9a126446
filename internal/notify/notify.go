// Package notify delivers workflow notifications: it stores the in-app
// record, pushes it to connected clients and queues a transactional email.
package notify

import (
	"context"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/google/uuid"
)

// Event describes one notification for one user
type Event struct {
	UserID     uuid.UUID
	Type       domain.NotificationType
	Title      string
	Message    string
	Link       string
	EntityType string
	EntityID   *uuid.UUID
	// SendEmail also queues an email rendered from the template named after Type
	SendEmail bool
	// Details are extra template values (amounts, part names...)
	Details map[string]string
}

// Dispatcher is the notification side effect of the workflows.
// Notify returns an error only when the in-app record could not be stored;
// push and email failures are logged and swallowed.
type Dispatcher interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Notify(ctx context.Context, event Event) error
}

// Broadcaster pushes stored notifications to live connections
type Broadcaster interface {
	Publish(userID uuid.UUID, notification domain.NotificationDTO) error
}
