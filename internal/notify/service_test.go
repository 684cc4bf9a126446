package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/notify"
	"github.com/atelier-dz/cnc-marketplace-api/internal/repository"
	"github.com/atelier-dz/cnc-marketplace-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureMailer struct {
	to      []string
	subject []string
}

func (m *captureMailer) Send(_ context.Context, to, subject, _ string) error {
	m.to = append(m.to, to)
	m.subject = append(m.subject, subject)
	return nil
}

type failingStore struct{}

func (failingStore) Create(context.Context, *domain.Notification) error {
	return errors.New("database unavailable")
}

func TestService_NotifyStoresPushesAndEmails(t *testing.T) {
	db := testutil.SetupTestDB(t)
	client := testutil.CreateProfile(t, db, domain.RoleClient)
	notifications := repository.NewNotificationRepository(db)
	profiles := repository.NewProfileRepository(db)

	hub := notify.NewHub(4, nil, zap.NewNop())
	mailer := &captureMailer{}
	queue := notify.NewEmailQueue(mailer, 10, 1, time.Second, nil, zap.NewNop())
	templates, err := notify.LoadTemplates()
	require.NoError(t, err)

	svc := notify.NewService(notifications, profiles, notify.Options{
		PublicURL:   "https://app.example.dz",
		Broadcaster: hub,
		Emails:      queue,
		Templates:   templates,
	}, zap.NewNop())
	require.NoError(t, svc.Start(context.Background()))

	stream, cancel := hub.Subscribe(client.ID)
	defer cancel()

	entityID := uuid.New()
	err = svc.Notify(context.Background(), notify.Event{
		UserID:     client.ID,
		Type:       domain.NotificationTypeBidReceived,
		Title:      "Nouvelle offre",
		Message:    "Un atelier a proposé 45000 DZD",
		Link:       "/quotes/" + entityID.String(),
		EntityType: "quote",
		EntityID:   &entityID,
		SendEmail:  true,
		Details:    map[string]string{"amount": "45000.00"},
	})
	require.NoError(t, err)

	count, err := notifications.CountForEntity(context.Background(), client.ID, entityID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	select {
	case pushed := <-stream:
		assert.Equal(t, "Nouvelle offre", pushed.Title)
		assert.Equal(t, "/quotes/"+entityID.String(), pushed.Link)
	case <-time.After(time.Second):
		t.Fatal("notification was not pushed")
	}

	require.NoError(t, svc.Stop(context.Background()))
	require.Len(t, mailer.to, 1)
	assert.Equal(t, client.Email, mailer.to[0])
	assert.Contains(t, mailer.subject[0], "Nouvelle offre")
}

func TestService_NotifyFailsWhenStoreFails(t *testing.T) {
	svc := notify.NewService(failingStore{}, nil, notify.Options{}, zap.NewNop())
	err := svc.Notify(context.Background(), notify.Event{UserID: uuid.New(), Type: domain.NotificationTypeOrderStatus, Title: "x", Message: "y"})
	assert.Error(t, err)
}

func TestService_NotifyRequiresRecipient(t *testing.T) {
	svc := notify.NewService(failingStore{}, nil, notify.Options{}, zap.NewNop())
	err := svc.Notify(context.Background(), notify.Event{Type: domain.NotificationTypeOrderStatus})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestService_EmailSkippedForUnknownRecipient(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mailer := &captureMailer{}
	queue := notify.NewEmailQueue(mailer, 10, 1, time.Second, nil, zap.NewNop())
	templates, err := notify.LoadTemplates()
	require.NoError(t, err)

	svc := notify.NewService(repository.NewNotificationRepository(db), repository.NewProfileRepository(db), notify.Options{
		Emails:    queue,
		Templates: templates,
	}, zap.NewNop())
	require.NoError(t, svc.Start(context.Background()))

	require.NoError(t, svc.Notify(context.Background(), notify.Event{
		UserID:    uuid.New(),
		Type:      domain.NotificationTypeBidRejected,
		Title:     "Offre non retenue",
		Message:   "Une autre offre a été retenue",
		SendEmail: true,
	}))
	require.NoError(t, svc.Stop(context.Background()))
	assert.Empty(t, mailer.to)
}
