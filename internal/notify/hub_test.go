package notify

import (
	"testing"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHub_PublishReachesOnlyRecipient(t *testing.T) {
	hub := NewHub(4, nil, zap.NewNop())
	alice, bob := uuid.New(), uuid.New()

	aliceCh, cancelAlice := hub.Subscribe(alice)
	defer cancelAlice()
	bobCh, cancelBob := hub.Subscribe(bob)
	defer cancelBob()

	n := domain.NotificationDTO{ID: uuid.New(), Title: "Nouvelle offre"}
	require.NoError(t, hub.Publish(alice, n))

	select {
	case got := <-aliceCh:
		assert.Equal(t, n.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("alice did not receive the notification")
	}

	select {
	case <-bobCh:
		t.Fatal("bob received a notification addressed to alice")
	default:
	}
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(1, nil, zap.NewNop())
	user := uuid.New()
	ch, cancel := hub.Subscribe(user)
	defer cancel()

	for i := 0; i < 5; i++ {
		require.NoError(t, hub.Publish(user, domain.NotificationDTO{ID: uuid.New()}))
	}
	assert.Len(t, ch, 1)
}

func TestHub_CancelClosesChannel(t *testing.T) {
	hub := NewHub(1, nil, zap.NewNop())
	user := uuid.New()
	ch, cancel := hub.Subscribe(user)
	assert.Equal(t, 1, hub.SubscriberCount(user))

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.SubscriberCount(user))
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(1, nil, zap.NewNop())
	user := uuid.New()
	ch, cancel := hub.Subscribe(user)

	hub.Close()
	_, open := <-ch
	assert.False(t, open)
	cancel()

	late, _ := hub.Subscribe(user)
	_, open = <-late
	assert.False(t, open)
}
