package service_test

import (
	"testing"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedNotification(t *testing.T, db *gorm.DB, userID uuid.UUID, typ domain.NotificationType, read bool) *domain.Notification {
	t.Helper()
	n := &domain.Notification{
		UserID:  userID,
		Type:    string(typ),
		Title:   "Titre",
		Message: "Message",
		Read:    read,
	}
	require.NoError(t, db.Create(n).Error)
	return n
}

func TestNotificationsForCurrentUser(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	other := testutil.CreateProfile(t, f.db, domain.RoleClient)

	first := seedNotification(t, f.db, client.ID, domain.NotificationTypeBidReceived, false)
	seedNotification(t, f.db, client.ID, domain.NotificationTypeOrderStatus, false)
	seedNotification(t, f.db, client.ID, domain.NotificationTypeOrderStatus, true)
	foreign := seedNotification(t, f.db, other.ID, domain.NotificationTypeBidReceived, false)

	list, err := f.notifications.GetForCurrentUser(as(client), 1, 20, false, "")
	require.NoError(t, err)
	assert.EqualValues(t, 3, list.Total)

	list, err = f.notifications.GetForCurrentUser(as(client), 1, 20, true, string(domain.NotificationTypeOrderStatus))
	require.NoError(t, err)
	assert.EqualValues(t, 1, list.Total)

	count, err := f.notifications.GetUnreadCount(as(client))
	require.NoError(t, err)
	assert.EqualValues(t, 2, count.Count)

	_, err = f.notifications.GetByID(as(client), foreign.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.notifications.MarkAsRead(as(client), foreign.ID), domain.ErrNotFound)

	require.NoError(t, f.notifications.MarkAsRead(as(client), first.ID))
	got, err := f.notifications.GetByID(as(client), first.ID)
	require.NoError(t, err)
	assert.True(t, got.Read)

	marked, err := f.notifications.MarkAllAsReadForUser(as(client))
	require.NoError(t, err)
	assert.EqualValues(t, 1, marked)

	count, err = f.notifications.GetUnreadCount(as(other))
	require.NoError(t, err)
	assert.EqualValues(t, 1, count.Count)
}

func TestPurgeRead(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	seedNotification(t, f.db, client.ID, domain.NotificationTypeBidReceived, true)
	seedNotification(t, f.db, client.ID, domain.NotificationTypeBidReceived, false)

	// nothing is old enough yet
	purged, err := f.notifications.PurgeRead(as(client), time.Now().UTC(), 24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, purged)

	purged, err = f.notifications.PurgeRead(as(client), time.Now().UTC().Add(48*time.Hour), 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	count, err := f.notifications.GetUnreadCount(as(client))
	require.NoError(t, err)
	assert.EqualValues(t, 1, count.Count)
}
