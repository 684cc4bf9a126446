package service_test

import (
	"strings"
	"testing"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/filter"
	"github.com/atelier-dz/cnc-marketplace-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type conversation struct {
	client  *domain.Profile
	bidder  *domain.Profile
	quote   *domain.Quote
	outside *domain.Profile
}

func newConversation(t *testing.T, f *fixture) conversation {
	t.Helper()
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	quote := testutil.CreateQuote(t, f.db, client)
	bidder, partner := testutil.CreatePartner(t, f.db, "31")
	testutil.CreateBid(t, f.db, quote, partner, 30000)
	outside, _ := testutil.CreatePartner(t, f.db, "16")
	return conversation{client: client, bidder: bidder, quote: quote, outside: outside}
}

func TestSend_MasksContactDetails(t *testing.T) {
	f := newFixture(t)
	c := newConversation(t, f)

	dto, err := f.messages.Send(as(c.bidder), c.quote.ID, &domain.SendMessageRequest{
		ReceiverID: c.client.ID,
		Content:    "Bonjour, appelez-moi au 0555 12 34 56 pour les détails",
	})
	require.NoError(t, err)
	assert.True(t, dto.Redacted)
	assert.NotContains(t, dto.Content, "0555")
	assert.Contains(t, dto.Content, filter.Marker)

	events := eventsOfType(f.recorder, c.client.ID, domain.NotificationTypeNewMessage)
	require.Len(t, events, 1)
	assert.False(t, events[0].SendEmail)
	require.NotNil(t, events[0].EntityID)
	assert.Equal(t, c.quote.ID, *events[0].EntityID)

	stored, err := f.messages.List(as(c.client), c.quote.ID, nil, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, dto.Content, stored[0].Content)
}

func TestSend_RejectsMessageThatOutgrowsLimitOnceMasked(t *testing.T) {
	f := newFixture(t)
	c := newConversation(t, f)

	content := strings.TrimSpace(strings.Repeat("viber ", 333))
	require.LessOrEqual(t, len(content), 2000)

	_, err := f.messages.Send(as(c.bidder), c.quote.ID, &domain.SendMessageRequest{
		ReceiverID: c.client.ID,
		Content:    content,
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	var count int64
	require.NoError(t, f.db.Model(&domain.Message{}).Where("quote_id = ?", c.quote.ID).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, eventsOfType(f.recorder, c.client.ID, domain.NotificationTypeNewMessage))
}

func TestSend_PlainMessageIsKept(t *testing.T) {
	f := newFixture(t)
	c := newConversation(t, f)

	dto, err := f.messages.Send(as(c.client), c.quote.ID, &domain.SendMessageRequest{
		ReceiverID: c.bidder.ID,
		Content:    "  Pouvez-vous tenir une tolérance de 0,05 mm ?  ",
	})
	require.NoError(t, err)
	assert.False(t, dto.Redacted)
	assert.Equal(t, "Pouvez-vous tenir une tolérance de 0,05 mm ?", dto.Content)
}

func TestSend_ConversationRules(t *testing.T) {
	f := newFixture(t)
	c := newConversation(t, f)

	t.Run("workshop without a bid cannot contact the client", func(t *testing.T) {
		_, err := f.messages.Send(as(c.outside), c.quote.ID, &domain.SendMessageRequest{ReceiverID: c.client.ID, Content: "Bonjour"})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("client writes only to bidders", func(t *testing.T) {
		_, err := f.messages.Send(as(c.client), c.quote.ID, &domain.SendMessageRequest{ReceiverID: c.outside.ID, Content: "Bonjour"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("third parties are excluded", func(t *testing.T) {
		_, err := f.messages.Send(as(c.outside), c.quote.ID, &domain.SendMessageRequest{ReceiverID: c.bidder.ID, Content: "Bonjour"})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("empty after trimming", func(t *testing.T) {
		_, err := f.messages.Send(as(c.client), c.quote.ID, &domain.SendMessageRequest{ReceiverID: c.bidder.ID, Content: "   "})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("too long", func(t *testing.T) {
		_, err := f.messages.Send(as(c.client), c.quote.ID, &domain.SendMessageRequest{ReceiverID: c.bidder.ID, Content: strings.Repeat("é", 2001)})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("to self", func(t *testing.T) {
		_, err := f.messages.Send(as(c.client), c.quote.ID, &domain.SendMessageRequest{ReceiverID: c.client.ID, Content: "note"})
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unknown quote", func(t *testing.T) {
		_, err := f.messages.Send(as(c.client), testutil.NewID(), &domain.SendMessageRequest{ReceiverID: c.bidder.ID, Content: "Bonjour"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	assert.Empty(t, f.recorder.Events)
}

func TestListSinceAndReadState(t *testing.T) {
	f := newFixture(t)
	c := newConversation(t, f)

	_, err := f.messages.Send(as(c.client), c.quote.ID, &domain.SendMessageRequest{ReceiverID: c.bidder.ID, Content: "Premier message"})
	require.NoError(t, err)
	cut := time.Now().UTC()
	time.Sleep(20 * time.Millisecond)
	_, err = f.messages.Send(as(c.client), c.quote.ID, &domain.SendMessageRequest{ReceiverID: c.bidder.ID, Content: "Second message"})
	require.NoError(t, err)

	all, err := f.messages.List(as(c.bidder), c.quote.ID, nil, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Premier message", all[0].Content)

	newer, err := f.messages.List(as(c.bidder), c.quote.ID, &cut, 0)
	require.NoError(t, err)
	require.Len(t, newer, 1)
	assert.Equal(t, "Second message", newer[0].Content)

	_, err = f.messages.List(as(c.outside), c.quote.ID, nil, 0)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	unread, err := f.messages.UnreadCount(as(c.bidder))
	require.NoError(t, err)
	assert.EqualValues(t, 2, unread)

	marked, err := f.messages.MarkRead(as(c.bidder), c.quote.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, marked)

	unread, err = f.messages.UnreadCount(as(c.bidder))
	require.NoError(t, err)
	assert.Zero(t, unread)
}
