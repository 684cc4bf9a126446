package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/atelier-dz/cnc-marketplace-api/internal/auth"
	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/filter"
	"github.com/atelier-dz/cnc-marketplace-api/internal/mapper"
	"github.com/atelier-dz/cnc-marketplace-api/internal/metrics"
	"github.com/atelier-dz/cnc-marketplace-api/internal/notify"
	"github.com/atelier-dz/cnc-marketplace-api/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxMessageLength    = 2000
	defaultMessageLimit = 100
	maxMessageLimit     = 500
)

// MessageService handles the per-quote conversation between a client and
// the workshops that bid. Contact details are masked before storage.
type MessageService struct {
	messageRepo *repository.MessageRepository
	quoteRepo   *repository.QuoteRepository
	bidRepo     *repository.BidRepository
	notifier    notify.Dispatcher
	metrics     *metrics.Metrics
	logger      *zap.Logger
}

func NewMessageService(
	messageRepo *repository.MessageRepository,
	quoteRepo *repository.QuoteRepository,
	bidRepo *repository.BidRepository,
	notifier notify.Dispatcher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		messageRepo: messageRepo,
		quoteRepo:   quoteRepo,
		bidRepo:     bidRepo,
		notifier:    notifier,
		metrics:     m,
		logger:      logger,
	}
}

// Send stores a filtered message from the current user to the other party
func (s *MessageService) Send(ctx context.Context, quoteID uuid.UUID, req *domain.SendMessageRequest) (*domain.MessageDTO, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, invalid("le message est vide")
	}
	if utf8.RuneCountInString(content) > maxMessageLength {
		return nil, invalid("le message dépasse %d caractères", maxMessageLength)
	}
	if req.ReceiverID == user.UserID {
		return nil, invalid("impossible de s'écrire à soi-même")
	}

	quote, err := s.quoteRepo.FindByID(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	if err := s.checkConversation(ctx, quote, user.UserID, req.ReceiverID); err != nil {
		return nil, err
	}

	filtered, redacted := filter.Redact(content)
	// the marker can be longer than what it replaces
	if utf8.RuneCountInString(filtered) > maxMessageLength {
		return nil, invalid("le message dépasse %d caractères une fois les coordonnées masquées", maxMessageLength)
	}
	message := &domain.Message{
		QuoteID:    quoteID,
		SenderID:   user.UserID,
		ReceiverID: req.ReceiverID,
		Content:    filtered,
		Redacted:   redacted,
	}
	if err := s.messageRepo.Create(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}
	s.metrics.MessageStored(redacted)

	if redacted {
		s.logger.Info("message contact details masked",
			zap.String("messageID", message.ID.String()),
			zap.String("quoteID", quoteID.String()),
			zap.String("senderID", user.UserID.String()),
		)
	}

	entityID := quote.ID
	if err := s.notifier.Notify(ctx, notify.Event{
		UserID:     req.ReceiverID,
		Type:       domain.NotificationTypeNewMessage,
		Title:      "Nouveau message",
		Message:    fmt.Sprintf("Nouveau message concernant « %s ».", quote.PartName),
		Link:       "/quotes/" + quote.ID.String() + "/messages",
		EntityType: "quote",
		EntityID:   &entityID,
	}); err != nil {
		s.logger.Warn("failed to notify new message", zap.String("messageID", message.ID.String()), zap.Error(err))
	}

	dto := mapper.ToMessageDTO(message)
	return &dto, nil
}

// checkConversation allows the quote owner and any workshop that bid on the
// quote to talk to each other, and nobody else
func (s *MessageService) checkConversation(ctx context.Context, quote *domain.Quote, senderID, receiverID uuid.UUID) error {
	switch {
	case senderID == quote.ClientID:
		hasBid, err := s.bidRepo.PartnerHasBid(ctx, quote.ID, receiverID)
		if err != nil {
			return fmt.Errorf("failed to check receiver: %w", err)
		}
		if !hasBid {
			return invalid("le destinataire n'a pas soumis d'offre pour cette demande")
		}
		return nil
	case receiverID == quote.ClientID:
		hasBid, err := s.bidRepo.PartnerHasBid(ctx, quote.ID, senderID)
		if err != nil {
			return fmt.Errorf("failed to check sender: %w", err)
		}
		if !hasBid {
			return forbidden("soumettez une offre avant de contacter le client")
		}
		return nil
	}
	return forbidden("vous ne participez pas à cette conversation")
}

// List returns the current user's conversation on a quote, oldest first.
// since limits the result to newer messages for polling clients.
func (s *MessageService) List(ctx context.Context, quoteID uuid.UUID, since *time.Time, limit int) ([]domain.MessageDTO, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.checkParticipant(ctx, user, quoteID); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = defaultMessageLimit
	}
	if limit > maxMessageLimit {
		limit = maxMessageLimit
	}

	messages, err := s.messageRepo.ListForQuote(ctx, quoteID, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	dtos := make([]domain.MessageDTO, len(messages))
	for i := range messages {
		dtos[i] = mapper.ToMessageDTO(&messages[i])
	}
	return dtos, nil
}

// MarkRead marks the quote's messages addressed to the current user as read
func (s *MessageService) MarkRead(ctx context.Context, quoteID uuid.UUID) (int64, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.checkParticipant(ctx, user, quoteID); err != nil {
		return 0, err
	}
	count, err := s.messageRepo.MarkRead(ctx, quoteID, user.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark messages read: %w", err)
	}
	return count, nil
}

func (s *MessageService) UnreadCount(ctx context.Context) (int64, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return 0, err
	}
	count, err := s.messageRepo.CountUnread(ctx, user.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}

func (s *MessageService) checkParticipant(ctx context.Context, user *auth.UserContext, quoteID uuid.UUID) error {
	quote, err := s.quoteRepo.FindByID(ctx, quoteID)
	if err != nil {
		return fmt.Errorf("failed to get quote: %w", err)
	}
	if user.IsAdmin() || quote.ClientID == user.UserID {
		return nil
	}
	hasBid, err := s.bidRepo.PartnerHasBid(ctx, quoteID, user.UserID)
	if err != nil {
		return fmt.Errorf("failed to check participant: %w", err)
	}
	if !hasBid {
		return forbidden("vous ne participez pas à cette conversation")
	}
	return nil
}
