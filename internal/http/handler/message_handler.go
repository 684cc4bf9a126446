package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/service"
	"go.uber.org/zap"
)

// MessageHandler serves the per-quote conversations between a client and
// the workshops that bid
type MessageHandler struct {
	messageService *service.MessageService
	logger         *zap.Logger
}

func NewMessageHandler(messageService *service.MessageService, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{messageService: messageService, logger: logger}
}

// Send godoc
// @Summary Send a message on a quote
// @Description Phone numbers, emails and links are masked before storage
// @Tags Messages
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param request body domain.SendMessageRequest true "Message"
// @Success 201 {object} domain.MessageDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /quotes/{id}/messages [post]
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	quoteID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.SendMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	msg, err := h.messageService.Send(r.Context(), quoteID, &req)
	if err != nil {
		respondError(w, h.logger, err, "send message")
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

// List godoc
// @Summary List messages on a quote
// @Tags Messages
// @Produce json
// @Param id path string true "Quote ID"
// @Param since query string false "Only messages after this RFC 3339 timestamp"
// @Param limit query int false "Maximum number of messages" default(50)
// @Success 200 {array} domain.MessageDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /quotes/{id}/messages [get]
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	quoteID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var since *time.Time
	if s := r.URL.Query().Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Paramètre since invalide: format RFC 3339 attendu")
			return
		}
		since = &t
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := h.messageService.List(r.Context(), quoteID, since, limit)
	if err != nil {
		respondError(w, h.logger, err, "list messages")
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

// MarkRead godoc
// @Summary Mark a conversation as read
// @Tags Messages
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} map[string]int64
// @Security BearerAuth
// @Router /quotes/{id}/messages/read [put]
func (h *MessageHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	quoteID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	count, err := h.messageService.MarkRead(r.Context(), quoteID)
	if err != nil {
		respondError(w, h.logger, err, "mark messages read")
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// UnreadCount godoc
// @Summary Count unread messages
// @Tags Messages
// @Produce json
// @Success 200 {object} domain.UnreadCountDTO
// @Security BearerAuth
// @Router /messages/unread-count [get]
func (h *MessageHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.messageService.UnreadCount(r.Context())
	if err != nil {
		respondError(w, h.logger, err, "count unread messages")
		return
	}
	respondJSON(w, http.StatusOK, domain.UnreadCountDTO{Count: count})
}
