package handler

import (
	"context"
	"net/http"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/repository"
	"github.com/atelier-dz/cnc-marketplace-api/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// QuoteHandler serves quote requests
type QuoteHandler struct {
	quoteService *service.QuoteService
	logger       *zap.Logger
}

func NewQuoteHandler(quoteService *service.QuoteService, logger *zap.Logger) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService, logger: logger}
}

// Create godoc
// @Summary Create a quote request
// @Tags Quotes
// @Accept json
// @Produce json
// @Param request body domain.CreateQuoteRequest true "Part to machine"
// @Success 201 {object} domain.QuoteDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /quotes [post]
func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateQuoteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	quote, err := h.quoteService.Create(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "create quote")
		return
	}
	w.Header().Set("Location", "/api/v1/quotes/"+quote.ID.String())
	respondJSON(w, http.StatusCreated, quote)
}

// List godoc
// @Summary List quote requests
// @Description Clients see their own requests; workshops see open requests and those they bid on
// @Tags Quotes
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param status query string false "Status" Enums(open, closed, awarded)
// @Param material query string false "Material"
// @Param search query string false "Search in part name and description"
// @Param sortBy query string false "Sort field" Enums(createdAt, updatedAt, deadline, quantity)
// @Param sortOrder query string false "Sort order" Enums(asc, desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.QuoteDTO}
// @Security BearerAuth
// @Router /quotes [get]
func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	q := r.URL.Query()
	filters := repository.QuoteFilters{
		Material: q.Get("material"),
		Search:   q.Get("search"),
	}
	if s := q.Get("status"); s != "" {
		status := domain.QuoteStatus(s)
		filters.Status = &status
	}

	result, err := h.quoteService.List(r.Context(), page, pageSize, filters, sortConfig(r))
	if err != nil {
		respondError(w, h.logger, err, "list quotes")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Get godoc
// @Summary Get a quote request
// @Tags Quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} domain.QuoteDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /quotes/{id} [get]
func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	quote, err := h.quoteService.Get(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "get quote")
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

// Update godoc
// @Summary Update a quote request
// @Description Only while open and without bids
// @Tags Quotes
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param request body domain.CreateQuoteRequest true "Part to machine"
// @Success 200 {object} domain.QuoteDTO
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /quotes/{id} [put]
func (h *QuoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateQuoteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	quote, err := h.quoteService.Update(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err, "update quote")
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

// Delete godoc
// @Summary Delete a quote request
// @Description Only while open and without bids
// @Tags Quotes
// @Param id path string true "Quote ID"
// @Success 204
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /quotes/{id} [delete]
func (h *QuoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	if err := h.quoteService.Delete(r.Context(), id); err != nil {
		respondError(w, h.logger, err, "delete quote")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Close godoc
// @Summary Stop accepting bids
// @Tags Quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} domain.QuoteDTO
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /quotes/{id}/close [post]
func (h *QuoteHandler) Close(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.quoteService.Close, "close quote")
}

// Reopen godoc
// @Summary Accept bids again
// @Tags Quotes
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {object} domain.QuoteDTO
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /quotes/{id}/reopen [post]
func (h *QuoteHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.quoteService.Reopen, "reopen quote")
}

func (h *QuoteHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	apply func(ctx context.Context, id uuid.UUID) (*domain.QuoteDTO, error),
	action string,
) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	quote, err := apply(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, action)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}
