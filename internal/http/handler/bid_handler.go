package handler

import (
	"net/http"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/service"
	"go.uber.org/zap"
)

// BidHandler serves workshop bids and their acceptance
type BidHandler struct {
	bidService *service.BidService
	logger     *zap.Logger
}

func NewBidHandler(bidService *service.BidService, logger *zap.Logger) *BidHandler {
	return &BidHandler{bidService: bidService, logger: logger}
}

// Submit godoc
// @Summary Bid on a quote request
// @Description An approved workshop submits one bid per open quote
// @Tags Bids
// @Accept json
// @Produce json
// @Param id path string true "Quote ID"
// @Param request body domain.SubmitBidRequest true "Bid terms"
// @Success 201 {object} domain.BidDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /quotes/{id}/bids [post]
func (h *BidHandler) Submit(w http.ResponseWriter, r *http.Request) {
	quoteID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.SubmitBidRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	bid, err := h.bidService.Submit(r.Context(), quoteID, &req)
	if err != nil {
		respondError(w, h.logger, err, "submit bid")
		return
	}
	respondJSON(w, http.StatusCreated, bid)
}

// ListForQuote godoc
// @Summary List bids on a quote request
// @Tags Bids
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {array} domain.BidDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /quotes/{id}/bids [get]
func (h *BidHandler) ListForQuote(w http.ResponseWriter, r *http.Request) {
	quoteID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	bids, err := h.bidService.ListForQuote(r.Context(), quoteID)
	if err != nil {
		respondError(w, h.logger, err, "list bids")
		return
	}
	respondJSON(w, http.StatusOK, bids)
}

// ListMine godoc
// @Summary List my bids
// @Tags Bids
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param status query string false "Status" Enums(pending, accepted, rejected)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.BidDTO}
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /bids/mine [get]
func (h *BidHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	var status *domain.BidStatus
	if s := r.URL.Query().Get("status"); s != "" {
		st := domain.BidStatus(s)
		status = &st
	}
	result, err := h.bidService.ListMine(r.Context(), page, pageSize, status)
	if err != nil {
		respondError(w, h.logger, err, "list own bids")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Update godoc
// @Summary Revise a pending bid
// @Tags Bids
// @Accept json
// @Produce json
// @Param bidId path string true "Bid ID"
// @Param request body domain.SubmitBidRequest true "Bid terms"
// @Success 200 {object} domain.BidDTO
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /bids/{bidId} [put]
func (h *BidHandler) Update(w http.ResponseWriter, r *http.Request) {
	bidID, ok := uuidParam(w, r, "bidId")
	if !ok {
		return
	}
	var req domain.UpdateBidRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	bid, err := h.bidService.Update(r.Context(), bidID, &req)
	if err != nil {
		respondError(w, h.logger, err, "update bid")
		return
	}
	respondJSON(w, http.StatusOK, bid)
}

// Withdraw godoc
// @Summary Withdraw a pending bid
// @Tags Bids
// @Param bidId path string true "Bid ID"
// @Success 204
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /bids/{bidId} [delete]
func (h *BidHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	bidID, ok := uuidParam(w, r, "bidId")
	if !ok {
		return
	}
	if err := h.bidService.Withdraw(r.Context(), bidID); err != nil {
		respondError(w, h.logger, err, "withdraw bid")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Accept godoc
// @Summary Accept a bid
// @Description Awards the quote: the bid is accepted, the others rejected and an order created, atomically
// @Tags Bids
// @Produce json
// @Param id path string true "Quote ID"
// @Param bidId path string true "Bid ID"
// @Success 200 {object} domain.AcceptBidResultDTO
// @Failure 403 {object} domain.APIError
// @Failure 404 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /quotes/{id}/bids/{bidId}/accept [post]
func (h *BidHandler) Accept(w http.ResponseWriter, r *http.Request) {
	quoteID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	bidID, ok := uuidParam(w, r, "bidId")
	if !ok {
		return
	}
	result, err := h.bidService.Accept(r.Context(), quoteID, bidID)
	if err != nil {
		respondError(w, h.logger, err, "accept bid")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
