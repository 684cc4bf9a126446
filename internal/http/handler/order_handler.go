package handler

import (
	"net/http"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/repository"
	"github.com/atelier-dz/cnc-marketplace-api/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderHandler serves orders and their production lifecycle
type OrderHandler struct {
	orderService *service.OrderService
	logger       *zap.Logger
}

func NewOrderHandler(orderService *service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{orderService: orderService, logger: logger}
}

// List godoc
// @Summary List orders
// @Tags Orders
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param status query string false "Status" Enums(pending, confirmed, in_production, qc, shipped, delivered, cancelled)
// @Param quoteId query string false "Quote ID"
// @Param sortBy query string false "Sort field" Enums(createdAt, updatedAt, totalAmount, status)
// @Param sortOrder query string false "Sort order" Enums(asc, desc)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.OrderDTO}
// @Security BearerAuth
// @Router /orders [get]
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	q := r.URL.Query()
	var filters repository.OrderFilters
	if s := q.Get("status"); s != "" {
		status := domain.OrderStatus(s)
		filters.Status = &status
	}
	if s := q.Get("quoteId"); s != "" {
		quoteID, err := uuid.Parse(s)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Identifiant invalide: quoteId")
			return
		}
		filters.QuoteID = &quoteID
	}

	result, err := h.orderService.List(r.Context(), page, pageSize, filters, sortConfig(r))
	if err != nil {
		respondError(w, h.logger, err, "list orders")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Get godoc
// @Summary Get an order
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} domain.OrderDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /orders/{id} [get]
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	order, err := h.orderService.Get(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "get order")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// UpdateStatus godoc
// @Summary Move an order to its next status
// @Description The workshop runs production, the client confirms delivery or cancels
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body domain.UpdateOrderStatusRequest true "Next status"
// @Success 200 {object} domain.OrderDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /orders/{id}/status [put]
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.UpdateOrderStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	order, err := h.orderService.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		respondError(w, h.logger, err, "update order status")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// SetTracking godoc
// @Summary Set the carrier tracking number
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body domain.SetTrackingRequest true "Carrier and tracking number"
// @Success 200 {object} domain.OrderDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /orders/{id}/tracking [put]
func (h *OrderHandler) SetTracking(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.SetTrackingRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	order, err := h.orderService.SetTracking(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err, "set tracking")
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// Rate godoc
// @Summary Rate a delivered order
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID"
// @Param request body domain.RateOrderRequest true "Rating from 1 to 5"
// @Success 200 {object} domain.OrderDTO
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /orders/{id}/rating [post]
func (h *OrderHandler) Rate(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.RateOrderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	order, err := h.orderService.Rate(r.Context(), id, req.Rating)
	if err != nil {
		respondError(w, h.logger, err, "rate order")
		return
	}
	respondJSON(w, http.StatusOK, order)
}
