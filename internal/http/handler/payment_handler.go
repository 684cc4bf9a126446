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

// PaymentHandler serves escrow payments
type PaymentHandler struct {
	paymentService *service.PaymentService
	logger         *zap.Logger
}

func NewPaymentHandler(paymentService *service.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService, logger: logger}
}

// Create godoc
// @Summary Declare a payment for an order
// @Description The client declares a payment; it stays pending until the platform holds the funds
// @Tags Payments
// @Accept json
// @Produce json
// @Param request body domain.CreatePaymentRequest true "Payment"
// @Success 201 {object} domain.PaymentDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /payments [post]
func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePaymentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	payment, err := h.paymentService.Create(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "create payment")
		return
	}
	respondJSON(w, http.StatusCreated, payment)
}

// List godoc
// @Summary List payments
// @Tags Payments
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param status query string false "Status" Enums(pending, held, released, refunded, failed)
// @Param orderId query string false "Order ID"
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.PaymentDTO}
// @Security BearerAuth
// @Router /payments [get]
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	q := r.URL.Query()
	var filters repository.PaymentFilters
	if s := q.Get("status"); s != "" {
		status := domain.PaymentStatus(s)
		filters.Status = &status
	}
	if s := q.Get("orderId"); s != "" {
		orderID, err := uuid.Parse(s)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Identifiant invalide: orderId")
			return
		}
		filters.OrderID = &orderID
	}

	result, err := h.paymentService.List(r.Context(), page, pageSize, filters)
	if err != nil {
		respondError(w, h.logger, err, "list payments")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Get godoc
// @Summary Get a payment
// @Tags Payments
// @Produce json
// @Param id path string true "Payment ID"
// @Success 200 {object} domain.PaymentDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /payments/{id} [get]
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	payment, err := h.paymentService.Get(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "get payment")
		return
	}
	respondJSON(w, http.StatusOK, payment)
}

type paymentAction func(ctx context.Context, id uuid.UUID, note string) (*domain.PaymentDTO, error)

// Hold godoc
// @Summary Hold funds in escrow
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param request body domain.PaymentActionRequest false "Note"
// @Success 200 {object} domain.PaymentDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/payments/{id}/hold [post]
func (h *PaymentHandler) Hold(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.paymentService.Hold, "hold payment")
}

// Release godoc
// @Summary Release escrowed funds to the workshop
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param request body domain.PaymentActionRequest false "Note"
// @Success 200 {object} domain.PaymentDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/payments/{id}/release [post]
func (h *PaymentHandler) Release(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.paymentService.Release, "release payment")
}

// Refund godoc
// @Summary Refund escrowed funds to the client
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param request body domain.PaymentActionRequest false "Note"
// @Success 200 {object} domain.PaymentDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/payments/{id}/refund [post]
func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.paymentService.Refund, "refund payment")
}

// Fail godoc
// @Summary Mark a pending payment as failed
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Payment ID"
// @Param request body domain.PaymentActionRequest false "Note"
// @Success 200 {object} domain.PaymentDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/payments/{id}/fail [post]
func (h *PaymentHandler) Fail(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.paymentService.Fail, "fail payment")
}

// transition accepts an optional body carrying a note
func (h *PaymentHandler) transition(w http.ResponseWriter, r *http.Request, apply paymentAction, action string) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.PaymentActionRequest
	if r.ContentLength != 0 {
		if !decodeAndValidate(w, r, &req) {
			return
		}
	}
	payment, err := apply(r.Context(), id, req.Note)
	if err != nil {
		respondError(w, h.logger, err, action)
		return
	}
	respondJSON(w, http.StatusOK, payment)
}

