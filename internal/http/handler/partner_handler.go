package handler

import (
	"net/http"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/repository"
	"github.com/atelier-dz/cnc-marketplace-api/internal/service"
	"go.uber.org/zap"
)

// PartnerHandler serves workshop applications and the partner directory
type PartnerHandler struct {
	partnerService *service.PartnerService
	logger         *zap.Logger
}

func NewPartnerHandler(partnerService *service.PartnerService, logger *zap.Logger) *PartnerHandler {
	return &PartnerHandler{partnerService: partnerService, logger: logger}
}

// Apply godoc
// @Summary Apply as a workshop
// @Description Registers the current user's workshop; it stays pending until an admin approves it
// @Tags Partners
// @Accept json
// @Produce json
// @Param request body domain.ApplyPartnerRequest true "Workshop details"
// @Success 201 {object} domain.PartnerDTO
// @Failure 400 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /partners [post]
func (h *PartnerHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req domain.ApplyPartnerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	partner, err := h.partnerService.Apply(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "apply partner")
		return
	}
	respondJSON(w, http.StatusCreated, partner)
}

// List godoc
// @Summary List workshops
// @Description Approved workshops, filterable by wilaya and capability. Admins may filter by status.
// @Tags Partners
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param wilaya query string false "Wilaya code"
// @Param capability query string false "Machining capability"
// @Param status query string false "Status (admins only)" Enums(pending, approved, rejected, suspended)
// @Success 200 {object} domain.PaginatedResponse{data=[]domain.PartnerDTO}
// @Security BearerAuth
// @Router /partners [get]
func (h *PartnerHandler) List(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pagination(r)
	q := r.URL.Query()
	filters := repository.PartnerFilters{
		WilayaCode: q.Get("wilaya"),
		Capability: q.Get("capability"),
	}
	if s := q.Get("status"); s != "" {
		status := domain.PartnerStatus(s)
		filters.Status = &status
	}

	result, err := h.partnerService.List(r.Context(), page, pageSize, filters)
	if err != nil {
		respondError(w, h.logger, err, "list partners")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Get godoc
// @Summary Get a workshop
// @Tags Partners
// @Produce json
// @Param id path string true "Partner ID"
// @Success 200 {object} domain.PartnerDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /partners/{id} [get]
func (h *PartnerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	partner, err := h.partnerService.Get(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "get partner")
		return
	}
	respondJSON(w, http.StatusOK, partner)
}

// GetMine godoc
// @Summary Get my workshop
// @Tags Partners
// @Produce json
// @Success 200 {object} domain.PartnerDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /partners/me [get]
func (h *PartnerHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	partner, err := h.partnerService.GetMine(r.Context())
	if err != nil {
		respondError(w, h.logger, err, "get own partner")
		return
	}
	respondJSON(w, http.StatusOK, partner)
}

// UpdateMine godoc
// @Summary Update my workshop
// @Tags Partners
// @Accept json
// @Produce json
// @Param request body domain.UpdatePartnerRequest true "Capabilities and description"
// @Success 200 {object} domain.PartnerDTO
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /partners/me [put]
func (h *PartnerHandler) UpdateMine(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdatePartnerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	partner, err := h.partnerService.UpdateMine(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "update own partner")
		return
	}
	respondJSON(w, http.StatusOK, partner)
}

// SetStatus godoc
// @Summary Review a workshop
// @Description Approves, rejects or suspends a workshop. Admin only.
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path string true "Partner ID"
// @Param request body domain.ReviewPartnerRequest true "Decision"
// @Success 200 {object} domain.PartnerDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /admin/partners/{id}/status [put]
func (h *PartnerHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	var req domain.ReviewPartnerRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	partner, err := h.partnerService.SetStatus(r.Context(), id, &req)
	if err != nil {
		respondError(w, h.logger, err, "review partner")
		return
	}
	respondJSON(w, http.StatusOK, partner)
}
