package handler

import (
	"net/http"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/service"
	"go.uber.org/zap"
)

// ProfileHandler serves the current user's marketplace profile
type ProfileHandler struct {
	profileService *service.ProfileService
	logger         *zap.Logger
}

func NewProfileHandler(profileService *service.ProfileService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{profileService: profileService, logger: logger}
}

// Me godoc
// @Summary Get current profile
// @Description Returns the profile of the authenticated user
// @Tags Profile
// @Produce json
// @Success 200 {object} domain.ProfileDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /me [get]
func (h *ProfileHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profileService.GetMe(r.Context())
	if err != nil {
		respondError(w, h.logger, err, "get profile")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// UpdateMe godoc
// @Summary Update current profile
// @Tags Profile
// @Accept json
// @Produce json
// @Param request body domain.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} domain.ProfileDTO
// @Failure 400 {object} domain.APIError
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /me [put]
func (h *ProfileHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateProfileRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	profile, err := h.profileService.UpdateMe(r.Context(), &req)
	if err != nil {
		respondError(w, h.logger, err, "update profile")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}
