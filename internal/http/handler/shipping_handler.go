package handler

import (
	"net/http"
	"strconv"

	"github.com/atelier-dz/cnc-marketplace-api/internal/mapper"
	"github.com/atelier-dz/cnc-marketplace-api/internal/shipping"
	"go.uber.org/zap"
)

// ShippingHandler exposes the shipping estimator and the wilaya list
type ShippingHandler struct {
	estimator *shipping.Estimator
	logger    *zap.Logger
}

func NewShippingHandler(estimator *shipping.Estimator, logger *zap.Logger) *ShippingHandler {
	return &ShippingHandler{estimator: estimator, logger: logger}
}

// Estimate godoc
// @Summary Estimate shipping between two wilayas
// @Tags Shipping
// @Produce json
// @Param from query string true "Origin wilaya code"
// @Param to query string true "Destination wilaya code"
// @Param weightKg query number true "Parcel weight in kg"
// @Success 200 {object} domain.ShippingEstimateDTO
// @Failure 400 {object} domain.APIError
// @Router /shipping/estimate [get]
func (h *ShippingHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	weight, err := strconv.ParseFloat(q.Get("weightKg"), 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Paramètre weightKg invalide")
		return
	}
	est, err := h.estimator.Estimate(q.Get("from"), q.Get("to"), weight)
	if err != nil {
		respondError(w, h.logger, err, "estimate shipping")
		return
	}
	respondJSON(w, http.StatusOK, mapper.ToShippingEstimateDTO(est))
}

// Wilayas godoc
// @Summary List wilayas
// @Tags Shipping
// @Produce json
// @Success 200 {array} domain.WilayaDTO
// @Router /shipping/wilayas [get]
func (h *ShippingHandler) Wilayas(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "public, max-age=86400")
	respondJSON(w, http.StatusOK, mapper.ToWilayaDTOs(shipping.Wilayas()))
}
