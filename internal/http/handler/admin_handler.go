package handler

import (
	"net/http"

	"github.com/atelier-dz/cnc-marketplace-api/internal/service"
	"go.uber.org/zap"
)

// AdminHandler serves platform bookkeeping views
type AdminHandler struct {
	numberService *service.NumberSequenceService
	logger        *zap.Logger
}

func NewAdminHandler(numberService *service.NumberSequenceService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{numberService: numberService, logger: logger}
}

type numberSequenceDTO struct {
	Prefix       string `json:"prefix"`
	Year         int    `json:"year"`
	LastSequence int    `json:"lastSequence"`
	LastNumber   string `json:"lastNumber"`
}

// NumberSequences godoc
// @Summary List document number sequences
// @Description Last issued devis and facture numbers per year
// @Tags Admin
// @Produce json
// @Success 200 {array} numberSequenceDTO
// @Security BearerAuth
// @Router /admin/number-sequences [get]
func (h *AdminHandler) NumberSequences(w http.ResponseWriter, r *http.Request) {
	sequences, err := h.numberService.List(r.Context())
	if err != nil {
		respondError(w, h.logger, err, "list number sequences")
		return
	}
	out := make([]numberSequenceDTO, len(sequences))
	for i, seq := range sequences {
		out[i] = numberSequenceDTO{
			Prefix:       seq.Prefix,
			Year:         seq.Year,
			LastSequence: seq.LastSequence,
			LastNumber:   service.FormatDocumentNumber(seq.Prefix, seq.Year, seq.LastSequence),
		}
	}
	respondJSON(w, http.StatusOK, out)
}
