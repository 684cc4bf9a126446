package handler

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/atelier-dz/cnc-marketplace-api/internal/service"
	"go.uber.org/zap"
)

// DocumentHandler serves the devis and facture PDFs
type DocumentHandler struct {
	documentService *service.DocumentService
	logger          *zap.Logger
}

func NewDocumentHandler(documentService *service.DocumentService, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{documentService: documentService, logger: logger}
}

// QuotePDF godoc
// @Summary Render the devis of a bid
// @Description Streams the PDF, or stores it and returns a download link when archive=true
// @Tags Documents
// @Produce application/pdf
// @Produce json
// @Param id path string true "Quote ID"
// @Param bidId path string true "Bid ID"
// @Param weightKg query number false "Parcel weight used to price shipping" default(1)
// @Param archive query bool false "Store the PDF and return its link"
// @Success 200 {file} binary
// @Success 201 {object} domain.DocumentDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /quotes/{id}/bids/{bidId}/devis.pdf [get]
func (h *DocumentHandler) QuotePDF(w http.ResponseWriter, r *http.Request) {
	quoteID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	bidID, ok := uuidParam(w, r, "bidId")
	if !ok {
		return
	}
	opts, ok := documentOptions(w, r)
	if !ok {
		return
	}
	rendered, err := h.documentService.QuotePDF(r.Context(), quoteID, bidID, opts)
	if err != nil {
		respondError(w, h.logger, err, "render quote pdf")
		return
	}
	h.deliver(w, r, rendered)
}

// InvoicePDF godoc
// @Summary Render the facture of an order
// @Description Streams the PDF, or stores it and returns a download link when archive=true. taxExempt is reserved to admins.
// @Tags Documents
// @Produce application/pdf
// @Produce json
// @Param id path string true "Order ID"
// @Param weightKg query number false "Parcel weight used to price shipping" default(1)
// @Param taxExempt query bool false "Issue without TVA"
// @Param archive query bool false "Store the PDF and return its link"
// @Success 200 {file} binary
// @Success 201 {object} domain.DocumentDTO
// @Failure 403 {object} domain.APIError
// @Failure 409 {object} domain.APIError
// @Security BearerAuth
// @Router /orders/{id}/invoice.pdf [get]
func (h *DocumentHandler) InvoicePDF(w http.ResponseWriter, r *http.Request) {
	orderID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	opts, ok := documentOptions(w, r)
	if !ok {
		return
	}
	rendered, err := h.documentService.InvoicePDF(r.Context(), orderID, opts)
	if err != nil {
		respondError(w, h.logger, err, "render invoice pdf")
		return
	}
	h.deliver(w, r, rendered)
}

// ListForQuote godoc
// @Summary List archived documents of a quote request
// @Tags Documents
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {array} domain.DocumentDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /quotes/{id}/documents [get]
func (h *DocumentHandler) ListForQuote(w http.ResponseWriter, r *http.Request) {
	quoteID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	docs, err := h.documentService.ListForQuote(r.Context(), quoteID)
	if err != nil {
		respondError(w, h.logger, err, "list documents")
		return
	}
	respondJSON(w, http.StatusOK, docs)
}

func (h *DocumentHandler) deliver(w http.ResponseWriter, r *http.Request, rendered *service.RenderedDocument) {
	if r.URL.Query().Get("archive") == "true" {
		doc, err := h.documentService.Archive(r.Context(), rendered)
		if err != nil {
			respondError(w, h.logger, err, "archive document")
			return
		}
		respondJSON(w, http.StatusCreated, doc)
		return
	}

	header := w.Header()
	header.Set("Content-Type", "application/pdf")
	header.Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": rendered.Filename}))
	header.Set("Content-Length", strconv.Itoa(len(rendered.Content)))
	header.Set("X-Document-Number", rendered.Record.Number)
	header.Set("X-Document-Total", rendered.Totals.Total.StringFixed(2))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rendered.Content)
}

func documentOptions(w http.ResponseWriter, r *http.Request) (service.DocumentOptions, bool) {
	var opts service.DocumentOptions
	q := r.URL.Query()
	if s := q.Get("weightKg"); s != "" {
		weight, err := strconv.ParseFloat(s, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Paramètre weightKg invalide")
			return opts, false
		}
		opts.WeightKg = weight
	}
	opts.TaxExempt = q.Get("taxExempt") == "true"
	return opts, true
}
