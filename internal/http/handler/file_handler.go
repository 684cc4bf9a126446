package handler

import (
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/atelier-dz/cnc-marketplace-api/internal/service"
	"go.uber.org/zap"
)

// multipartOverhead leaves room for the form envelope around the file
const multipartOverhead = 1 << 20

// FileHandler serves the drawings attached to quote requests
type FileHandler struct {
	fileService *service.FileService
	maxUploadMB int64
	logger      *zap.Logger
}

func NewFileHandler(fileService *service.FileService, maxUploadMB int64, logger *zap.Logger) *FileHandler {
	return &FileHandler{
		fileService: fileService,
		maxUploadMB: maxUploadMB,
		logger:      logger,
	}
}

// Upload godoc
// @Summary Attach a drawing to a quote request
// @Description Accepts CAD and document formats (STEP, IGES, STL, DXF, DWG, PDF, images) up to the configured size
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Quote ID"
// @Param file formData file true "Drawing"
// @Success 201 {object} domain.QuoteFileDTO
// @Failure 400 {object} domain.APIError
// @Failure 413 {object} domain.APIError
// @Security BearerAuth
// @Router /quotes/{id}/files [post]
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	quoteID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	limit := h.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit); err != nil {
		respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Fichier trop volumineux: %d Mo maximum", h.maxUploadMB))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Le champ file est obligatoire")
		return
	}
	defer file.Close()

	fileDTO, err := h.fileService.UploadToQuote(r.Context(), quoteID, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		respondError(w, h.logger, err, "upload file")
		return
	}
	respondJSON(w, http.StatusCreated, fileDTO)
}

// List godoc
// @Summary List the drawings of a quote request
// @Tags Files
// @Produce json
// @Param id path string true "Quote ID"
// @Success 200 {array} domain.QuoteFileDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /quotes/{id}/files [get]
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	quoteID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	files, err := h.fileService.ListForQuote(r.Context(), quoteID)
	if err != nil {
		respondError(w, h.logger, err, "list files")
		return
	}
	respondJSON(w, http.StatusOK, files)
}

// SignedURL godoc
// @Summary Get a temporary download link
// @Tags Files
// @Produce json
// @Param id path string true "Quote ID"
// @Param fileId path string true "File ID"
// @Success 200 {object} domain.SignedURLDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /quotes/{id}/files/{fileId}/url [get]
func (h *FileHandler) SignedURL(w http.ResponseWriter, r *http.Request) {
	quoteID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	fileID, ok := uuidParam(w, r, "fileId")
	if !ok {
		return
	}
	link, err := h.fileService.SignedURL(r.Context(), quoteID, fileID)
	if err != nil {
		respondError(w, h.logger, err, "sign file url")
		return
	}
	respondJSON(w, http.StatusOK, link)
}

// Delete godoc
// @Summary Remove a drawing
// @Tags Files
// @Param id path string true "Quote ID"
// @Param fileId path string true "File ID"
// @Success 204
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /quotes/{id}/files/{fileId} [delete]
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	quoteID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}
	fileID, ok := uuidParam(w, r, "fileId")
	if !ok {
		return
	}
	if err := h.fileService.Delete(r.Context(), quoteID, fileID); err != nil {
		respondError(w, h.logger, err, "delete file")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Download godoc
// @Summary Download through a signed link
// @Description The token is the authorization; no bearer token is needed
// @Tags Files
// @Produce octet-stream
// @Param token query string true "Signed token"
// @Success 200 {file} binary
// @Failure 401 {object} domain.APIError
// @Router /files/signed [get]
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondWithError(w, http.StatusUnauthorized, "Lien de téléchargement invalide")
		return
	}
	reader, filename, contentType, err := h.fileService.OpenSigned(r.Context(), token)
	if err != nil {
		respondError(w, h.logger, err, "download file")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Type", contentType)
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn("download interrupted", zap.String("filename", filename), zap.Error(err))
	}
}
