package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/repository"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var validate = validator.New()

func init() {
	// report fields by their JSON names
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondValidationError sends a validation error with one message per field
func respondValidationError(w http.ResponseWriter, err error) {
	fields := make(map[string]string)
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[toJSONFieldName(fe.Field())] = formatValidationError(fe)
		}
	}

	respondJSON(w, http.StatusBadRequest, domain.APIError{
		Type:   domain.ErrorTypeValidation,
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: "Un ou plusieurs champs sont invalides",
		Errors: fields,
	})
}

// formatValidationError creates a French validation message for one field
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Ce champ est obligatoire"
	case "max":
		return fmt.Sprintf("Doit contenir au plus %s caractères ou éléments", fe.Param())
	case "min":
		return fmt.Sprintf("Doit contenir au moins %s caractères ou éléments", fe.Param())
	case "gt":
		return fmt.Sprintf("Doit être supérieur à %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("Doit être l'une des valeurs: %s", fe.Param())
	case "len":
		return fmt.Sprintf("Doit contenir exactement %s caractères", fe.Param())
	default:
		return domain.GetValidationMessage(fe.Tag())
	}
}

// toJSONFieldName lowercases the first letter of a Go field name
func toJSONFieldName(field string) string {
	if len(field) == 0 {
		return field
	}
	return strings.ToLower(field[:1]) + field[1:]
}

// decodeAndValidate reads a JSON body into target and validates it. It
// writes the error response itself and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, target interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		respondWithError(w, http.StatusBadRequest, "Corps de requête JSON invalide")
		return false
	}
	if err := validate.Struct(target); err != nil {
		respondValidationError(w, err)
		return false
	}
	return true
}

// respondWithError sends a standardized JSON error response
func respondWithError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, domain.APIError{
		Type:   getErrorType(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: message,
	})
}

// getErrorType returns the appropriate error type for an HTTP status code
func getErrorType(status int) string {
	switch status {
	case http.StatusBadRequest:
		return domain.ErrorTypeBadRequest
	case http.StatusUnauthorized:
		return domain.ErrorTypeUnauthorized
	case http.StatusForbidden:
		return domain.ErrorTypeForbidden
	case http.StatusNotFound:
		return domain.ErrorTypeNotFound
	case http.StatusConflict:
		return domain.ErrorTypeConflict
	case http.StatusServiceUnavailable, http.StatusTooManyRequests:
		return domain.ErrorTypeUnavailable
	default:
		return domain.ErrorTypeInternal
	}
}

var errorStatuses = []struct {
	target error
	status int
	title  string
}{
	{domain.ErrUnauthorized, http.StatusUnauthorized, "Authentification requise"},
	{domain.ErrForbidden, http.StatusForbidden, "Accès refusé"},
	{domain.ErrNotFound, http.StatusNotFound, "Ressource introuvable"},
	{domain.ErrConflict, http.StatusConflict, "Conflit avec l'état actuel"},
	{domain.ErrValidation, http.StatusBadRequest, "Requête invalide"},
	{domain.ErrTransient, http.StatusServiceUnavailable, "Service temporairement indisponible"},
}

// respondError maps a service error onto its HTTP status. Client errors
// carry the service message; anything unclassified is logged and hidden.
func respondError(w http.ResponseWriter, logger *zap.Logger, err error, action string) {
	for _, e := range errorStatuses {
		if !errors.Is(err, e.target) {
			continue
		}
		detail := e.title
		switch e.status {
		case http.StatusServiceUnavailable:
			logger.Warn(action+" failed on a transient error", zap.Error(err))
			w.Header().Set("Retry-After", "5")
		case http.StatusNotFound:
			// the message would tell whether the resource exists
		default:
			if msg := errorDetail(err, e.target); msg != "" {
				detail = msg
			}
		}
		if e.status == http.StatusBadRequest {
			respondJSON(w, e.status, domain.APIError{
				Type:   domain.ErrorTypeValidation,
				Title:  http.StatusText(e.status),
				Status: e.status,
				Detail: detail,
			})
			return
		}
		respondWithError(w, e.status, detail)
		return
	}

	logger.Error(action+" failed", zap.Error(err))
	respondWithError(w, http.StatusInternalServerError, "Erreur interne du serveur")
}

// errorDetail extracts the message a service wrapped around a category,
// e.g. "validation failed: quantité invalide" gives "quantité invalide"
func errorDetail(err, category error) string {
	msg := err.Error()
	marker := category.Error() + ": "
	if idx := strings.Index(msg, marker); idx >= 0 {
		return strings.TrimSpace(msg[idx+len(marker):])
	}
	return ""
}

// uuidParam parses a chi URL parameter, answering 400 when it is malformed
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Identifiant invalide: "+name)
		return uuid.Nil, false
	}
	return id, true
}

// pagination reads page and pageSize; the repositories clamp them
func pagination(r *http.Request) (int, int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
	return page, pageSize
}

// sortConfig reads sortBy and sortOrder, defaulting to newest first
func sortConfig(r *http.Request) repository.SortConfig {
	cfg := repository.DefaultSortConfig()
	if field := r.URL.Query().Get("sortBy"); field != "" {
		cfg.Field = field
	}
	if order := r.URL.Query().Get("sortOrder"); order != "" {
		cfg.Order = repository.ParseSortOrder(order)
	}
	return cfg
}
