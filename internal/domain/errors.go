package domain

import "errors"

// Error categories shared by every layer. Repositories translate driver
// errors into these, services wrap them with context, and handlers map
// them to HTTP responses with errors.Is.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("access denied")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrTransient    = errors.New("temporarily unavailable")
)

// APIError represents a standardized API error with HTTP status code
type APIError struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Title
}

// ValidationMessages provides human-readable validation error messages
// These map validator tags to user-friendly messages
var ValidationMessages = map[string]string{
	"required": "Ce champ est obligatoire",
	"email":    "Adresse e-mail invalide",
	"max":      "Valeur trop longue ou trop grande",
	"min":      "Valeur trop courte ou trop petite",
	"gte":      "Doit être supérieur ou égal au minimum",
	"gt":       "Doit être supérieur au minimum",
	"lte":      "Doit être inférieur ou égal au maximum",
	"lt":       "Doit être inférieur au maximum",
	"uuid":     "Identifiant invalide",
	"oneof":    "Valeur non autorisée",
	"numeric":  "Doit être une valeur numérique",
	"len":      "Longueur incorrecte",
	"dive":     "Élément invalide",
}

// GetValidationMessage returns a human-readable message for a validation tag
func GetValidationMessage(tag string) string {
	if msg, ok := ValidationMessages[tag]; ok {
		return msg
	}
	return "Valeur invalide: " + tag
}

// Common error types for RFC 7807 Problem Details
const (
	ErrorTypeValidation   = "validation_error"
	ErrorTypeNotFound     = "not_found"
	ErrorTypeBadRequest   = "bad_request"
	ErrorTypeConflict     = "conflict"
	ErrorTypeUnauthorized = "unauthorized"
	ErrorTypeForbidden    = "forbidden"
	ErrorTypeUnavailable  = "unavailable"
	ErrorTypeInternal     = "internal_error"
)
