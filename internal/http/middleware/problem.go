package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
)

// writeProblem writes an APIError body for responses produced before a
// handler runs
func writeProblem(w http.ResponseWriter, status int, errType, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(domain.APIError{
		Type:   errType,
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	})
}
