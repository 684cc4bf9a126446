package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atelier-dz/cnc-marketplace-api/internal/config"
	"github.com/atelier-dz/cnc-marketplace-api/internal/http/middleware"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func preflight(handler http.Handler, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/quotes", nil)
	req.Header.Set("Origin", origin)
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func corsHandler(cfg *config.CORSConfig, environment string) http.Handler {
	return middleware.CORS(cfg, environment, zap.NewNop())(okHandler())
}

func TestCORS_ConfiguredOrigins(t *testing.T) {
	handler := corsHandler(&config.CORSConfig{
		AllowedOrigins: []string{"https://atelier.dz"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}, "production")

	assert.Equal(t, "https://atelier.dz", preflight(handler, "https://atelier.dz").Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, preflight(handler, "https://evil.example").Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_DevelopmentAllowsAnyOrigin(t *testing.T) {
	handler := corsHandler(&config.CORSConfig{AllowedMethods: []string{http.MethodGet}}, "development")

	assert.Equal(t, "http://localhost:5173", preflight(handler, "http://localhost:5173").Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ProductionWithoutOriginsDeniesAll(t *testing.T) {
	handler := corsHandler(&config.CORSConfig{AllowedMethods: []string{http.MethodGet}}, "production")

	assert.Empty(t, preflight(handler, "https://atelier.dz").Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ExposesRequestID(t *testing.T) {
	handler := corsHandler(&config.CORSConfig{AllowedOrigins: []string{"https://atelier.dz"}}, "production")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quotes", nil)
	req.Header.Set("Origin", "https://atelier.dz")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Contains(t, w.Header().Get("Access-Control-Expose-Headers"), http.CanonicalHeaderKey(middleware.RequestIDHeader))
}
