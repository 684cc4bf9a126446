package middleware

import (
	"net/http"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/metrics"
	"github.com/go-chi/chi/v5"
)

// Metrics records request counts and latency per chi route pattern, so
// that /quotes/{id} is one series whatever the ID
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := wrap(w)
			next.ServeHTTP(rw, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			m.ObserveHTTP(r.Method, route, rw.statusCode, time.Since(start))
		})
	}
}
