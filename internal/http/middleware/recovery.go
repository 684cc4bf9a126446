package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"go.uber.org/zap"
)

// Recovery turns a panic in a handler into a 500 problem response
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				// the server aborts the response on this sentinel
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("panic while serving request",
					zap.Any("panic", rec),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.String("request_id", r.Header.Get(RequestIDHeader)),
					zap.ByteString("stack", debug.Stack()),
				)

				writeProblem(w, http.StatusInternalServerError, domain.ErrorTypeInternal, "Erreur interne du serveur")
			}()
			next.ServeHTTP(w, r)
		})
	}
}
