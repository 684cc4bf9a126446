package middleware

import (
	"context"
	"net/http"

	"github.com/atelier-dz/cnc-marketplace-api/internal/auth"
	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"go.uber.org/zap"
)

// ProfileEnsurer creates the marketplace profile of a token subject
type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, user *auth.UserContext) (*domain.Profile, error)
}

// EnsureProfile makes sure every authenticated user has a profile row
// before any handler runs, so ownership columns always reference a profile.
// It must run after authentication.
func EnsureProfile(profiles ProfileEnsurer, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userCtx, ok := auth.FromContext(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			if _, err := profiles.EnsureProfile(r.Context(), userCtx); err != nil {
				logger.Error("failed to ensure profile",
					zap.String("user_id", userCtx.UserID.String()),
					zap.Error(err))
				writeProblem(w, http.StatusServiceUnavailable, domain.ErrorTypeUnavailable, "Profil indisponible, réessayez plus tard")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
