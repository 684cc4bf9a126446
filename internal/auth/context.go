package auth

import (
	"context"
	"strings"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/google/uuid"
)

// SystemUserID identifies requests authenticated with the integration API key
var SystemUserID = uuid.MustParse("00000000-0000-0000-0000-000000000000")

// UserContext holds authenticated user information
type UserContext struct {
	UserID      uuid.UUID
	DisplayName string
	Email       string
	Role        domain.UserRole
	AuthMethod  string
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// MustFromContext extracts user context or panics
func MustFromContext(ctx context.Context) *UserContext {
	user, ok := FromContext(ctx)
	if !ok {
		panic("user context not found in context")
	}
	return user
}

// HasRole checks if user has a specific role
func (u *UserContext) HasRole(role domain.UserRole) bool {
	return u.Role == role
}

// HasAnyRole checks if user has any of the specified roles
func (u *UserContext) HasAnyRole(roles ...domain.UserRole) bool {
	for _, role := range roles {
		if u.HasRole(role) {
			return true
		}
	}
	return false
}

func (u *UserContext) IsAdmin() bool   { return u.Role == domain.RoleAdmin }
func (u *UserContext) IsClient() bool  { return u.Role == domain.RoleClient }
func (u *UserContext) IsPartner() bool { return u.Role == domain.RolePartner }

// IsSystem reports whether the request came from an API key integration
func (u *UserContext) IsSystem() bool {
	return u.UserID == SystemUserID
}

// GetDisplayNameInitials returns initials from the display name (e.g., "Amine Benali" -> "AB")
func (u *UserContext) GetDisplayNameInitials() string {
	if u.DisplayName == "" {
		return ""
	}
	initials := ""
	for _, part := range strings.Fields(u.DisplayName) {
		initials += strings.ToUpper(string([]rune(part)[0]))
	}
	return initials
}
