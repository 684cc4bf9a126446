package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/config"
	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrInvalidRole  = errors.New("token carries no valid marketplace role")
)

// Claims are the marketplace access token claims
type Claims struct {
	Email string          `json:"email,omitempty"`
	Name  string          `json:"name,omitempty"`
	Role  domain.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// JWTValidator validates HS256 access tokens issued by the identity provider
type JWTValidator struct {
	secret   []byte
	issuer   string
	audience string
}

// NewJWTValidator creates a new JWT validator
func NewJWTValidator(cfg *config.AuthConfig) *JWTValidator {
	return &JWTValidator{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
	}
}

// ValidateToken validates a JWT token and returns user context
func (v *JWTValidator) ValidateToken(tokenString string) (*UserContext, error) {
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: no signing secret configured", ErrInvalidToken)
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a UUID", ErrInvalidToken)
	}
	if !claims.Role.IsValid() {
		return nil, ErrInvalidRole
	}

	return &UserContext{
		UserID:      userID,
		DisplayName: claims.Name,
		Email:       claims.Email,
		Role:        claims.Role,
		AuthMethod:  "jwt",
	}, nil
}

// TokenIssuer signs access tokens with the shared secret. The API itself only
// validates tokens; the issuer backs the admin CLI and tests.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewTokenIssuer creates a token issuer from the auth configuration
func NewTokenIssuer(cfg *config.AuthConfig) *TokenIssuer {
	ttl := cfg.TokenTTL()
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenIssuer{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      ttl,
	}
}

// Issue returns a signed token for the given identity
func (i *TokenIssuer) Issue(userID uuid.UUID, email, name string, role domain.UserRole) (string, error) {
	if !role.IsValid() {
		return "", ErrInvalidRole
	}
	now := time.Now()
	claims := Claims{
		Email: email,
		Name:  name,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	if i.audience != "" {
		claims.Audience = jwt.ClaimStrings{i.audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}
