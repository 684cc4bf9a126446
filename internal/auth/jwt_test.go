package auth

import (
	"testing"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/config"
	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAuthConfig() *config.AuthConfig {
	return &config.AuthConfig{
		JWTSecret:       "test-secret-with-enough-entropy",
		Issuer:          "https://auth.atelier.dz",
		Audience:        "marketplace-api",
		TokenTTLMinutes: 30,
		APIKey:          "test-api-key-12345",
	}
}

func signClaims(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	cfg := testAuthConfig()
	userID := uuid.New()

	token, err := NewTokenIssuer(cfg).Issue(userID, "yacine@example.dz", "Yacine Haddad", domain.RolePartner)
	require.NoError(t, err)

	user, err := NewJWTValidator(cfg).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, user.UserID)
	assert.Equal(t, "yacine@example.dz", user.Email)
	assert.Equal(t, "Yacine Haddad", user.DisplayName)
	assert.Equal(t, domain.RolePartner, user.Role)
	assert.Equal(t, "jwt", user.AuthMethod)
}

func TestTokenIssuer_RejectsUnknownRole(t *testing.T) {
	_, err := NewTokenIssuer(testAuthConfig()).Issue(uuid.New(), "", "", domain.UserRole("superuser"))
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestValidateToken_Failures(t *testing.T) {
	cfg := testAuthConfig()
	validator := NewJWTValidator(cfg)
	now := time.Now()

	base := func() Claims {
		return Claims{
			Role: domain.RoleClient,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   uuid.NewString(),
				Issuer:    cfg.Issuer,
				Audience:  jwt.ClaimStrings{cfg.Audience},
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
	}

	t.Run("expired", func(t *testing.T) {
		claims := base()
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))
		_, err := validator.ValidateToken(signClaims(t, cfg.JWTSecret, claims))
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		_, err := validator.ValidateToken(signClaims(t, "another-secret", base()))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		claims := base()
		claims.Issuer = "https://elsewhere.example"
		_, err := validator.ValidateToken(signClaims(t, cfg.JWTSecret, claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong audience", func(t *testing.T) {
		claims := base()
		claims.Audience = jwt.ClaimStrings{"other-api"}
		_, err := validator.ValidateToken(signClaims(t, cfg.JWTSecret, claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("subject is not a uuid", func(t *testing.T) {
		claims := base()
		claims.Subject = "auth0|123"
		_, err := validator.ValidateToken(signClaims(t, cfg.JWTSecret, claims))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing role", func(t *testing.T) {
		claims := base()
		claims.Role = ""
		_, err := validator.ValidateToken(signClaims(t, cfg.JWTSecret, claims))
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("no secret configured", func(t *testing.T) {
		_, err := NewJWTValidator(&config.AuthConfig{}).ValidateToken(signClaims(t, cfg.JWTSecret, base()))
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := validator.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestValidateToken_RejectsOtherAlgorithms(t *testing.T) {
	cfg := testAuthConfig()
	claims := Claims{
		Role:             domain.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString(), Issuer: cfg.Issuer, Audience: jwt.ClaimStrings{cfg.Audience}},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)

	_, err = NewJWTValidator(cfg).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
