package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

const signedURLAudience = "file-download"

// URLSigner issues and verifies download tokens for local storage
type URLSigner struct {
	secret []byte
}

func NewURLSigner(secret string) *URLSigner {
	if secret == "" {
		return nil
	}
	return &URLSigner{secret: []byte(secret)}
}

// Sign returns a token granting read access to key until the returned time
func (s *URLSigner) Sign(key string, ttl time.Duration) (string, time.Time, error) {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	expiresAt := time.Now().Add(ttl).UTC().Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   key,
		Audience:  jwt.ClaimStrings{signedURLAudience},
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign download token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify returns the storage key of a valid token
func (s *URLSigner) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(signedURLAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("download link expired: %w", domain.ErrUnauthorized)
		}
		return "", fmt.Errorf("invalid download link: %w", domain.ErrUnauthorized)
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid download link: %w", domain.ErrUnauthorized)
	}
	return claims.Subject, nil
}
