package storage

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocal(t *testing.T) *LocalStorage {
	t.Helper()
	s, err := NewLocalStorage(t.TempDir(), NewURLSigner("test-signing-secret"))
	require.NoError(t, err)
	return s
}

func TestLocalStorage_RoundTrip(t *testing.T) {
	s := newLocal(t)
	ctx := context.Background()

	key, size, err := s.Upload(ctx, "quotes/abc", "Bride.STEP", "model/step", bytes.NewReader([]byte("ISO-10303-21;")))
	require.NoError(t, err)
	assert.Equal(t, int64(13), size)
	assert.True(t, strings.HasPrefix(key, "quotes/abc/"))
	assert.True(t, strings.HasSuffix(key, ".step"))

	rc, err := s.Download(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "ISO-10303-21;", string(data))

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))

	_, err = s.Download(ctx, key)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLocalStorage_RejectsTraversal(t *testing.T) {
	s := newLocal(t)

	_, err := s.Download(context.Background(), "../../etc/passwd")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.Download(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestLocalStorage_SignedURL(t *testing.T) {
	s := newLocal(t)

	link, expiresAt, err := s.SignedURL(context.Background(), "documents/FAC-2026-000001.pdf", time.Minute)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))
	assert.True(t, strings.HasPrefix(link, LocalSignedPath+"?token="))

	u, err := url.Parse(link)
	require.NoError(t, err)
	key, err := s.Signer().Verify(u.Query().Get("token"))
	require.NoError(t, err)
	assert.Equal(t, "documents/FAC-2026-000001.pdf", key)
}

func TestURLSigner_RejectsForeignAndExpiredTokens(t *testing.T) {
	signer := NewURLSigner("secret-a")
	other := NewURLSigner("secret-b")

	token, _, err := other.Sign("quotes/x.pdf", time.Minute)
	require.NoError(t, err)
	_, err = signer.Verify(token)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	expired, _, err := signer.Sign("quotes/x.pdf", -time.Minute)
	require.NoError(t, err)
	// a non-positive ttl falls back to the default lifetime
	_, err = signer.Verify(expired)
	assert.NoError(t, err)

	_, err = signer.Verify("not-a-token")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestObjectKey(t *testing.T) {
	key, err := objectKey("quotes/1", "plan.PDF")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "quotes/1/"))
	assert.True(t, strings.HasSuffix(key, ".pdf"))

	key, err = objectKey("../../secret", "x.txt")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "secret/"))
}
