package service_test

import (
	"bytes"
	"io"
	"net/url"
	"strings"
	"testing"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/storage"
	"github.com/atelier-dz/cnc-marketplace-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenOf(t *testing.T, link string) string {
	t.Helper()
	require.True(t, strings.HasPrefix(link, storage.LocalSignedPath+"?"))
	u, err := url.Parse(link)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func TestUploadAndDownloadDrawing(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	quote := testutil.CreateQuote(t, f.db, client)
	drawing := []byte("ISO-10303-21;\nHEADER;\nENDSEC;")

	dto, err := f.files.UploadToQuote(as(client), quote.ID, "../../bride.STEP", "", bytes.NewReader(drawing))
	require.NoError(t, err)
	assert.Equal(t, "bride.STEP", dto.Filename)
	assert.EqualValues(t, len(drawing), dto.Size)

	files, err := f.files.ListForQuote(as(client), quote.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)

	// workshops browsing open quotes can fetch the drawing
	workshop, _ := testutil.CreatePartner(t, f.db, "16")
	link, err := f.files.SignedURL(as(workshop), quote.ID, dto.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, link.ExpiresAt)

	body, name, contentType, err := f.files.OpenSigned(as(workshop), tokenOf(t, link.URL))
	require.NoError(t, err)
	got, err := io.ReadAll(body)
	require.NoError(t, body.Close())
	require.NoError(t, err)
	assert.Equal(t, drawing, got)
	assert.True(t, strings.HasSuffix(name, ".step"))
	assert.NotEmpty(t, contentType)

	_, _, _, err = f.files.OpenSigned(as(workshop), "forged")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestUploadDrawing_Rules(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	quote := testutil.CreateQuote(t, f.db, client)

	t.Run("extension not accepted", func(t *testing.T) {
		_, err := f.files.UploadToQuote(as(client), quote.ID, "macro.exe", "", strings.NewReader("MZ"))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("too large", func(t *testing.T) {
		big := bytes.Repeat([]byte{'x'}, 1024*1024+1)
		_, err := f.files.UploadToQuote(as(client), quote.ID, "piece.stl", "", bytes.NewReader(big))
		assert.ErrorIs(t, err, domain.ErrValidation)

		files, err := f.files.ListForQuote(as(client), quote.ID)
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("not the owner", func(t *testing.T) {
		workshop, _ := testutil.CreatePartner(t, f.db, "16")
		_, err := f.files.UploadToQuote(as(workshop), quote.ID, "piece.stl", "", strings.NewReader("solid"))
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestDeleteDrawing(t *testing.T) {
	f := newFixture(t)
	client := testutil.CreateProfile(t, f.db, domain.RoleClient)
	quote := testutil.CreateQuote(t, f.db, client)

	dto, err := f.files.UploadToQuote(as(client), quote.ID, "plan.pdf", "application/pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	link, err := f.files.SignedURL(as(client), quote.ID, dto.ID)
	require.NoError(t, err)

	otherQuote := testutil.CreateQuote(t, f.db, client)
	assert.ErrorIs(t, f.files.Delete(as(client), otherQuote.ID, dto.ID), domain.ErrNotFound)

	require.NoError(t, f.files.Delete(as(client), quote.ID, dto.ID))

	files, err := f.files.ListForQuote(as(client), quote.ID)
	require.NoError(t, err)
	assert.Empty(t, files)

	_, _, _, err = f.files.OpenSigned(as(client), tokenOf(t, link.URL))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
