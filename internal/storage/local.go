package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
)

// LocalSignedPath is the API route serving signed local downloads
const LocalSignedPath = "/api/v1/files/signed"

// LocalStorage implements Storage on the local filesystem
type LocalStorage struct {
	basePath string
	signer   *URLSigner
}

// NewLocalStorage creates a new local storage instance
func NewLocalStorage(basePath string, signer *URLSigner) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{basePath: basePath, signer: signer}, nil
}

func (s *LocalStorage) Upload(ctx context.Context, folder, filename, contentType string, data io.Reader) (string, int64, error) {
	key, err := objectKey(folder, filename)
	if err != nil {
		return "", 0, err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	size, err := io.Copy(file, data)
	if err != nil {
		os.Remove(fullPath)
		return "", 0, fmt.Errorf("failed to write file: %w", err)
	}

	return key, size, nil
}

func (s *LocalStorage) Download(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	key, err := cleanKey(storagePath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(filepath.Join(s.basePath, filepath.FromSlash(key)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("file %s %w", key, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

func (s *LocalStorage) Delete(ctx context.Context, storagePath string) error {
	key, err := cleanKey(storagePath)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.basePath, filepath.FromSlash(key))); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// SignedURL returns an API-relative link carrying a signed token; the token
// is checked by the signed download route.
func (s *LocalStorage) SignedURL(ctx context.Context, storagePath string, ttl time.Duration) (string, time.Time, error) {
	key, err := cleanKey(storagePath)
	if err != nil {
		return "", time.Time{}, err
	}
	if s.signer == nil {
		return "", time.Time{}, fmt.Errorf("local storage has no url signer")
	}
	token, expiresAt, err := s.signer.Sign(key, ttl)
	if err != nil {
		return "", time.Time{}, err
	}
	return LocalSignedPath + "?token=" + url.QueryEscape(token), expiresAt, nil
}

// Signer exposes the signer used for links, for the download route
func (s *LocalStorage) Signer() *URLSigner {
	return s.signer
}
