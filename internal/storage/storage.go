package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/config"
	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Storage defines the interface for file storage operations.
// Storage paths are slash-separated keys such as "quotes/<id>/<uuid>.step".
type Storage interface {
	Upload(ctx context.Context, folder, filename, contentType string, data io.Reader) (string, int64, error)
	Download(ctx context.Context, storagePath string) (io.ReadCloser, error)
	Delete(ctx context.Context, storagePath string) error
	// SignedURL returns a time-limited download link for storagePath
	SignedURL(ctx context.Context, storagePath string, ttl time.Duration) (string, time.Time, error)
}

// NewStorage creates a new storage instance based on configuration.
// For local mode, files are stored on the local filesystem.
// For cloud/azure mode, files are stored in Azure Blob Storage.
func NewStorage(cfg *config.StorageConfig, logger *zap.Logger) (Storage, error) {
	switch cfg.Mode {
	case "local":
		return NewLocalStorage(cfg.LocalBasePath, NewURLSigner(cfg.SigningSecret))
	case "cloud", "azure":
		if cfg.CloudConnectionString == "" {
			return nil, fmt.Errorf("cloud connection string required for azure storage")
		}
		return NewAzureBlobStorage(cfg.CloudConnectionString, cfg.CloudContainer, logger)
	default:
		return nil, fmt.Errorf("unsupported storage mode: %s", cfg.Mode)
	}
}

// objectKey builds a unique key under folder keeping the original extension
func objectKey(folder, filename string) (string, error) {
	folder = strings.Trim(path.Clean("/"+filepath.ToSlash(folder)), "/")
	if strings.Contains(folder, "..") {
		return "", fmt.Errorf("%w: invalid storage folder", domain.ErrValidation)
	}
	ext := strings.ToLower(filepath.Ext(filename))
	name := uuid.New().String() + ext
	if folder == "" || folder == "." {
		return name, nil
	}
	return folder + "/" + name, nil
}

// cleanKey rejects keys escaping the storage root
func cleanKey(storagePath string) (string, error) {
	key := path.Clean("/" + filepath.ToSlash(storagePath))
	key = strings.TrimPrefix(key, "/")
	if key == "" || key == "." || strings.HasPrefix(key, "../") || strings.Contains(key, "/../") {
		return "", fmt.Errorf("%w: invalid storage path", domain.ErrValidation)
	}
	return key, nil
}
