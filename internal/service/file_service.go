package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/mapper"
	"github.com/atelier-dz/cnc-marketplace-api/internal/repository"
	"github.com/atelier-dz/cnc-marketplace-api/internal/storage"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxFilesPerQuote = 20

// allowedDrawingExtensions are the CAD, drawing and image formats accepted on quotes
var allowedDrawingExtensions = map[string]bool{
	".step": true, ".stp": true,
	".iges": true, ".igs": true,
	".stl": true, ".dxf": true, ".dwg": true,
	".pdf": true, ".png": true, ".jpg": true, ".jpeg": true,
}

// FileService handles the drawings attached to quotes
type FileService struct {
	fileRepo  *repository.QuoteFileRepository
	quoteRepo *repository.QuoteRepository
	storage   storage.Storage
	signer    *storage.URLSigner
	maxBytes  int64
	linkTTL   time.Duration
	logger    *zap.Logger
}

// NewFileService creates a FileService. signer is only set for local
// storage, whose links are served by the API itself.
func NewFileService(
	fileRepo *repository.QuoteFileRepository,
	quoteRepo *repository.QuoteRepository,
	store storage.Storage,
	signer *storage.URLSigner,
	maxBytes int64,
	linkTTL time.Duration,
	logger *zap.Logger,
) *FileService {
	return &FileService{
		fileRepo:  fileRepo,
		quoteRepo: quoteRepo,
		storage:   store,
		signer:    signer,
		maxBytes:  maxBytes,
		linkTTL:   linkTTL,
		logger:    logger,
	}
}

// UploadToQuote stores a drawing and attaches it to a quote owned by the current client
func (s *FileService) UploadToQuote(ctx context.Context, quoteID uuid.UUID, filename, contentType string, data io.Reader) (*domain.QuoteFileDTO, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	if quote.ClientID != user.UserID {
		return nil, forbidden("cette demande de devis ne vous appartient pas")
	}

	filename = filepath.Base(strings.TrimSpace(filename))
	ext := strings.ToLower(filepath.Ext(filename))
	if filename == "" || filename == "." || !allowedDrawingExtensions[ext] {
		return nil, invalid("format de fichier non accepté: %s", ext)
	}
	count, err := s.fileRepo.CountByQuote(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}
	if count >= maxFilesPerQuote {
		return nil, invalid("au plus %d fichiers par demande", maxFilesPerQuote)
	}
	if contentType == "" || contentType == "application/octet-stream" {
		if guessed := mime.TypeByExtension(ext); guessed != "" {
			contentType = guessed
		} else {
			contentType = "application/octet-stream"
		}
	}

	reader := data
	if s.maxBytes > 0 {
		reader = io.LimitReader(data, s.maxBytes+1)
	}
	storagePath, size, err := s.storage.Upload(ctx, "quotes/"+quoteID.String(), filename, contentType, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		s.removeBlob(ctx, storagePath)
		return nil, invalid("le fichier dépasse %d Mo", s.maxBytes/(1024*1024))
	}

	file := &domain.QuoteFile{
		QuoteID:     quoteID,
		UploadedBy:  user.UserID,
		Filename:    filename,
		ContentType: contentType,
		Size:        size,
		StoragePath: storagePath,
	}
	if err := s.fileRepo.Create(ctx, file); err != nil {
		s.removeBlob(ctx, storagePath)
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	s.logger.Info("quote file uploaded",
		zap.String("fileID", file.ID.String()),
		zap.String("quoteID", quoteID.String()),
		zap.String("filename", filename),
		zap.Int64("size", size),
	)
	dto := mapper.ToQuoteFileDTO(file)
	return &dto, nil
}

// ListForQuote returns the drawings of a quote the caller can see
func (s *FileService) ListForQuote(ctx context.Context, quoteID uuid.UUID) ([]domain.QuoteFileDTO, error) {
	if _, err := s.quoteRepo.GetByID(ctx, quoteID); err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	files, err := s.fileRepo.ListByQuote(ctx, quoteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	dtos := make([]domain.QuoteFileDTO, len(files))
	for i := range files {
		dtos[i] = mapper.ToQuoteFileDTO(&files[i])
	}
	return dtos, nil
}

// SignedURL returns a time-limited download link for a drawing
func (s *FileService) SignedURL(ctx context.Context, quoteID, fileID uuid.UUID) (*domain.SignedURLDTO, error) {
	file, err := s.quoteFile(ctx, quoteID, fileID)
	if err != nil {
		return nil, err
	}
	link, expiresAt, err := s.storage.SignedURL(ctx, file.StoragePath, s.linkTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to sign file link: %w", err)
	}
	return &domain.SignedURLDTO{
		URL:       link,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	}, nil
}

// Delete detaches and removes a drawing while the quote is still open
func (s *FileService) Delete(ctx context.Context, quoteID, fileID uuid.UUID) error {
	user, err := currentUser(ctx)
	if err != nil {
		return err
	}
	quote, err := s.quoteRepo.GetByID(ctx, quoteID)
	if err != nil {
		return fmt.Errorf("failed to get quote: %w", err)
	}
	if quote.ClientID != user.UserID && !user.IsAdmin() {
		return forbidden("cette demande de devis ne vous appartient pas")
	}
	if quote.Status != domain.QuoteStatusOpen {
		return ErrQuoteNotOpen
	}
	file, err := s.quoteFile(ctx, quoteID, fileID)
	if err != nil {
		return err
	}
	if err := s.fileRepo.Delete(ctx, file.ID); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	s.removeBlob(ctx, file.StoragePath)
	return nil
}

// OpenSigned resolves a local download token to the file it grants access to
func (s *FileService) OpenSigned(ctx context.Context, token string) (io.ReadCloser, string, string, error) {
	if s.signer == nil {
		return nil, "", "", fmt.Errorf("signed link %w", domain.ErrNotFound)
	}
	key, err := s.signer.Verify(token)
	if err != nil {
		return nil, "", "", err
	}
	body, err := s.storage.Download(ctx, key)
	if err != nil {
		return nil, "", "", err
	}
	name := path.Base(key)
	contentType := mime.TypeByExtension(strings.ToLower(path.Ext(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return body, name, contentType, nil
}

func (s *FileService) quoteFile(ctx context.Context, quoteID, fileID uuid.UUID) (*domain.QuoteFile, error) {
	if _, err := s.quoteRepo.GetByID(ctx, quoteID); err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	file, err := s.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get file: %w", err)
	}
	if file.QuoteID != quoteID {
		return nil, fmt.Errorf("file %w on this quote", domain.ErrNotFound)
	}
	return file, nil
}

func (s *FileService) removeBlob(ctx context.Context, storagePath string) {
	if err := s.storage.Delete(ctx, storagePath); err != nil {
		s.logger.Warn("failed to delete stored file", zap.String("path", storagePath), zap.Error(err))
	}
}
