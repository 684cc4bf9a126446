package service

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/repository"
	"go.uber.org/zap"
)

// Document number prefixes
const (
	PrefixQuote   = "DEV"
	PrefixInvoice = "FAC"
)

var documentNumberPattern = regexp.MustCompile(`^(DEV|FAC)-\d{4}-\d{6}$`)

// NumberSequenceService hands out gap-free document numbers per prefix and year.
//
// Format: {PREFIX}-{YEAR}-{SEQUENCE}
// Example: DEV-2026-000001, FAC-2026-000042
type NumberSequenceService struct {
	repo   *repository.NumberSequenceRepository
	now    func() time.Time
	logger *zap.Logger
}

// NewNumberSequenceService creates a new NumberSequenceService
func NewNumberSequenceService(
	repo *repository.NumberSequenceRepository,
	logger *zap.Logger,
) *NumberSequenceService {
	return &NumberSequenceService{
		repo:   repo,
		now:    time.Now,
		logger: logger,
	}
}

// NextNumber issues the next number for a document kind
func (s *NumberSequenceService) NextNumber(ctx context.Context, kind domain.DocumentKind) (string, error) {
	prefix, err := prefixFor(kind)
	if err != nil {
		return "", err
	}
	year := s.now().Year()

	next, err := s.repo.Next(ctx, prefix, year)
	if err != nil {
		s.logger.Error("failed to get next sequence number",
			zap.String("prefix", prefix),
			zap.Int("year", year),
			zap.Error(err))
		return "", fmt.Errorf("failed to generate %s number: %w", kind, err)
	}

	number := FormatDocumentNumber(prefix, year, next)
	s.logger.Info("generated number",
		zap.String("number", number),
		zap.String("kind", string(kind)),
		zap.Int("sequence", next))
	return number, nil
}

// GetCurrentSequence returns the last number issued for a kind and year, or 0
func (s *NumberSequenceService) GetCurrentSequence(ctx context.Context, kind domain.DocumentKind, year int) (int, error) {
	prefix, err := prefixFor(kind)
	if err != nil {
		return 0, err
	}
	return s.repo.Current(ctx, prefix, year)
}

// FormatDocumentNumber formats PREFIX-YYYY-NNNNNN
func FormatDocumentNumber(prefix string, year, sequence int) string {
	return fmt.Sprintf("%s-%d-%06d", prefix, year, sequence)
}

// ValidateDocumentNumber checks that a number follows PREFIX-YYYY-NNNNNN
func ValidateDocumentNumber(number string) bool {
	return documentNumberPattern.MatchString(number)
}

func prefixFor(kind domain.DocumentKind) (string, error) {
	switch kind {
	case domain.DocumentKindQuote:
		return PrefixQuote, nil
	case domain.DocumentKindInvoice:
		return PrefixInvoice, nil
	}
	return "", invalid("type de document inconnu: %s", kind)
}

// List returns every sequence, for the admin overview
func (s *NumberSequenceService) List(ctx context.Context) ([]domain.NumberSequence, error) {
	sequences, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list sequences: %w", err)
	}
	return sequences, nil
}
