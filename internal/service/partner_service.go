package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/mapper"
	"github.com/atelier-dz/cnc-marketplace-api/internal/notify"
	"github.com/atelier-dz/cnc-marketplace-api/internal/repository"
	"github.com/atelier-dz/cnc-marketplace-api/internal/shipping"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PartnerService handles workshop applications, their review and the public directory
type PartnerService struct {
	partnerRepo *repository.PartnerRepository
	notifier    notify.Dispatcher
	logger      *zap.Logger
}

func NewPartnerService(partnerRepo *repository.PartnerRepository, notifier notify.Dispatcher, logger *zap.Logger) *PartnerService {
	return &PartnerService{
		partnerRepo: partnerRepo,
		notifier:    notifier,
		logger:      logger,
	}
}

// Apply registers the current partner user's workshop for review
func (s *PartnerService) Apply(ctx context.Context, req *domain.ApplyPartnerRequest) (*domain.PartnerDTO, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsPartner() {
		return nil, forbidden("seuls les comptes atelier peuvent postuler")
	}

	code, ok := shipping.NormalizeCode(req.WilayaCode)
	if !ok {
		return nil, invalid("wilaya inconnue: %s", req.WilayaCode)
	}

	partner := &domain.Partner{
		ProfileID:    user.UserID,
		CompanyName:  strings.TrimSpace(req.CompanyName),
		WilayaCode:   code,
		Capabilities: normalizeCapabilities(req.Capabilities),
		Description:  strings.TrimSpace(req.Description),
		Status:       domain.PartnerStatusPending,
	}
	if err := s.partnerRepo.Create(ctx, partner); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, conflict("une candidature existe déjà pour ce compte")
		}
		return nil, fmt.Errorf("failed to create partner: %w", err)
	}

	s.logger.Info("partner application submitted",
		zap.String("partnerID", partner.ID.String()),
		zap.String("profileID", user.UserID.String()),
		zap.String("wilaya", code),
	)
	dto := mapper.ToPartnerDTO(partner)
	return &dto, nil
}

// List returns the partner directory. Non-admin callers only ever list approved workshops.
func (s *PartnerService) List(ctx context.Context, page, pageSize int, filters repository.PartnerFilters) (*domain.PaginatedResponse, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		approved := domain.PartnerStatusApproved
		filters.Status = &approved
	}
	if filters.WilayaCode != "" {
		code, ok := shipping.NormalizeCode(filters.WilayaCode)
		if !ok {
			return nil, invalid("wilaya inconnue: %s", filters.WilayaCode)
		}
		filters.WilayaCode = code
	}

	page, pageSize = repository.NormalizePage(page, pageSize, 20)
	partners, total, err := s.partnerRepo.List(ctx, page, pageSize, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list partners: %w", err)
	}

	dtos := make([]domain.PartnerDTO, len(partners))
	for i := range partners {
		dtos[i] = mapper.ToPartnerDTO(&partners[i])
	}
	return paginate(dtos, total, page, pageSize), nil
}

func (s *PartnerService) Get(ctx context.Context, id uuid.UUID) (*domain.PartnerDTO, error) {
	partner, err := s.partnerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}
	dto := mapper.ToPartnerDTO(partner)
	return &dto, nil
}

// GetMine returns the workshop of the current user, whatever its review status
func (s *PartnerService) GetMine(ctx context.Context) (*domain.PartnerDTO, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	partner, err := s.partnerRepo.GetByProfileID(ctx, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}
	dto := mapper.ToPartnerDTO(partner)
	return &dto, nil
}

func (s *PartnerService) UpdateMine(ctx context.Context, req *domain.UpdatePartnerRequest) (*domain.PartnerDTO, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	partner, err := s.partnerRepo.GetByProfileID(ctx, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}

	partner.Capabilities = normalizeCapabilities(req.Capabilities)
	partner.Description = strings.TrimSpace(req.Description)
	if err := s.partnerRepo.Update(ctx, partner); err != nil {
		return nil, fmt.Errorf("failed to update partner: %w", err)
	}

	dto := mapper.ToPartnerDTO(partner)
	return &dto, nil
}

// SetStatus records an admin review decision and tells the workshop about it
func (s *PartnerService) SetStatus(ctx context.Context, id uuid.UUID, req *domain.ReviewPartnerRequest) (*domain.PartnerDTO, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, forbidden("réservé aux administrateurs")
	}
	if !req.Status.IsValid() || req.Status == domain.PartnerStatusPending {
		return nil, invalid("statut de partenaire invalide: %s", req.Status)
	}

	note := strings.TrimSpace(req.Note)
	if err := s.partnerRepo.SetStatus(ctx, id, req.Status, note); err != nil {
		return nil, fmt.Errorf("failed to review partner: %w", err)
	}
	partner, err := s.partnerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload partner: %w", err)
	}

	s.logger.Info("partner reviewed",
		zap.String("partnerID", id.String()),
		zap.String("status", string(req.Status)),
		zap.String("reviewer", user.UserID.String()),
	)

	message := "Votre atelier a été " + partnerStatusLabel(req.Status) + "."
	if note != "" {
		message += " " + note
	}
	entityID := partner.ID
	if err := s.notifier.Notify(ctx, notify.Event{
		UserID:     partner.ProfileID,
		Type:       domain.NotificationTypePartnerReviewed,
		Title:      "Candidature atelier " + partnerStatusLabel(req.Status),
		Message:    message,
		Link:       "/partners/me",
		EntityType: "partner",
		EntityID:   &entityID,
		SendEmail:  true,
		Details:    map[string]string{"status": string(req.Status)},
	}); err != nil {
		s.logger.Warn("failed to notify partner review", zap.String("partnerID", id.String()), zap.Error(err))
	}

	dto := mapper.ToPartnerDTO(partner)
	return &dto, nil
}

// approvedPartner returns the approved workshop owned by profileID
func approvedPartner(ctx context.Context, repo *repository.PartnerRepository, profileID uuid.UUID) (*domain.Partner, error) {
	partner, err := repo.GetByProfileID(ctx, profileID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrPartnerProfileRequired
		}
		return nil, fmt.Errorf("failed to get partner: %w", err)
	}
	if partner.Status != domain.PartnerStatusApproved {
		return nil, ErrPartnerProfileRequired
	}
	return partner, nil
}

func normalizeCapabilities(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, c := range in {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func partnerStatusLabel(status domain.PartnerStatus) string {
	switch status {
	case domain.PartnerStatusApproved:
		return "approuvé"
	case domain.PartnerStatusRejected:
		return "refusé"
	case domain.PartnerStatusSuspended:
		return "suspendu"
	}
	return "en attente"
}
