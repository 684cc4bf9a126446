package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/atelier-dz/cnc-marketplace-api/internal/auth"
	"github.com/atelier-dz/cnc-marketplace-api/internal/domain"
	"github.com/atelier-dz/cnc-marketplace-api/internal/mapper"
	"github.com/atelier-dz/cnc-marketplace-api/internal/repository"
	"github.com/atelier-dz/cnc-marketplace-api/internal/shipping"
	"go.uber.org/zap"
)

// ProfileService manages the marketplace profile of authenticated users
type ProfileService struct {
	profileRepo *repository.ProfileRepository
	logger      *zap.Logger
}

func NewProfileService(profileRepo *repository.ProfileRepository, logger *zap.Logger) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		logger:      logger,
	}
}

// EnsureProfile creates the profile of a token subject on first sight and
// keeps email and role in sync with the token afterwards. API key callers
// have no profile.
func (s *ProfileService) EnsureProfile(ctx context.Context, user *auth.UserContext) (*domain.Profile, error) {
	if user == nil || user.IsSystem() {
		return nil, nil
	}
	role := user.Role
	if !role.IsValid() {
		role = domain.RoleClient
	}
	profile := &domain.Profile{
		Email:    strings.ToLower(strings.TrimSpace(user.Email)),
		FullName: user.DisplayName,
		Role:     role,
	}
	profile.ID = user.UserID
	if profile.Email == "" {
		profile.Email = user.UserID.String() + "@users.invalid"
	}

	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to ensure profile: %w", err)
	}
	return profile, nil
}

// GetMe returns the profile of the current user
func (s *ProfileService) GetMe(ctx context.Context) (*domain.ProfileDTO, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := s.profileRepo.GetByID(ctx, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	dto := mapper.ToProfileDTO(profile)
	return &dto, nil
}

// UpdateMe edits the user-owned fields of the current profile
func (s *ProfileService) UpdateMe(ctx context.Context, req *domain.UpdateProfileRequest) (*domain.ProfileDTO, error) {
	user, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	profile, err := s.profileRepo.GetByID(ctx, user.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if req.WilayaCode != "" {
		code, ok := shipping.NormalizeCode(req.WilayaCode)
		if !ok {
			return nil, invalid("wilaya inconnue: %s", req.WilayaCode)
		}
		profile.WilayaCode = code
	}
	profile.FullName = strings.TrimSpace(req.FullName)
	profile.Phone = strings.TrimSpace(req.Phone)
	profile.CompanyName = strings.TrimSpace(req.CompanyName)

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.logger.Info("profile updated", zap.String("profileID", profile.ID.String()))
	dto := mapper.ToProfileDTO(profile)
	return &dto, nil
}
