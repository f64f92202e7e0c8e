package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/domain"
	"github.com/Xavierhuang/FounderEvents-sub002/internal/dto"
	"github.com/Xavierhuang/FounderEvents-sub002/internal/repository"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/logger"
)

// profileService implements ProfileService
type profileService struct {
	profiles repository.ProfileRepository
	log      *logger.Logger
}

// NewProfileService creates a new ProfileService
func NewProfileService(profiles repository.ProfileRepository, log *logger.Logger) ProfileService {
	return &profileService{
		profiles: profiles,
		log:      log.Named("profiles"),
	}
}

// CreateProfile creates the caller's organizer profile with zeroed aggregates
func (s *profileService) CreateProfile(ctx context.Context, userID string, req *dto.CreateProfileRequest) (*domain.OrganizerProfile, error) {
	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if err := req.Validate(); err != nil {
		return nil, newValidationError(err)
	}

	now := time.Now()
	profile := &domain.OrganizerProfile{
		UserID:      userID,
		DisplayName: req.DisplayName,
		Bio:         req.Bio,
		Website:     req.Website,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, repository.ErrProfileExists) {
			return nil, ErrProfileExists
		}
		return nil, err
	}

	s.log.WithContext(ctx).Info("organizer profile created", zap.String("user_id", userID))
	return profile, nil
}

// GetProfile returns the caller's organizer profile
func (s *profileService) GetProfile(ctx context.Context, userID string) (*domain.OrganizerProfile, error) {
	profile, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}
