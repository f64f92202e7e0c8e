package service

import (
	"context"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/domain"
	"github.com/Xavierhuang/FounderEvents-sub002/internal/dto"
)

// EventService defines the interface for event lifecycle and read operations
type EventService interface {
	// CreateEvent creates an event owned by organizerID with a freshly allocated slug
	CreateEvent(ctx context.Context, organizerID string, req *dto.CreateEventRequest) (*domain.Event, error)
	// UpdateEvent applies a partial update; only the organizer may call it
	UpdateEvent(ctx context.Context, slug, organizerID string, req *dto.UpdateEventRequest) (*domain.Event, error)
	// SetFeatured sets the featured flag; only the organizer may call it
	SetFeatured(ctx context.Context, slug, organizerID string, featured bool) (*domain.Event, error)
	// DeleteEvent removes the event with its registrations and likes
	DeleteEvent(ctx context.Context, slug, organizerID string) error
	// GetEvent returns the event with caller flags and records a view
	GetEvent(ctx context.Context, slug, callerID string) (*dto.EventResponse, error)
	// ListEvents returns published public events matching the query
	ListEvents(ctx context.Context, query *domain.EventQuery) (*dto.EventListResponse, error)
	// ListOrganizerEvents returns the caller's own events in any status
	ListOrganizerEvents(ctx context.Context, organizerID string, query *domain.EventQuery) (*dto.EventListResponse, error)
	// ToggleLike likes or unlikes the event for userID
	ToggleLike(ctx context.Context, slug, userID string) (*dto.LikeResponse, error)
}

// RegistrationService defines the interface for the registration ledger operations
type RegistrationService interface {
	// Register admits an attendee subject to status, deadline, capacity and dedup checks
	Register(ctx context.Context, slug string, req *dto.RegisterRequest) (*domain.Registration, error)
	// Cancel cancels the caller's active registration
	Cancel(ctx context.Context, slug, userID string) (*domain.Registration, error)
	// GetMyRegistration returns the caller's active registration
	GetMyRegistration(ctx context.Context, slug, userID string) (*domain.Registration, error)
	// ListRegistrations returns every registration of the event to its organizer
	ListRegistrations(ctx context.Context, slug, organizerID string) ([]*domain.Registration, error)
}

// ProfileService defines the interface for organizer profiles
type ProfileService interface {
	// CreateProfile creates the caller's organizer profile
	CreateProfile(ctx context.Context, userID string, req *dto.CreateProfileRequest) (*domain.OrganizerProfile, error)
	// GetProfile returns the caller's organizer profile
	GetProfile(ctx context.Context, userID string) (*domain.OrganizerProfile, error)
}
