package repository

import (
	"context"
	"errors"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/domain"
)

var (
	// ErrSlugTaken is returned by EventRepository.Create when the slug already exists
	ErrSlugTaken = errors.New("slug already taken")
	// ErrDuplicateActiveRegistration is returned when (event, email) already has an active registration
	ErrDuplicateActiveRegistration = errors.New("active registration already exists for email")
	// ErrNegativeCount is returned when a counter adjustment would drop below zero
	ErrNegativeCount = errors.New("registration count would become negative")
	// ErrStaleRegistration is returned when a status update does not find the expected prior status
	ErrStaleRegistration = errors.New("registration status changed concurrently")
	// ErrProfileNotFound is returned by ProfileRepository.AdjustTotals when no profile exists
	ErrProfileNotFound = errors.New("organizer profile not found")
	// ErrProfileExists is returned by ProfileRepository.Create for a second profile
	ErrProfileExists = errors.New("organizer profile already exists")
)

// EventRepository defines the interface for event data access.
// Lookups return (nil, nil) when the event does not exist.
type EventRepository interface {
	// Create inserts a new event; returns ErrSlugTaken on slug collision
	Create(ctx context.Context, event *domain.Event) error
	// GetByID retrieves an event by ID
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	// GetBySlug retrieves an event by slug
	GetBySlug(ctx context.Context, slug string) (*domain.Event, error)
	// Update locks the event row, lets fn mutate a copy and persists the
	// editable fields. Counters are never written here. Returns (nil, nil) if absent.
	Update(ctx context.Context, slug string, fn func(event *domain.Event) error) (*domain.Event, error)
	// Delete removes an event and, by cascade, its registrations and likes
	Delete(ctx context.Context, id string) error
	// List returns one page of events matching a validated query plus the total match count
	List(ctx context.Context, query *domain.EventQuery) ([]*domain.Event, int, error)
	// IncrementViewCount atomically adds delta to view_count without taking the capacity lock
	IncrementViewCount(ctx context.Context, id string, delta int64) error
}

// LedgerTx is the registration ledger as seen from inside a per-event lock
type LedgerTx interface {
	// ConfirmedQuantity sums quantity over CONFIRMED registrations of the event
	ConfirmedQuantity(ctx context.Context, eventID string) (int, error)
	// FindActiveByEmail returns the PENDING or CONFIRMED registration for (event, email)
	FindActiveByEmail(ctx context.Context, eventID, email string) (*domain.Registration, error)
	// FindActiveByUser returns the caller's PENDING or CONFIRMED registration
	FindActiveByUser(ctx context.Context, eventID, userID string) (*domain.Registration, error)
	// Insert records a new registration
	Insert(ctx context.Context, reg *domain.Registration) error
	// UpdateStatus persists reg.Status if the stored status is still from
	UpdateStatus(ctx context.Context, reg *domain.Registration, from string) error
	// AdjustRegistrationCount adds delta to the event's registration_count and
	// returns the new value; ErrNegativeCount if it would go below zero
	AdjustRegistrationCount(ctx context.Context, eventID string, delta int) (int, error)
}

// RegistrationRepository defines the interface for registration data access
type RegistrationRepository interface {
	// WithinEventLock serializes fn against every other locked operation on the
	// same event. event is nil when the slug does not exist. Writes made through
	// tx commit only if fn returns nil.
	WithinEventLock(ctx context.Context, slug string, fn func(tx LedgerTx, event *domain.Event) error) error
	// FindActiveByUser returns the user's active registration without locking
	FindActiveByUser(ctx context.Context, eventID, userID string) (*domain.Registration, error)
	// ListByEvent returns every registration of an event, newest first
	ListByEvent(ctx context.Context, eventID string) ([]*domain.Registration, error)
}

// ProfileRepository defines the interface for organizer profile data access
type ProfileRepository interface {
	// Create inserts a profile; ErrProfileExists if the user already has one
	Create(ctx context.Context, profile *domain.OrganizerProfile) error
	// GetByUserID retrieves a profile; (nil, nil) when absent
	GetByUserID(ctx context.Context, userID string) (*domain.OrganizerProfile, error)
	// AdjustTotals adds the deltas to the aggregates, clamping at zero;
	// ErrProfileNotFound when the user has no profile
	AdjustTotals(ctx context.Context, userID string, attendeesDelta, eventsDelta int) error
}

// LikeRepository defines the interface for event likes
type LikeRepository interface {
	// Toggle adds or removes the (user, event) like and returns the new state and like_count
	Toggle(ctx context.Context, userID, eventID string) (bool, int, error)
	// Exists reports whether the user likes the event
	Exists(ctx context.Context, userID, eventID string) (bool, error)
}
