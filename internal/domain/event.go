package domain

import "time"

// Event is a publicly listed event owned by an organizer
type Event struct {
	ID                   string     `json:"id"`
	Slug                 string     `json:"slug"`
	OrganizerID          string     `json:"organizer_id"`
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Location             string     `json:"location"`
	Category             string     `json:"category"`
	ImageURL             string     `json:"image_url"`
	StartDate            time.Time  `json:"start_date"`
	EndDate              time.Time  `json:"end_date"`
	Timezone             string     `json:"timezone"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
	Status               string     `json:"status"`     // DRAFT, PUBLISHED, CANCELLED, COMPLETED
	Visibility           string     `json:"visibility"` // PUBLIC, UNLISTED
	IsFeatured           bool       `json:"is_featured"`
	PublishedAt          *time.Time `json:"published_at,omitempty"`
	Capacity             *int       `json:"capacity,omitempty"` // nil means unbounded
	RequiresApproval     bool       `json:"requires_approval"`
	Price                float64    `json:"price"`
	Currency             string     `json:"currency"`
	RegistrationCount    int        `json:"registration_count"`
	ViewCount            int64      `json:"view_count"`
	LikeCount            int        `json:"like_count"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// EventStatus constants
const (
	EventStatusDraft     = "DRAFT"
	EventStatusPublished = "PUBLISHED"
	EventStatusCancelled = "CANCELLED"
	EventStatusCompleted = "COMPLETED"
)

// EventVisibility constants
const (
	EventVisibilityPublic   = "PUBLIC"
	EventVisibilityUnlisted = "UNLISTED"
)

// IsValidEventStatus reports whether s is a known event status
func IsValidEventStatus(s string) bool {
	switch s {
	case EventStatusDraft, EventStatusPublished, EventStatusCancelled, EventStatusCompleted:
		return true
	}
	return false
}

// IsValidVisibility reports whether v is a known visibility
func IsValidVisibility(v string) bool {
	return v == EventVisibilityPublic || v == EventVisibilityUnlisted
}

// IsOwnedBy checks if the event belongs to the given organizer
func (e *Event) IsOwnedBy(userID string) bool {
	return userID != "" && e.OrganizerID == userID
}

// IsPublished checks if the event accepts registrations
func (e *Event) IsPublished() bool {
	return e.Status == EventStatusPublished
}

// RegistrationClosed reports whether the registration deadline has passed at now
func (e *Event) RegistrationClosed(now time.Time) bool {
	return e.RegistrationDeadline != nil && now.After(*e.RegistrationDeadline)
}

// WouldExceedCapacity reports whether admitting quantity more seats on top of
// confirmed would go past the capacity. Unbounded events never exceed.
func (e *Event) WouldExceedCapacity(confirmed, quantity int) bool {
	return e.Capacity != nil && confirmed+quantity > *e.Capacity
}

// ApplyStatus changes the status and maintains PublishedAt: set when entering
// PUBLISHED from any other status, cleared on PUBLISHED to DRAFT, untouched otherwise.
func (e *Event) ApplyStatus(status string, now time.Time) {
	switch {
	case status == EventStatusPublished && e.Status != EventStatusPublished:
		t := now
		e.PublishedAt = &t
	case status == EventStatusDraft && e.Status == EventStatusPublished:
		e.PublishedAt = nil
	}
	e.Status = status
}

// Clone returns a deep copy so callers can stage changes without aliasing
func (e *Event) Clone() *Event {
	if e == nil {
		return nil
	}
	cp := *e
	if e.RegistrationDeadline != nil {
		t := *e.RegistrationDeadline
		cp.RegistrationDeadline = &t
	}
	if e.PublishedAt != nil {
		t := *e.PublishedAt
		cp.PublishedAt = &t
	}
	if e.Capacity != nil {
		c := *e.Capacity
		cp.Capacity = &c
	}
	return &cp
}
