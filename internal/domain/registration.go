package domain

import (
	"fmt"
	"time"
)

// Registration is one attendee's claim on seats of an event
type Registration struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	UserID        *string   `json:"user_id,omitempty"` // nil for guest registrations
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	Email         string    `json:"email"`
	Quantity      int       `json:"quantity"`
	TotalAmount   float64   `json:"total_amount"`
	PaymentStatus *string   `json:"payment_status,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// RegistrationStatus constants
const (
	RegistrationStatusPending   = "PENDING"
	RegistrationStatusConfirmed = "CONFIRMED"
	RegistrationStatusCancelled = "CANCELLED"
)

// PaymentStatus constants. Only a placeholder is tracked.
const (
	PaymentStatusNotRequired = "NOT_REQUIRED"
	PaymentStatusPending     = "PENDING"
)

var validRegistrationTransitions = map[string][]string{
	RegistrationStatusPending:   {RegistrationStatusConfirmed, RegistrationStatusCancelled},
	RegistrationStatusConfirmed: {RegistrationStatusCancelled},
	RegistrationStatusCancelled: {},
}

// CanTransitionTo checks if the registration can move to the target status
func (r *Registration) CanTransitionTo(target string) bool {
	for _, s := range validRegistrationTransitions[r.Status] {
		if s == target {
			return true
		}
	}
	return false
}

// TransitionTo moves the registration to target or returns an error
func (r *Registration) TransitionTo(target string, now time.Time) error {
	if !r.CanTransitionTo(target) {
		return fmt.Errorf("invalid registration transition from %s to %s", r.Status, target)
	}
	r.Status = target
	r.UpdatedAt = now
	return nil
}

// IsActive reports whether the registration holds or awaits seats
func (r *Registration) IsActive() bool {
	return r.Status == RegistrationStatusPending || r.Status == RegistrationStatusConfirmed
}

// IsConfirmed reports whether the registration counts toward occupancy
func (r *Registration) IsConfirmed() bool {
	return r.Status == RegistrationStatusConfirmed
}

// BelongsTo checks if the registration was made by the given user
func (r *Registration) BelongsTo(userID string) bool {
	return r.UserID != nil && *r.UserID == userID
}

// InitialRegistrationStatus returns the status a new registration starts in
func InitialRegistrationStatus(requiresApproval bool) string {
	if requiresApproval {
		return RegistrationStatusPending
	}
	return RegistrationStatusConfirmed
}
