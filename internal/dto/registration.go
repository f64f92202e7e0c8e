package dto

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

const (
	DefaultRegistrationQuantity = 1
	MaxRegistrationQuantity     = 100
)

// RegisterRequest represents an attendee signing up for an event
type RegisterRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Quantity  int    `json:"quantity"`
	UserID    string `json:"-"` // Set from context, empty for guests
}

// SetDefaults trims input, lower-cases the email and defaults quantity to 1
func (r *RegisterRequest) SetDefaults() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.Quantity == 0 {
		r.Quantity = DefaultRegistrationQuantity
	}
}

// Validate validates the RegisterRequest
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&r.Quantity, validation.Required, validation.Min(1), validation.Max(MaxRegistrationQuantity)),
	)
}

// CreateProfileRequest represents the request to create an organizer profile
type CreateProfileRequest struct {
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	Website     string `json:"website"`
}

// Validate validates the CreateProfileRequest
func (r CreateProfileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DisplayName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Bio, validation.Length(0, 2000)),
		validation.Field(&r.Website, is.URL),
	)
}
