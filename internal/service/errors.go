package service

import (
	"errors"
	"sort"
	"strings"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/dto"
)

// Service errors
var (
	ErrEventNotFound         = errors.New("event not found")
	ErrRegistrationNotFound  = errors.New("no active registration found")
	ErrForbidden             = errors.New("only the organizer can perform this action")
	ErrEventNotPublished     = errors.New("event is not open for registration")
	ErrDeadlinePassed        = errors.New("registration deadline has passed")
	ErrCapacityExceeded      = errors.New("event capacity exceeded")
	ErrDuplicateRegistration = errors.New("email is already registered for this event")
	ErrProfileMissing        = errors.New("organizer profile missing")
	ErrProfileExists         = errors.New("organizer profile already exists")
	ErrProfileNotFound       = errors.New("organizer profile not found")
	ErrInvalidQuery          = errors.New("invalid event query")
	ErrCounterInvariant      = errors.New("registration counter invariant violated")
)

// ValidationError carries per-field messages for malformed input
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(err error) error {
	return &ValidationError{Fields: dto.FieldErrors(err)}
}

// IsAdmissionRejection reports whether err is an expected registration outcome
// rather than a failure
func IsAdmissionRejection(err error) bool {
	return errors.Is(err, ErrEventNotPublished) ||
		errors.Is(err, ErrDeadlinePassed) ||
		errors.Is(err, ErrCapacityExceeded) ||
		errors.Is(err, ErrDuplicateRegistration)
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrEventNotPublished):
		return "not_published"
	case errors.Is(err, ErrDeadlinePassed):
		return "deadline_passed"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrDuplicateRegistration):
		return "duplicate"
	}
	return "other"
}
