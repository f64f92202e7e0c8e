package dto

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/domain"
)

var currencyPattern = regexp.MustCompile(`^[A-Za-z]{3}$`)

// validTimezone checks an IANA zone name
func validTimezone(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	if _, err := time.LoadLocation(s); err != nil {
		return errors.New("must be a valid IANA time zone")
	}
	return nil
}

func positiveCapacity(value interface{}) error {
	c, ok := value.(*int)
	if ok && c != nil && *c < 1 {
		return errors.New("must be at least 1")
	}
	return nil
}

// CreateEventRequest represents the request to create a public event
type CreateEventRequest struct {
	Title                string     `json:"title"`
	Description          string     `json:"description"`
	Location             string     `json:"location"`
	Category             string     `json:"category"`
	ImageURL             string     `json:"image_url"`
	StartDate            time.Time  `json:"start_date"`
	EndDate              time.Time  `json:"end_date"`
	Timezone             string     `json:"timezone"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	Status               string     `json:"status"`
	Visibility           string     `json:"visibility"`
	Capacity             *int       `json:"capacity"`
	RequiresApproval     bool       `json:"requires_approval"`
	Price                float64    `json:"price"`
	Currency             string     `json:"currency"`
}

// SetDefaults fills optional fields
func (r *CreateEventRequest) SetDefaults() {
	r.Title = strings.TrimSpace(r.Title)
	if r.Status == "" {
		r.Status = domain.EventStatusPublished
	}
	if r.Visibility == "" {
		r.Visibility = domain.EventVisibilityPublic
	}
	if r.Currency == "" {
		r.Currency = "USD"
	}
	r.Currency = strings.ToUpper(r.Currency)
}

// Validate validates the CreateEventRequest
func (r CreateEventRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Length(0, 5000)),
		validation.Field(&r.ImageURL, is.URL),
		validation.Field(&r.StartDate, validation.Required),
		validation.Field(&r.EndDate, validation.Required, validation.By(notBefore(r.StartDate, "start_date"))),
		validation.Field(&r.Timezone, validation.Required, validation.By(validTimezone)),
		validation.Field(&r.RegistrationDeadline, validation.By(deadlineWithin(r.EndDate))),
		validation.Field(&r.Status, validation.In(domain.EventStatusDraft, domain.EventStatusPublished)),
		validation.Field(&r.Visibility, validation.In(domain.EventVisibilityPublic, domain.EventVisibilityUnlisted)),
		validation.Field(&r.Capacity, validation.By(positiveCapacity)),
		validation.Field(&r.Price, validation.Min(0.0)),
		validation.Field(&r.Currency, validation.Match(currencyPattern)),
	)
}

func notBefore(start time.Time, field string) validation.RuleFunc {
	return func(value interface{}) error {
		end, ok := value.(time.Time)
		if !ok || end.IsZero() || start.IsZero() {
			return nil
		}
		if end.Before(start) {
			return errors.New("must not be before " + field)
		}
		return nil
	}
}

func deadlineWithin(end time.Time) validation.RuleFunc {
	return func(value interface{}) error {
		d, ok := value.(*time.Time)
		if !ok || d == nil || end.IsZero() {
			return nil
		}
		if d.After(end) {
			return errors.New("must not be after end_date")
		}
		return nil
	}
}

// UpdateEventRequest is a partial patch; nil fields are left unchanged
type UpdateEventRequest struct {
	Title                *string    `json:"title"`
	Description          *string    `json:"description"`
	Location             *string    `json:"location"`
	Category             *string    `json:"category"`
	ImageURL             *string    `json:"image_url"`
	StartDate            *time.Time `json:"start_date"`
	EndDate              *time.Time `json:"end_date"`
	Timezone             *string    `json:"timezone"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	Status               *string    `json:"status"`
	Visibility           *string    `json:"visibility"`
	Capacity             *int       `json:"capacity"`
	RequiresApproval     *bool      `json:"requires_approval"`
	Price                *float64   `json:"price"`
	Currency             *string    `json:"currency"`
}

// IsEmpty reports whether no field was provided
func (r *UpdateEventRequest) IsEmpty() bool {
	return r.Title == nil && r.Description == nil && r.Location == nil && r.Category == nil &&
		r.ImageURL == nil && r.StartDate == nil && r.EndDate == nil && r.Timezone == nil &&
		r.RegistrationDeadline == nil && r.Status == nil && r.Visibility == nil &&
		r.Capacity == nil && r.RequiresApproval == nil && r.Price == nil && r.Currency == nil
}

// Validate validates the UpdateEventRequest
func (r UpdateEventRequest) Validate() error {
	if r.IsEmpty() {
		return validation.Errors{"body": errors.New("at least one field must be provided")}
	}
	var start time.Time
	if r.StartDate != nil {
		start = *r.StartDate
	}
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&r.Description, validation.Length(0, 5000)),
		validation.Field(&r.ImageURL, is.URL),
		validation.Field(&r.EndDate, validation.By(func(value interface{}) error {
			end, _ := value.(*time.Time)
			if end == nil {
				return nil
			}
			return notBefore(start, "start_date")(*end)
		})),
		validation.Field(&r.Timezone, validation.NilOrNotEmpty, validation.By(func(value interface{}) error {
			tz, _ := value.(*string)
			if tz == nil {
				return nil
			}
			return validTimezone(*tz)
		})),
		validation.Field(&r.Status, validation.In(
			domain.EventStatusDraft, domain.EventStatusPublished, domain.EventStatusCancelled, domain.EventStatusCompleted)),
		validation.Field(&r.Visibility, validation.In(domain.EventVisibilityPublic, domain.EventVisibilityUnlisted)),
		validation.Field(&r.Capacity, validation.By(positiveCapacity)),
		validation.Field(&r.Price, validation.Min(0.0)),
		validation.Field(&r.Currency, validation.Match(currencyPattern)),
	)
}

// Apply copies the provided fields onto e. Status goes through ApplyStatus so
// publishedAt is maintained.
func (r *UpdateEventRequest) Apply(e *domain.Event, now time.Time) error {
	if r.Title != nil {
		e.Title = strings.TrimSpace(*r.Title)
	}
	if r.Description != nil {
		e.Description = *r.Description
	}
	if r.Location != nil {
		e.Location = *r.Location
	}
	if r.Category != nil {
		e.Category = *r.Category
	}
	if r.ImageURL != nil {
		e.ImageURL = *r.ImageURL
	}
	if r.StartDate != nil {
		e.StartDate = *r.StartDate
	}
	if r.EndDate != nil {
		e.EndDate = *r.EndDate
	}
	if r.Timezone != nil {
		e.Timezone = *r.Timezone
	}
	if r.RegistrationDeadline != nil {
		d := *r.RegistrationDeadline
		e.RegistrationDeadline = &d
	}
	if r.Visibility != nil {
		e.Visibility = *r.Visibility
	}
	if r.Capacity != nil {
		c := *r.Capacity
		e.Capacity = &c
	}
	if r.RequiresApproval != nil {
		e.RequiresApproval = *r.RequiresApproval
	}
	if r.Price != nil {
		e.Price = *r.Price
	}
	if r.Currency != nil {
		e.Currency = strings.ToUpper(*r.Currency)
	}
	if r.Status != nil {
		e.ApplyStatus(*r.Status, now)
	}

	// cross-field checks against the merged result
	errs := validation.Errors{}
	if e.EndDate.Before(e.StartDate) {
		errs["end_date"] = errors.New("must not be before start_date")
	}
	if e.RegistrationDeadline != nil && e.RegistrationDeadline.After(e.EndDate) {
		errs["registration_deadline"] = errors.New("must not be after end_date")
	}
	if e.Capacity != nil && *e.Capacity < e.RegistrationCount {
		errs["capacity"] = fmt.Errorf("must not be below the %d confirmed seats", e.RegistrationCount)
	}
	return errs.Filter()
}

// SetFeaturedRequest toggles the featured flag
type SetFeaturedRequest struct {
	IsFeatured *bool `json:"is_featured"`
}

// Validate validates the SetFeaturedRequest
func (r SetFeaturedRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IsFeatured, validation.NotNil),
	)
}

// ListEventsQuery holds listing query-string parameters
type ListEventsQuery struct {
	Status      string `form:"status"`
	Visibility  string `form:"visibility"`
	Category    string `form:"category"`
	Featured    string `form:"featured"`
	Search      string `form:"search"`
	StartAfter  string `form:"start_after"`
	StartBefore string `form:"start_before"`
	Sort        string `form:"sort"`
	Order       string `form:"order"`
	Limit       int    `form:"limit"`
	Offset      int    `form:"offset"`
}

// ToQuery converts query-string parameters into a typed EventQuery
func (q *ListEventsQuery) ToQuery() (*domain.EventQuery, error) {
	query := &domain.EventQuery{
		Sort:   domain.Sort{Field: q.Sort, Desc: strings.EqualFold(q.Order, "desc")},
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	errs := validation.Errors{}

	add := func(param, field, op, raw string) {
		if raw == "" {
			return
		}
		v, err := domain.ParseFilterValue(field, raw)
		if err != nil {
			errs[param] = err
			return
		}
		query.Where(field, op, v)
	}

	add("status", domain.FieldStatus, domain.OpEq, strings.ToUpper(q.Status))
	add("visibility", domain.FieldVisibility, domain.OpEq, strings.ToUpper(q.Visibility))
	add("category", domain.FieldCategory, domain.OpEq, q.Category)
	add("featured", domain.FieldIsFeatured, domain.OpEq, q.Featured)
	add("search", domain.FieldTitle, domain.OpContains, strings.TrimSpace(q.Search))
	add("start_after", domain.FieldStartDate, domain.OpGte, q.StartAfter)
	add("start_before", domain.FieldStartDate, domain.OpLte, q.StartBefore)

	if err := errs.Filter(); err != nil {
		return nil, err
	}
	return query, nil
}

// EventResponse is an event with caller-specific flags
type EventResponse struct {
	*domain.Event
	IsRegistered bool `json:"is_registered"`
	IsLiked      bool `json:"is_liked"`
}

// LikeResponse is the result of a like toggle
type LikeResponse struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

// EventListResponse is one page of events
type EventListResponse struct {
	Events []*domain.Event `json:"events"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// FieldErrors flattens ozzo validation errors into field -> message
func FieldErrors(err error) map[string]string {
	out := map[string]string{}
	var verrs validation.Errors
	if !errors.As(err, &verrs) {
		if err != nil {
			out["body"] = err.Error()
		}
		return out
	}
	flatten("", verrs, out)
	return out
}

func flatten(prefix string, verrs validation.Errors, out map[string]string) {
	for field, fe := range verrs {
		key := field
		if prefix != "" {
			key = prefix + "." + field
		}
		var nested validation.Errors
		if errors.As(fe, &nested) {
			flatten(key, nested, out)
			continue
		}
		out[key] = fe.Error()
	}
}
