package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Filter operators
const (
	OpEq       = "eq"
	OpNeq      = "neq"
	OpGt       = "gt"
	OpGte      = "gte"
	OpLt       = "lt"
	OpLte      = "lte"
	OpContains = "contains"
)

// Filterable and sortable fields
const (
	FieldStatus            = "status"
	FieldVisibility        = "visibility"
	FieldIsFeatured        = "is_featured"
	FieldOrganizerID       = "organizer_id"
	FieldCategory          = "category"
	FieldStartDate         = "start_date"
	FieldTitle             = "title"
	FieldCreatedAt         = "created_at"
	FieldRegistrationCount = "registration_count"
	FieldViewCount         = "view_count"
	FieldLikeCount         = "like_count"
)

const (
	DefaultQueryLimit = 20
	MaxQueryLimit     = 100
)

type valueKind int

const (
	kindString valueKind = iota
	kindBool
	kindTime
)

type fieldRule struct {
	kind      valueKind
	operators []string
	allowed   func(string) bool
}

var filterRules = map[string]fieldRule{
	FieldStatus:      {kind: kindString, operators: []string{OpEq, OpNeq}, allowed: IsValidEventStatus},
	FieldVisibility:  {kind: kindString, operators: []string{OpEq, OpNeq}, allowed: IsValidVisibility},
	FieldIsFeatured:  {kind: kindBool, operators: []string{OpEq}},
	FieldOrganizerID: {kind: kindString, operators: []string{OpEq}},
	FieldCategory:    {kind: kindString, operators: []string{OpEq, OpNeq}},
	FieldStartDate:   {kind: kindTime, operators: []string{OpGt, OpGte, OpLt, OpLte}},
	FieldTitle:       {kind: kindString, operators: []string{OpEq, OpContains}},
}

var sortFields = map[string]bool{
	FieldStartDate:         true,
	FieldTitle:             true,
	FieldCreatedAt:         true,
	FieldRegistrationCount: true,
	FieldViewCount:         true,
	FieldLikeCount:         true,
}

// Filter is one typed predicate over an event field. Value holds a string,
// bool or time.Time depending on the field.
type Filter struct {
	Field    string
	Operator string
	Value    interface{}
}

// Sort orders a listing
type Sort struct {
	Field string
	Desc  bool
}

// EventQuery is a validated listing request
type EventQuery struct {
	Filters []Filter
	Sort    Sort
	Limit   int
	Offset  int
}

// ParseFilterValue converts a raw query-string value into the type the field expects
func ParseFilterValue(field, raw string) (interface{}, error) {
	rule, ok := filterRules[field]
	if !ok {
		return nil, fmt.Errorf("unknown filter field %q", field)
	}
	switch rule.kind {
	case kindBool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be a boolean", field)
		}
		return b, nil
	case kindTime:
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("%s must be an RFC3339 timestamp", field)
		}
		return t, nil
	default:
		return raw, nil
	}
}

// Where appends a filter
func (q *EventQuery) Where(field, op string, value interface{}) *EventQuery {
	q.Filters = append(q.Filters, Filter{Field: field, Operator: op, Value: value})
	return q
}

// Normalize applies the default sort and clamps paging
func (q *EventQuery) Normalize() {
	if q.Sort.Field == "" {
		q.Sort.Field = FieldStartDate
	}
	if q.Limit <= 0 {
		q.Limit = DefaultQueryLimit
	}
	if q.Limit > MaxQueryLimit {
		q.Limit = MaxQueryLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
}

// Validate checks every filter against the field whitelist before any store sees it
func (q *EventQuery) Validate() error {
	var errs []error
	for _, f := range q.Filters {
		if err := f.validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if q.Sort.Field != "" && !sortFields[q.Sort.Field] {
		errs = append(errs, fmt.Errorf("cannot sort by %q", q.Sort.Field))
	}
	if q.Limit < 0 || q.Offset < 0 {
		errs = append(errs, errors.New("limit and offset must not be negative"))
	}
	return errors.Join(errs...)
}

func (f Filter) validate() error {
	rule, ok := filterRules[f.Field]
	if !ok {
		return fmt.Errorf("unknown filter field %q", f.Field)
	}

	opAllowed := false
	for _, op := range rule.operators {
		if op == f.Operator {
			opAllowed = true
			break
		}
	}
	if !opAllowed {
		return fmt.Errorf("operator %q not allowed on %s", f.Operator, f.Field)
	}

	switch rule.kind {
	case kindBool:
		if _, ok := f.Value.(bool); !ok {
			return fmt.Errorf("%s expects a boolean", f.Field)
		}
	case kindTime:
		if _, ok := f.Value.(time.Time); !ok {
			return fmt.Errorf("%s expects a timestamp", f.Field)
		}
	default:
		s, ok := f.Value.(string)
		if !ok {
			return fmt.Errorf("%s expects a string", f.Field)
		}
		if rule.allowed != nil && !rule.allowed(s) {
			return fmt.Errorf("invalid %s %q", f.Field, s)
		}
	}
	return nil
}

// Matches evaluates the filters against an event in process
func (q *EventQuery) Matches(e *Event) bool {
	for _, f := range q.Filters {
		if !f.matches(e) {
			return false
		}
	}
	return true
}

func (f Filter) matches(e *Event) bool {
	switch f.Field {
	case FieldIsFeatured:
		return e.IsFeatured == f.Value.(bool)
	case FieldStartDate:
		return compareTime(e.StartDate, f.Operator, f.Value.(time.Time))
	}

	var actual string
	switch f.Field {
	case FieldStatus:
		actual = e.Status
	case FieldVisibility:
		actual = e.Visibility
	case FieldOrganizerID:
		actual = e.OrganizerID
	case FieldCategory:
		actual = e.Category
	case FieldTitle:
		actual = e.Title
	default:
		return false
	}

	want := f.Value.(string)
	switch f.Operator {
	case OpEq:
		return actual == want
	case OpNeq:
		return actual != want
	case OpContains:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(want))
	}
	return false
}

func compareTime(actual time.Time, op string, want time.Time) bool {
	switch op {
	case OpGt:
		return actual.After(want)
	case OpGte:
		return !actual.Before(want)
	case OpLt:
		return actual.Before(want)
	case OpLte:
		return !actual.After(want)
	}
	return false
}

// Less orders two events by the query's sort field, tie-breaking on id
func (q *EventQuery) Less(a, b *Event) bool {
	var cmp int
	switch q.Sort.Field {
	case FieldTitle:
		cmp = strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case FieldCreatedAt:
		cmp = a.CreatedAt.Compare(b.CreatedAt)
	case FieldRegistrationCount:
		cmp = a.RegistrationCount - b.RegistrationCount
	case FieldViewCount:
		cmp = int(a.ViewCount - b.ViewCount)
	case FieldLikeCount:
		cmp = a.LikeCount - b.LikeCount
	default:
		cmp = a.StartDate.Compare(b.StartDate)
	}
	if cmp == 0 {
		return a.ID < b.ID
	}
	if q.Sort.Desc {
		return cmp > 0
	}
	return cmp < 0
}
