package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/domain"
	"github.com/Xavierhuang/FounderEvents-sub002/internal/dto"
	"github.com/Xavierhuang/FounderEvents-sub002/internal/repository"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/logger"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/messaging"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/telemetry"
)

// EventServiceDeps groups the collaborators of the event service
type EventServiceDeps struct {
	Events        repository.EventRepository
	Registrations repository.RegistrationRepository
	Profiles      repository.ProfileRepository
	Likes         repository.LikeRepository
	Counters      *CounterMaintainer
	Views         ViewCounter
	Publisher     messaging.Publisher
	Logger        *logger.Logger
}

// eventService implements EventService
type eventService struct {
	events        repository.EventRepository
	registrations repository.RegistrationRepository
	profiles      repository.ProfileRepository
	likes         repository.LikeRepository
	counters      *CounterMaintainer
	views         ViewCounter
	publisher     *eventPublisher
	log           *logger.Logger
	now           func() time.Time
}

// NewEventService creates a new EventService
func NewEventService(deps EventServiceDeps) EventService {
	log := deps.Logger.Named("events")
	views := deps.Views
	if views == nil {
		views = NewDirectViewCounter(deps.Events)
	}
	return &eventService{
		events:        deps.Events,
		registrations: deps.Registrations,
		profiles:      deps.Profiles,
		likes:         deps.Likes,
		counters:      deps.Counters,
		views:         views,
		publisher:     newEventPublisher(deps.Publisher, log),
		log:           log,
		now:           time.Now,
	}
}

// CreateEvent creates an event under a unique slug derived from its title
func (s *eventService) CreateEvent(ctx context.Context, organizerID string, req *dto.CreateEventRequest) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.create")
	defer span.End()

	profile, err := s.profiles.GetByUserID(ctx, organizerID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileMissing
	}

	req.SetDefaults()
	if err := req.Validate(); err != nil {
		return nil, newValidationError(err)
	}

	now := s.now()
	event := &domain.Event{
		ID:                   uuid.New().String(),
		OrganizerID:          organizerID,
		Title:                req.Title,
		Description:          req.Description,
		Location:             req.Location,
		Category:             req.Category,
		ImageURL:             req.ImageURL,
		StartDate:            req.StartDate,
		EndDate:              req.EndDate,
		Timezone:             req.Timezone,
		RegistrationDeadline: req.RegistrationDeadline,
		Visibility:           req.Visibility,
		Capacity:             req.Capacity,
		RequiresApproval:     req.RequiresApproval,
		Price:                req.Price,
		Currency:             req.Currency,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	event.ApplyStatus(req.Status, now)

	slug, err := AllocateSlug(ctx, req.Title, func(candidate string) error {
		event.Slug = candidate
		return s.events.Create(ctx, event)
	})
	if err != nil {
		telemetry.SetSpanError(span, err)
		s.log.WithContext(ctx).Error("failed to create event", zap.String("title", req.Title), zap.Error(err))
		return nil, err
	}
	event.Slug = slug
	span.SetAttributes(telemetry.EventIDAttr(event.ID), telemetry.EventSlugAttr(slug))

	s.counters.AdjustOrganizer(ctx, organizerID, 0, 1)
	s.publisher.publish(ctx, lifecycleEvent(dto.TopicEventCreated, event, now))

	s.log.WithContext(ctx).Info("event created",
		zap.String("event_id", event.ID),
		zap.String("slug", slug),
		zap.String("status", event.Status),
	)
	return event, nil
}

// UpdateEvent applies the provided fields under the event row lock
func (s *eventService) UpdateEvent(ctx context.Context, slug, organizerID string, req *dto.UpdateEventRequest) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.update")
	defer span.End()
	span.SetAttributes(telemetry.EventSlugAttr(slug))

	if err := req.Validate(); err != nil {
		return nil, newValidationError(err)
	}

	now := s.now()
	event, err := s.events.Update(ctx, slug, func(e *domain.Event) error {
		if !e.IsOwnedBy(organizerID) {
			return ErrForbidden
		}
		if err := req.Apply(e, now); err != nil {
			return newValidationError(err)
		}
		e.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, s.lifecycleError(ctx, span, "update", slug, err)
	}
	if event == nil {
		return nil, ErrEventNotFound
	}

	s.publisher.publish(ctx, lifecycleEvent(dto.TopicEventUpdated, event, now))
	s.log.WithContext(ctx).Info("event updated", zap.String("event_id", event.ID), zap.String("status", event.Status))
	return event, nil
}

// SetFeatured sets the featured flag
func (s *eventService) SetFeatured(ctx context.Context, slug, organizerID string, featured bool) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.set_featured")
	defer span.End()
	span.SetAttributes(telemetry.EventSlugAttr(slug))

	now := s.now()
	event, err := s.events.Update(ctx, slug, func(e *domain.Event) error {
		if !e.IsOwnedBy(organizerID) {
			return ErrForbidden
		}
		e.IsFeatured = featured
		e.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, s.lifecycleError(ctx, span, "set featured", slug, err)
	}
	if event == nil {
		return nil, ErrEventNotFound
	}

	s.publisher.publish(ctx, lifecycleEvent(dto.TopicEventUpdated, event, now))
	return event, nil
}

// DeleteEvent removes an event owned by organizerID
func (s *eventService) DeleteEvent(ctx context.Context, slug, organizerID string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.event.delete")
	defer span.End()
	span.SetAttributes(telemetry.EventSlugAttr(slug))

	event, err := s.events.GetBySlug(ctx, slug)
	if err != nil {
		return s.lifecycleError(ctx, span, "delete", slug, err)
	}
	if event == nil {
		return ErrEventNotFound
	}
	if !event.IsOwnedBy(organizerID) {
		return ErrForbidden
	}

	if err := s.events.Delete(ctx, event.ID); err != nil {
		return s.lifecycleError(ctx, span, "delete", slug, err)
	}

	s.counters.AdjustOrganizer(ctx, organizerID, 0, -1)
	s.publisher.publish(ctx, lifecycleEvent(dto.TopicEventDeleted, event, s.now()))
	s.log.WithContext(ctx).Info("event deleted", zap.String("event_id", event.ID), zap.String("slug", slug))
	return nil
}

func (s *eventService) lifecycleError(ctx context.Context, span trace.Span, op, slug string, err error) error {
	var verr *ValidationError
	if errors.Is(err, ErrForbidden) || errors.As(err, &verr) {
		return err
	}
	telemetry.SetSpanError(span, err)
	s.log.WithContext(ctx).Error("failed to "+op+" event", zap.String("slug", slug), zap.Error(err))
	return err
}

// GetEvent returns an event and records a view. Drafts are visible to their
// organizer only.
func (s *eventService) GetEvent(ctx context.Context, slug, callerID string) (*dto.EventResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.get")
	defer span.End()
	span.SetAttributes(telemetry.EventSlugAttr(slug))

	event, err := s.visibleEvent(ctx, slug, callerID)
	if err != nil {
		return nil, err
	}

	if err := s.views.RecordView(ctx, event.ID); err != nil {
		s.log.WithContext(ctx).Warn("failed to record view", zap.String("event_id", event.ID), zap.Error(err))
	} else {
		event.ViewCount++
	}

	resp := &dto.EventResponse{Event: event}
	if callerID == "" {
		return resp, nil
	}

	reg, err := s.registrations.FindActiveByUser(ctx, event.ID, callerID)
	if err != nil {
		return nil, err
	}
	resp.IsRegistered = reg != nil

	resp.IsLiked, err = s.likes.Exists(ctx, callerID, event.ID)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *eventService) visibleEvent(ctx context.Context, slug, callerID string) (*domain.Event, error) {
	event, err := s.events.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrEventNotFound
	}
	if event.Status == domain.EventStatusDraft && !event.IsOwnedBy(callerID) {
		return nil, ErrEventNotFound
	}
	return event, nil
}

// ListEvents returns published public events. Caller filters on status and
// visibility are replaced.
func (s *eventService) ListEvents(ctx context.Context, query *domain.EventQuery) (*dto.EventListResponse, error) {
	q := withForcedFilter(query, domain.FieldStatus, domain.EventStatusPublished)
	q = withForcedFilter(q, domain.FieldVisibility, domain.EventVisibilityPublic)
	return s.list(ctx, q)
}

// ListOrganizerEvents returns the organizer's events in any status
func (s *eventService) ListOrganizerEvents(ctx context.Context, organizerID string, query *domain.EventQuery) (*dto.EventListResponse, error) {
	return s.list(ctx, withForcedFilter(query, domain.FieldOrganizerID, organizerID))
}

func (s *eventService) list(ctx context.Context, q *domain.EventQuery) (*dto.EventListResponse, error) {
	q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}

	events, total, err := s.events.List(ctx, q)
	if err != nil {
		return nil, err
	}
	return &dto.EventListResponse{
		Events: events,
		Total:  total,
		Limit:  q.Limit,
		Offset: q.Offset,
	}, nil
}

// withForcedFilter returns a copy of q where every filter on field is replaced
// by field eq value
func withForcedFilter(q *domain.EventQuery, field string, value interface{}) *domain.EventQuery {
	out := &domain.EventQuery{}
	if q != nil {
		out.Sort, out.Limit, out.Offset = q.Sort, q.Limit, q.Offset
		for _, f := range q.Filters {
			if f.Field != field {
				out.Filters = append(out.Filters, f)
			}
		}
	}
	return out.Where(field, domain.OpEq, value)
}

// ToggleLike flips the caller's like on an event
func (s *eventService) ToggleLike(ctx context.Context, slug, userID string) (*dto.LikeResponse, error) {
	event, err := s.visibleEvent(ctx, slug, userID)
	if err != nil {
		return nil, err
	}

	liked, count, err := s.likes.Toggle(ctx, userID, event.ID)
	if err != nil {
		s.log.WithContext(ctx).Error("failed to toggle like", zap.String("event_id", event.ID), zap.Error(err))
		return nil, err
	}
	return &dto.LikeResponse{Liked: liked, LikeCount: count}, nil
}

func lifecycleEvent(topic string, e *domain.Event, at time.Time) *dto.EventLifecycleEvent {
	return &dto.EventLifecycleEvent{
		EventType:   topic,
		EventID:     e.ID,
		Slug:        e.Slug,
		OrganizerID: e.OrganizerID,
		Status:      e.Status,
		IsFeatured:  e.IsFeatured,
		Timestamp:   at,
	}
}
