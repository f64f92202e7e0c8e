package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/domain"
	"github.com/Xavierhuang/FounderEvents-sub002/internal/dto"
	"github.com/Xavierhuang/FounderEvents-sub002/internal/repository"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/logger"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/messaging"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/telemetry"
)

// registrationService implements RegistrationService
type registrationService struct {
	events        repository.EventRepository
	registrations repository.RegistrationRepository
	counters      *CounterMaintainer
	publisher     *eventPublisher
	metrics       *registrationMetrics
	log           *logger.Logger
	now           func() time.Time
}

// NewRegistrationService creates a new RegistrationService
func NewRegistrationService(
	events repository.EventRepository,
	registrations repository.RegistrationRepository,
	counters *CounterMaintainer,
	publisher messaging.Publisher,
	log *logger.Logger,
) RegistrationService {
	log = log.Named("registrations")
	return &registrationService{
		events:        events,
		registrations: registrations,
		counters:      counters,
		publisher:     newEventPublisher(publisher, log),
		metrics:       newRegistrationMetrics(log),
		log:           log,
		now:           time.Now,
	}
}

// Register admits an attendee. Every check and the insert run under the
// per-event lock, so concurrent registrations see each other's seats.
func (s *registrationService) Register(ctx context.Context, slug string, req *dto.RegisterRequest) (*domain.Registration, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.register")
	defer span.End()
	span.SetAttributes(telemetry.EventSlugAttr(slug))

	req.SetDefaults()
	if err := req.Validate(); err != nil {
		return nil, newValidationError(err)
	}

	var (
		reg   *domain.Registration
		event *domain.Event
		count int
	)
	err := s.registrations.WithinEventLock(ctx, slug, func(tx repository.LedgerTx, e *domain.Event) error {
		if e == nil {
			return ErrEventNotFound
		}
		event = e
		now := s.now()

		if !e.IsPublished() {
			return ErrEventNotPublished
		}
		if e.RegistrationClosed(now) {
			return ErrDeadlinePassed
		}

		confirmed, err := tx.ConfirmedQuantity(ctx, e.ID)
		if err != nil {
			return err
		}
		if e.WouldExceedCapacity(confirmed, req.Quantity) {
			return ErrCapacityExceeded
		}

		existing, err := tx.FindActiveByEmail(ctx, e.ID, req.Email)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrDuplicateRegistration
		}

		reg = s.newRegistration(e, req, now)
		if err := tx.Insert(ctx, reg); err != nil {
			if errors.Is(err, repository.ErrDuplicateActiveRegistration) {
				return ErrDuplicateRegistration
			}
			return err
		}

		count = e.RegistrationCount
		if reg.IsConfirmed() {
			count, err = s.counters.AdjustEvent(ctx, tx, e.ID, reg.Quantity)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.recordRegisterFailure(ctx, slug, req, err)
		if !IsAdmissionRejection(err) && !errors.Is(err, ErrEventNotFound) {
			telemetry.SetSpanError(span, err)
		}
		return nil, err
	}

	if reg.IsConfirmed() {
		s.counters.AdjustOrganizer(ctx, event.OrganizerID, reg.Quantity, 0)
	}
	s.metrics.recordCreated(ctx, event.ID, reg.Status)
	s.publisher.publish(ctx, registrationEvent(dto.TopicRegistrationCreated, event, reg, count))

	s.log.WithContext(ctx).Info("registration created",
		zap.String("event_id", event.ID),
		zap.String("registration_id", reg.ID),
		zap.String("status", reg.Status),
		zap.Int("quantity", reg.Quantity),
		zap.Int("registration_count", count),
	)
	return reg, nil
}

func (s *registrationService) newRegistration(e *domain.Event, req *dto.RegisterRequest, now time.Time) *domain.Registration {
	reg := &domain.Registration{
		ID:          uuid.New().String(),
		EventID:     e.ID,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		Quantity:    req.Quantity,
		TotalAmount: e.Price * float64(req.Quantity),
		Status:      domain.InitialRegistrationStatus(e.RequiresApproval),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if req.UserID != "" {
		userID := req.UserID
		reg.UserID = &userID
	}

	payment := domain.PaymentStatusNotRequired
	if e.Price > 0 {
		payment = domain.PaymentStatusPending
	}
	reg.PaymentStatus = &payment
	return reg
}

func (s *registrationService) recordRegisterFailure(ctx context.Context, slug string, req *dto.RegisterRequest, err error) {
	log := s.log.WithContext(ctx)
	switch {
	case IsAdmissionRejection(err):
		reason := rejectionReason(err)
		s.metrics.recordRejected(ctx, slug, reason)
		log.Info("registration rejected",
			zap.String("slug", slug),
			zap.String("reason", reason),
			zap.Int("quantity", req.Quantity),
		)
	case errors.Is(err, ErrEventNotFound):
	default:
		log.Error("registration failed", zap.String("slug", slug), zap.Error(err))
	}
}

// Cancel moves the caller's active registration to CANCELLED and releases
// its seats when it was confirmed
func (s *registrationService) Cancel(ctx context.Context, slug, userID string) (*domain.Registration, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.registration.cancel")
	defer span.End()
	span.SetAttributes(telemetry.EventSlugAttr(slug), telemetry.UserIDAttr(userID))

	var (
		reg          *domain.Registration
		event        *domain.Event
		count        int
		wasConfirmed bool
	)
	err := s.registrations.WithinEventLock(ctx, slug, func(tx repository.LedgerTx, e *domain.Event) error {
		if e == nil {
			return ErrEventNotFound
		}
		event = e

		active, err := tx.FindActiveByUser(ctx, e.ID, userID)
		if err != nil {
			return err
		}
		if active == nil {
			return ErrRegistrationNotFound
		}

		from := active.Status
		wasConfirmed = active.IsConfirmed()
		if err := active.TransitionTo(domain.RegistrationStatusCancelled, s.now()); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, active, from); err != nil {
			if errors.Is(err, repository.ErrStaleRegistration) {
				return ErrRegistrationNotFound
			}
			return err
		}
		reg = active

		count = e.RegistrationCount
		if wasConfirmed {
			count, err = s.counters.AdjustEvent(ctx, tx, e.ID, -active.Quantity)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrEventNotFound) && !errors.Is(err, ErrRegistrationNotFound) {
			telemetry.SetSpanError(span, err)
			s.log.WithContext(ctx).Error("cancellation failed", zap.String("slug", slug), zap.Error(err))
		}
		return nil, err
	}

	if wasConfirmed {
		s.counters.AdjustOrganizer(ctx, event.OrganizerID, -reg.Quantity, 0)
	}
	s.metrics.recordCancelled(ctx, event.ID)
	s.publisher.publish(ctx, registrationEvent(dto.TopicRegistrationCancelled, event, reg, count))

	s.log.WithContext(ctx).Info("registration cancelled",
		zap.String("event_id", event.ID),
		zap.String("registration_id", reg.ID),
		zap.Int("registration_count", count),
	)
	return reg, nil
}

// GetMyRegistration returns the caller's active registration
func (s *registrationService) GetMyRegistration(ctx context.Context, slug, userID string) (*domain.Registration, error) {
	event, err := s.events.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrEventNotFound
	}

	reg, err := s.registrations.FindActiveByUser(ctx, event.ID, userID)
	if err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, ErrRegistrationNotFound
	}
	return reg, nil
}

// ListRegistrations returns the attendee list to the event's organizer
func (s *registrationService) ListRegistrations(ctx context.Context, slug, organizerID string) ([]*domain.Registration, error) {
	event, err := s.events.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, ErrEventNotFound
	}
	if !event.IsOwnedBy(organizerID) {
		return nil, ErrForbidden
	}
	return s.registrations.ListByEvent(ctx, event.ID)
}

func registrationEvent(topic string, e *domain.Event, reg *domain.Registration, count int) *dto.RegistrationEvent {
	msg := &dto.RegistrationEvent{
		EventType:         topic,
		RegistrationID:    reg.ID,
		EventID:           e.ID,
		EventSlug:         e.Slug,
		OrganizerID:       e.OrganizerID,
		Email:             reg.Email,
		Quantity:          reg.Quantity,
		Status:            reg.Status,
		RegistrationCount: count,
		Timestamp:         reg.UpdatedAt,
	}
	if reg.UserID != nil {
		msg.UserID = *reg.UserID
	}
	return msg
}
