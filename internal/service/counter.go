package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Xavierhuang/FounderEvents-sub002/internal/repository"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/logger"
)

// CounterMaintainer keeps the denormalized aggregates in step with the ledger.
// The event's registration_count is strict and moves inside the ledger
// transaction. The organizer profile totals are informational and updated
// after commit; their failure never reaches the caller.
type CounterMaintainer struct {
	profiles repository.ProfileRepository
	log      *logger.Logger
}

// NewCounterMaintainer creates a new CounterMaintainer
func NewCounterMaintainer(profiles repository.ProfileRepository, log *logger.Logger) *CounterMaintainer {
	return &CounterMaintainer{
		profiles: profiles,
		log:      log.Named("counters"),
	}
}

// AdjustEvent adds delta to the event's registration_count within tx and
// returns the new count. Going below zero is an invariant violation.
func (m *CounterMaintainer) AdjustEvent(ctx context.Context, tx repository.LedgerTx, eventID string, delta int) (int, error) {
	count, err := tx.AdjustRegistrationCount(ctx, eventID, delta)
	if err != nil {
		if errors.Is(err, repository.ErrNegativeCount) {
			return 0, fmt.Errorf("%w: event %s delta %d", ErrCounterInvariant, eventID, delta)
		}
		return 0, fmt.Errorf("adjust registration count: %w", err)
	}
	return count, nil
}

// AdjustOrganizer applies the deltas to the organizer profile, best-effort.
// A missing profile is logged and ignored.
func (m *CounterMaintainer) AdjustOrganizer(ctx context.Context, organizerID string, attendeesDelta, eventsDelta int) {
	if attendeesDelta == 0 && eventsDelta == 0 {
		return
	}

	// the caller's request may already be finishing
	ctx = context.WithoutCancel(ctx)
	err := m.profiles.AdjustTotals(ctx, organizerID, attendeesDelta, eventsDelta)
	if err == nil {
		return
	}

	fields := []zap.Field{
		zap.String("organizer_id", organizerID),
		zap.Int("attendees_delta", attendeesDelta),
		zap.Int("events_delta", eventsDelta),
	}
	if errors.Is(err, repository.ErrProfileNotFound) {
		m.log.WithContext(ctx).Warn("organizer profile missing, aggregate not updated", fields...)
		return
	}
	m.log.WithContext(ctx).Error("failed to update organizer aggregate", append(fields, zap.Error(err))...)
}
