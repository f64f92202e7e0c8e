package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Xavierhuang/FounderEvents-sub002/pkg/logger"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/telemetry"
)

// registrationMetrics holds the counters the registration path records.
// A nil instrument is skipped so a failed registration with the meter never
// breaks request handling.
type registrationMetrics struct {
	created       *telemetry.Counter
	rejections    *telemetry.Counter
	cancellations *telemetry.Counter
}

func newRegistrationMetrics(log *logger.Logger) *registrationMetrics {
	m := &registrationMetrics{}
	var err error

	if m.created, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "registrations_total",
		Description: "Registrations admitted, by initial status",
		Unit:        "1",
	}); err != nil {
		log.Warn("failed to create registrations_total counter", zap.Error(err))
	}
	if m.rejections, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "registration_rejections_total",
		Description: "Registrations rejected by admission control, by reason",
		Unit:        "1",
	}); err != nil {
		log.Warn("failed to create registration_rejections_total counter", zap.Error(err))
	}
	if m.cancellations, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "registration_cancellations_total",
		Description: "Registrations cancelled by attendees",
		Unit:        "1",
	}); err != nil {
		log.Warn("failed to create registration_cancellations_total counter", zap.Error(err))
	}
	return m
}

func (m *registrationMetrics) recordCreated(ctx context.Context, eventID, status string) {
	if m.created != nil {
		m.created.Inc(ctx, telemetry.EventIDAttr(eventID), telemetry.RegistrationStatusAttr(status))
	}
}

func (m *registrationMetrics) recordRejected(ctx context.Context, slug, reason string) {
	if m.rejections != nil {
		m.rejections.Inc(ctx, telemetry.EventSlugAttr(slug), telemetry.ReasonAttr(reason))
	}
}

func (m *registrationMetrics) recordCancelled(ctx context.Context, eventID string) {
	if m.cancellations != nil {
		m.cancellations.Inc(ctx, telemetry.EventIDAttr(eventID))
	}
}
