package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Xavierhuang/FounderEvents-sub002/pkg/logger"
	"github.com/Xavierhuang/FounderEvents-sub002/pkg/messaging"
)

// eventPublisher sends domain events after commit and only logs failures
type eventPublisher struct {
	publisher messaging.Publisher
	log       *logger.Logger
}

func newEventPublisher(p messaging.Publisher, log *logger.Logger) *eventPublisher {
	if p == nil {
		p = messaging.NewNoopPublisher()
	}
	return &eventPublisher{publisher: p, log: log}
}

func (p *eventPublisher) publish(ctx context.Context, msg messaging.Message) {
	if err := p.publisher.Publish(context.WithoutCancel(ctx), msg); err != nil {
		p.log.WithContext(ctx).Warn("failed to publish domain event",
			zap.String("topic", msg.Topic()),
			zap.String("key", msg.Key()),
			zap.Error(err),
		)
	}
}
