package messaging

import (
	"context"

	"jarvis-backend/domain/events"

	"go.uber.org/zap"
)

// LogPublisher writes domain events to the log instead of a bus.
// Used when no EventBridge bus is configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a new log-only publisher
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish logs a single event
func (p *LogPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	p.logger.Debug("Domain event",
		zap.String("eventType", event.GetEventType()),
		zap.String("aggregateID", event.GetAggregateID()),
		zap.Int("version", event.GetVersion()),
		zap.Time("timestamp", event.GetTimestamp()),
	)
	return nil
}

// PublishBatch logs every event
func (p *LogPublisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	for _, event := range domainEvents {
		if err := p.Publish(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
