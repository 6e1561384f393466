package messaging

import (
	"context"
	"errors"

	"jarvis-backend/application/ports"
	"jarvis-backend/domain/events"
)

// FanoutPublisher hands every event to each of its publishers.
// All publishers are attempted; their failures are joined.
type FanoutPublisher struct {
	publishers []ports.EventPublisher
}

// NewFanoutPublisher combines publishers, skipping nil entries
func NewFanoutPublisher(publishers ...ports.EventPublisher) *FanoutPublisher {
	f := &FanoutPublisher{}
	for _, p := range publishers {
		if p != nil {
			f.publishers = append(f.publishers, p)
		}
	}
	return f
}

// Publish sends a single event to every publisher
func (f *FanoutPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishBatch sends the events to every publisher
func (f *FanoutPublisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.PublishBatch(ctx, domainEvents); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
