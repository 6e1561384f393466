package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"jarvis-backend/domain/core/valueobjects"
	"jarvis-backend/domain/events"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type countingPublisher struct {
	published int
	err       error
}

func (c *countingPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	c.published++
	return c.err
}

func (c *countingPublisher) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	c.published += len(domainEvents)
	return c.err
}

func TestFanoutPublisher(t *testing.T) {
	event := events.NewSessionStarted(valueobjects.NewSessionID(), "user-1", valueobjects.ModeExplain, time.Now())

	t.Run("reaches every publisher", func(t *testing.T) {
		a, b := &countingPublisher{}, &countingPublisher{}
		fanout := NewFanoutPublisher(a, nil, b, NewLogPublisher(zap.NewNop()))

		assert.NoError(t, fanout.Publish(context.Background(), event))
		assert.NoError(t, fanout.PublishBatch(context.Background(), []events.DomainEvent{event, event}))
		assert.Equal(t, 3, a.published)
		assert.Equal(t, 3, b.published)
	})

	t.Run("keeps going after a failure", func(t *testing.T) {
		failing := &countingPublisher{err: errors.New("bus down")}
		healthy := &countingPublisher{}
		fanout := NewFanoutPublisher(failing, healthy)

		err := fanout.Publish(context.Background(), event)
		assert.ErrorContains(t, err, "bus down")
		assert.Equal(t, 1, healthy.published)
	})
}
