package eventbridge

import (
	"context"
	"errors"
	"testing"
	"time"

	"jarvis-backend/domain/core/valueobjects"
	"jarvis-backend/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockPutEvents struct {
	mock.Mock
}

func (m *mockPutEvents) PutEvents(ctx context.Context, in *eventbridge.PutEventsInput, _ ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*eventbridge.PutEventsOutput)
	return out, args.Error(1)
}

func conceptEvents(n int) []events.DomainEvent {
	id := valueobjects.NewSessionID()
	now := time.Now()
	out := make([]events.DomainEvent, n)
	for i := range out {
		out[i] = events.NewConceptAdded(id, "Concept", 1, now, i+1)
	}
	return out
}

func TestPublisher_ChunksByTen(t *testing.T) {
	client := new(mockPutEvents)
	client.On("PutEvents", mock.Anything, mock.MatchedBy(func(in *eventbridge.PutEventsInput) bool {
		return len(in.Entries) == 10
	})).Return(&eventbridge.PutEventsOutput{}, nil).Once()
	client.On("PutEvents", mock.Anything, mock.MatchedBy(func(in *eventbridge.PutEventsInput) bool {
		return len(in.Entries) == 2
	})).Return(&eventbridge.PutEventsOutput{}, nil).Once()

	publisher := NewPublisher(client, "jarvis-events", zap.NewNop())

	err := publisher.PublishBatch(context.Background(), conceptEvents(12))

	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestPublisher_EntryShape(t *testing.T) {
	client := new(mockPutEvents)
	var captured *eventbridge.PutEventsInput
	client.On("PutEvents", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.Get(1).(*eventbridge.PutEventsInput) }).
		Return(&eventbridge.PutEventsOutput{}, nil)

	publisher := NewPublisher(client, "jarvis-events", zap.NewNop())
	event := conceptEvents(1)[0]

	require.NoError(t, publisher.Publish(context.Background(), event))

	require.Len(t, captured.Entries, 1)
	entry := captured.Entries[0]
	assert.Equal(t, "jarvis-events", aws.ToString(entry.EventBusName))
	assert.Equal(t, Source, aws.ToString(entry.Source))
	assert.Equal(t, events.TypeConceptAdded, aws.ToString(entry.DetailType))
	assert.Contains(t, aws.ToString(entry.Detail), `"concept_id":"Concept"`)
}

func TestPublisher_Failures(t *testing.T) {
	t.Run("client error", func(t *testing.T) {
		client := new(mockPutEvents)
		client.On("PutEvents", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

		err := NewPublisher(client, "bus", zap.NewNop()).PublishBatch(context.Background(), conceptEvents(1))

		assert.ErrorContains(t, err, "boom")
	})

	t.Run("failed entries", func(t *testing.T) {
		client := new(mockPutEvents)
		client.On("PutEvents", mock.Anything, mock.Anything).Return(&eventbridge.PutEventsOutput{
			FailedEntryCount: 1,
			Entries:          []types.PutEventsResultEntry{{ErrorCode: aws.String("InternalFailure")}},
		}, nil)

		err := NewPublisher(client, "bus", zap.NewNop()).PublishBatch(context.Background(), conceptEvents(1))

		assert.ErrorContains(t, err, "1 events failed")
	})

	t.Run("empty batch", func(t *testing.T) {
		client := new(mockPutEvents)

		err := NewPublisher(client, "bus", zap.NewNop()).PublishBatch(context.Background(), nil)

		assert.NoError(t, err)
		client.AssertNotCalled(t, "PutEvents", mock.Anything, mock.Anything)
	})
}
