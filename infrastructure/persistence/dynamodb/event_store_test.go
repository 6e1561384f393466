package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"jarvis-backend/domain/core/valueobjects"
	"jarvis-backend/domain/events"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeEventTable records batch writes and can hold back items
type fakeEventTable struct {
	batches     [][]types.WriteRequest
	unprocessed []int // per call, how many trailing items to hand back
	err         error
	pages       []*dynamodb.QueryOutput
	queries     []*dynamodb.QueryInput
}

func (f *fakeEventTable) BatchWriteItem(ctx context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	var requests []types.WriteRequest
	for _, reqs := range in.RequestItems {
		requests = reqs
	}
	call := len(f.batches)
	f.batches = append(f.batches, requests)

	out := &dynamodb.BatchWriteItemOutput{}
	if call < len(f.unprocessed) && f.unprocessed[call] > 0 {
		held := requests[len(requests)-f.unprocessed[call]:]
		out.UnprocessedItems = map[string][]types.WriteRequest{"jarvis-events": held}
	}
	return out, nil
}

func (f *fakeEventTable) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.queries = append(f.queries, in)
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

func newTestEventLog(table *fakeEventTable) *EventLog {
	log := NewEventLog(table, "jarvis-events", zap.NewNop())
	log.newID = func() string { return "evt" }
	log.backoff = time.Millisecond
	return log
}

func sessionEvents(n int) []events.DomainEvent {
	id, _ := valueobjects.NewSessionIDFromString("3f2c6a2e-9a51-4a8e-8d1b-0a4c1c9e7b10")
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	out := make([]events.DomainEvent, n)
	for i := range out {
		out[i] = events.NewConceptAdded(id, "Photosynthesis", 1, at, i+1)
	}
	return out
}

func TestEventLog_RecordLayout(t *testing.T) {
	table := &fakeEventTable{}
	log := newTestEventLog(table)

	require.NoError(t, log.Publish(context.Background(), sessionEvents(1)[0]))
	require.Len(t, table.batches, 1)
	require.Len(t, table.batches[0], 1)

	var record EventRecord
	require.NoError(t, attributevalue.UnmarshalMap(table.batches[0][0].PutRequest.Item, &record))
	assert.Equal(t, "SESSION#3f2c6a2e-9a51-4a8e-8d1b-0a4c1c9e7b10", record.PK)
	assert.Equal(t, "EVENT#2025-03-01T12:00:00Z#00000001#evt", record.SK)
	assert.Equal(t, "EVENTTYPE#concept.added", record.GSI1PK)
	assert.Equal(t, events.TypeConceptAdded, record.EventType)
	assert.Contains(t, record.Payload, `"concept_id":"Photosynthesis"`)
	assert.Equal(t, time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC).Unix(), record.TTL)
}

func TestEventLog_BatchesAndRetries(t *testing.T) {
	tests := []struct {
		name        string
		events      int
		unprocessed []int
		wantCalls   int
		wantErr     bool
	}{
		{name: "empty is a no-op", events: 0, wantCalls: 0},
		{name: "chunks by 25", events: 30, wantCalls: 2},
		{name: "retries unprocessed items", events: 3, unprocessed: []int{2, 0}, wantCalls: 2},
		{name: "gives up after three attempts", events: 3, unprocessed: []int{1, 1, 1}, wantCalls: 3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := &fakeEventTable{unprocessed: tt.unprocessed}
			err := newTestEventLog(table).PublishBatch(context.Background(), sessionEvents(tt.events))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, table.batches, tt.wantCalls)
		})
	}
}

func TestEventLog_WriteFailure(t *testing.T) {
	table := &fakeEventTable{err: errors.New("throttled")}
	err := newTestEventLog(table).PublishBatch(context.Background(), sessionEvents(2))
	assert.ErrorContains(t, err, "throttled")
}

func TestEventLog_HistoryPages(t *testing.T) {
	item := func(sk string) map[string]types.AttributeValue {
		av, _ := attributevalue.MarshalMap(EventRecord{PK: "SESSION#s1", SK: sk, EventType: events.TypeMessageAdded})
		return av
	}
	table := &fakeEventTable{pages: []*dynamodb.QueryOutput{
		{
			Items:            []map[string]types.AttributeValue{item("EVENT#1")},
			LastEvaluatedKey: map[string]types.AttributeValue{"PK": &types.AttributeValueMemberS{Value: "SESSION#s1"}},
		},
		{Items: []map[string]types.AttributeValue{item("EVENT#2")}},
	}}

	records, err := newTestEventLog(table).History(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "EVENT#2", records[1].SK)
	assert.Len(t, table.queries, 2)
	assert.NotNil(t, table.queries[1].ExclusiveStartKey)
}
