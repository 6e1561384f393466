package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"jarvis-backend/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// EventRetention bounds how long a session's event trail is kept
	EventRetention = 30 * 24 * time.Hour

	maxBatchWrite    = 25
	maxWriteAttempts = 3
)

// EventLogAPI is the subset of the DynamoDB client the event log uses
type EventLogAPI interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

var _ EventLogAPI = (*dynamodb.Client)(nil)

// EventRecord is one stored session event.
// Items are keyed PK=SESSION#<id>, SK=EVENT#<timestamp>#<version>#<event id>;
// GSI1 groups them by event type.
type EventRecord struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	GSI1PK    string `dynamodbav:"GSI1PK"` // EVENTTYPE#<type>
	GSI1SK    string `dynamodbav:"GSI1SK"` // <timestamp>
	EventID   string `dynamodbav:"EventID"`
	EventType string `dynamodbav:"EventType"`
	SessionID string `dynamodbav:"SessionID"`
	Version   int    `dynamodbav:"Version"`
	Timestamp string `dynamodbav:"Timestamp"`
	Payload   string `dynamodbav:"Payload"`
	TTL       int64  `dynamodbav:"TTL"`
}

// EventLog appends tutoring session events to a DynamoDB table.
// It satisfies the event publisher port so it can sit beside the bus publisher.
type EventLog struct {
	client    EventLogAPI
	tableName string
	logger    *zap.Logger
	newID     func() string
	backoff   time.Duration
}

// NewEventLog creates a session event log
func NewEventLog(client EventLogAPI, tableName string, logger *zap.Logger) *EventLog {
	return &EventLog{
		client:    client,
		tableName: tableName,
		logger:    logger,
		newID:     func() string { return uuid.New().String() },
		backoff:   50 * time.Millisecond,
	}
}

// Publish appends a single event
func (l *EventLog) Publish(ctx context.Context, event events.DomainEvent) error {
	return l.PublishBatch(ctx, []events.DomainEvent{event})
}

// PublishBatch appends events in chunks of 25
func (l *EventLog) PublishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	requests := make([]types.WriteRequest, 0, len(domainEvents))
	for _, event := range domainEvents {
		record, err := l.toRecord(event)
		if err != nil {
			return err
		}
		item, err := attributevalue.MarshalMap(record)
		if err != nil {
			return fmt.Errorf("failed to marshal event record: %w", err)
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})
	}

	for i := 0; i < len(requests); i += maxBatchWrite {
		end := i + maxBatchWrite
		if end > len(requests) {
			end = len(requests)
		}
		if err := l.writeChunk(ctx, requests[i:end]); err != nil {
			return err
		}
	}

	l.logger.Debug("Appended session events", zap.Int("count", len(domainEvents)))
	return nil
}

// writeChunk retries unprocessed items with a linear backoff
func (l *EventLog) writeChunk(ctx context.Context, pending []types.WriteRequest) error {
	for attempt := 1; ; attempt++ {
		result, err := l.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{l.tableName: pending},
		})
		if err != nil {
			return fmt.Errorf("failed to write events batch: %w", err)
		}

		pending = result.UnprocessedItems[l.tableName]
		if len(pending) == 0 {
			return nil
		}
		if attempt == maxWriteAttempts {
			return fmt.Errorf("failed to write %d events after %d attempts", len(pending), attempt)
		}

		l.logger.Warn("Retrying unprocessed events",
			zap.Int("unprocessed", len(pending)),
			zap.Int("attempt", attempt),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * l.backoff):
		}
	}
}

// History returns a session's events, oldest first
func (l *EventLog) History(ctx context.Context, sessionID string) ([]EventRecord, error) {
	keyExpr := expression.Key("PK").Equal(expression.Value(fmt.Sprintf("SESSION#%s", sessionID))).
		And(expression.Key("SK").BeginsWith("EVENT#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyExpr).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(l.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ScanIndexForward:          aws.Bool(true),
	}

	var records []EventRecord
	for {
		result, err := l.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query events: %w", err)
		}

		var page []EventRecord
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &page); err != nil {
			return nil, fmt.Errorf("failed to unmarshal events: %w", err)
		}
		records = append(records, page...)

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return records, nil
}

func (l *EventLog) toRecord(event events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return EventRecord{}, fmt.Errorf("failed to encode %s: %w", event.GetEventType(), err)
	}

	ts := event.GetTimestamp().UTC()
	stamp := ts.Format(time.RFC3339Nano)
	id := l.newID()
	return EventRecord{
		PK:        fmt.Sprintf("SESSION#%s", event.GetAggregateID()),
		SK:        fmt.Sprintf("EVENT#%s#%08d#%s", stamp, event.GetVersion(), id),
		GSI1PK:    fmt.Sprintf("EVENTTYPE#%s", event.GetEventType()),
		GSI1SK:    stamp,
		EventID:   id,
		EventType: event.GetEventType(),
		SessionID: event.GetAggregateID(),
		Version:   event.GetVersion(),
		Timestamp: stamp,
		Payload:   string(payload),
		TTL:       ts.Add(EventRetention).Unix(),
	}, nil
}
