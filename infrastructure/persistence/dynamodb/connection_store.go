package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// ConnectionTTL bounds how long a stale connection record survives
const ConnectionTTL = 24 * time.Hour

// ConnectionStore is the registry of API Gateway websocket connections.
// Items are keyed PK=CONNECTION#<id>, SK=METADATA; GSI1 groups them by session.
type ConnectionStore struct {
	client    ItemAPI
	tableName string
	indexName string
	logger    *zap.Logger
}

// NewConnectionStore creates a new connection registry
func NewConnectionStore(client ItemAPI, tableName, indexName string, logger *zap.Logger) *ConnectionStore {
	return &ConnectionStore{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		logger:    logger,
	}
}

type connectionItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	GSI1PK       string `dynamodbav:"GSI1PK"` // SESSION#<id>
	GSI1SK       string `dynamodbav:"GSI1SK"` // CONNECTION#<id>
	ConnectionID string `dynamodbav:"ConnectionID"`
	SessionID    string `dynamodbav:"SessionID"`
	UserID       string `dynamodbav:"UserID"`
	ConnectedAt  string `dynamodbav:"ConnectedAt"`
	TTL          int64  `dynamodbav:"TTL"`
}

func connectionKey(connectionID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("CONNECTION#%s", connectionID)},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

// Register records a connection subscribed to a session's concept graph
func (s *ConnectionStore) Register(ctx context.Context, connectionID, sessionID, userID string) error {
	now := time.Now().UTC()
	item := connectionItem{
		PK:           fmt.Sprintf("CONNECTION#%s", connectionID),
		SK:           "METADATA",
		GSI1PK:       fmt.Sprintf("SESSION#%s", sessionID),
		GSI1SK:       fmt.Sprintf("CONNECTION#%s", connectionID),
		ConnectionID: connectionID,
		SessionID:    sessionID,
		UserID:       userID,
		ConnectedAt:  now.Format(time.RFC3339),
		TTL:          now.Add(ConnectionTTL).Unix(),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal connection: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      av,
	}); err != nil {
		return fmt.Errorf("failed to store connection: %w", err)
	}

	s.logger.Info("Stored websocket connection",
		zap.String("connectionID", connectionID),
		zap.String("sessionID", sessionID),
		zap.String("userID", userID),
	)
	return nil
}

// Remove deletes a connection record; removing an unknown connection succeeds
func (s *ConnectionStore) Remove(ctx context.Context, connectionID string) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       connectionKey(connectionID),
	}); err != nil {
		return fmt.Errorf("failed to remove connection: %w", err)
	}

	s.logger.Debug("Removed websocket connection", zap.String("connectionID", connectionID))
	return nil
}

// ListBySession returns the connection IDs subscribed to a session
func (s *ConnectionStore) ListBySession(ctx context.Context, sessionID string) ([]string, error) {
	keyExpr := expression.Key("GSI1PK").Equal(expression.Value(fmt.Sprintf("SESSION#%s", sessionID)))
	expr, err := expression.NewBuilder().WithKeyCondition(keyExpr).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(s.indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var ids []string
	for {
		result, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query connections: %w", err)
		}

		var items []connectionItem
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal connections: %w", err)
		}
		for _, item := range items {
			ids = append(ids, item.ConnectionID)
		}

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}
	return ids, nil
}
