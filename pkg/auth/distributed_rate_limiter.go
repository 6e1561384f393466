package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// UpdateItemAPI is the DynamoDB call the distributed limiter needs
type UpdateItemAPI interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DistributedRateLimiter counts requests per fixed window in DynamoDB so the
// limit holds across Lambda instances
type DistributedRateLimiter struct {
	client    UpdateItemAPI
	tableName string
	limit     int
	window    time.Duration
	now       func() time.Time
}

// NewDistributedRateLimiter creates a new DynamoDB-backed limiter
func NewDistributedRateLimiter(client UpdateItemAPI, tableName string, limit int, window time.Duration) *DistributedRateLimiter {
	return &DistributedRateLimiter{
		client:    client,
		tableName: tableName,
		limit:     limit,
		window:    window,
		now:       time.Now,
	}
}

// Allow atomically increments the key's counter for the current window unless
// it already reached the limit. DynamoDB failures fail open and are returned.
func (r *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowStart := r.now().Truncate(r.window)
	windowEnd := windowStart.Add(r.window)
	pk := fmt.Sprintf("RATELIMIT#%s#%d", key, windowStart.Unix())

	update := expression.
		Set(expression.Name("Count"), expression.Plus(expression.IfNotExists(expression.Name("Count"), expression.Value(0)), expression.Value(1))).
		Set(expression.Name("TTL"), expression.Value(windowEnd.Add(time.Hour).Unix()))
	condition := expression.Or(
		expression.Name("Count").AttributeNotExists(),
		expression.Name("Count").LessThan(expression.Value(r.limit)),
	)

	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(condition).Build()
	if err != nil {
		return true, fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: "COUNTER"},
		},
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return false, nil
		}
		return true, fmt.Errorf("rate limiter error (failing open): %w", err)
	}
	return true, nil
}
