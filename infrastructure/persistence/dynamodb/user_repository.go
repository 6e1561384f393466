package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"jarvis-backend/domain/core/entities"
	pkgerrors "jarvis-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

const profileSK = "PROFILE"

// UserRepository stores account profiles in DynamoDB, one item per email
type UserRepository struct {
	client    ItemAPI
	tableName string
	logger    *zap.Logger
}

// NewUserRepository creates a new DynamoDB user repository
func NewUserRepository(client ItemAPI, tableName string, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// userItem represents a profile in DynamoDB
type userItem struct {
	PK         string `dynamodbav:"PK"` // USER#<email>
	SK         string `dynamodbav:"SK"` // PROFILE
	EntityType string `dynamodbav:"EntityType"`
	UserID     string `dynamodbav:"UserID"`
	Name       string `dynamodbav:"Name"`
	Email      string `dynamodbav:"Email"`
	Role       string `dynamodbav:"Role"`
	Standard   string `dynamodbav:"Standard,omitempty"`
	Stream     string `dynamodbav:"Stream,omitempty"`
	IsPro      bool   `dynamodbav:"IsPro"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
}

func userPK(email string) string {
	return fmt.Sprintf("USER#%s", entities.NormalizeEmail(email))
}

// Create stores a new profile. The write is conditional on the email being unused.
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	if user == nil {
		return pkgerrors.NewValidationError("user cannot be nil")
	}

	item := userItem{
		PK:         userPK(user.Email),
		SK:         profileSK,
		EntityType: "USER",
		UserID:     user.ID,
		Name:       user.Name,
		Email:      entities.NormalizeEmail(user.Email),
		Role:       string(user.Role),
		Standard:   user.Standard,
		Stream:     string(user.Stream),
		IsPro:      user.IsPro,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}

	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("PK").AttributeNotExists()).
		Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(r.tableName),
		Item:                     av,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	})
	if err != nil {
		var conditionalCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionalCheckFailed) {
			return pkgerrors.NewConflictError("an account with this email already exists").WithCode("EMAIL_TAKEN")
		}
		r.logger.Error("Failed to save user to DynamoDB",
			zap.String("userID", user.ID),
			zap.Error(err),
		)
		return pkgerrors.NewDatabaseError("create user", err)
	}

	r.logger.Info("User profile saved", zap.String("userID", user.ID))
	return nil
}

// GetByEmail retrieves a profile by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: userPK(email)},
			"SK": &types.AttributeValueMemberS{Value: profileSK},
		},
	})
	if err != nil {
		r.logger.Error("Failed to get user from DynamoDB", zap.Error(err))
		return nil, pkgerrors.NewDatabaseError("get user", err)
	}
	if len(result.Item) == 0 {
		return nil, pkgerrors.NewNotFoundError("user")
	}

	var item userItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}

	return &entities.User{
		ID:       item.UserID,
		Name:     item.Name,
		Email:    item.Email,
		Role:     entities.UserRole(item.Role),
		Standard: item.Standard,
		Stream:   entities.Stream(item.Stream),
		IsPro:    item.IsPro,
	}, nil
}
