package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc, err := NewJWTService("secret", "jarvis", time.Hour)
	require.NoError(t, err)

	token, err := svc.GenerateToken("u1", "asha@example.com", []string{"STUDENT"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "asha@example.com", claims.Email)
	assert.Equal(t, []string{"STUDENT"}, claims.Roles)
	assert.Equal(t, "jarvis", claims.Issuer)
}

func TestJWTService_Rejections(t *testing.T) {
	svc, err := NewJWTService("secret", "jarvis", time.Hour)
	require.NoError(t, err)
	token, err := svc.GenerateToken("u1", "a@b.c", nil)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewJWTService("other", "jarvis", time.Hour)
		require.NoError(t, err)
		_, err = other.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := NewJWTService("secret", "someone-else", time.Hour)
		require.NoError(t, err)
		_, err = other.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		later := *svc
		later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err := later.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := svc.ValidateToken("  ")
		assert.ErrorIs(t, err, ErrMissingToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewJWTService_RequiresSecret(t *testing.T) {
	_, err := NewJWTService("", "jarvis", time.Hour)
	assert.Error(t, err)
}

func TestUserContext(t *testing.T) {
	_, err := GetUserFromContext(context.Background())
	assert.Error(t, err)

	ctx := SetUserInContext(context.Background(), &UserContext{UserID: "admin1", Roles: []string{"ADMIN"}})
	user, err := GetUserFromContext(ctx)
	require.NoError(t, err)
	assert.True(t, user.HasRole("ADMIN"))
	assert.False(t, user.HasRole("STUDENT"))
}

func TestSlidingWindowLimiter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewSlidingWindowLimiter(2, time.Minute)
	limiter.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		ok, err := limiter.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := limiter.Allow(ctx, "k")
	assert.False(t, ok, "third request inside the window")

	ok, _ = limiter.Allow(ctx, "other")
	assert.True(t, ok, "keys are independent")

	now = now.Add(61 * time.Second)
	ok, _ = limiter.Allow(ctx, "k")
	assert.True(t, ok, "window slid past the old requests")

	now = now.Add(2 * time.Minute)
	limiter.Prune()
	assert.Empty(t, limiter.windows)
}

func TestKeyedLimiter(t *testing.T) {
	inner := NewSlidingWindowLimiter(1, time.Minute)
	ip := NewKeyedLimiter("ip", inner)
	user := NewKeyedLimiter("user", inner)

	ok, _ := ip.Allow(context.Background(), "x")
	assert.True(t, ok)
	ok, _ = user.Allow(context.Background(), "x")
	assert.True(t, ok, "prefixes keep the same key apart")
	ok, _ = ip.Allow(context.Background(), "x")
	assert.False(t, ok)
}

type fakeUpdater struct {
	err   error
	input *dynamodb.UpdateItemInput
}

func (f *fakeUpdater) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.input = in
	return &dynamodb.UpdateItemOutput{}, f.err
}

func TestDistributedRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("allowed", func(t *testing.T) {
		client := &fakeUpdater{}
		limiter := NewDistributedRateLimiter(client, "jarvis-ratelimit", 10, time.Minute)
		limiter.now = func() time.Time { return time.Unix(120, 0) }

		ok, err := limiter.Allow(ctx, "user:u1")

		require.NoError(t, err)
		assert.True(t, ok)
		pk := client.input.Key["PK"].(*types.AttributeValueMemberS).Value
		assert.Equal(t, "RATELIMIT#user:u1#120", pk)
		assert.NotNil(t, client.input.ConditionExpression)
		require.NotNil(t, client.input.UpdateExpression)
		assert.Contains(t, *client.input.UpdateExpression, "if_not_exists(")
		assert.Contains(t, *client.input.UpdateExpression, ") + :")
	})

	t.Run("limited", func(t *testing.T) {
		client := &fakeUpdater{err: &types.ConditionalCheckFailedException{}}
		ok, err := NewDistributedRateLimiter(client, "t", 10, time.Minute).Allow(ctx, "k")

		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("fails open", func(t *testing.T) {
		client := &fakeUpdater{err: errors.New("throttled")}
		ok, err := NewDistributedRateLimiter(client, "t", 10, time.Minute).Allow(ctx, "k")

		assert.Error(t, err)
		assert.True(t, ok)
	})
}
