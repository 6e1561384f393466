//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"jarvis-backend/infrastructure/config"

	"github.com/google/wire"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideDomainConfig,
	ProvideClock,
	ProvideSessionRepository,
	ProvideUserRepository,
	ProvideConnectionStore,
	ProvideEventPublisher,
	ProvideMetrics,
	ProvideTracer,
	ProvideGeminiConfig,
	ProvideChatBackend,
	ProvideConversationBackend,
	ProvideLiveBackend,
	ProvideHub,
	ProvideRenderSurface,
	ProvideConceptGraphBuilder,
	ProvideTutorService,
	ProvideAccountService,
	ProvideJWTService,
	ProvideRateLimiters,
	ProvideErrorHandler,
	ProvideInMemoryCache,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideStreamHandlers,
	ProvideHTTPHandler,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil
}
