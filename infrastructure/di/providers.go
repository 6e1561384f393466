package di

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"jarvis-backend/application/commands"
	"jarvis-backend/application/commands/bus"
	commandhandlers "jarvis-backend/application/commands/handlers"
	"jarvis-backend/application/ports"
	"jarvis-backend/application/queries"
	querybus "jarvis-backend/application/queries/bus"
	queryhandlers "jarvis-backend/application/queries/handlers"
	"jarvis-backend/application/services"
	domainconfig "jarvis-backend/domain/config"
	"jarvis-backend/domain/core/valueobjects"
	domainservices "jarvis-backend/domain/services"
	"jarvis-backend/infrastructure/config"
	"jarvis-backend/infrastructure/gemini"
	"jarvis-backend/infrastructure/messaging"
	"jarvis-backend/infrastructure/messaging/eventbridge"
	"jarvis-backend/infrastructure/persistence/dynamodb"
	"jarvis-backend/infrastructure/persistence/memory"
	"jarvis-backend/infrastructure/realtime"
	"jarvis-backend/interfaces/http/rest"
	"jarvis-backend/interfaces/websocket"
	"jarvis-backend/pkg/auth"
	pkgerrors "jarvis-backend/pkg/errors"
	"jarvis-backend/pkg/observability"
	"jarvis-backend/pkg/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ServiceName identifies this service in traces and metrics
const ServiceName = "jarvis"

// adminStatsCacheTTL bounds how stale the admin dashboard may be
const adminStatsCacheTTL = 15 * time.Second

// RateLimiters are the request limiters keyed by client IP and by user
type RateLimiters struct {
	IP   auth.RateLimiter
	User auth.RateLimiter

	local *auth.SlidingWindowLimiter // nil when counters live in DynamoDB
}

// Prune forgets idle keys of the in-process limiter
func (l RateLimiters) Prune() {
	if l.local != nil {
		l.local.Prune()
	}
}

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Environment == "production" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if level, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}

	return zapCfg.Build()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideDomainConfig selects the business rules for the environment
func ProvideDomainConfig(cfg *config.Config) *domainconfig.DomainConfig {
	return domainconfig.LoadDomainConfig(cfg.Environment)
}

// ProvideClock provides the wall clock
func ProvideClock() utils.Clock {
	return utils.SystemClock{}
}

// ProvideSessionRepository creates the session store. Sessions live in memory.
func ProvideSessionRepository() ports.SessionRepository {
	return memory.NewSessionRepository()
}

// ProvideUserRepository creates the profile store selected by USER_STORE
func ProvideUserRepository(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.UserRepository {
	if cfg.UserStore == "dynamodb" {
		return dynamodb.NewUserRepository(client, cfg.UsersTable, logger)
	}
	return memory.NewUserRepository()
}

// ProvideConnectionStore creates the API Gateway connection registry
func ProvideConnectionStore(cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.ConnectionStore {
	return dynamodb.NewConnectionStore(client, cfg.ConnectionsTable, cfg.ConnectionsIndex, logger)
}

// ProvideEventPublisher publishes to EventBridge or the log, mirrored into EVENTS_TABLE when set
func ProvideEventPublisher(cfg *config.Config, awsCfg aws.Config, client *awsdynamodb.Client, logger *zap.Logger) ports.EventPublisher {
	var bus ports.EventPublisher
	if cfg.EventBusName == "" {
		bus = messaging.NewLogPublisher(logger)
	} else {
		bus = eventbridge.NewPublisher(awseventbridge.NewFromConfig(awsCfg), cfg.EventBusName, logger)
	}
	if cfg.EventsTable == "" {
		return bus
	}
	return messaging.NewFanoutPublisher(bus, dynamodb.NewEventLog(client, cfg.EventsTable, logger))
}

// ProvideMetrics creates the metrics collector; CloudWatch mirroring follows ENABLE_METRICS
func ProvideMetrics(cfg *config.Config, awsCfg aws.Config, logger *zap.Logger) *observability.Collector {
	var cw observability.PutMetricDataAPI
	if cfg.EnableMetrics {
		cw = awscloudwatch.NewFromConfig(awsCfg)
	}
	return observability.NewCollector(ServiceName, cw, logger)
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer(ServiceName, cfg.EnableTracing)
}

// ProvideGeminiConfig maps the environment onto the backend configuration
func ProvideGeminiConfig(cfg *config.Config) gemini.Config {
	g := gemini.DefaultConfig()
	g.APIKey = cfg.GeminiAPIKey
	g.FlashModel = cfg.GeminiFlashModel
	g.ProModel = cfg.GeminiProModel
	g.ImageModel = cfg.GeminiImageModel
	g.LiveModel = cfg.GeminiLiveModel
	g.Voice = cfg.GeminiVoice
	g.Timeout = cfg.AITimeout
	return g
}

// ProvideChatBackend creates the conversation backend
func ProvideChatBackend(cfg gemini.Config, logger *zap.Logger) *gemini.ChatBackend {
	return gemini.NewChatBackend(cfg, logger)
}

// ProvideConversationBackend exposes the chat backend through its port behind a circuit breaker
func ProvideConversationBackend(backend *gemini.ChatBackend, logger *zap.Logger) ports.ConversationBackend {
	return gemini.NewBreakerBackend(backend, gemini.DefaultBreakerSettings(), logger)
}

// ProvideLiveBackend creates the voice backend
func ProvideLiveBackend(cfg gemini.Config, logger *zap.Logger) ports.LiveAudioBackend {
	return gemini.NewLiveBackend(cfg, gemini.DefaultLiveEndpoint, logger)
}

// ProvideHub creates the local render hub
func ProvideHub(metrics *observability.Collector, logger *zap.Logger) *websocket.Hub {
	return websocket.NewHub(metrics.RenderSubscribers, logger)
}

// ProvideRenderSurface pushes snapshots through API Gateway in Lambda mode and
// through the local hub otherwise
func ProvideRenderSurface(cfg *config.Config, awsCfg aws.Config, hub *websocket.Hub, connections ports.ConnectionStore, logger *zap.Logger) ports.RenderSurface {
	if cfg.IsLambda && cfg.WebSocketEndpoint != "" {
		client := realtime.NewManagementClient(awsCfg, cfg.WebSocketEndpoint)
		return realtime.NewAPIGatewaySurface(client, connections, logger)
	}
	return hub
}

// ProvideConceptGraphBuilder creates the concept graph builder
func ProvideConceptGraphBuilder(cfg *domainconfig.DomainConfig) *domainservices.ConceptGraphBuilder {
	return domainservices.NewConceptGraphBuilder(cfg, domainservices.DefaultRandomSource())
}

// ProvideTutorService creates the tutor service
func ProvideTutorService(
	cfg *config.Config,
	sessions ports.SessionRepository,
	backend ports.ConversationBackend,
	builder *domainservices.ConceptGraphBuilder,
	render ports.RenderSurface,
	publisher ports.EventPublisher,
	domainCfg *domainconfig.DomainConfig,
	clock utils.Clock,
	logger *zap.Logger,
) *services.TutorService {
	return services.NewTutorService(
		sessions,
		backend,
		builder,
		render,
		publisher,
		domainCfg,
		valueobjects.ParseTheme(cfg.Theme),
		clock,
		logger,
	)
}

// ProvideAccountService creates the account service
func ProvideAccountService(users ports.UserRepository, logger *zap.Logger) *services.AccountService {
	return services.NewAccountService(users, logger)
}

// ProvideJWTService creates the bearer token service
func ProvideJWTService(cfg *config.Config) (*auth.JWTService, error) {
	return auth.NewJWTService(cfg.SigningSecret(), cfg.JWTIssuer, cfg.TokenTTL)
}

// ProvideRateLimiters keeps counters in DynamoDB when RATE_LIMIT_TABLE is set
// so limits hold across Lambda instances, and in process otherwise
func ProvideRateLimiters(cfg *config.Config, client *awsdynamodb.Client) RateLimiters {
	if cfg.RateLimitTable != "" {
		base := auth.NewDistributedRateLimiter(client, cfg.RateLimitTable, cfg.RateLimitRequests, cfg.RateLimitWindow)
		return RateLimiters{
			IP:   auth.NewKeyedLimiter("ip", base),
			User: auth.NewKeyedLimiter("user", base),
		}
	}
	local := auth.NewSlidingWindowLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)
	return RateLimiters{
		IP:    auth.NewKeyedLimiter("ip", local),
		User:  auth.NewKeyedLimiter("user", local),
		local: local,
	}
}

// ProvideErrorHandler creates the HTTP error handler; details are exposed in development
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideInMemoryCache creates the query result cache
func ProvideInMemoryCache() *InMemoryCache {
	return NewInMemoryCache()
}

// commandHandler adapts a typed handler to the bus
func commandHandler[C bus.Command](handle func(context.Context, C) error) bus.CommandHandler {
	return bus.CommandHandlerFunc(func(ctx context.Context, cmd bus.Command) error {
		typed, ok := cmd.(C)
		if !ok {
			return fmt.Errorf("invalid command type %T", cmd)
		}
		return handle(ctx, typed)
	})
}

// queryHandler adapts a typed handler to the bus
func queryHandler[Q querybus.Query, R any](handle func(context.Context, Q) (R, error)) querybus.QueryHandler {
	return querybus.QueryHandlerFunc(func(ctx context.Context, query querybus.Query) (interface{}, error) {
		typed, ok := query.(Q)
		if !ok {
			return nil, fmt.Errorf("invalid query type %T", query)
		}
		return handle(ctx, typed)
	})
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	cfg *config.Config,
	tutor *services.TutorService,
	accounts *services.AccountService,
	metrics *observability.Collector,
	tracer *observability.Tracer,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus(
		bus.LoggingMiddleware(&zapLoggerAdapter{logger}),
		bus.MetricsMiddleware(metrics),
		bus.TracingMiddleware(tracer),
		// chat turns include the backend call, which has its own AI_TIMEOUT
		bus.TimeoutMiddleware(2*cfg.AITimeout),
	)

	registrations := []struct {
		cmd     bus.Command
		handler bus.CommandHandler
	}{
		{commands.SignupCommand{}, commandHandler(commandhandlers.NewSignupHandler(accounts).Handle)},
		{commands.StartSessionCommand{}, commandHandler(commandhandlers.NewStartSessionHandler(tutor, accounts, logger).Handle)},
		{commands.SendMessageCommand{}, commandHandler(commandhandlers.NewSendMessageHandler(tutor, logger).Handle)},
		{commands.ClearHistoryCommand{}, commandHandler(commandhandlers.NewClearHistoryHandler(tutor).Handle)},
		{commands.SetTutorModeCommand{}, commandHandler(commandhandlers.NewSetTutorModeHandler(tutor).Handle)},
		{commands.EndSessionCommand{}, commandHandler(commandhandlers.NewEndSessionHandler(tutor).Handle)},
	}
	for _, reg := range registrations {
		if err := commandBus.Register(reg.cmd, reg.handler); err != nil {
			return nil, err
		}
	}

	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	sessions ports.SessionRepository,
	tutor *services.TutorService,
	accounts *services.AccountService,
	cache *InMemoryCache,
	metrics *observability.Collector,
	clock utils.Clock,
	logger *zap.Logger,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus(querybus.NewMetricsMiddleware(&queryMetricsAdapter{metrics}))

	registrations := []struct {
		query   querybus.Query
		handler querybus.QueryHandler
		extra   []querybus.Middleware
	}{
		{query: queries.LoginQuery{}, handler: queryHandler(queryhandlers.NewLoginHandler(accounts).Handle)},
		{query: queries.GetSessionQuery{}, handler: queryHandler(queryhandlers.NewGetSessionHandler(tutor, logger).Handle)},
		{query: queries.ListSessionsQuery{}, handler: queryHandler(queryhandlers.NewListSessionsHandler(sessions, tutor, logger).Handle)},
		{query: queries.GetConceptGraphQuery{}, handler: queryHandler(queryhandlers.NewGetConceptGraphHandler(tutor).Handle)},
		{query: queries.SearchMessagesQuery{}, handler: queryHandler(queryhandlers.NewSearchMessagesHandler(tutor).Handle)},
		{
			query:   queries.GetAdminStatsQuery{},
			handler: queryHandler(queryhandlers.NewGetAdminStatsHandler(sessions, clock, logger).Handle),
			extra:   []querybus.Middleware{querybus.NewCachingMiddleware(cache, adminStatsCacheTTL)},
		},
	}
	for _, reg := range registrations {
		if err := queryBus.Register(reg.query, reg.handler, reg.extra...); err != nil {
			return nil, err
		}
	}

	return queryBus, nil
}

// ProvideStreamHandlers serves the websocket endpoints outside Lambda
func ProvideStreamHandlers(
	cfg *config.Config,
	hub *websocket.Hub,
	live ports.LiveAudioBackend,
	queryBus *querybus.QueryBus,
	errs *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) rest.StreamHandlers {
	if cfg.IsLambda {
		return rest.StreamHandlers{}
	}
	return rest.StreamHandlers{
		GraphStream: websocket.NewServer(hub, queryBus, errs, logger).HandleGraphStream,
		Live:        websocket.NewLiveRelay(live, queryBus, errs, logger).HandleLive,
	}
}

// ProvideHTTPHandler builds the REST router
func ProvideHTTPHandler(
	cfg *config.Config,
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	tokens *auth.JWTService,
	limiters RateLimiters,
	errs *pkgerrors.ErrorHandler,
	metrics *observability.Collector,
	streams rest.StreamHandlers,
	logger *zap.Logger,
) http.Handler {
	return rest.NewRouter(rest.RouterConfig{
		CommandBus:  commandBus,
		QueryBus:    queryBus,
		Tokens:      tokens,
		IPLimiter:   limiters.IP,
		UserLimiter: limiters.User,
		Errors:      errs,
		Metrics:     metrics,
		Registry:    metrics.Registry(),
		Streams:     streams,
		EnableCORS:  cfg.EnableCORS,
		Logger:      logger,
	}).Setup()
}

// queryMetricsAdapter adapts the collector's timers to the query bus
type queryMetricsAdapter struct {
	collector *observability.Collector
}

func (a *queryMetricsAdapter) StartTimer(metric, label string) querybus.Timer {
	return a.collector.StartTimer(metric, label)
}

func (a *queryMetricsAdapter) Increment(metric, label string) {
	a.collector.Increment(metric, label)
}

// zapLoggerAdapter adapts zap.Logger to the bus Logger interface
type zapLoggerAdapter struct {
	logger *zap.Logger
}

func (a *zapLoggerAdapter) Info(msg string, fields ...interface{}) {
	a.logger.Info(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) Error(msg string, fields ...interface{}) {
	a.logger.Error(msg, a.fieldsToZap(fields...)...)
}

func (a *zapLoggerAdapter) fieldsToZap(fields ...interface{}) []zap.Field {
	var zapFields []zap.Field
	for i := 0; i+1 < len(fields); i += 2 {
		key, _ := fields[i].(string)
		zapFields = append(zapFields, zap.Any(key, fields[i+1]))
	}
	return zapFields
}
