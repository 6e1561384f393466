package di

import (
	"net/http"

	"jarvis-backend/application/commands/bus"
	"jarvis-backend/application/ports"
	querybus "jarvis-backend/application/queries/bus"
	"jarvis-backend/application/services"
	"jarvis-backend/infrastructure/config"
	"jarvis-backend/infrastructure/gemini"
	"jarvis-backend/interfaces/websocket"
	"jarvis-backend/pkg/auth"
	"jarvis-backend/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *zap.Logger
	Sessions    ports.SessionRepository
	Users       ports.UserRepository
	Connections ports.ConnectionStore
	Tutor       *services.TutorService
	Accounts    *services.AccountService
	Chat        *gemini.ChatBackend
	Hub         *websocket.Hub
	Tokens      *auth.JWTService
	Limiters    RateLimiters
	CommandBus  *bus.CommandBus
	QueryBus    *querybus.QueryBus
	Cache       *InMemoryCache
	Metrics     *observability.Collector
	Handler     http.Handler
}

// Close releases the resources held by the container
func (c *Container) Close() {
	c.Hub.Stop()
	c.Cache.Close()
	if err := c.Chat.Close(); err != nil {
		c.Logger.Warn("Failed to close chat backend", zap.Error(err))
	}
	_ = c.Logger.Sync()
}
