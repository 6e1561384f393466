package handlers

import (
	"context"
	"time"

	"jarvis-backend/application/ports"
	"jarvis-backend/application/queries"
	"jarvis-backend/application/services"
	"jarvis-backend/domain/core/entities"
	"jarvis-backend/pkg/utils"

	"go.uber.org/zap"
)

// LoginHandler handles LoginQuery
type LoginHandler struct {
	accounts *services.AccountService
}

// NewLoginHandler creates a new handler
func NewLoginHandler(accounts *services.AccountService) *LoginHandler {
	return &LoginHandler{accounts: accounts}
}

// Handle executes the query
func (h *LoginHandler) Handle(ctx context.Context, query queries.LoginQuery) (*entities.User, error) {
	return h.accounts.Login(ctx, query.Email)
}

// GetAdminStatsHandler handles GetAdminStatsQuery
type GetAdminStatsHandler struct {
	sessions ports.SessionRepository
	clock    utils.Clock
	logger   *zap.Logger
}

// NewGetAdminStatsHandler creates a new handler
func NewGetAdminStatsHandler(sessions ports.SessionRepository, clock utils.Clock, logger *zap.Logger) *GetAdminStatsHandler {
	return &GetAdminStatsHandler{sessions: sessions, clock: clock, logger: logger}
}

// Handle executes the query
func (h *GetAdminStatsHandler) Handle(ctx context.Context, query queries.GetAdminStatsQuery) (*queries.AdminStatsResult, error) {
	live, err := h.sessions.Count(ctx)
	if err != nil {
		h.logger.Warn("Failed to count live sessions", zap.Error(err))
		live = 0
	}

	return &queries.AdminStatsResult{
		Weekly:       queries.WeeklyAdminStats(),
		LiveSessions: live,
		GeneratedAt:  h.clock.Now().UTC().Format(time.RFC3339),
	}, nil
}
