package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	querybus "jarvis-backend/application/queries/bus"
	"jarvis-backend/application/ports"
	"jarvis-backend/application/queries"
	"jarvis-backend/pkg/auth"
	pkgerrors "jarvis-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// maxSubscribersPerSession bounds open graph streams for one session
const maxSubscribersPerSession = 10

// Server upgrades graph stream requests and hands the connections to the hub
type Server struct {
	hub      *Hub
	queryBus *querybus.QueryBus
	upgrader websocket.Upgrader
	errors   *pkgerrors.ErrorHandler
	logger   *zap.Logger
}

// NewUpgrader returns the upgrader shared by the websocket endpoints
func NewUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		// endpoints authenticate by token
		CheckOrigin: func(r *http.Request) bool { return true },
	}
}

// NewServer creates a new graph stream server
func NewServer(hub *Hub, queryBus *querybus.QueryBus, errors *pkgerrors.ErrorHandler, logger *zap.Logger) *Server {
	return &Server{
		hub:      hub,
		queryBus: queryBus,
		upgrader: NewUpgrader(),
		errors:   errors,
		logger:   logger,
	}
}

// HandleGraphStream handles GET /sessions/{sessionID}/graph/stream. The
// client is subscribed before the current graph is read, so a render racing
// the handshake is never lost.
func (s *Server) HandleGraphStream(w http.ResponseWriter, r *http.Request) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		s.errors.Handle(w, r, pkgerrors.NewUnauthorizedError("authentication required"))
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	query := queries.GetConceptGraphQuery{SessionID: sessionID, UserID: user.UserID}

	// ownership and existence are reported before the upgrade
	if _, err := s.queryBus.Ask(r.Context(), query); err != nil {
		s.errors.Handle(w, r, err)
		return
	}

	if s.hub.SubscriberCount(sessionID) >= maxSubscribersPerSession {
		s.errors.HandleStatus(w, r, http.StatusTooManyRequests, "Connection limit exceeded")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}

	client := NewClient(sessionID, s.hub, conn, s.logger)
	client.Start()

	if err := s.sendInitial(r.Context(), client, query); err != nil {
		s.logger.Warn("Failed to send initial snapshot",
			zap.String("sessionID", sessionID),
			zap.String("connectionID", client.id),
			zap.Error(err),
		)
		conn.Close()
		return
	}

	s.logger.Info("Graph stream opened",
		zap.String("sessionID", sessionID),
		zap.String("userID", user.UserID),
		zap.String("connectionID", client.id),
	)
}

func (s *Server) sendInitial(ctx context.Context, client *Client, query queries.GetConceptGraphQuery) error {
	result, err := s.queryBus.Ask(ctx, query)
	if err != nil {
		return err
	}
	snapshot := result.(*queries.ConceptGraphResult)

	payload, err := json.Marshal(ports.NewSnapshotMessage(*snapshot, s.hub.now().Unix()))
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return s.hub.SendInitial(ctx, client, payload)
}
