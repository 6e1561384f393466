package handlers

import (
	"net/http"

	"jarvis-backend/application/commands"
	"jarvis-backend/application/commands/bus"
	"jarvis-backend/application/queries"
	querybus "jarvis-backend/application/queries/bus"
	"jarvis-backend/domain/core/entities"
	"jarvis-backend/pkg/auth"
	"jarvis-backend/pkg/common"
	pkgerrors "jarvis-backend/pkg/errors"
	"jarvis-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionHandler handles tutoring session requests
type SessionHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	errors *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		errors:     errors,
		logger:     logger,
	}
}

// SendMessageRequest represents one student turn
type SendMessageRequest struct {
	Content string `json:"content" validate:"notblank"`
}

// SetModeRequest switches the tutoring mode
type SetModeRequest struct {
	Mode string `json:"mode" validate:"required,tutormode"`
}

// TurnResponse is the outcome of one chat turn
type TurnResponse struct {
	UserMessage entities.Message           `json:"userMessage"`
	Reply       entities.Message           `json:"reply"`
	Graph       queries.ConceptGraphResult `json:"graph"`
}

// StartSession handles POST /sessions
func (h *SessionHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r)
	if !ok {
		return
	}

	sessionID := uuid.New().String()
	cmd := commands.StartSessionCommand{SessionID: sessionID, UserID: user.UserID, Email: user.Email}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.respondSession(w, r, http.StatusCreated, sessionID, user.UserID)
}

// ListSessions handles GET /sessions
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r)
	if !ok {
		return
	}

	result, err := h.queryBus.Ask(r.Context(), queries.ListSessionsQuery{UserID: user.UserID})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{"sessions": result})
}

// GetSession handles GET /sessions/{sessionID}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r)
	if !ok {
		return
	}
	h.respondSession(w, r, http.StatusOK, chi.URLParam(r, "sessionID"), user.UserID)
}

// EndSession handles DELETE /sessions/{sessionID}
func (h *SessionHandler) EndSession(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r)
	if !ok {
		return
	}

	cmd := commands.EndSessionCommand{SessionID: chi.URLParam(r, "sessionID"), UserID: user.UserID}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SendMessage handles POST /sessions/{sessionID}/messages
func (h *SessionHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := common.ParseJSONBody(w, r, &req, common.DefaultMaxBodyBytes); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	var outcome commands.TurnOutcome
	cmd := commands.SendMessageCommand{
		SessionID: chi.URLParam(r, "sessionID"),
		UserID:    user.UserID,
		MessageID: uuid.New().String(),
		Content:   req.Content,
		Result:    &outcome,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	turn := TurnResponse{UserMessage: outcome.UserMessage, Reply: outcome.Reply, Graph: outcome.Graph}
	common.RespondJSON(w, http.StatusOK, turn)
}

// SearchMessages handles GET /sessions/{sessionID}/messages?q=
func (h *SessionHandler) SearchMessages(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r)
	if !ok {
		return
	}

	query := queries.SearchMessagesQuery{
		SessionID: chi.URLParam(r, "sessionID"),
		UserID:    user.UserID,
		Query:     r.URL.Query().Get("q"),
	}
	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

// ClearHistory handles POST /sessions/{sessionID}/clear
func (h *SessionHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r)
	if !ok {
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	cmd := commands.ClearHistoryCommand{SessionID: sessionID, UserID: user.UserID}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondSession(w, r, http.StatusOK, sessionID, user.UserID)
}

// SetMode handles PUT /sessions/{sessionID}/mode
func (h *SessionHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r)
	if !ok {
		return
	}

	var req SetModeRequest
	if err := common.ParseJSONBody(w, r, &req, common.DefaultMaxBodyBytes); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	sessionID := chi.URLParam(r, "sessionID")
	cmd := commands.SetTutorModeCommand{SessionID: sessionID, UserID: user.UserID, Mode: req.Mode}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	h.respondSession(w, r, http.StatusOK, sessionID, user.UserID)
}

// GetConceptGraph handles GET /sessions/{sessionID}/graph
func (h *SessionHandler) GetConceptGraph(w http.ResponseWriter, r *http.Request) {
	user, ok := h.caller(w, r)
	if !ok {
		return
	}

	query := queries.GetConceptGraphQuery{SessionID: chi.URLParam(r, "sessionID"), UserID: user.UserID}
	result, err := h.queryBus.Ask(r.Context(), query)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, result)
}

func (h *SessionHandler) respondSession(w http.ResponseWriter, r *http.Request, status int, sessionID, userID string) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetSessionQuery{SessionID: sessionID, UserID: userID})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	common.RespondJSON(w, status, result)
}

func (h *SessionHandler) caller(w http.ResponseWriter, r *http.Request) (*auth.UserContext, bool) {
	user, err := auth.GetUserFromContext(r.Context())
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewUnauthorizedError("authentication required"))
		return nil, false
	}
	return user, true
}
