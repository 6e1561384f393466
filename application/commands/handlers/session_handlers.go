package handlers

import (
	"context"
	"fmt"

	"jarvis-backend/application/commands"
	"jarvis-backend/application/services"
	"jarvis-backend/domain/core/valueobjects"
	pkgerrors "jarvis-backend/pkg/errors"

	"go.uber.org/zap"
)

// StartSessionHandler opens tutoring sessions
type StartSessionHandler struct {
	tutor    *services.TutorService
	accounts *services.AccountService
	logger   *zap.Logger
}

// NewStartSessionHandler creates a new start session handler
func NewStartSessionHandler(tutor *services.TutorService, accounts *services.AccountService, logger *zap.Logger) *StartSessionHandler {
	return &StartSessionHandler{
		tutor:    tutor,
		accounts: accounts,
		logger:   logger,
	}
}

// Handle executes the start session command
func (h *StartSessionHandler) Handle(ctx context.Context, cmd commands.StartSessionCommand) error {
	sessionID, err := parseSessionID(cmd.SessionID)
	if err != nil {
		return err
	}

	user, err := h.accounts.ResolveUser(ctx, cmd.Email)
	if err != nil {
		return err
	}
	if user.ID != cmd.UserID {
		h.logger.Warn("Token subject does not match profile",
			zap.String("userID", cmd.UserID),
			zap.String("profileID", user.ID),
		)
		return pkgerrors.NewUnauthorizedError("token does not match profile")
	}

	_, err = h.tutor.StartSession(ctx, sessionID, user)
	return err
}

// SendMessageHandler runs chat turns
type SendMessageHandler struct {
	tutor  *services.TutorService
	logger *zap.Logger
}

// NewSendMessageHandler creates a new send message handler
func NewSendMessageHandler(tutor *services.TutorService, logger *zap.Logger) *SendMessageHandler {
	return &SendMessageHandler{
		tutor:  tutor,
		logger: logger,
	}
}

// Handle executes the send message command
func (h *SendMessageHandler) Handle(ctx context.Context, cmd commands.SendMessageCommand) error {
	sessionID, err := parseSessionID(cmd.SessionID)
	if err != nil {
		return err
	}

	result, err := h.tutor.SendMessage(ctx, sessionID, cmd.UserID, cmd.MessageID, cmd.Content)
	if err != nil {
		return err
	}

	h.logger.Debug("Chat turn completed",
		zap.String("sessionID", cmd.SessionID),
		zap.String("replyType", string(result.Reply.Type)),
		zap.Int("concepts", result.Graph.NodeCount()),
	)
	if cmd.Result != nil {
		*cmd.Result = commands.TurnOutcome{
			UserMessage: result.UserMessage,
			Reply:       result.Reply,
			Graph:       h.tutor.Snapshot(sessionID, result.Graph),
		}
	}
	return nil
}

// ClearHistoryHandler resets session history and graph
type ClearHistoryHandler struct {
	tutor *services.TutorService
}

// NewClearHistoryHandler creates a new clear history handler
func NewClearHistoryHandler(tutor *services.TutorService) *ClearHistoryHandler {
	return &ClearHistoryHandler{tutor: tutor}
}

// Handle executes the clear history command
func (h *ClearHistoryHandler) Handle(ctx context.Context, cmd commands.ClearHistoryCommand) error {
	sessionID, err := parseSessionID(cmd.SessionID)
	if err != nil {
		return err
	}
	return h.tutor.ClearHistory(ctx, sessionID, cmd.UserID)
}

// SetTutorModeHandler switches session modes
type SetTutorModeHandler struct {
	tutor *services.TutorService
}

// NewSetTutorModeHandler creates a new set mode handler
func NewSetTutorModeHandler(tutor *services.TutorService) *SetTutorModeHandler {
	return &SetTutorModeHandler{tutor: tutor}
}

// Handle executes the set mode command
func (h *SetTutorModeHandler) Handle(ctx context.Context, cmd commands.SetTutorModeCommand) error {
	sessionID, err := parseSessionID(cmd.SessionID)
	if err != nil {
		return err
	}
	mode, err := valueobjects.ParseTutorMode(cmd.Mode)
	if err != nil {
		return pkgerrors.NewValidationError(err.Error())
	}
	return h.tutor.SetMode(ctx, sessionID, cmd.UserID, mode)
}

// EndSessionHandler discards sessions
type EndSessionHandler struct {
	tutor *services.TutorService
}

// NewEndSessionHandler creates a new end session handler
func NewEndSessionHandler(tutor *services.TutorService) *EndSessionHandler {
	return &EndSessionHandler{tutor: tutor}
}

// Handle executes the end session command
func (h *EndSessionHandler) Handle(ctx context.Context, cmd commands.EndSessionCommand) error {
	sessionID, err := parseSessionID(cmd.SessionID)
	if err != nil {
		return err
	}
	return h.tutor.EndSession(ctx, sessionID, cmd.UserID)
}

func parseSessionID(raw string) (valueobjects.SessionID, error) {
	id, err := valueobjects.NewSessionIDFromString(raw)
	if err != nil {
		return valueobjects.SessionID{}, pkgerrors.NewValidationError(fmt.Sprintf("invalid session ID: %v", err))
	}
	return id, nil
}
