package handlers

import (
	"context"
	"fmt"

	"jarvis-backend/application/ports"
	"jarvis-backend/application/queries"
	"jarvis-backend/application/services"
	"jarvis-backend/domain/core/aggregates"
	"jarvis-backend/domain/core/valueobjects"
	pkgerrors "jarvis-backend/pkg/errors"

	"go.uber.org/zap"
)

// GetSessionHandler handles GetSessionQuery
type GetSessionHandler struct {
	tutor  *services.TutorService
	logger *zap.Logger
}

// NewGetSessionHandler creates a new handler
func NewGetSessionHandler(tutor *services.TutorService, logger *zap.Logger) *GetSessionHandler {
	return &GetSessionHandler{tutor: tutor, logger: logger}
}

// Handle executes the query
func (h *GetSessionHandler) Handle(ctx context.Context, query queries.GetSessionQuery) (*queries.SessionView, error) {
	sessionID, err := parseSessionID(query.SessionID)
	if err != nil {
		return nil, err
	}

	var view queries.SessionView
	err = h.tutor.View(ctx, sessionID, query.UserID, func(session *aggregates.TutorSession) error {
		view = queries.NewSessionView(session)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// ListSessionsHandler handles ListSessionsQuery
type ListSessionsHandler struct {
	sessions ports.SessionRepository
	tutor    *services.TutorService
	logger   *zap.Logger
}

// NewListSessionsHandler creates a new handler
func NewListSessionsHandler(sessions ports.SessionRepository, tutor *services.TutorService, logger *zap.Logger) *ListSessionsHandler {
	return &ListSessionsHandler{sessions: sessions, tutor: tutor, logger: logger}
}

// Handle executes the query
func (h *ListSessionsHandler) Handle(ctx context.Context, query queries.ListSessionsQuery) ([]queries.SessionSummary, error) {
	sessions, err := h.sessions.GetByUserID(ctx, query.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	summaries := make([]queries.SessionSummary, 0, len(sessions))
	for _, s := range sessions {
		err := h.tutor.View(ctx, s.ID(), query.UserID, func(session *aggregates.TutorSession) error {
			summaries = append(summaries, queries.NewSessionSummary(session))
			return nil
		})
		if err != nil {
			// ended between listing and viewing
			if pkgerrors.IsNotFound(err) {
				continue
			}
			return nil, err
		}
	}
	return summaries, nil
}

// GetConceptGraphHandler handles GetConceptGraphQuery
type GetConceptGraphHandler struct {
	tutor *services.TutorService
}

// NewGetConceptGraphHandler creates a new handler
func NewGetConceptGraphHandler(tutor *services.TutorService) *GetConceptGraphHandler {
	return &GetConceptGraphHandler{tutor: tutor}
}

// Handle executes the query
func (h *GetConceptGraphHandler) Handle(ctx context.Context, query queries.GetConceptGraphQuery) (*queries.ConceptGraphResult, error) {
	sessionID, err := parseSessionID(query.SessionID)
	if err != nil {
		return nil, err
	}

	var snapshot queries.ConceptGraphResult
	err = h.tutor.View(ctx, sessionID, query.UserID, func(session *aggregates.TutorSession) error {
		snapshot = h.tutor.Snapshot(sessionID, session.Graph())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// SearchMessagesHandler handles SearchMessagesQuery
type SearchMessagesHandler struct {
	tutor *services.TutorService
}

// NewSearchMessagesHandler creates a new handler
func NewSearchMessagesHandler(tutor *services.TutorService) *SearchMessagesHandler {
	return &SearchMessagesHandler{tutor: tutor}
}

// Handle executes the query
func (h *SearchMessagesHandler) Handle(ctx context.Context, query queries.SearchMessagesQuery) (*queries.MessagesResult, error) {
	sessionID, err := parseSessionID(query.SessionID)
	if err != nil {
		return nil, err
	}

	result := &queries.MessagesResult{SessionID: query.SessionID, Query: query.Query}
	err = h.tutor.View(ctx, sessionID, query.UserID, func(session *aggregates.TutorSession) error {
		result.Messages = session.SearchMessages(query.Query)
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Count = len(result.Messages)
	return result, nil
}

func parseSessionID(raw string) (valueobjects.SessionID, error) {
	id, err := valueobjects.NewSessionIDFromString(raw)
	if err != nil {
		return valueobjects.SessionID{}, pkgerrors.NewValidationError(fmt.Sprintf("invalid session ID: %v", err))
	}
	return id, nil
}
