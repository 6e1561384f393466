package queries

import (
	"time"

	"jarvis-backend/application/ports"
	"jarvis-backend/domain/core/aggregates"
	"jarvis-backend/domain/core/entities"
	"jarvis-backend/pkg/utils"
)

// GetSessionQuery retrieves a session with its full history and graph
type GetSessionQuery struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
	UserID    string `json:"user_id" validate:"required"`
}

// Validate validates the query
func (q GetSessionQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// ListSessionsQuery lists the caller's live sessions
type ListSessionsQuery struct {
	UserID string `json:"user_id" validate:"required"`
}

// Validate validates the query
func (q ListSessionsQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// GetConceptGraphQuery retrieves a session's concept graph snapshot
type GetConceptGraphQuery struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
	UserID    string `json:"user_id" validate:"required"`
}

// Validate validates the query
func (q GetConceptGraphQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// SearchMessagesQuery filters a session's history by content
type SearchMessagesQuery struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
	UserID    string `json:"user_id" validate:"required"`
	Query     string `json:"query" validate:"max=200"`
}

// Validate validates the query
func (q SearchMessagesQuery) Validate() error {
	return utils.ValidateStruct(q)
}

// SessionView is the read model of one tutoring session
type SessionView struct {
	ID        string                  `json:"id"`
	UserID    string                  `json:"userId"`
	User      entities.User           `json:"user"`
	Mode      string                  `json:"mode"`
	Messages  []entities.Message      `json:"messages"`
	Graph     aggregates.ConceptGraph `json:"graph"`
	CreatedAt string                  `json:"createdAt"`
	UpdatedAt string                  `json:"updatedAt"`
}

// SessionSummary is the list entry for a session
type SessionSummary struct {
	ID           string `json:"id"`
	Mode         string `json:"mode"`
	MessageCount int    `json:"messageCount"`
	ConceptCount int    `json:"conceptCount"`
	UpdatedAt    string `json:"updatedAt"`
}

// MessagesResult is the result of a history search
type MessagesResult struct {
	SessionID string             `json:"sessionId"`
	Query     string             `json:"query,omitempty"`
	Messages  []entities.Message `json:"messages"`
	Count     int                `json:"count"`
}

// ConceptGraphResult is a render-ready graph snapshot
type ConceptGraphResult = ports.GraphSnapshot

// NewSessionView builds the read model for session
func NewSessionView(session *aggregates.TutorSession) SessionView {
	return SessionView{
		ID:        session.ID().String(),
		UserID:    session.UserID(),
		User:      session.User(),
		Mode:      session.Mode().String(),
		Messages:  session.Messages(),
		Graph:     session.Graph().Clone(),
		CreatedAt: session.CreatedAt().Format(time.RFC3339),
		UpdatedAt: session.UpdatedAt().Format(time.RFC3339),
	}
}

// NewSessionSummary builds the list entry for session
func NewSessionSummary(session *aggregates.TutorSession) SessionSummary {
	return SessionSummary{
		ID:           session.ID().String(),
		Mode:         session.Mode().String(),
		MessageCount: session.MessageCount(),
		ConceptCount: session.Graph().NodeCount(),
		UpdatedAt:    session.UpdatedAt().Format(time.RFC3339),
	}
}
