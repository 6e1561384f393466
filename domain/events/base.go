package events

import (
	"time"

	"jarvis-backend/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetVersion() int
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	Version     int       `json:"version"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetVersion() int         { return e.Version }

const (
	TypeSessionStarted = "session.started"
	TypeMessageAdded   = "session.message_added"
	TypeConceptAdded   = "concept.added"
	TypeConceptsLinked = "concepts.linked"
	TypeHistoryCleared = "session.history_cleared"
	TypeModeChanged    = "session.mode_changed"
	TypeSessionEnded   = "session.ended"
)

func newBase(sessionID valueobjects.SessionID, eventType string, timestamp time.Time, version int) BaseEvent {
	return BaseEvent{
		AggregateID: sessionID.String(),
		EventType:   eventType,
		Timestamp:   timestamp,
		Version:     version,
	}
}

// Session Events

// SessionStarted is raised when a student opens a tutoring session
type SessionStarted struct {
	BaseEvent
	UserID string                 `json:"user_id"`
	Mode   valueobjects.TutorMode `json:"mode"`
}

// NewSessionStarted creates a SessionStarted event
func NewSessionStarted(sessionID valueobjects.SessionID, userID string, mode valueobjects.TutorMode, timestamp time.Time) SessionStarted {
	return SessionStarted{
		BaseEvent: newBase(sessionID, TypeSessionStarted, timestamp, 1),
		UserID:    userID,
		Mode:      mode,
	}
}

// MessageAdded is raised for every turn appended to a session
type MessageAdded struct {
	BaseEvent
	MessageID string `json:"message_id"`
	Role      string `json:"role"`
	Type      string `json:"type"`
}

// NewMessageAdded creates a MessageAdded event
func NewMessageAdded(sessionID valueobjects.SessionID, messageID, role, msgType string, timestamp time.Time, version int) MessageAdded {
	return MessageAdded{
		BaseEvent: newBase(sessionID, TypeMessageAdded, timestamp, version),
		MessageID: messageID,
		Role:      role,
		Type:      msgType,
	}
}

// HistoryCleared is raised when a session's history and graph are reset
type HistoryCleared struct {
	BaseEvent
	RemovedMessages int `json:"removed_messages"`
	RemovedConcepts int `json:"removed_concepts"`
}

// NewHistoryCleared creates a HistoryCleared event
func NewHistoryCleared(sessionID valueobjects.SessionID, removedMessages, removedConcepts int, timestamp time.Time, version int) HistoryCleared {
	return HistoryCleared{
		BaseEvent:       newBase(sessionID, TypeHistoryCleared, timestamp, version),
		RemovedMessages: removedMessages,
		RemovedConcepts: removedConcepts,
	}
}

// ModeChanged is raised when the tutoring mode is switched
type ModeChanged struct {
	BaseEvent
	OldMode valueobjects.TutorMode `json:"old_mode"`
	NewMode valueobjects.TutorMode `json:"new_mode"`
}

// NewModeChanged creates a ModeChanged event
func NewModeChanged(sessionID valueobjects.SessionID, oldMode, newMode valueobjects.TutorMode, timestamp time.Time, version int) ModeChanged {
	return ModeChanged{
		BaseEvent: newBase(sessionID, TypeModeChanged, timestamp, version),
		OldMode:   oldMode,
		NewMode:   newMode,
	}
}

// SessionEnded is raised when a session is discarded
type SessionEnded struct {
	BaseEvent
	UserID       string `json:"user_id"`
	MessageCount int    `json:"message_count"`
	ConceptCount int    `json:"concept_count"`
}

// NewSessionEnded creates a SessionEnded event
func NewSessionEnded(sessionID valueobjects.SessionID, userID string, messageCount, conceptCount int, timestamp time.Time, version int) SessionEnded {
	return SessionEnded{
		BaseEvent:    newBase(sessionID, TypeSessionEnded, timestamp, version),
		UserID:       userID,
		MessageCount: messageCount,
		ConceptCount: conceptCount,
	}
}

// Concept Graph Events

// ConceptAdded is raised when a new node enters a session's concept graph
type ConceptAdded struct {
	BaseEvent
	ConceptID string `json:"concept_id"`
	Group     int    `json:"group"`
}

// NewConceptAdded creates a ConceptAdded event
func NewConceptAdded(sessionID valueobjects.SessionID, conceptID string, group int, timestamp time.Time, version int) ConceptAdded {
	return ConceptAdded{
		BaseEvent: newBase(sessionID, TypeConceptAdded, timestamp, version),
		ConceptID: conceptID,
		Group:     group,
	}
}

// ConceptsLinked is raised when a link is drawn between two concepts
type ConceptsLinked struct {
	BaseEvent
	SourceID string  `json:"source_id"`
	TargetID string  `json:"target_id"`
	Weight   float64 `json:"weight"`
}

// NewConceptsLinked creates a ConceptsLinked event
func NewConceptsLinked(sessionID valueobjects.SessionID, sourceID, targetID string, weight float64, timestamp time.Time, version int) ConceptsLinked {
	return ConceptsLinked{
		BaseEvent: newBase(sessionID, TypeConceptsLinked, timestamp, version),
		SourceID:  sourceID,
		TargetID:  targetID,
		Weight:    weight,
	}
}
