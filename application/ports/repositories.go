package ports

import (
	"context"

	"jarvis-backend/domain/core/aggregates"
	"jarvis-backend/domain/core/entities"
	"jarvis-backend/domain/core/valueobjects"
	"jarvis-backend/domain/events"
)

// SessionRepository defines the interface for tutor session storage
// This is a port in hexagonal architecture - the domain doesn't know about the implementation
type SessionRepository interface {
	// Save persists a session (create or update)
	Save(ctx context.Context, session *aggregates.TutorSession) error

	// GetByID retrieves a session by its ID
	GetByID(ctx context.Context, id valueobjects.SessionID) (*aggregates.TutorSession, error)

	// GetByUserID retrieves all live sessions of a user
	GetByUserID(ctx context.Context, userID string) ([]*aggregates.TutorSession, error)

	// List retrieves every live session
	List(ctx context.Context) ([]*aggregates.TutorSession, error)

	// Delete removes a session
	Delete(ctx context.Context, id valueobjects.SessionID) error

	// Count returns the number of live sessions
	Count(ctx context.Context) (int, error)
}

// UserRepository defines the interface for account profile storage
type UserRepository interface {
	// Create stores a new profile; an existing email is a conflict
	Create(ctx context.Context, user *entities.User) error

	// GetByEmail retrieves a profile by its normalized email
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
}

// ConnectionStore tracks API Gateway websocket connections per session
type ConnectionStore interface {
	// Register records a connection subscribed to a session's graph
	Register(ctx context.Context, connectionID, sessionID, userID string) error

	// Remove forgets a connection
	Remove(ctx context.Context, connectionID string) error

	// ListBySession returns the connection IDs subscribed to a session
	ListBySession(ctx context.Context, sessionID string) ([]string, error)
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}
