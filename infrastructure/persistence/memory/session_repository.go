package memory

import (
	"context"
	"sort"
	"sync"

	"jarvis-backend/domain/core/aggregates"
	"jarvis-backend/domain/core/valueobjects"
	pkgerrors "jarvis-backend/pkg/errors"
)

// SessionRepository keeps live tutor sessions in process memory.
// Sessions hold chat history and are never persisted across restarts.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*aggregates.TutorSession
}

// NewSessionRepository creates an empty session store
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]*aggregates.TutorSession),
	}
}

// Save stores the session under its ID
func (r *SessionRepository) Save(ctx context.Context, session *aggregates.TutorSession) error {
	if session == nil {
		return pkgerrors.NewValidationError("session cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID().String()] = session
	return nil
}

// GetByID returns the session or a NOT_FOUND error
func (r *SessionRepository) GetByID(ctx context.Context, id valueobjects.SessionID) (*aggregates.TutorSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[id.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("session").WithCode("SESSION_NOT_FOUND")
	}
	return session, nil
}

// GetByUserID returns the user's sessions, oldest first
func (r *SessionRepository) GetByUserID(ctx context.Context, userID string) ([]*aggregates.TutorSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*aggregates.TutorSession
	for _, s := range r.sessions {
		if s.IsOwnedBy(userID) {
			result = append(result, s)
		}
	}
	sortByCreation(result)
	return result, nil
}

// List returns every live session, oldest first
func (r *SessionRepository) List(ctx context.Context) ([]*aggregates.TutorSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*aggregates.TutorSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		result = append(result, s)
	}
	sortByCreation(result)
	return result, nil
}

// Delete removes the session; deleting an unknown session is a NOT_FOUND error
func (r *SessionRepository) Delete(ctx context.Context, id valueobjects.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id.String()]; !ok {
		return pkgerrors.NewNotFoundError("session").WithCode("SESSION_NOT_FOUND")
	}
	delete(r.sessions, id.String())
	return nil
}

// Count returns the number of live sessions
func (r *SessionRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions), nil
}

func sortByCreation(sessions []*aggregates.TutorSession) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt().Equal(sessions[j].CreatedAt()) {
			return sessions[i].ID().String() < sessions[j].ID().String()
		}
		return sessions[i].CreatedAt().Before(sessions[j].CreatedAt())
	})
}
