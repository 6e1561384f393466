package memory

import (
	"context"
	"sync"

	"jarvis-backend/domain/core/entities"
	pkgerrors "jarvis-backend/pkg/errors"
)

// UserRepository keeps account profiles keyed by normalized email
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]entities.User
}

// NewUserRepository creates an empty profile store
func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]entities.User)}
}

// Create stores a new profile; an email that is already taken is a CONFLICT
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	if user == nil {
		return pkgerrors.NewValidationError("user cannot be nil")
	}
	key := entities.NormalizeEmail(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.users[key]; exists {
		return pkgerrors.NewConflictError("an account with this email already exists").WithCode("EMAIL_TAKEN")
	}
	r.users[key] = *user
	return nil
}

// GetByEmail returns a copy of the stored profile
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[entities.NormalizeEmail(email)]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("user")
	}
	return &user, nil
}
