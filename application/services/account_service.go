package services

import (
	"context"
	"fmt"

	"jarvis-backend/application/ports"
	"jarvis-backend/domain/core/entities"
	pkgerrors "jarvis-backend/pkg/errors"

	"go.uber.org/zap"
)

// ErrUserNotFoundMessage is shown when logging in with an unknown email
const ErrUserNotFoundMessage = "User not found. Please sign up."

// AccountService manages the mock account profiles.
// Passwords are accepted but never checked.
type AccountService struct {
	users  ports.UserRepository
	logger *zap.Logger
}

// NewAccountService creates a new account service
func NewAccountService(users ports.UserRepository, logger *zap.Logger) *AccountService {
	return &AccountService{
		users:  users,
		logger: logger,
	}
}

// Signup stores a new profile keyed by email
func (s *AccountService) Signup(ctx context.Context, userID, name, email string, role entities.UserRole, standard string, stream entities.Stream, isPro bool) (*entities.User, error) {
	if entities.NormalizeEmail(email) == entities.AdminEmail {
		return nil, pkgerrors.NewConflictError("this email is reserved")
	}

	user, err := entities.NewUser(name, email, role, standard, stream, isPro)
	if err != nil {
		return nil, err
	}
	if userID != "" {
		user.ID = userID
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User signed up",
		zap.String("userID", user.ID),
		zap.String("role", string(user.Role)),
		zap.Bool("isPro", user.IsPro),
	)
	return user, nil
}

// Login resolves the profile for email. The built-in admin address always
// succeeds; unknown addresses are NOT_FOUND.
func (s *AccountService) Login(ctx context.Context, email string) (*entities.User, error) {
	user, err := s.ResolveUser(ctx, email)
	if err != nil {
		return nil, err
	}
	s.logger.Info("User logged in", zap.String("userID", user.ID))
	return user, nil
}

// ResolveUser looks up the profile behind an email
func (s *AccountService) ResolveUser(ctx context.Context, email string) (*entities.User, error) {
	email = entities.NormalizeEmail(email)
	if email == entities.AdminEmail {
		return entities.BuiltinAdmin(), nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			notFound := pkgerrors.NewNotFoundError("user").WithCode("USER_NOT_FOUND").WithCause(err)
			notFound.Message = ErrUserNotFoundMessage
			return nil, notFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
