package handlers

import (
	"context"

	"jarvis-backend/application/commands"
	"jarvis-backend/application/services"
	"jarvis-backend/domain/core/entities"
)

// SignupHandler registers account profiles
type SignupHandler struct {
	accounts *services.AccountService
}

// NewSignupHandler creates a new signup handler
func NewSignupHandler(accounts *services.AccountService) *SignupHandler {
	return &SignupHandler{accounts: accounts}
}

// Handle executes the signup command
func (h *SignupHandler) Handle(ctx context.Context, cmd commands.SignupCommand) error {
	_, err := h.accounts.Signup(ctx,
		cmd.UserID,
		cmd.Name,
		cmd.Email,
		entities.UserRole(cmd.Role),
		cmd.Standard,
		entities.Stream(cmd.Stream),
		cmd.IsPro,
	)
	return err
}
