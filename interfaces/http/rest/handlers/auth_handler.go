package handlers

import (
	"net/http"
	"strings"
	"time"

	"jarvis-backend/application/commands"
	"jarvis-backend/application/commands/bus"
	"jarvis-backend/application/queries"
	querybus "jarvis-backend/application/queries/bus"
	"jarvis-backend/domain/core/entities"
	"jarvis-backend/pkg/common"
	pkgerrors "jarvis-backend/pkg/errors"
	"jarvis-backend/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenIssuer signs bearer tokens for authenticated users
type TokenIssuer interface {
	GenerateToken(userID, email string, roles []string) (string, error)
	TTL() time.Duration
}

// AuthHandler handles signup and login
type AuthHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	tokens     TokenIssuer
	errors     *pkgerrors.ErrorHandler
	logger     *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	tokens TokenIssuer,
	errors *pkgerrors.ErrorHandler,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		tokens:     tokens,
		errors:     errors,
		logger:     logger,
	}
}

// SignupRequest represents the request body for creating an account
type SignupRequest struct {
	Name     string `json:"name" validate:"notblank,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
	Role     string `json:"role" validate:"omitempty,oneof=STUDENT ADMIN"`
	Standard string `json:"standard" validate:"max=50"`
	Stream   string `json:"stream" validate:"stream"`
	IsPro    bool   `json:"isPro"`
}

// LoginRequest represents the request body for logging in
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
}

// AuthResponse carries the issued token and the profile behind it
type AuthResponse struct {
	Token     string         `json:"token"`
	ExpiresIn int            `json:"expiresIn"`
	User      *entities.User `json:"user"`
}

// Signup handles POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := common.ParseJSONBody(w, r, &req, common.DefaultMaxBodyBytes); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	role := strings.ToUpper(req.Role)
	if role == "" {
		role = string(entities.RoleStudent)
	}

	cmd := commands.SignupCommand{
		UserID:   uuid.New().String(),
		Name:     req.Name,
		Email:    req.Email,
		Role:     role,
		Standard: req.Standard,
		Stream:   req.Stream,
		IsPro:    req.IsPro,
	}
	if err := h.commandBus.Send(r.Context(), cmd); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.issue(w, r, http.StatusCreated, req.Email)
}

// Login handles POST /auth/login. The password is accepted but not checked.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := common.ParseJSONBody(w, r, &req, common.DefaultMaxBodyBytes); err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.issue(w, r, http.StatusOK, req.Email)
}

func (h *AuthHandler) issue(w http.ResponseWriter, r *http.Request, status int, email string) {
	result, err := h.queryBus.Ask(r.Context(), queries.LoginQuery{Email: email})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}
	user := result.(*entities.User)

	token, err := h.tokens.GenerateToken(user.ID, user.Email, []string{string(user.Role)})
	if err != nil {
		h.errors.Handle(w, r, pkgerrors.NewInternalError("failed to issue token").WithCause(err))
		return
	}

	h.logger.Debug("Token issued", zap.String("userID", user.ID))
	common.RespondJSON(w, status, AuthResponse{
		Token:     token,
		ExpiresIn: int(h.tokens.TTL().Seconds()),
		User:      user,
	})
}
