package commands

import (
	"jarvis-backend/application/ports"
	"jarvis-backend/domain/core/entities"
	"jarvis-backend/pkg/utils"
)

// StartSessionCommand opens a tutoring session for a user
type StartSessionCommand struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
	UserID    string `json:"user_id" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
}

// Validate validates the command
func (c StartSessionCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// SendMessageCommand submits one student turn and produces the tutor's reply
type SendMessageCommand struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
	UserID    string `json:"user_id" validate:"required"`
	MessageID string `json:"message_id" validate:"required"`
	Content   string `json:"content" validate:"notblank"`

	// Result, when set, receives the committed turn
	Result *TurnOutcome `json:"-" validate:"-"`
}

// TurnOutcome is the student message, the reply and the graph one turn produced
type TurnOutcome struct {
	UserMessage entities.Message
	Reply       entities.Message
	Graph       ports.GraphSnapshot
}

// Validate validates the command
func (c SendMessageCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// ClearHistoryCommand resets a session's history and concept graph
type ClearHistoryCommand struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
	UserID    string `json:"user_id" validate:"required"`
}

// Validate validates the command
func (c ClearHistoryCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// SetTutorModeCommand switches a session's tutoring mode
type SetTutorModeCommand struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
	UserID    string `json:"user_id" validate:"required"`
	Mode      string `json:"mode" validate:"required,tutormode"`
}

// Validate validates the command
func (c SetTutorModeCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// EndSessionCommand discards a session and its concept graph
type EndSessionCommand struct {
	SessionID string `json:"session_id" validate:"required,uuid"`
	UserID    string `json:"user_id" validate:"required"`
}

// Validate validates the command
func (c EndSessionCommand) Validate() error {
	return utils.ValidateStruct(c)
}
