package commands

import (
	"jarvis-backend/pkg/utils"
)

// SignupCommand registers a new account profile
type SignupCommand struct {
	UserID   string `json:"user_id" validate:"required"`
	Name     string `json:"name" validate:"notblank,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Role     string `json:"role" validate:"required,oneof=STUDENT ADMIN"`
	Standard string `json:"standard" validate:"required_if=Role STUDENT,max=50"`
	Stream   string `json:"stream" validate:"stream"`
	IsPro    bool   `json:"is_pro"`
}

// Validate validates the command
func (c SignupCommand) Validate() error {
	return utils.ValidateStruct(c)
}
