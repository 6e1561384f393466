package utils

import (
	"fmt"
	"strings"

	"jarvis-backend/domain/core/entities"
	"jarvis-backend/domain/core/valueobjects"
	pkgerrors "jarvis-backend/pkg/errors"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("tutormode", func(fl validator.FieldLevel) bool {
		_, err := valueobjects.ParseTutorMode(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("stream", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || entities.Stream(s).IsValid()
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// ValidateStruct validates a struct based on its validation tags.
// Failures are returned as a VALIDATION AppError.
func ValidateStruct(s interface{}) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError formats validation errors into readable messages
func formatValidationError(err error) error {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		messages := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			messages = append(messages, formatFieldError(e))
		}
		return pkgerrors.NewValidationError(strings.Join(messages, "; "))
	}
	return pkgerrors.NewValidationError(err.Error())
}

// formatFieldError formats a single field validation error
func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())

	switch e.Tag() {
	case "required", "notblank":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "uuid", "uuid4":
		return fmt.Sprintf("%s must be a valid UUID", field)
	case "tutormode":
		return fmt.Sprintf("%s must be one of: EXPLAIN PRACTICE EXAM_PREP", field)
	case "stream":
		return fmt.Sprintf("%s must be one of: Science, Commerce, Engineering, Arts, School (General)", field)
	case "required_if":
		return fmt.Sprintf("%s is required for %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
