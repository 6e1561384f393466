package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorType classifies an AppError; the type fixes the HTTP status
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeRateLimit    ErrorType = "RATE_LIMIT"
	ErrorTypeUnavailable  ErrorType = "UNAVAILABLE"
	ErrorTypeInternal     ErrorType = "INTERNAL"
	ErrorTypeDatabase     ErrorType = "DATABASE"
)

var statusByType = map[ErrorType]int{
	ErrorTypeValidation:   http.StatusBadRequest,
	ErrorTypeNotFound:     http.StatusNotFound,
	ErrorTypeConflict:     http.StatusConflict,
	ErrorTypeUnauthorized: http.StatusUnauthorized,
	ErrorTypeForbidden:    http.StatusForbidden,
	ErrorTypeRateLimit:    http.StatusTooManyRequests,
	ErrorTypeUnavailable:  http.StatusServiceUnavailable,
	ErrorTypeInternal:     http.StatusInternalServerError,
	ErrorTypeDatabase:     http.StatusInternalServerError,
}

// typeForStatus is the inverse of statusByType for plain status responses
func typeForStatus(status int) ErrorType {
	switch status {
	case http.StatusBadRequest:
		return ErrorTypeValidation
	case http.StatusNotFound:
		return ErrorTypeNotFound
	case http.StatusConflict:
		return ErrorTypeConflict
	case http.StatusUnauthorized:
		return ErrorTypeUnauthorized
	case http.StatusForbidden:
		return ErrorTypeForbidden
	case http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case http.StatusServiceUnavailable:
		return ErrorTypeUnavailable
	}
	return ErrorTypeInternal
}

// AppError is an error the HTTP layer knows how to render
type AppError struct {
	Type    ErrorType
	Message string
	Code    string
	Cause   error
	stack   string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Status is the HTTP status for the error's type
func (e *AppError) Status() int {
	if status, ok := statusByType[e.Type]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WithCode attaches a machine-readable code such as SESSION_NOT_FOUND
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithCause records the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

func newAppError(errType ErrorType, message string) *AppError {
	return &AppError{Type: errType, Message: message, stack: callers()}
}

// callers renders the stack above the exported constructor
func callers() string {
	var pcs [24]uintptr
	n := runtime.Callers(4, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return b.String()
}

// NewValidationError reports malformed or rejected input
func NewValidationError(message string) *AppError {
	return newAppError(ErrorTypeValidation, message)
}

// NewNotFoundError reports a missing resource, e.g. NewNotFoundError("session")
func NewNotFoundError(resource string) *AppError {
	return newAppError(ErrorTypeNotFound, resource+" not found")
}

func NewConflictError(message string) *AppError {
	return newAppError(ErrorTypeConflict, message)
}

func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return newAppError(ErrorTypeUnauthorized, message)
}

func NewForbiddenError(message string) *AppError {
	if message == "" {
		message = "forbidden"
	}
	return newAppError(ErrorTypeForbidden, message)
}

func NewInternalError(message string) *AppError {
	return newAppError(ErrorTypeInternal, message)
}

// NewDatabaseError wraps a storage failure for the named operation
func NewDatabaseError(operation string, err error) *AppError {
	return newAppError(ErrorTypeDatabase, fmt.Sprintf("database operation %q failed", operation)).WithCause(err)
}

// GetAppError finds the first AppError in err's chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType reports whether err's chain holds an AppError of the given type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

func IsNotFound(err error) bool   { return IsType(err, ErrorTypeNotFound) }
func IsValidation(err error) bool { return IsType(err, ErrorTypeValidation) }
func IsConflict(err error) bool   { return IsType(err, ErrorTypeConflict) }
func IsForbidden(err error) bool  { return IsType(err, ErrorTypeForbidden) }
