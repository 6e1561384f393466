package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error     bool   `json:"error"`
	Type      string `json:"type"`
	Message   string `json:"message"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Stack     string `json:"stack,omitempty"`
}

// ErrorHandler renders errors as JSON and logs them by severity
type ErrorHandler struct {
	logger *zap.Logger
	debug  bool
}

// NewErrorHandler creates an error handler; debug exposes causes and stacks
func NewErrorHandler(logger *zap.Logger, debug bool) *ErrorHandler {
	return &ErrorHandler{logger: logger, debug: debug}
}

// Handle writes the response for err
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	appErr := GetAppError(err)
	if appErr == nil {
		appErr = &AppError{Type: ErrorTypeInternal, Message: "an internal error occurred", Cause: err}
	}
	status := appErr.Status()

	response := ErrorResponse{
		Error:     true,
		Type:      string(appErr.Type),
		Message:   appErr.Message,
		Code:      appErr.Code,
		RequestID: r.Header.Get("X-Request-ID"),
	}
	if h.debug {
		if appErr.Cause != nil && status >= http.StatusInternalServerError {
			response.Message = fmt.Sprintf("%s: %v", appErr.Message, appErr.Cause)
		}
		response.Stack = appErr.stack
	}

	fields := []zap.Field{
		zap.String("errorType", string(appErr.Type)),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("requestID", response.RequestID),
	}
	if appErr.Code != "" {
		fields = append(fields, zap.String("code", appErr.Code))
	}
	if appErr.Cause != nil {
		fields = append(fields, zap.Error(appErr.Cause))
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error(appErr.Message, fields...)
	} else {
		h.logger.Warn(appErr.Message, fields...)
	}

	h.write(w, status, response)
}

// HandleStatus writes a plain error for status without an underlying error
func (h *ErrorHandler) HandleStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	h.logger.Warn("Request rejected",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("message", message),
	)
	h.write(w, status, ErrorResponse{
		Error:     true,
		Type:      string(typeForStatus(status)),
		Message:   message,
		RequestID: r.Header.Get("X-Request-ID"),
	})
}

// Middleware turns handler panics into 500 responses
func (h *ErrorHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.Handle(w, r, NewInternalError(fmt.Sprintf("panic: %v", rec)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *ErrorHandler) write(w http.ResponseWriter, status int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}
