package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAppError_StatusAndPredicates(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
		check  func(error) bool
	}{
		{name: "validation", err: NewValidationError("bad mode"), status: http.StatusBadRequest, check: IsValidation},
		{name: "not found", err: NewNotFoundError("session"), status: http.StatusNotFound, check: IsNotFound},
		{name: "conflict", err: NewConflictError("taken"), status: http.StatusConflict, check: IsConflict},
		{name: "forbidden", err: NewForbiddenError(""), status: http.StatusForbidden, check: IsForbidden},
		{name: "unauthorized", err: NewUnauthorizedError(""), status: http.StatusUnauthorized},
		{name: "database", err: NewDatabaseError("get user", fmt.Errorf("timeout")), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status())
			if tt.check != nil {
				wrapped := fmt.Errorf("handler: %w", tt.err)
				assert.True(t, tt.check(wrapped))
			}
		})
	}

	assert.Equal(t, "session not found", NewNotFoundError("session").Message)
	assert.False(t, IsNotFound(fmt.Errorf("plain")))
}

func TestErrorHandler_Handle(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		debug    bool
		status   int
		wantType string
		wantMsg  string
		wantCode string
	}{
		{
			name:     "app error keeps message and code",
			err:      NewNotFoundError("session").WithCode("SESSION_NOT_FOUND"),
			status:   http.StatusNotFound,
			wantType: "NOT_FOUND",
			wantMsg:  "session not found",
			wantCode: "SESSION_NOT_FOUND",
		},
		{
			name:     "plain error is hidden",
			err:      fmt.Errorf("dial tcp: refused"),
			status:   http.StatusInternalServerError,
			wantType: "INTERNAL",
			wantMsg:  "an internal error occurred",
		},
		{
			name:     "debug exposes the cause",
			err:      fmt.Errorf("dial tcp: refused"),
			debug:    true,
			status:   http.StatusInternalServerError,
			wantType: "INTERNAL",
			wantMsg:  "an internal error occurred: dial tcp: refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewErrorHandler(zap.NewNop(), tt.debug)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/sessions/x", nil)
			req.Header.Set("X-Request-ID", "req-1")

			handler.Handle(rec, req, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.True(t, body.Error)
			assert.Equal(t, tt.wantType, body.Type)
			assert.Equal(t, tt.wantMsg, body.Message)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, "req-1", body.RequestID)
		})
	}
}

func TestErrorHandler_HandleStatusAndPanics(t *testing.T) {
	handler := NewErrorHandler(zap.NewNop(), false)

	rec := httptest.NewRecorder()
	handler.HandleStatus(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusTooManyRequests, "Rate limit exceeded")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"RATE_LIMIT"`)

	rec = httptest.NewRecorder()
	panicking := handler.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	panicking.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "panic: boom")
}
