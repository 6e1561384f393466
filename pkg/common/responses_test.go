package common

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "jarvis-backend/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	RespondJSON(rec, http.StatusCreated, map[string]string{"id": "s1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":"s1"}`, rec.Body.String())
}

func TestParseJSONBody(t *testing.T) {
	type body struct {
		Content string `json:"content"`
	}

	tests := []struct {
		name    string
		payload string
		limit   int64
		wantErr bool
	}{
		{name: "valid", payload: `{"content":"hello"}`, limit: 1024},
		{name: "unknown field", payload: `{"content":"hello","extra":1}`, limit: 1024, wantErr: true},
		{name: "malformed", payload: `{"content":`, limit: 1024, wantErr: true},
		{name: "too large", payload: `{"content":"` + strings.Repeat("a", 64) + `"}`, limit: 16, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.payload))
			var got body

			err := ParseJSONBody(httptest.NewRecorder(), req, &got, tt.limit)

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, pkgerrors.IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "hello", got.Content)
		})
	}
}
