package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"jarvis-backend/pkg/auth"
	pkgerrors "jarvis-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubValidator struct {
	claims *auth.Claims
	err    error
	seen   string
}

func (s *stubValidator) ValidateToken(token string) (*auth.Claims, error) {
	s.seen = token
	return s.claims, s.err
}

type stubLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (s *stubLimiter) Allow(ctx context.Context, key string) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.err
}

type observation struct {
	method string
	route  string
	status int
}

type recordingObserver struct {
	observed []observation
}

func (o *recordingObserver) ObserveHTTP(method, route string, status int, duration time.Duration) {
	o.observed = append(o.observed, observation{method: method, route: route, status: status})
}

func errorHandler() *pkgerrors.ErrorHandler {
	return pkgerrors.NewErrorHandler(zap.NewNop(), false)
}

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body.Message
}

func TestAuthenticate_TokenSources(t *testing.T) {
	tests := []struct {
		name    string
		prepare func(r *http.Request)
		want    string
	}{
		{
			name:    "bearer header",
			prepare: func(r *http.Request) { r.Header.Set("Authorization", "Bearer abc") },
			want:    "abc",
		},
		{
			name:    "cookie",
			prepare: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "auth_token", Value: "from-cookie"}) },
			want:    "from-cookie",
		},
		{
			name: "query parameter",
			prepare: func(r *http.Request) {
				q := r.URL.Query()
				q.Set("token", "from-query")
				r.URL.RawQuery = q.Encode()
			},
			want: "from-query",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := &stubValidator{claims: &auth.Claims{UserID: "u1", Email: "u1@example.com", Roles: []string{"STUDENT"}}}
			var got *auth.UserContext
			handler := Authenticate(validator, errorHandler(), zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = auth.GetUserFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, validator.seen)
			require.NotNil(t, got)
			assert.Equal(t, "u1", got.UserID)
		})
	}
}

func TestAuthenticate_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		header      string
		err         error
		wantMessage string
	}{
		{name: "missing", wantMessage: "Missing authentication token"},
		{name: "expired", header: "Bearer x", err: auth.ErrExpiredToken, wantMessage: "Token has expired"},
		{name: "bad signature", header: "Bearer x", err: auth.ErrInvalidSignature, wantMessage: "Invalid token signature"},
		{name: "garbage", header: "Bearer x", err: errors.New("malformed"), wantMessage: "Invalid token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := Authenticate(&stubValidator{err: tt.err}, errorHandler(), zap.NewNop())(http.HandlerFunc(okHandler))
			req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, tt.wantMessage, errorMessage(t, rec))
		})
	}
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(errorHandler(), "ADMIN")(http.HandlerFunc(okHandler))

	tests := []struct {
		name   string
		user   *auth.UserContext
		status int
	}{
		{name: "no user", status: http.StatusUnauthorized},
		{name: "student", user: &auth.UserContext{UserID: "u1", Roles: []string{"STUDENT"}}, status: http.StatusForbidden},
		{name: "admin", user: &auth.UserContext{UserID: "admin1", Roles: []string{"ADMIN"}}, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/stats", nil)
			if tt.user != nil {
				req = req.WithContext(auth.SetUserInContext(req.Context(), tt.user))
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRateLimit_KeysByUserOrIP(t *testing.T) {
	ipLimiter := &stubLimiter{allowed: true}
	userLimiter := &stubLimiter{allowed: true}
	handler := RateLimit(ipLimiter, userLimiter, errorHandler(), zap.NewNop())(http.HandlerFunc(okHandler))

	anonymous := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	anonymous.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), anonymous)

	authed := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	authed = authed.WithContext(auth.SetUserInContext(authed.Context(), &auth.UserContext{UserID: "u1"}))
	handler.ServeHTTP(httptest.NewRecorder(), authed)

	assert.Equal(t, []string{"203.0.113.7"}, ipLimiter.keys)
	assert.Equal(t, []string{"u1"}, userLimiter.keys)
}

func TestRateLimit_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		limiter *stubLimiter
		status  int
	}{
		{name: "allowed", limiter: &stubLimiter{allowed: true}, status: http.StatusOK},
		{name: "limited", limiter: &stubLimiter{allowed: false}, status: http.StatusTooManyRequests},
		{name: "limiter failure fails open", limiter: &stubLimiter{allowed: true, err: errors.New("throttled")}, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RateLimit(tt.limiter, tt.limiter, errorHandler(), zap.NewNop())(http.HandlerFunc(okHandler))
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestLogger_ObservesRoutePattern(t *testing.T) {
	observer := &recordingObserver{}
	router := chi.NewRouter()
	router.Use(Logger(zap.NewNop(), observer))
	router.Get("/sessions/{sessionID}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sessions/abc", nil))

	require.Len(t, observer.observed, 1)
	assert.Equal(t, observation{method: http.MethodGet, route: "/sessions/{sessionID}", status: http.StatusAccepted}, observer.observed[0])
}
