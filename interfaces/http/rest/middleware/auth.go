package middleware

import (
	"errors"
	"net/http"
	"strings"

	"jarvis-backend/pkg/auth"
	pkgerrors "jarvis-backend/pkg/errors"

	"go.uber.org/zap"
)

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// Authenticate validates the bearer token (Authorization header, auth_token
// cookie or ?token= for websocket upgrades) and puts the caller in the context
func Authenticate(validator TokenValidator, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError("Missing authentication token"))
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.Debug("Invalid token",
					zap.Error(err),
					zap.String("path", r.URL.Path),
				)
				switch {
				case errors.Is(err, auth.ErrExpiredToken):
					errs.Handle(w, r, pkgerrors.NewUnauthorizedError("Token has expired"))
				case errors.Is(err, auth.ErrInvalidSignature):
					errs.Handle(w, r, pkgerrors.NewUnauthorizedError("Invalid token signature"))
				default:
					errs.Handle(w, r, pkgerrors.NewUnauthorizedError("Invalid token"))
				}
				return
			}

			ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{
				UserID: claims.UserID,
				Email:  claims.Email,
				Roles:  claims.Roles,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects callers holding none of roles
func RequireRole(errs *pkgerrors.ErrorHandler, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := auth.GetUserFromContext(r.Context())
			if err != nil {
				errs.Handle(w, r, pkgerrors.NewUnauthorizedError("Unauthorized"))
				return
			}

			for _, role := range roles {
				if user.HasRole(role) {
					next.ServeHTTP(w, r)
					return
				}
			}
			errs.Handle(w, r, pkgerrors.NewForbiddenError("Insufficient permissions"))
		})
	}
}

// RateLimit limits requests per client IP, and per user once authenticated.
// Limiter errors fail open.
func RateLimit(ipLimiter, userLimiter auth.RateLimiter, errs *pkgerrors.ErrorHandler, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := getClientIP(r)
			limiter := ipLimiter
			if user, err := auth.GetUserFromContext(r.Context()); err == nil {
				key = user.UserID
				limiter = userLimiter
			}

			allowed, err := limiter.Allow(r.Context(), key)
			if err != nil {
				logger.Warn("Rate limiter error", zap.Error(err))
			}
			if !allowed {
				errs.HandleStatus(w, r, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// extractToken extracts the JWT token from multiple sources
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
		return authHeader
	}

	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}

	return r.URL.Query().Get("token")
}

// getClientIP extracts the client IP address
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 {
		return addr[:idx]
	}
	return addr
}
