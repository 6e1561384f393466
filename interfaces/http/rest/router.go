package rest

import (
	"net/http"
	"strings"

	"jarvis-backend/application/commands/bus"
	querybus "jarvis-backend/application/queries/bus"
	"jarvis-backend/domain/core/entities"
	"jarvis-backend/interfaces/http/rest/handlers"
	"jarvis-backend/interfaces/http/rest/middleware"
	"jarvis-backend/pkg/auth"
	pkgerrors "jarvis-backend/pkg/errors"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// StreamHandlers serve the websocket endpoints. Either may be nil when the
// deployment has no local websocket server (Lambda).
type StreamHandlers struct {
	GraphStream http.HandlerFunc
	Live        http.HandlerFunc
}

// RouterConfig holds the router's collaborators
type RouterConfig struct {
	CommandBus  *bus.CommandBus
	QueryBus    *querybus.QueryBus
	Tokens      *auth.JWTService
	IPLimiter   auth.RateLimiter
	UserLimiter auth.RateLimiter
	Errors      *pkgerrors.ErrorHandler
	Metrics     middleware.HTTPObserver
	Registry    *prometheus.Registry
	Streams     StreamHandlers
	EnableCORS  bool
	Ready       func() error
	Logger      *zap.Logger
}

// Router creates and configures the HTTP router
type Router struct {
	cfg RouterConfig
}

// NewRouter creates a new router instance
func NewRouter(cfg RouterConfig) *Router {
	return &Router{cfg: cfg}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	cfg := rt.cfg
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(cfg.Errors.Middleware)
	router.Use(middleware.Logger(cfg.Logger, cfg.Metrics))
	router.Use(versionMiddleware)

	if cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173", "https://*.jarvis.ai"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if cfg.Registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	// API v1 routes (legacy - redirects to v2)
	router.Route("/api/v1", func(r chi.Router) {
		r.HandleFunc("/*", func(w http.ResponseWriter, req *http.Request) {
			http.Redirect(w, req, strings.Replace(req.URL.Path, "/api/v1", "/api/v2", 1), http.StatusPermanentRedirect)
		})
	})

	authHandler := handlers.NewAuthHandler(cfg.CommandBus, cfg.QueryBus, cfg.Tokens, cfg.Errors, cfg.Logger)
	sessionHandler := handlers.NewSessionHandler(cfg.CommandBus, cfg.QueryBus, cfg.Errors, cfg.Logger)
	adminHandler := handlers.NewAdminHandler(cfg.QueryBus, cfg.Errors)
	rateLimit := middleware.RateLimit(cfg.IPLimiter, cfg.UserLimiter, cfg.Errors, cfg.Logger)

	router.Route("/api/v2", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rateLimit)
			r.Post("/auth/signup", authHandler.Signup)
			r.Post("/auth/login", authHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(cfg.Tokens, cfg.Errors, cfg.Logger))
			r.Use(rateLimit)

			r.Route("/sessions", func(r chi.Router) {
				r.Post("/", sessionHandler.StartSession)
				r.Get("/", sessionHandler.ListSessions)

				r.Route("/{sessionID}", func(r chi.Router) {
					r.Get("/", sessionHandler.GetSession)
					r.Delete("/", sessionHandler.EndSession)
					r.Post("/messages", sessionHandler.SendMessage)
					r.Get("/messages", sessionHandler.SearchMessages)
					r.Post("/clear", sessionHandler.ClearHistory)
					r.Put("/mode", sessionHandler.SetMode)
					r.Get("/graph", sessionHandler.GetConceptGraph)
					if cfg.Streams.GraphStream != nil {
						r.Get("/graph/stream", cfg.Streams.GraphStream)
					}
					if cfg.Streams.Live != nil {
						r.Get("/live", cfg.Streams.Live)
					}
				})
			})

			r.With(middleware.RequireRole(cfg.Errors, string(entities.RoleAdmin))).
				Get("/admin/stats", adminHandler.GetStats)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	if rt.cfg.Ready != nil {
		if err := rt.cfg.Ready(); err != nil {
			rt.cfg.Errors.HandleStatus(w, req, http.StatusServiceUnavailable, err.Error())
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// versionMiddleware adds API version headers to all responses
func versionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		version := "v2"
		if strings.HasPrefix(r.URL.Path, "/api/v1") {
			version = "v1"
		}

		w.Header().Set("X-API-Version", version)
		w.Header().Set("X-API-Latest", "v2")
		w.Header().Set("X-API-Deprecated", "false")
		if version == "v1" {
			w.Header().Set("X-API-Deprecated", "true")
		}

		next.ServeHTTP(w, r)
	})
}
