package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion        string
	UserStore        string // memory | dynamodb
	UsersTable       string
	ConnectionsTable string
	ConnectionsIndex string // GSI1 - connections by session
	EventBusName     string // empty publishes to the log only
	EventsTable      string // empty keeps no session event trail
	RateLimitTable   string // empty keeps rate limiting in process

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// WebSocket configuration
	WebSocketEndpoint string

	// Authentication
	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	// Conversation backend
	GeminiAPIKey     string
	GeminiFlashModel string
	GeminiProModel   string
	GeminiImageModel string
	GeminiLiveModel  string
	GeminiVoice      string
	AITimeout        time.Duration

	// Rendering
	Theme string

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Feature flags
	EnableMetrics bool
	EnableTracing bool
	EnableCORS    bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:    getEnv("SERVER_ADDRESS", ":8080"),
		Environment:      getEnv("ENVIRONMENT", "development"),
		AWSRegion:        getEnv("AWS_REGION", "us-west-2"),
		UserStore:        getEnv("USER_STORE", "memory"),
		UsersTable:       getEnv("USERS_TABLE", "jarvis-users"),
		ConnectionsTable: getEnv("CONNECTIONS_TABLE", "jarvis-connections"),
		ConnectionsIndex: getEnv("CONNECTIONS_INDEX", "SessionIndex"),
		EventBusName:     getEnv("EVENT_BUS_NAME", ""),
		EventsTable:      getEnv("EVENTS_TABLE", ""),
		RateLimitTable:   getEnv("RATE_LIMIT_TABLE", ""),

		// Lambda configuration
		IsLambda:           getEnvBool("IS_LAMBDA", false),
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		// WebSocket configuration
		WebSocketEndpoint: getEnv("WEBSOCKET_ENDPOINT", ""),

		// Authentication
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "jarvis-backend"),
		TokenTTL:  time.Duration(getEnvInt("TOKEN_TTL_HOURS", 24)) * time.Hour,

		// Conversation backend
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", getEnv("API_KEY", "")),
		GeminiFlashModel: getEnv("GEMINI_FLASH_MODEL", "gemini-2.5-flash"),
		GeminiProModel:   getEnv("GEMINI_PRO_MODEL", "gemini-3-pro-preview"),
		GeminiImageModel: getEnv("GEMINI_IMAGE_MODEL", "gemini-3-pro-image-preview"),
		GeminiLiveModel:  getEnv("GEMINI_LIVE_MODEL", "gemini-2.5-flash-native-audio-preview-09-2025"),
		GeminiVoice:      getEnv("GEMINI_VOICE", "Kore"),
		AITimeout:        time.Duration(getEnvInt("AI_TIMEOUT_SECONDS", 60)) * time.Second,

		Theme: getEnv("THEME", "dark"),

		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(getEnvInt("RATE_LIMIT_WINDOW_SECONDS", 60)) * time.Second,

		// Logging and features
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", false),
		EnableTracing: getEnvBool("ENABLE_TRACING", false),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.UserStore {
	case "memory", "dynamodb":
	default:
		return fmt.Errorf("USER_STORE must be memory or dynamodb, got %q", c.UserStore)
	}
	if c.UserStore == "dynamodb" && c.UsersTable == "" {
		return fmt.Errorf("USERS_TABLE is required for the dynamodb user store")
	}
	switch c.Theme {
	case "dark", "light":
	default:
		return fmt.Errorf("THEME must be dark or light, got %q", c.Theme)
	}
	if c.AITimeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT_SECONDS must be positive")
	}

	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
	}

	return nil
}

// SigningSecret is the JWT secret, with a fixed fallback outside production
func (c *Config) SigningSecret() string {
	if c.JWTSecret == "" && !c.IsProduction() {
		return "jarvis-development-secret"
	}
	return c.JWTSecret
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
