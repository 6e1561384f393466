package config

import "time"

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Concept graph extraction
	KeywordMinLength   int // tokens must be strictly longer than this
	MaxKeywordsPerTurn int
	DefaultNodeGroup   int
	DefaultLinkWeight  float64

	// Session constraints
	MaxMessageLength int
	SessionTimeout   time.Duration

	// Diagram triggers (matched against the lowercased user message)
	DiagramTriggers []string

	// Render surface layout hints
	LayoutWidth      int
	LayoutHeight     int
	LinkDistance     float64
	ManyBodyStrength float64
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		KeywordMinLength:   5,
		MaxKeywordsPerTurn: 3,
		DefaultNodeGroup:   1,
		DefaultLinkWeight:  1,

		MaxMessageLength: 20000,
		SessionTimeout:   24 * time.Hour,

		DiagramTriggers: []string{"picture", "diagram"},

		LayoutWidth:      300,
		LayoutHeight:     300,
		LinkDistance:     60,
		ManyBodyStrength: -100,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()
	config.MaxMessageLength = 8000
	config.SessionTimeout = 4 * time.Hour
	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}
