package gemini

import (
	"context"
	"errors"
	"time"

	"jarvis-backend/application/ports"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// BreakerSettings tunes when the conversation backend is considered down
type BreakerSettings struct {
	MaxRequests      uint32        // probes allowed while half-open
	Interval         time.Duration // closed-state window for the failure counts
	Timeout          time.Duration // open-state cool down
	MinRequests      uint32
	FailureThreshold float64
}

// DefaultBreakerSettings trips after 5 requests with at least 60% failures
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		MinRequests:      5,
		FailureThreshold: 0.6,
	}
}

// BreakerBackend stops calling a failing conversation backend for a while.
// While open, calls fail with gobreaker.ErrOpenState and the tutor answers
// with its fallback reply.
type BreakerBackend struct {
	next    ports.ConversationBackend
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerBackend wraps next in a circuit breaker
func NewBreakerBackend(next ports.ConversationBackend, settings BreakerSettings, logger *zap.Logger) *BreakerBackend {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "gemini",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < settings.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= settings.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Conversation backend circuit changed state",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: countsAsHealthy,
	})
	return &BreakerBackend{next: next, breaker: breaker}
}

// countsAsHealthy keeps configuration and caller cancellations out of the failure ratio
func countsAsHealthy(err error) bool {
	return err == nil ||
		errors.Is(err, ports.ErrMissingAPIKey) ||
		errors.Is(err, context.Canceled)
}

// SendMessage forwards to the wrapped backend unless the circuit is open
func (b *BreakerBackend) SendMessage(ctx context.Context, req ports.ChatRequest) (string, error) {
	reply, err := b.breaker.Execute(func() (interface{}, error) {
		return b.next.SendMessage(ctx, req)
	})
	if err != nil {
		return "", err
	}
	return reply.(string), nil
}

// GenerateDiagram forwards to the wrapped backend unless the circuit is open
func (b *BreakerBackend) GenerateDiagram(ctx context.Context, prompt string) (ports.DiagramResult, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.next.GenerateDiagram(ctx, prompt)
	})
	if err != nil {
		return ports.DiagramResult{}, err
	}
	return result.(ports.DiagramResult), nil
}

// State reports the breaker state, e.g. "closed" or "open"
func (b *BreakerBackend) State() string {
	return b.breaker.State().String()
}
