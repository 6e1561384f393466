package bus

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// Command represents a command that changes state
type Command interface {
	Validate() error
}

// CommandHandler handles a specific command type
type CommandHandler interface {
	Handle(ctx context.Context, cmd Command) error
}

// CommandBus routes tutoring commands (send message, clear history...) to one handler per type
type CommandBus struct {
	handlers    map[reflect.Type]CommandHandler
	middlewares []Middleware
	mu          sync.RWMutex
}

// NewCommandBus creates a new command bus
func NewCommandBus(middlewares ...Middleware) *CommandBus {
	return &CommandBus{
		handlers:    make(map[reflect.Type]CommandHandler),
		middlewares: middlewares,
	}
}

// Register binds handler to the concrete type of cmdType, wrapped in the bus middleware
func (b *CommandBus) Register(cmdType Command, handler CommandHandler) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := reflect.TypeOf(cmdType)
	if _, exists := b.handlers[t]; exists {
		return fmt.Errorf("handler already registered for command type %s: %w", t.Name(), ErrDuplicateHandler)
	}

	b.handlers[t] = chain(handler, b.middlewares)
	return nil
}

// Send validates cmd and runs its handler
func (b *CommandBus) Send(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("command validation failed: %w", err)
	}

	b.mu.RLock()
	handler, exists := b.handlers[reflect.TypeOf(cmd)]
	b.mu.RUnlock()

	if !exists {
		return fmt.Errorf("no handler registered for command type %T: %w", cmd, ErrHandlerNotFound)
	}

	if err := handler.Handle(ctx, cmd); err != nil {
		return fmt.Errorf("command handler failed: %w", err)
	}

	return nil
}

// Middleware defines command middleware
type Middleware func(next CommandHandler) CommandHandler

// CommandHandlerFunc is an adapter to allow functions to be used as handlers
type CommandHandlerFunc func(ctx context.Context, cmd Command) error

// Handle implements CommandHandler
func (f CommandHandlerFunc) Handle(ctx context.Context, cmd Command) error {
	return f(ctx, cmd)
}

// LoggingMiddleware logs command execution
func LoggingMiddleware(logger Logger) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			cmdType := reflect.TypeOf(cmd).Name()
			start := time.Now()

			err := next.Handle(ctx, cmd)
			if err != nil {
				logger.Error("Command failed", "type", cmdType, "error", err, "duration", time.Since(start))
			} else {
				logger.Info("Command succeeded", "type", cmdType, "duration", time.Since(start))
			}

			return err
		})
	}
}

// TimeoutMiddleware bounds command execution. Conversation backend calls
// happen inside SendMessage, so this is the outer limit on a chat turn.
func TimeoutMiddleware(timeout time.Duration) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			if timeout <= 0 {
				return next.Handle(ctx, cmd)
			}
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next.Handle(ctx, cmd)
		})
	}
}

// TracingMiddleware opens a trace segment per command
func TracingMiddleware(tracer Tracer) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			name := reflect.TypeOf(cmd).Name()
			ctx, finish := tracer.Trace(ctx, "command."+name)
			tracer.Annotate(ctx, "command", name)
			err := next.Handle(ctx, cmd)
			finish(err)
			return err
		})
	}
}

// MetricsMiddleware counts command outcomes and records their duration
func MetricsMiddleware(metrics Metrics) Middleware {
	return func(next CommandHandler) CommandHandler {
		return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
			cmdType := reflect.TypeOf(cmd).Name()
			start := time.Now()

			err := next.Handle(ctx, cmd)
			metrics.ObserveDuration("command_duration", cmdType, time.Since(start))
			if err != nil {
				metrics.Increment("command_errors", cmdType)
			} else {
				metrics.Increment("command_success", cmdType)
			}
			return err
		})
	}
}

// Metrics records command counters and durations
type Metrics interface {
	Increment(metric, label string)
	ObserveDuration(metric, label string, d time.Duration)
}

// Logger takes alternating key/value pairs
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// Tracer starts a named segment; finish records the outcome and closes it
type Tracer interface {
	Trace(ctx context.Context, name string) (context.Context, func(error))
	Annotate(ctx context.Context, key, value string)
}

// chain wraps handler so that middlewares[0] runs first
func chain(handler CommandHandler, middlewares []Middleware) CommandHandler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

var (
	ErrHandlerNotFound  = errors.New("command handler not found")
	ErrDuplicateHandler = errors.New("command handler already registered")
)
