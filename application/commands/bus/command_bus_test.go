package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingCommand struct {
	Name string
}

func (c pingCommand) Validate() error {
	if c.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

type fakeMetrics struct {
	counts    map[string]int
	durations []string
}

func (m *fakeMetrics) Increment(metric, label string) {
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[metric+"/"+label]++
}

func (m *fakeMetrics) ObserveDuration(metric, label string, d time.Duration) {
	m.durations = append(m.durations, metric+"/"+label)
}

type fakeTracer struct {
	names       []string
	annotations []string
	finished    []error
}

func (t *fakeTracer) Annotate(ctx context.Context, key, value string) {
	t.annotations = append(t.annotations, key+"="+value)
}

func (t *fakeTracer) Trace(ctx context.Context, name string) (context.Context, func(error)) {
	t.names = append(t.names, name)
	return ctx, func(err error) { t.finished = append(t.finished, err) }
}

func TestCommandBus_Dispatch(t *testing.T) {
	commandBus := NewCommandBus()
	var handled pingCommand
	require.NoError(t, commandBus.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		handled = cmd.(pingCommand)
		return nil
	})))

	require.NoError(t, commandBus.Send(context.Background(), pingCommand{Name: "hello"}))
	assert.Equal(t, "hello", handled.Name)
}

func TestCommandBus_Errors(t *testing.T) {
	commandBus := NewCommandBus()
	boom := errors.New("boom")
	require.NoError(t, commandBus.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		return boom
	})))

	err := commandBus.Register(pingCommand{}, CommandHandlerFunc(func(context.Context, Command) error { return nil }))
	assert.ErrorIs(t, err, ErrDuplicateHandler)

	err = commandBus.Send(context.Background(), pingCommand{})
	assert.ErrorContains(t, err, "command validation failed")

	err = commandBus.Send(context.Background(), pingCommand{Name: "x"})
	assert.ErrorIs(t, err, boom)

	err = NewCommandBus().Send(context.Background(), pingCommand{Name: "x"})
	assert.ErrorIs(t, err, ErrHandlerNotFound)
}

func TestCommandBus_MiddlewareOrderAndObservability(t *testing.T) {
	var order []string
	trace := func(name string) Middleware {
		return func(next CommandHandler) CommandHandler {
			return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
				order = append(order, name)
				return next.Handle(ctx, cmd)
			})
		}
	}
	metrics := &fakeMetrics{}
	tracer := &fakeTracer{}

	commandBus := NewCommandBus(trace("outer"), trace("inner"), MetricsMiddleware(metrics), TracingMiddleware(tracer))
	require.NoError(t, commandBus.Register(pingCommand{}, CommandHandlerFunc(func(context.Context, Command) error {
		order = append(order, "handler")
		return nil
	})))

	require.NoError(t, commandBus.Send(context.Background(), pingCommand{Name: "x"}))

	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
	assert.Equal(t, 1, metrics.counts["command_success/pingCommand"])
	assert.Equal(t, []string{"command_duration/pingCommand"}, metrics.durations)
	assert.Equal(t, []string{"command.pingCommand"}, tracer.names)
	assert.Equal(t, []string{"command=pingCommand"}, tracer.annotations)
	assert.Equal(t, []error{nil}, tracer.finished)
}

func TestTimeoutMiddleware_BoundsContext(t *testing.T) {
	commandBus := NewCommandBus(TimeoutMiddleware(20 * time.Millisecond))
	require.NoError(t, commandBus.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		<-ctx.Done()
		return ctx.Err()
	})))

	err := commandBus.Send(context.Background(), pingCommand{Name: "slow"})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
