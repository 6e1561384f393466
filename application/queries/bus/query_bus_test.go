package bus

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countQuery struct {
	Key string
}

func (q countQuery) Validate() error {
	if q.Key == "" {
		return errors.New("key is required")
	}
	return nil
}

type mapCache struct {
	mu    sync.Mutex
	items map[string]interface{}
	ttls  []time.Duration
}

func (c *mapCache) Get(ctx context.Context, key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.items == nil {
		c.items = make(map[string]interface{})
	}
	c.items[key] = value
	c.ttls = append(c.ttls, ttl)
	return nil
}

type stopCounter struct{ stops *int }

func (s stopCounter) Stop() { *s.stops++ }

type fakeMetrics struct {
	counts map[string]int
	stops  int
}

func (m *fakeMetrics) StartTimer(metric, label string) Timer {
	return stopCounter{stops: &m.stops}
}

func (m *fakeMetrics) Increment(metric, label string) {
	if m.counts == nil {
		m.counts = make(map[string]int)
	}
	m.counts[metric+"/"+label]++
}

func TestQueryBus_CachingMiddleware(t *testing.T) {
	calls := 0
	handler := QueryHandlerFunc(func(ctx context.Context, query Query) (interface{}, error) {
		calls++
		return calls, nil
	})
	cache := &mapCache{}
	queryBus := NewQueryBus()
	require.NoError(t, queryBus.Register(countQuery{}, handler, NewCachingMiddleware(cache, time.Minute)))

	first, err := queryBus.Ask(context.Background(), countQuery{Key: "a"})
	require.NoError(t, err)
	second, err := queryBus.Ask(context.Background(), countQuery{Key: "a"})
	require.NoError(t, err)
	third, err := queryBus.Ask(context.Background(), countQuery{Key: "b"})
	require.NoError(t, err)

	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
	assert.Equal(t, 2, third)
	assert.Equal(t, []time.Duration{time.Minute, time.Minute}, cache.ttls)
}

func TestQueryBus_ErrorsAreNotCached(t *testing.T) {
	boom := errors.New("boom")
	cache := &mapCache{}
	queryBus := NewQueryBus()
	require.NoError(t, queryBus.Register(countQuery{}, QueryHandlerFunc(func(context.Context, Query) (interface{}, error) {
		return nil, boom
	}), NewCachingMiddleware(cache, time.Minute)))

	_, err := queryBus.Ask(context.Background(), countQuery{Key: "a"})

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, cache.items)
}

func TestQueryBus_Errors(t *testing.T) {
	queryBus := NewQueryBus()
	noop := QueryHandlerFunc(func(context.Context, Query) (interface{}, error) { return nil, nil })
	require.NoError(t, queryBus.Register(countQuery{}, noop))

	assert.ErrorIs(t, queryBus.Register(countQuery{}, noop), ErrDuplicateHandler)

	_, err := queryBus.Ask(context.Background(), countQuery{})
	assert.ErrorContains(t, err, "query validation failed")

	_, err = NewQueryBus().Ask(context.Background(), countQuery{Key: "a"})
	assert.ErrorIs(t, err, ErrHandlerNotFound)
}

func TestMetricsMiddleware(t *testing.T) {
	metrics := &fakeMetrics{}
	fail := true
	queryBus := NewQueryBus(NewMetricsMiddleware(metrics))
	require.NoError(t, queryBus.Register(countQuery{}, QueryHandlerFunc(func(context.Context, Query) (interface{}, error) {
		if fail {
			return nil, errors.New("boom")
		}
		return "ok", nil
	})))

	_, _ = queryBus.Ask(context.Background(), countQuery{Key: "a"})
	fail = false
	_, _ = queryBus.Ask(context.Background(), countQuery{Key: "a"})

	assert.Equal(t, 2, metrics.counts["query_count/countQuery"])
	assert.Equal(t, 1, metrics.counts["query_errors/countQuery"])
	assert.Equal(t, 1, metrics.counts["query_success/countQuery"])
	assert.Equal(t, 2, metrics.stops)
}
