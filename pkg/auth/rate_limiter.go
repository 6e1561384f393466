package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// RateLimiter decides whether one more request for key fits the limit
type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// SlidingWindowLimiter allows at most limit requests per key in any window
type SlidingWindowLimiter struct {
	mu         sync.Mutex
	windows    map[string][]time.Time
	limit      int
	windowSize time.Duration
	now        func() time.Time
}

// NewSlidingWindowLimiter creates a new in-process sliding window limiter
func NewSlidingWindowLimiter(limit int, windowSize time.Duration) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		windows:    make(map[string][]time.Time),
		limit:      limit,
		windowSize: windowSize,
		now:        time.Now,
	}
}

// Allow records the request if it fits
func (l *SlidingWindowLimiter) Allow(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	windowStart := now.Add(-l.windowSize)

	requests := l.windows[key][:0]
	for _, t := range l.windows[key] {
		if t.After(windowStart) {
			requests = append(requests, t)
		}
	}

	if len(requests) >= l.limit {
		l.windows[key] = requests
		return false, nil
	}
	l.windows[key] = append(requests, now)
	return true, nil
}

// Prune drops keys with no request inside the window
func (l *SlidingWindowLimiter) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	windowStart := l.now().Add(-l.windowSize)
	for key, requests := range l.windows {
		if len(requests) == 0 || !requests[len(requests)-1].After(windowStart) {
			delete(l.windows, key)
		}
	}
}

// KeyedLimiter namespaces keys so one limiter can serve IPs and users alike
type KeyedLimiter struct {
	prefix  string
	limiter RateLimiter
}

// NewKeyedLimiter creates a limiter whose keys are prefixed with prefix
func NewKeyedLimiter(prefix string, limiter RateLimiter) *KeyedLimiter {
	return &KeyedLimiter{prefix: prefix, limiter: limiter}
}

// Allow checks the prefixed key
func (l *KeyedLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return l.limiter.Allow(ctx, fmt.Sprintf("%s:%s", l.prefix, key))
}
