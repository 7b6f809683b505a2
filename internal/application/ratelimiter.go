package application

import (
	"math"
	"sync"
	"time"
)

const (
	// DefaultRateLimit is the number of requests allowed per window.
	DefaultRateLimit = 10
	// DefaultRateWindow is the fixed window length.
	DefaultRateWindow = 60 * time.Second

	minSweepInterval = time.Minute
)

type rateWindow struct {
	start time.Time
	count int
}

// RateLimiter is a fixed-window request counter keyed by client identity.
// Expired windows are swept in the background until Close is called.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]rateWindow
	limit   int
	window  time.Duration
	now     func() time.Time
	stopCh  chan struct{}
	once    sync.Once
}

// RateLimiterOption configures a RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithClock replaces the wall clock, for tests.
func WithClock(now func() time.Time) RateLimiterOption {
	return func(l *RateLimiter) { l.now = now }
}

// NewRateLimiter creates a limiter admitting limit requests per window and
// starts its sweep goroutine. Non-positive arguments fall back to the defaults.
func NewRateLimiter(limit int, window time.Duration, opts ...RateLimiterOption) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}

	l := &RateLimiter{
		windows: make(map[string]rateWindow),
		limit:   limit,
		window:  window,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}

	go l.sweepLoop(max(window, minSweepInterval))
	return l
}

// Limit returns the per-window request ceiling.
func (l *RateLimiter) Limit() int { return l.limit }

// Window returns the window length.
func (l *RateLimiter) Window() time.Duration { return l.window }

// Allow records a request for key. When the request is denied it also
// returns the number of seconds the client should wait before retrying.
func (l *RateLimiter) Allow(key string) (bool, int) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[key]
	if !ok || now.Sub(w.start) >= l.window {
		l.windows[key] = rateWindow{start: now, count: 1}
		return true, 0
	}

	if w.count < l.limit {
		w.count++
		l.windows[key] = w
		return true, 0
	}

	remaining := l.window - now.Sub(w.start)
	return false, int(math.Ceil(remaining.Seconds())) + 1
}

func (l *RateLimiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stopCh:
			return
		}
	}
}

// sweep removes windows that have expired.
func (l *RateLimiter) sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, key)
		}
	}
}

// Close stops the sweep goroutine. It is safe to call more than once.
func (l *RateLimiter) Close() {
	l.once.Do(func() { close(l.stopCh) })
}
