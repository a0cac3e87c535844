// Package ratelimit implements the per-identifier sliding-window attempt
// limiter guarding credential submission. This is an anti-abuse throttle,
// not a security boundary: state lives in process memory and does not
// survive a restart.
package ratelimit

import (
	"sync"
	"time"
)

const (
	// DefaultLoginAttempts and DefaultLoginWindow are the login policy.
	DefaultLoginAttempts = 5
	DefaultLoginWindow   = 15 * time.Minute
)

// LoginKey builds the limiter identifier for a login attempt. Keying by
// action+email makes the throttle per-identity rather than global.
func LoginKey(email string) string {
	return "login-" + email
}

// Result reports the outcome of a Check call. When Allowed is false,
// ResetTime is the instant the oldest recorded attempt leaves the window.
type Result struct {
	Allowed      bool
	AttemptsLeft int
	ResetTime    time.Time
}

// Limiter tracks attempt timestamps per identifier inside a trailing
// window. Safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	max      int
	window   time.Duration
	now      func() time.Time
	attempts map[string][]time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(l *Limiter) {
		if fn != nil {
			l.now = fn
		}
	}
}

// New constructs a Limiter allowing maxAttempts per identifier inside
// window.
func New(maxAttempts int, window time.Duration, opts ...Option) *Limiter {
	l := &Limiter{
		max:      maxAttempts,
		window:   window,
		now:      time.Now,
		attempts: make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check prunes stale attempts for identifier, then either records the new
// attempt and returns the remaining quota, or rejects with the reset time.
func (l *Limiter) Check(identifier string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	recent := l.attempts[identifier][:0:0]
	for _, ts := range l.attempts[identifier] {
		if now.Sub(ts) < l.window {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= l.max {
		l.attempts[identifier] = recent
		return Result{Allowed: false, ResetTime: recent[0].Add(l.window)}
	}

	recent = append(recent, now)
	l.attempts[identifier] = recent
	return Result{Allowed: true, AttemptsLeft: l.max - len(recent)}
}
