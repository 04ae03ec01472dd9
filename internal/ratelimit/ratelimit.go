package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultLimit is the number of requests a client may make per window.
	DefaultLimit = 100
	// DefaultWindow is the length of a quota window.
	DefaultWindow = 15 * time.Minute
)

// Policy is the quota applied to every client key.
type Policy struct {
	Limit  int
	Window time.Duration
}

// DefaultPolicy returns 100 requests per 15 minutes.
func DefaultPolicy() Policy {
	return Policy{Limit: DefaultLimit, Window: DefaultWindow}
}

// Entry is the quota state of a single client key.
type Entry struct {
	Count   int
	ResetAt time.Time
}

// Decision is the outcome of a single Check.
type Decision struct {
	Allowed   bool
	Count     int
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long a denied client should wait before the window restarts.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed || !now.Before(d.ResetAt) {
		return 0
	}
	return d.ResetAt.Sub(now)
}

// Store holds per-client entries. Take must apply the decision atomically per key.
type Store interface {
	Take(ctx context.Context, key string, now time.Time, policy Policy) (Decision, error)
	// Sweep removes entries whose window ended before now and returns how many were removed.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// Clock returns the current time.
type Clock func() time.Time

// apply runs the fixed-window rule against e and mutates it in place.
//
// The window restarts on the first request after it expires, so a client can
// spend a full quota just before the reset and another full quota right after.
func apply(e *Entry, now time.Time, policy Policy) Decision {
	switch {
	case e.ResetAt.IsZero() || now.After(e.ResetAt):
		e.Count = 1
		e.ResetAt = now.Add(policy.Window)
	case e.Count < policy.Limit:
		e.Count++
	default:
		return decision(e, policy, false)
	}
	return decision(e, policy, true)
}

func decision(e *Entry, policy Policy, allowed bool) Decision {
	remaining := policy.Limit - e.Count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:   allowed,
		Count:     e.Count,
		Limit:     policy.Limit,
		Remaining: remaining,
		ResetAt:   e.ResetAt,
	}
}

// Limiter enforces a Policy over a Store.
type Limiter struct {
	store  Store
	policy Policy
	now    Clock
	logger *zap.Logger
}

// NewLimiter creates a Limiter. A nil clock uses time.Now; a zero policy field
// falls back to the default.
func NewLimiter(store Store, policy Policy, clock Clock, logger *zap.Logger) *Limiter {
	if policy.Limit <= 0 {
		policy.Limit = DefaultLimit
	}
	if policy.Window <= 0 {
		policy.Window = DefaultWindow
	}
	if clock == nil {
		clock = time.Now
	}
	return &Limiter{store: store, policy: policy, now: clock, logger: logger}
}

// Policy returns the effective policy.
func (l *Limiter) Policy() Policy {
	return l.policy
}

// Now returns the limiter's current time.
func (l *Limiter) Now() time.Time {
	return l.now()
}

// Check records one request for key and reports whether it is within quota.
func (l *Limiter) Check(ctx context.Context, key string) (Decision, error) {
	return l.store.Take(ctx, key, l.now(), l.policy)
}

// Sweep evicts expired entries.
func (l *Limiter) Sweep(ctx context.Context) (int, error) {
	return l.store.Sweep(ctx, l.now())
}

// RunSweeper evicts expired entries every interval until ctx is done.
func (l *Limiter) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := l.Sweep(ctx)
			if err != nil {
				l.logger.Warn("rate limit sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				l.logger.Debug("rate limit entries evicted", zap.Int("evicted", n))
			}
		}
	}
}
