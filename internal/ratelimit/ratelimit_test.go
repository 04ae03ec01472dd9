package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestLimiter(clock *fakeClock) (*Limiter, *MemoryStore) {
	store := NewMemoryStore()
	return NewLimiter(store, DefaultPolicy(), clock.Now, zap.NewNop()), store
}

func TestLimiter_FirstRequestCreatesWindow(t *testing.T) {
	clock := newFakeClock()
	l, store := newTestLimiter(clock)

	d, err := l.Check(context.Background(), "10.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed {
		t.Fatal("first request should be allowed")
	}
	if d.Count != 1 {
		t.Errorf("expected count 1, got %d", d.Count)
	}
	if want := clock.Now().Add(15 * time.Minute); !d.ResetAt.Equal(want) {
		t.Errorf("expected reset at %v, got %v", want, d.ResetAt)
	}
	if d.Remaining != 99 {
		t.Errorf("expected 99 remaining, got %d", d.Remaining)
	}

	e, ok := store.Get("10.0.0.1")
	if !ok || e.Count != 1 {
		t.Errorf("expected stored entry with count 1, got %+v (found=%v)", e, ok)
	}
}

func TestLimiter_AllowsExactlyLimitPerWindow(t *testing.T) {
	clock := newFakeClock()
	l, store := newTestLimiter(clock)
	ctx := context.Background()

	for i := 1; i <= 100; i++ {
		d, err := l.Check(ctx, "client")
		if err != nil {
			t.Fatal(err)
		}
		if !d.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		clock.Advance(time.Second)
	}

	d, _ := l.Check(ctx, "client")
	if d.Allowed {
		t.Fatal("101st request should be denied")
	}
	if d.Remaining != 0 {
		t.Errorf("expected 0 remaining, got %d", d.Remaining)
	}

	// Denials must not increment the counter.
	l.Check(ctx, "client") //nolint:errcheck
	if e, _ := store.Get("client"); e.Count != 100 {
		t.Errorf("expected count to stay at 100, got %d", e.Count)
	}
}

func TestLimiter_WindowResetRestartsCounter(t *testing.T) {
	clock := newFakeClock()
	l, _ := newTestLimiter(clock)
	ctx := context.Background()

	first, _ := l.Check(ctx, "client")
	for i := 0; i < 120; i++ {
		l.Check(ctx, "client") //nolint:errcheck
	}

	// Exactly at the reset instant the old window still applies.
	clock.Advance(first.ResetAt.Sub(clock.Now()))
	if d, _ := l.Check(ctx, "client"); d.Allowed {
		t.Fatal("request at the reset instant should still be denied")
	}

	clock.Advance(time.Millisecond)
	d, _ := l.Check(ctx, "client")
	if !d.Allowed {
		t.Fatal("request after reset should be allowed")
	}
	if d.Count != 1 {
		t.Errorf("expected counter to restart at 1, got %d", d.Count)
	}
	if want := clock.Now().Add(15 * time.Minute); !d.ResetAt.Equal(want) {
		t.Errorf("expected new reset at %v, got %v", want, d.ResetAt)
	}
}

func TestLimiter_BoundaryBurstIsFixedWindow(t *testing.T) {
	clock := newFakeClock()
	l, _ := newTestLimiter(clock)
	ctx := context.Background()

	l.Check(ctx, "client") //nolint:errcheck
	clock.Advance(15*time.Minute - time.Second)

	allowed := 1
	for i := 0; i < 99; i++ {
		if d, _ := l.Check(ctx, "client"); d.Allowed {
			allowed++
		}
	}
	clock.Advance(2 * time.Second)
	for i := 0; i < 100; i++ {
		if d, _ := l.Check(ctx, "client"); d.Allowed {
			allowed++
		}
	}

	if allowed != 200 {
		t.Errorf("expected 200 requests allowed across the boundary, got %d", allowed)
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	clock := newFakeClock()
	l, _ := newTestLimiter(clock)
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		l.Check(ctx, "a") //nolint:errcheck
	}
	if d, _ := l.Check(ctx, "a"); d.Allowed {
		t.Fatal("client a should be limited")
	}
	if d, _ := l.Check(ctx, "b"); !d.Allowed {
		t.Fatal("client b should not be affected by client a")
	}
}

func TestLimiter_CustomPolicy(t *testing.T) {
	clock := newFakeClock()
	l := NewLimiter(NewMemoryStore(), Policy{Limit: 2, Window: time.Minute}, clock.Now, zap.NewNop())
	ctx := context.Background()

	l.Check(ctx, "c") //nolint:errcheck
	l.Check(ctx, "c") //nolint:errcheck
	d, _ := l.Check(ctx, "c")
	if d.Allowed {
		t.Fatal("third request should be denied with limit 2")
	}
	if got := d.RetryAfter(clock.Now()); got != time.Minute {
		t.Errorf("expected retry after 1m, got %v", got)
	}
}

func TestNewLimiter_ZeroPolicyUsesDefaults(t *testing.T) {
	l := NewLimiter(NewMemoryStore(), Policy{}, nil, zap.NewNop())
	if p := l.Policy(); p.Limit != 100 || p.Window != 15*time.Minute {
		t.Errorf("expected default policy, got %+v", p)
	}
}

func TestDecision_RetryAfter_AllowedIsZero(t *testing.T) {
	now := time.Now()
	d := Decision{Allowed: true, ResetAt: now.Add(time.Minute)}
	if d.RetryAfter(now) != 0 {
		t.Error("allowed decision should not carry a retry delay")
	}
}

func TestMemoryStore_SweepEvictsExpired(t *testing.T) {
	clock := newFakeClock()
	l, store := newTestLimiter(clock)
	ctx := context.Background()

	l.Check(ctx, "old") //nolint:errcheck
	clock.Advance(10 * time.Minute)
	l.Check(ctx, "new") //nolint:errcheck
	clock.Advance(6 * time.Minute)

	n, err := l.Sweep(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 evicted entry, got %d", n)
	}
	if _, ok := store.Get("old"); ok {
		t.Error("expired entry should be gone")
	}
	if _, ok := store.Get("new"); !ok {
		t.Error("live entry should be kept")
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 entry left, got %d", store.Len())
	}
}

func TestMemoryStore_ConcurrentSameKeyNoLostUpdates(t *testing.T) {
	clock := newFakeClock()
	l, store := newTestLimiter(clock)
	ctx := context.Background()

	var allowed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 250; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d, _ := l.Check(ctx, "hot"); d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if allowed.Load() != 100 {
		t.Errorf("expected exactly 100 allowed, got %d", allowed.Load())
	}
	if e, _ := store.Get("hot"); e.Count != 100 {
		t.Errorf("expected count 100, got %d", e.Count)
	}
}

func TestMemoryStore_ConcurrentSweepAndTake(t *testing.T) {
	clock := newFakeClock()
	l, _ := newTestLimiter(clock)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if d, _ := l.Check(ctx, "k"); !d.Allowed {
				t.Error("expected allowed under the limit")
			}
		}()
		go func() {
			defer wg.Done()
			l.Sweep(ctx) //nolint:errcheck
		}()
	}
	wg.Wait()
}

func TestLimiter_RunSweeperStopsOnCancel(t *testing.T) {
	l, _ := newTestLimiter(newFakeClock())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		l.RunSweeper(ctx, time.Millisecond)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func BenchmarkMemoryStore_Take(b *testing.B) {
	l := NewLimiter(NewMemoryStore(), Policy{Limit: 1 << 30, Window: time.Hour}, nil, zap.NewNop())
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			l.Check(ctx, "bench") //nolint:errcheck
		}
	})
}
