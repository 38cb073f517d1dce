package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeClock lets tests move time without sleeping.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(cfg RateLimiterConfig) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1700000000, 0)}
	rl := NewRateLimiter(cfg)
	rl.now = clock.Now
	rl.last = clock.Now()
	return rl, clock
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	cfg := NewRateLimiter(RateLimiterConfig{}).Config()
	if cfg.Rate != 4 || cfg.Burst != 4 || cfg.MaxWait != 5*time.Second {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestRateLimiter_BurstThenReject(t *testing.T) {
	rl, _ := newTestLimiter(RateLimiterConfig{Rate: 1, Burst: 2})

	if !rl.Allow() || !rl.Allow() {
		t.Fatal("burst of 2 should be allowed")
	}
	if rl.Allow() {
		t.Fatal("third call should be rejected")
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	rl, clock := newTestLimiter(RateLimiterConfig{Rate: 2, Burst: 2})

	rl.Allow()
	rl.Allow()
	clock.Advance(500 * time.Millisecond)

	if got := rl.Tokens(); got != 1 {
		t.Errorf("Tokens() = %v, want 1", got)
	}

	clock.Advance(10 * time.Second)
	if got := rl.Tokens(); got != 2 {
		t.Errorf("Tokens() = %v, want capped at burst 2", got)
	}
}

func TestRateLimiter_ExecuteRejects(t *testing.T) {
	rl, _ := newTestLimiter(RateLimiterConfig{Rate: 1, Burst: 1})
	ctx := context.Background()
	noop := func(context.Context) error { return nil }

	if err := rl.Execute(ctx, noop); err != nil {
		t.Fatalf("first Execute() error = %v", err)
	}
	if err := rl.Execute(ctx, noop); !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("second Execute() error = %v, want ErrRateLimitExceeded", err)
	}
}

func TestRateLimiter_WaitOnLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 100, Burst: 1, WaitOnLimit: true})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := rl.Execute(ctx, func(context.Context) error { return nil }); err != nil {
			t.Fatalf("Execute() #%d error = %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("3 calls at 100/s with burst 1 finished in %v, expected queueing", elapsed)
	}
}

func TestRateLimiter_WaitGivesUpAfterMaxWait(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.1, Burst: 1, MaxWait: 20 * time.Millisecond})
	rl.Allow()

	if err := rl.Wait(context.Background()); !errors.Is(err, ErrRateLimitExceeded) {
		t.Errorf("Wait() error = %v, want ErrRateLimitExceeded", err)
	}
}

func TestRateLimiter_WaitHonorsContext(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 0.1, Burst: 1, MaxWait: time.Second})
	rl.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want DeadlineExceeded", err)
	}
}
