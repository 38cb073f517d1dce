package resilience

import (
	"context"
	"math"
	"sync"
	"time"
)

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// Rate is the number of calls allowed per second.
	// Default: 4
	Rate float64

	// Burst is the bucket capacity.
	// Default: 4
	Burst int

	// WaitOnLimit makes Execute queue for a token instead of rejecting.
	// Default: false
	WaitOnLimit bool

	// MaxWait caps how long Execute queues when WaitOnLimit is set.
	// Default: 5 seconds
	MaxWait time.Duration
}

// RateLimiter is a token bucket.
type RateLimiter struct {
	config RateLimiterConfig
	now    func() time.Time

	mu     sync.Mutex
	tokens float64
	last   time.Time
}

// NewRateLimiter creates a new rate limiter with a full bucket.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.Rate <= 0 {
		config.Rate = 4
	}
	if config.Burst <= 0 {
		config.Burst = 4
	}
	if config.MaxWait <= 0 {
		config.MaxWait = 5 * time.Second
	}

	rl := &RateLimiter{config: config, now: time.Now}
	rl.tokens = float64(config.Burst)
	rl.last = rl.now()
	return rl
}

// Allow takes one token if available.
func (rl *RateLimiter) Allow() bool {
	_, ok := rl.reserve(1)
	return ok
}

// reserve takes n tokens if available. Otherwise it reports how long until
// they would be.
func (rl *RateLimiter) reserve(n int) (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refillLocked()
	if rl.tokens >= float64(n) {
		rl.tokens -= float64(n)
		return 0, true
	}
	missing := float64(n) - rl.tokens
	return time.Duration(math.Ceil(missing / rl.config.Rate * float64(time.Second))), false
}

// Wait blocks until a token is taken, ctx ends, or MaxWait elapses.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	deadline := time.NewTimer(rl.config.MaxWait)
	defer deadline.Stop()

	for {
		delay, ok := rl.reserve(1)
		if ok {
			return nil
		}

		step := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			step.Stop()
			return ctx.Err()
		case <-deadline.C:
			step.Stop()
			return ErrRateLimitExceeded
		case <-step.C:
		}
	}
}

// Execute runs op once a token is taken.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if rl.config.WaitOnLimit {
		if err := rl.Wait(ctx); err != nil {
			return err
		}
	} else if !rl.Allow() {
		return ErrRateLimitExceeded
	}
	return op(ctx)
}

func (rl *RateLimiter) refillLocked() {
	now := rl.now()
	elapsed := now.Sub(rl.last)
	rl.last = now
	if elapsed <= 0 {
		return
	}
	rl.tokens = math.Min(rl.tokens+elapsed.Seconds()*rl.config.Rate, float64(rl.config.Burst))
}

// Tokens returns the number of tokens currently available.
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refillLocked()
	return rl.tokens
}

// Config returns the limiter configuration.
func (rl *RateLimiter) Config() RateLimiterConfig {
	return rl.config
}
