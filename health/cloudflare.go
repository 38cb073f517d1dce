package health

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CloudflareCheckerConfig configures the Cloudflare purge checker.
type CloudflareCheckerConfig struct {
	// Enabled is true when both tagging flags are on.
	Enabled bool

	// MissingKeys lists unset credential keys. Empty when configured.
	MissingKeys []string

	// FailureThreshold is the number of consecutive failed purges after
	// which the checker reports Degraded.
	// Default: 3
	FailureThreshold int
}

// CloudflareChecker reports whether purges can and do succeed.
// Feed it purge outcomes with RecordPurge.
type CloudflareChecker struct {
	cfg CloudflareCheckerConfig

	mu          sync.Mutex
	failures    int
	lastErr     error
	lastSuccess time.Time
}

var _ Checker = (*CloudflareChecker)(nil)

// NewCloudflareChecker creates a checker.
func NewCloudflareChecker(cfg CloudflareCheckerConfig) *CloudflareChecker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	return &CloudflareChecker{cfg: cfg}
}

// RecordPurge notes the outcome of one attempted purge.
func (c *CloudflareChecker) RecordPurge(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		c.failures = 0
		c.lastErr = nil
		c.lastSuccess = time.Now()
		return
	}
	c.failures++
	c.lastErr = err
}

func (c *CloudflareChecker) Name() string { return "cloudflare" }

func (c *CloudflareChecker) Check(context.Context) Result {
	if !c.cfg.Enabled {
		return Healthy("cache tagging disabled")
	}
	if len(c.cfg.MissingKeys) > 0 {
		return Degraded("purge credentials missing").WithDetails(map[string]any{
			"missing": c.cfg.MissingKeys,
		})
	}

	c.mu.Lock()
	failures, lastErr, lastSuccess := c.failures, c.lastErr, c.lastSuccess
	c.mu.Unlock()

	details := map[string]any{"consecutive_failures": failures}
	if !lastSuccess.IsZero() {
		details["last_success"] = lastSuccess.UTC().Format(time.RFC3339)
	}
	if failures >= c.cfg.FailureThreshold {
		r := Degraded(fmt.Sprintf("%d consecutive purges failed", failures)).WithDetails(details)
		r.Error = fmt.Errorf("%w: %w", ErrPurgesFailing, lastErr)
		return r
	}
	return Healthy("purges configured").WithDetails(details)
}
