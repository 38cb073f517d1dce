package resilience

import "errors"

// Sentinel errors for guarded calls.
var (
	// ErrRateLimitExceeded is returned when no token is available in time.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrBulkheadFull is returned when every in-flight slot is taken.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when a call outlives its deadline.
	ErrTimeout = errors.New("resilience: operation timed out")
)

// IsRejected reports whether err means the call was never attempted.
func IsRejected(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded) || errors.Is(err, ErrBulkheadFull)
}
