// Package resilience guards outbound calls to the CDN.
//
// A purge request leaves the process at most once. The guards here bound
// how long it may take, how many may be in flight, and how fast they may be
// issued, so that a burst of invalidations cannot stall the service or trip
// the provider's API limits. Nothing in this package retries.
//
// # Guards
//
//   - Timeout: cancels the call once its deadline passes and reports
//     ErrTimeout.
//
//   - Bulkhead: bounds concurrent calls using a weighted semaphore.
//
//   - RateLimiter: token bucket that either rejects or waits for a token.
//
// # Usage
//
//	exec := resilience.NewExecutor(
//	    resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
//	        Rate:        4,
//	        Burst:       4,
//	        WaitOnLimit: true,
//	    })),
//	    resilience.WithBulkhead(resilience.NewBulkhead(resilience.BulkheadConfig{
//	        MaxConcurrent: 8,
//	    })),
//	    resilience.WithTimeout(10*time.Second),
//	)
//
//	err := exec.Execute(ctx, func(ctx context.Context) error {
//	    return client.Purge(ctx, tags)
//	})
package resilience
