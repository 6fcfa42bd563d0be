// Package resilience provides failure-handling patterns for calls to
// backends such as blob storage and the database.
//
//   - Retry: retries failed operations with exponential, linear or
//     constant backoff. Errors wrapped with Permanent are returned at once.
//   - Timeout: bounds a single attempt.
//   - CircuitBreaker: fails fast with ErrCircuitOpen after repeated
//     failures, then probes for recovery.
//   - Bulkhead: caps concurrent operations.
//
// Executor composes them:
//
//	exec := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{})),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{MaxAttempts: 3})),
//	    resilience.WithTimeout(2*time.Second),
//	)
//	info, err := resilience.Do(ctx, exec, func(ctx context.Context) (blob.Info, error) {
//	    return src.Stat(ctx, location)
//	})
package resilience
