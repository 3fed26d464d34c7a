// Package retry provides exponential backoff retry logic for transient failures.
//
// Presets:
//
//   - DefaultConfig(): 3 attempts, 100ms-5s delay (normal operations)
//   - Quick(): 10 attempts, 50ms-1s delay (startup, connection setup)
//   - Persistent(): 30 attempts, 200ms-10s delay (critical resources)
//
// A Retryable predicate stops retrying errors that can never succeed, and
// NonRetryable marks a single error as final:
//
//	cfg := retry.DefaultConfig()
//	cfg.Retryable = errors.IsTransient
//	err := retry.Do(ctx, cfg, func() error {
//	    return writer.Write(target, msg)
//	})
package retry
