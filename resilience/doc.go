// Package resilience provides bounded retry with backoff for cache
// filesystem operations that can race with another process.
//
// Two processes allocating the same cache directory, or replacing the
// same record file, can briefly observe each other's half-finished
// work: an empty marker file, a rename that fails because the target is
// held open. Those reads and writes are retried a few times with a short
// backoff before the caller gives up.
//
//	r := resilience.NewRetry(resilience.RetryConfig{
//	    MaxAttempts:  5,
//	    InitialDelay: 5 * time.Millisecond,
//	})
//	owner, err := resilience.Value(ctx, r, func(ctx context.Context) (string, error) {
//	    return readMarker(dir)
//	})
package resilience
