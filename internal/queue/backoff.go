package queue

import "time"

// Backoff kinds. The policy is configuration, not logic: jobs carry the kind
// and base delay, the runtime computes the next visibility delay from them.
const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

const maxBackoff = 15 * time.Minute

// RetryDelay computes the delay before a failed job becomes visible again.
// retryCount is the count after the failed attempt (1 for the first retry).
func RetryDelay(kind string, base time.Duration, retryCount int) time.Duration {
	if base <= 0 {
		base = time.Second
	}
	switch kind {
	case BackoffExponential:
		d := base
		for i := 1; i < retryCount; i++ {
			d *= 2
			if d >= maxBackoff {
				return maxBackoff
			}
		}
		return d
	default:
		return base
	}
}
