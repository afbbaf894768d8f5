package queue

import "time"

// DefaultMaxAttempts bounds retries when a job does not set its own budget.
const DefaultMaxAttempts = 3

// DefaultBackoffBase is the first retry delay when a job does not set one.
const DefaultBackoffBase = time.Second

// maxBackoff caps the exponential curve so late retries stay schedulable.
const maxBackoff = 5 * time.Minute

// Backoff returns the delay before the given attempt retries: the base delay
// doubled per prior failure. Attempt counts from 1.
func Backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = DefaultBackoffBase
	}

	if attempt < 1 {
		attempt = 1
	}

	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxBackoff {
			return maxBackoff
		}
	}

	return delay
}
