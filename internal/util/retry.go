package util

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// maxBackoff caps the exponential delay between retry attempts.
const maxBackoff = 30 * time.Second

// Retry calls fn up to maxAttempts times, sleeping between attempts with
// exponential backoff from baseDelay plus up to 25% jitter so concurrent
// gather workers do not retry in lockstep. It returns nil on the first
// successful call, ctx.Err() if the context is cancelled while waiting, or
// the last error wrapped with the attempt count.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func() error) error {
	var err error
	delay := baseDelay

	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		// Don't sleep after the last failed attempt.
		if attempt < maxAttempts-1 {
			sleep := delay
			if q := sleep / 4; q > 0 {
				sleep += time.Duration(rand.Int63n(int64(q)))
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleep):
			}
			delay *= 2
			if delay > maxBackoff {
				delay = maxBackoff
			}
		}
	}

	return fmt.Errorf("after %d attempts: %w", maxAttempts, err)
}
