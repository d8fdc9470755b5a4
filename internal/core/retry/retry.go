// Package retry implements a small linear-backoff retry helper.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Policy controls how Do retries a function.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// BaseDelay is multiplied by the attempt number: after attempt n the
	// wait is n*BaseDelay (2s, 4s, 6s with BaseDelay 2s).
	BaseDelay time.Duration
	// Retryable decides whether an error is worth another attempt. A nil
	// predicate retries every error.
	Retryable func(error) bool
}

// Do runs fn until it succeeds, attempts are exhausted or the context ends.
// The last error is returned.
func Do(ctx context.Context, p Policy, label string, fn func(ctx context.Context) error) error {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= p.Attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == p.Attempts {
			break
		}
		delay := time.Duration(attempt) * p.BaseDelay
		log.Warn().Err(lastErr).
			Str("op", label).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("attempt failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("%s: all %d attempts failed: %w", label, p.Attempts, lastErr)
}
