package repository

import (
	"context"
	"errors"
	"net"
	"time"
)

const (
	readAttempts = 3
	retryBackoff = 100 * time.Millisecond
)

// withRetry runs fn up to readAttempts times, backing off between attempts.
// Only idempotent reads go through here; writes are never auto-retried.
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < readAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}
		err = fn()
		if err == nil || !isTransient(err) {
			return err
		}
	}
	return err
}

// isTransient reports whether err looks like a temporary network failure
// rather than a query or constraint error.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
