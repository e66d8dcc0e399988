package utils

import (
	"context"
	"math/rand"
	"time"
)

// Retry runs fn up to attempts times with exponential backoff plus
// jitter, stopping early on success or context cancellation.
func Retry(ctx context.Context, attempts int, base time.Duration, fn func() error) error {
	var lastErr error
	for i := 0; i < attempts; i++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if i == attempts-1 {
			break
		}
		// backoff exponencial + jitter
		sleep := time.Duration(1<<i) * base
		sleep += time.Duration(rand.Int63n(int64(base) + 1))
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}
