package reddit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// RetryConfig holds retry configuration for reddit fetches.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// defaultRetryConfig keeps delays short: metadata is nice-to-have and the
// caller is usually holding up a chat response.
func defaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  300 * time.Millisecond,
		MaxDelay:      2 * time.Second,
		BackoffFactor: 2.0,
	}
}

// statusError marks an unexpected HTTP status so the retry loop can tell
// transient failures (rate limits, 5xx) from permanent ones.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d", e.code)
}

func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == 429 || se.code >= 500
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// retry executes fn with exponential backoff, retrying only while
// shouldRetry approves of the error.
func retry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error), shouldRetry func(error) bool) (T, error) {
	var lastErr error
	var zero T

	delay := cfg.InitialDelay

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !shouldRetry(err) || attempt == cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.BackoffFactor)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return zero, lastErr
}
