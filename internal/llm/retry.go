package llm

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/dgallion1/bookgest/internal/config"
)

// RetryableError indicates a transient completion failure worth retrying:
// a non-200 response, a timeout, or a transport error.
type RetryableError struct {
	StatusCode int // 0 when the failure was not an HTTP status
	Message    string
}

func (e *RetryableError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
	}
	return fmt.Sprintf("retryable error: %s", truncate(e.Message, 200))
}

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	var retryErr *RetryableError
	return errors.As(err, &retryErr)
}

// BackoffPolicy yields the delay before retrying attempt n (0-indexed).
type BackoffPolicy interface {
	Delay(attempt int) time.Duration
}

// FlatBackoff waits a fixed interval between attempts.
type FlatBackoff struct {
	Interval time.Duration
}

func (b FlatBackoff) Delay(int) time.Duration { return b.Interval }

// ExponentialBackoff doubles the delay each attempt, capped, with jitter.
type ExponentialBackoff struct {
	Base time.Duration
	Max  time.Duration
}

func (b ExponentialBackoff) Delay(attempt int) time.Duration {
	base := b.Base
	if base <= 0 {
		base = time.Second
	}
	d := base << uint(attempt)
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}
	jitter := time.Duration(rand.Int63n(int64(d)/2 + 1))
	return d + jitter
}

// PolicyFromConfig maps the configured backoff strategy to a policy value.
func PolicyFromConfig(cfg config.Config) BackoffPolicy {
	switch cfg.Backoff {
	case config.BackoffFlat:
		return FlatBackoff{Interval: cfg.RetryDelay}
	default:
		return ExponentialBackoff{Base: time.Second, Max: 30 * time.Second}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
