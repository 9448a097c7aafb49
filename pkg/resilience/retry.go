// SPDX-License-Identifier: Apache-2.0
// Package resilience provides retry and timeout patterns for external calls.
package resilience

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/activa-ai/activa/pkg/errors"
)

// RetryConfig controls retry behavior with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (must be >= 1).
	MaxAttempts int

	// BaseBackoff is the backoff before the second attempt.
	BaseBackoff time.Duration

	// MaxBackoff caps the exponential backoff delay.
	MaxBackoff time.Duration

	// Jitter scales each delay by a uniform factor in [1-Jitter, 1+Jitter].
	Jitter float64

	// IsRecoverable determines if an error should be retried.
	// If nil, typed errors use their Recoverable flag and plain errors retry.
	IsRecoverable func(error) bool

	// OnRetry is invoked before each backoff sleep with the attempt number
	// (1-based) and the error that triggered the retry. A panicking observer
	// is recovered and logged, never aborting the retry loop.
	OnRetry func(attempt int, err error)
}

// DefaultRetryConfig returns the default retry policy for external fetches.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		BaseBackoff: 500 * time.Millisecond,
		MaxBackoff:  8 * time.Second,
		Jitter:      0.2,
	}
}

// WithMaxAttempts returns a new config with MaxAttempts set.
func (rc RetryConfig) WithMaxAttempts(max int) RetryConfig {
	rc.MaxAttempts = max
	return rc
}

// WithBaseBackoff returns a new config with BaseBackoff set.
func (rc RetryConfig) WithBaseBackoff(d time.Duration) RetryConfig {
	rc.BaseBackoff = d
	return rc
}

// WithMaxBackoff returns a new config with MaxBackoff set.
func (rc RetryConfig) WithMaxBackoff(d time.Duration) RetryConfig {
	rc.MaxBackoff = d
	return rc
}

// WithIsRecoverable returns a new config with IsRecoverable set.
func (rc RetryConfig) WithIsRecoverable(fn func(error) bool) RetryConfig {
	rc.IsRecoverable = fn
	return rc
}

// WithOnRetry returns a new config with the retry observer set.
func (rc RetryConfig) WithOnRetry(fn func(attempt int, err error)) RetryConfig {
	rc.OnRetry = fn
	return rc
}

// Do executes fn with retry logic. A call that always fails with a retryable
// error invokes fn exactly MaxAttempts times, then propagates the last error
// unchanged.
func (rc RetryConfig) Do(ctx context.Context, fn func() error) error {
	if rc.MaxAttempts < 1 {
		rc.MaxAttempts = 1
	}
	if rc.IsRecoverable == nil {
		rc.IsRecoverable = errors.IsRecoverable
	}

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if attempt >= rc.MaxAttempts || !rc.IsRecoverable(err) {
			return err
		}

		rc.notifyRetry(attempt, err)

		select {
		case <-ctx.Done():
			return errors.New(errors.CodeContextLost, "context canceled during retry", ctx.Err()).
				WithContext("attempt", attempt).
				WithContext("max_attempts", rc.MaxAttempts)
		case <-time.After(rc.backoff(attempt)):
		}
	}
}

// DoWithResult executes fn with retry logic, returning both result and error.
func (rc RetryConfig) DoWithResult(ctx context.Context, fn func() (interface{}, error)) (interface{}, error) {
	var result interface{}
	err := rc.Do(ctx, func() error {
		var fnErr error
		result, fnErr = fn()
		return fnErr
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// backoff computes the sleep after a failed attempt: min(MaxBackoff,
// BaseBackoff*2^(attempt-1)), scaled by a uniform jitter factor.
func (rc RetryConfig) backoff(attempt int) time.Duration {
	delay := time.Duration(float64(rc.BaseBackoff) * math.Pow(2, float64(attempt-1)))
	if rc.MaxBackoff > 0 && delay > rc.MaxBackoff {
		delay = rc.MaxBackoff
	}
	if rc.Jitter > 0 {
		factor := 1 + rc.Jitter*(2*rand.Float64()-1)
		delay = time.Duration(float64(delay) * factor)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}

func (rc RetryConfig) notifyRetry(attempt int, err error) {
	if rc.OnRetry == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("retry observer panicked", "attempt", attempt, "panic", r)
		}
	}()
	rc.OnRetry(attempt, err)
}
