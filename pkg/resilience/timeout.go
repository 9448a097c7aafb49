// SPDX-License-Identifier: Apache-2.0
package resilience

import (
	"context"
	"time"

	"github.com/activa-ai/activa/pkg/errors"
)

// TimeoutConfig controls timeout behavior at the external-call boundary.
type TimeoutConfig struct {
	// Duration is the maximum time allowed for the operation.
	// Zero means no timeout.
	Duration time.Duration
}

// WithTimeout executes fn with a timeout boundary. A deadline hit yields a
// recoverable errors.CodeTimeout, so callers may wrap the whole call in a
// RetryConfig and treat timeouts as transient up to MaxAttempts.
func WithTimeout(ctx context.Context, config TimeoutConfig, fn func(ctx context.Context) error) error {
	if config.Duration == 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, config.Duration)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx)
	}()

	select {
	case <-ctx.Done():
		return errors.New(errors.CodeTimeout, "operation exceeded timeout", ctx.Err()).
			WithContext("timeout", config.Duration.String()).
			WithRecoverable(true)
	case err := <-done:
		return err
	}
}

// WithTimeoutResult executes fn with a timeout boundary, returning both result
// and error.
func WithTimeoutResult(ctx context.Context, config TimeoutConfig, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if config.Duration == 0 {
		return fn(ctx)
	}

	ctx, cancel := context.WithTimeout(ctx, config.Duration)
	defer cancel()

	type result struct {
		value interface{}
		err   error
	}

	done := make(chan result, 1)
	go func() {
		value, err := fn(ctx)
		done <- result{value, err}
	}()

	select {
	case <-ctx.Done():
		return nil, errors.New(errors.CodeTimeout, "operation exceeded timeout", ctx.Err()).
			WithContext("timeout", config.Duration.String()).
			WithRecoverable(true)
	case res := <-done:
		return res.value, res.err
	}
}
