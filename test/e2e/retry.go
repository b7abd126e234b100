package e2e

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Retry runs op up to attempts times with a constant delay between tries,
// stopping early on success or context cancellation. It replaces the
// connect-and-sleep loops that external-process readiness otherwise breeds
// in every suite.
func Retry(
	ctx context.Context,
	attempts uint64,
	delay time.Duration,
	op func(ctx context.Context) error,
) error {
	if attempts == 0 {
		attempts = 1
	}
	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(delay), attempts-1),
		ctx,
	)
	return backoff.Retry(func() error { return op(ctx) }, b)
}

// RetryWithTimeout is Retry with a per-attempt deadline: each invocation of
// op gets its own context that expires after perAttempt.
func RetryWithTimeout(
	ctx context.Context,
	attempts uint64,
	perAttempt time.Duration,
	delay time.Duration,
	op func(ctx context.Context) error,
) error {
	return Retry(ctx, attempts, delay, func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, perAttempt)
		defer cancel()
		return op(attemptCtx)
	})
}
