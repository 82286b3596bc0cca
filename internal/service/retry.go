package service

import (
	"context"
	"time"

	"snapshare/internal/models"

	"github.com/cenkalti/backoff/v5"
)

const maxAttempts = 3

// newBackOff is swapped by tests to keep retries fast.
var newBackOff = func() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	return b
}

// withRetry runs an idempotent operation up to maxAttempts times while it
// fails with a retryable AppError. op must return translated errors.
func withRetry[T any](ctx context.Context, op func() (T, error)) (T, error) {
	return backoff.Retry(ctx, func() (T, error) {
		v, err := op()
		if err != nil && !models.IsRetryable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithBackOff(newBackOff()), backoff.WithMaxTries(maxAttempts))
}
