// Package retry wraps cenkalti/backoff for the few places the gateway
// is allowed to retry at all. User-facing deliveries (forwards, pushes)
// never come through here; only internal concerns like credential
// refresh do.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func ExponentialBackoff(initialInterval, maxInterval time.Duration, multiplier float64) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = initialInterval
	exp.MaxInterval = maxInterval
	exp.Multiplier = multiplier
	exp.MaxElapsedTime = 0
	return exp
}

func ExponentialBackoffWithMaxElapsed(initialInterval, maxInterval, maxElapsed time.Duration, multiplier float64) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = initialInterval
	exp.MaxInterval = maxInterval
	exp.Multiplier = multiplier
	exp.MaxElapsedTime = maxElapsed
	return exp
}

// Do runs fn under the given backoff policy, stopping early when the
// context is cancelled.
func Do(ctx context.Context, fn func() error, policy backoff.BackOff) error {
	return backoff.Retry(fn, backoff.WithContext(policy, ctx))
}
