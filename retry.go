package retryconn

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

// DefaultWait is the wait between attempts when no backoff policy is
// configured on a Retryer.
const DefaultWait = 5 * time.Second

// Retryer is the retry collaborator for a Stream. The stream itself never
// waits or retries: it surfaces every failure and merely repairs its own
// state so the next call can attempt a fresh connection. Retryer supplies
// the missing half, running an operation and scheduling the next attempt
// after a failure according to its backoff policy.
type Retryer struct {
	// NewBackOff returns the backoff policy for one operation. It is called
	// once per Do invocation so every operation starts from the policy's
	// initial interval. If nil, a constant DefaultWait policy is used.
	NewBackOff func() backoff.BackOff

	// Breaker, when set, wraps every attempt. An open breaker fails the
	// attempt fast without touching the stream; backoff still applies
	// before the next attempt.
	Breaker *gobreaker.CircuitBreaker[struct{}]
}

// Do runs op, retrying until it succeeds, the backoff policy gives up, or
// ctx is done. Would-block results are retried like any other failure: the
// caller sits at the same logical position either way, the stream has
// already repaired its state where needed.
func (r *Retryer) Do(ctx context.Context, op func(ctx context.Context) error) error {
	newBackOff := r.NewBackOff
	if newBackOff == nil {
		newBackOff = func() backoff.BackOff {
			return backoff.NewConstantBackOff(DefaultWait)
		}
	}

	attempt := func() error {
		if r.Breaker == nil {
			return op(ctx)
		}
		_, err := r.Breaker.Execute(func() (struct{}, error) {
			return struct{}{}, op(ctx)
		})
		return err
	}

	return backoff.Retry(attempt, backoff.WithContext(newBackOff(), ctx))
}
