package retryconn

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/retryconn/internal/testutils"
)

func fastBackOff() func() backoff.BackOff {
	return func() backoff.BackOff {
		return backoff.NewConstantBackOff(time.Millisecond)
	}
}

func TestRetryerRetriesUntilSuccess(t *testing.T) {
	retryer := &Retryer{NewBackOff: fastBackOff()}

	var calls int
	err := retryer.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("broken pipe")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryerStopsWhenPolicyGivesUp(t *testing.T) {
	retryer := &Retryer{
		NewBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 2)
		},
	}

	opErr := errors.New("broken pipe")
	var calls int
	err := retryer.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return opErr
	})

	require.ErrorIs(t, err, opErr)
	assert.Equal(t, 3, calls) // initial attempt plus two retries
}

func TestRetryerStopsOnContextCancel(t *testing.T) {
	retryer := &Retryer{NewBackOff: fastBackOff()}

	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	err := retryer.Do(ctx, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("broken pipe")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryerBreakerFailsFast(t *testing.T) {
	breaker := NewCircuitBreaker("test", 1, time.Minute, time.Minute)
	retryer := &Retryer{
		NewBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 10)
		},
		Breaker: breaker,
	}

	var calls int
	err := retryer.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errors.New("broken pipe")
	})

	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, gobreaker.StateOpen, breaker.State())
	// The breaker tripped after the third failure; later attempts never
	// reached the operation.
	assert.Equal(t, 3, calls)
}

func TestRetryerDrivesStreamThroughReset(t *testing.T) {
	mock1 := testutils.NewConnMock()
	mock1.WriteErr = syscall.ECONNRESET
	mock2 := testutils.NewConnMock()

	s := Dial(testAddr, Settings{NoDelay: true}, scriptedDials(mock1, mock2))
	defer s.Close()

	retryer := &Retryer{NewBackOff: fastBackOff()}

	var attempts int
	err := retryer.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		_, err := s.Write(ctx, []byte("hello"))
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, "hello", mock2.Written())
	assert.Equal(t, uint64(1), s.Stats().Resets)
}
