package retry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/linkforge/apiclient/apierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

// fast keeps retry tests quick while preserving the shape of the schedule.
func fast() []Option {
	return []Option{
		WithBackoff(ExpBackoff{Base: time.Millisecond, Max: 5 * time.Millisecond, Factor: 2.0}),
		WithJitter(WithoutJitter),
	}
}

func classified(opts ...Option) []Option {
	return append(append(fast(), WithClassifier(func(err error) error {
		return apierror.Classify(err)
	})), opts...)
}

func TestDo_Success(t *testing.T) {
	t.Parallel()

	callCount := 0
	err := Do(t.Context(), func(ctx context.Context) error {
		callCount++

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, callCount)
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	t.Parallel()

	callCount := 0
	err := Do(t.Context(), func(ctx context.Context) error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error") //nolint:err113 // Test error
		}

		return nil
	}, append(fast(), WithAttempts(5))...)

	require.NoError(t, err)
	assert.Equal(t, 3, callCount)
}

func TestDo_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	callCount := 0
	testErr := errors.New("permanent failure") //nolint:err113 // Test error
	err := Do(t.Context(), func(ctx context.Context) error {
		callCount++

		return testErr
	}, append(fast(), WithAttempts(3))...)

	require.Error(t, err)
	assert.Equal(t, testErr, err)
	assert.Equal(t, 3, callCount)
}

func TestDo_SingleAttemptNeverRetries(t *testing.T) {
	t.Parallel()

	for _, code := range []apierror.Code{apierror.NetworkError, apierror.ValidationError, apierror.RateLimitExceeded} {
		callCount := 0
		err := Do(t.Context(), func(ctx context.Context) error {
			callCount++

			return apierror.New(code, "nope")
		}, classified(WithAttempts(1))...)

		require.Error(t, err)
		assert.Equal(t, 1, callCount, code)
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	callCount := 0
	err := Do(ctx, func(ctx context.Context) error {
		callCount++

		return errors.New("should not be called") //nolint:err113 // Test error
	}, append(fast(), WithAttempts(5))...)

	require.Error(t, err)
	assert.Equal(t, context.Canceled, err)
	assert.Zero(t, callCount)
}

func TestDo_CancelInterruptsBackoff(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	callCount := atomic.NewInt32(0)
	start := time.Now()

	err := Do(ctx, func(ctx context.Context) error {
		callCount.Inc()
		cancel()

		return apierror.New(apierror.ExternalServiceError, "down")
	}, WithAttempts(4),
		WithBackoff(ExpBackoff{Base: time.Hour, Factor: 2}),
		WithClassifier(func(err error) error { return apierror.Classify(err) }))

	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Minute, "backoff wait must be interrupted")
	assert.Equal(t, int32(1), callCount.Load(), "no retries after cancellation")
	assert.Equal(t, apierror.TimeoutError, apierror.CodeOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_PermanentError(t *testing.T) {
	t.Parallel()

	callCount := 0
	testErr := errors.New("validation error") //nolint:err113 // Test error
	err := Do(t.Context(), func(ctx context.Context) error {
		callCount++

		return Abort(testErr)
	}, append(fast(), WithAttempts(5))...)

	require.Error(t, err)
	require.ErrorIs(t, err, testErr, "should be able to unwrap to original error")
	assert.Equal(t, 1, callCount, "should not retry permanent errors")
}

func TestDo_RetryableScenario(t *testing.T) {
	t.Parallel()

	callCount := atomic.NewInt32(0)
	result, err := DoValue(t.Context(), func(ctx context.Context) (string, error) {
		if callCount.Inc() <= 2 {
			return "", apierror.New(apierror.ExternalServiceError, "firestore: unavailable")
		}

		return "ok", nil
	}, WithAttempts(3),
		WithBackoff(ExpBackoff{Base: 10 * time.Millisecond, Factor: 2}),
		WithJitter(AdditiveJitter(5*time.Millisecond)),
		WithClassifier(func(err error) error { return apierror.Classify(err) }))

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, int32(3), callCount.Load())
}

func TestDo_NonRetryableShortCircuits(t *testing.T) {
	t.Parallel()

	callCount := atomic.NewInt32(0)
	var decisions []Decision

	_, err := DoValue(t.Context(), func(ctx context.Context) (string, error) {
		callCount.Inc()

		return "", apierror.New(apierror.ValidationError, "invalid slug")
	}, WithAttempts(5),
		WithBackoff(ExpBackoff{Base: 10 * time.Millisecond, Factor: 2}),
		WithClassifier(func(err error) error { return apierror.Classify(err) }),
		WithObserver(func(_ context.Context, _ uint, _ error, d Decision) {
			decisions = append(decisions, d)
		}))

	require.Error(t, err)
	assert.Equal(t, apierror.ValidationError, apierror.CodeOf(err))
	assert.Equal(t, int32(1), callCount.Load())
	assert.Equal(t, []Decision{{}}, decisions, "no delay and no retry")
}

func TestDo_NonRetryableCodes(t *testing.T) {
	t.Parallel()

	for _, code := range []apierror.Code{
		apierror.ValidationError, apierror.AuthenticationError, apierror.AuthorizationError,
		apierror.ResourceNotFound, apierror.SafetyViolation,
	} {
		t.Run(string(code), func(t *testing.T) {
			t.Parallel()

			callCount := 0
			err := Do(t.Context(), func(ctx context.Context) error {
				callCount++

				return apierror.New(code, "")
			}, classified(WithAttempts(4))...)

			require.Error(t, err)
			assert.Equal(t, 1, callCount)
		})
	}
}

func TestDo_ClassifiesRawErrors(t *testing.T) {
	t.Parallel()

	callCount := 0
	err := Do(t.Context(), func(ctx context.Context) error {
		callCount++

		return context.DeadlineExceeded
	}, classified(WithAttempts(3))...)

	require.Error(t, err)
	assert.Equal(t, 3, callCount, "timeouts are transient")

	var apiErr *apierror.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, apierror.TimeoutError, apiErr.Code)
}

func TestDo_DelayBounds(t *testing.T) {
	t.Parallel()

	const (
		base   = 2 * time.Millisecond
		spread = 3 * time.Millisecond
	)

	var (
		mu        sync.Mutex
		attempts  []uint
		decisions []Decision
	)

	err := Do(t.Context(), func(ctx context.Context) error {
		return apierror.New(apierror.NetworkError, "offline")
	}, WithAttempts(4),
		WithBackoff(ExpBackoff{Base: base, Factor: 2}),
		WithJitter(AdditiveJitter(spread)),
		WithClassifier(func(err error) error { return apierror.Classify(err) }),
		WithObserver(func(_ context.Context, attempt uint, _ error, d Decision) {
			mu.Lock()
			defer mu.Unlock()

			attempts = append(attempts, attempt)
			decisions = append(decisions, d)
		}))

	require.Error(t, err)
	require.Equal(t, []uint{0, 1, 2, 3}, attempts)

	for i, d := range decisions[:3] {
		lower := base << i
		assert.True(t, d.Retry)
		assert.GreaterOrEqual(t, d.Delay, lower)
		assert.Less(t, d.Delay, lower+spread)
	}

	assert.False(t, decisions[3].Retry, "last attempt does not schedule another")
}

func TestDoValue_Success(t *testing.T) {
	t.Parallel()

	result, err := DoValue(t.Context(), func(ctx context.Context) (string, error) {
		return "success", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "success", result)
}

func TestDoValue_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	testErr := errors.New("permanent failure") //nolint:err113 // Test error
	result, err := DoValue(t.Context(), func(ctx context.Context) (string, error) {
		return "partial", testErr
	}, append(fast(), WithAttempts(3))...)

	require.Error(t, err)
	assert.Equal(t, testErr, err)
	assert.Empty(t, result, "should return zero value on error")
}

func TestNewRunner_CustomOptions(t *testing.T) {
	t.Parallel()

	runner := NewRunner(append(fast(), WithAttempts(10))...)

	callCount := 0
	err := runner.Do(t.Context(), func(ctx context.Context) error {
		callCount++
		if callCount < 5 {
			return errors.New("retry me") //nolint:err113 // Test error
		}

		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 5, callCount)
}

func TestNewValueRunner(t *testing.T) {
	t.Parallel()

	runner := NewValueRunner[string](fast()...)

	calls := 0
	got, err := runner.Do(t.Context(), func(ctx context.Context) (string, error) {
		calls++
		if Attempt(ctx) < 2 {
			return "", errors.New("not yet") //nolint:err113 // Test error
		}

		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
}

func TestDo_BackoffDelay(t *testing.T) {
	t.Parallel()

	callTimes := []time.Time{}
	err := Do(t.Context(), func(ctx context.Context) error {
		callTimes = append(callTimes, time.Now())
		if len(callTimes) < 3 {
			return errors.New("retry me") //nolint:err113 // Test error
		}

		return nil
	}, WithAttempts(3), WithBackoff(ExpBackoff{
		Base:   20 * time.Millisecond,
		Factor: 2.0,
	}), WithJitter(WithoutJitter))

	require.NoError(t, err)
	require.Len(t, callTimes, 3)

	assert.GreaterOrEqual(t, callTimes[1].Sub(callTimes[0]), 20*time.Millisecond)
	assert.GreaterOrEqual(t, callTimes[2].Sub(callTimes[1]), 40*time.Millisecond)
}
