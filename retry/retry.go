// Package retry runs an operation repeatedly until it succeeds, fails
// permanently, or runs out of attempts, sleeping with exponential backoff and
// jitter between attempts.
//
// The package offers both simple one-shot functions (Do, DoValue) and reusable
// Runner interfaces for operations that need consistent retry behavior.
//
// Basic usage:
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//	    return makeAPICall()
//	})
//
// Classifying failures before the retry decision is made:
//
//	links, err := retry.DoValue(ctx, fetchLinks,
//	    retry.WithAttempts(4),
//	    retry.WithBackoff(retry.ExpBackoff{Base: time.Second, Factor: 2}),
//	    retry.WithJitter(retry.AdditiveJitter(time.Second)),
//	    retry.WithClassifier(func(err error) error { return apierror.Classify(err) }),
//	)
//
// Only idempotent operations should be retried. A mutating call that failed
// may have partially succeeded on the server.
package retry

import (
	"context"
	"errors"
	"time"
)

const (
	defaultAttempts      = 4
	defaultBaseDelay     = 1000 // milliseconds
	defaultBackoffFactor = 2.0
	defaultJitterSpread  = time.Second
)

// Runner is an interface for executing operations with retry logic.
type Runner interface {
	Do(ctx context.Context, f func(ctx context.Context) error) error
}

// ValueRunner is the generic counterpart of Runner for operations that
// produce a value.
type ValueRunner[T any] interface {
	Do(ctx context.Context, f func(ctx context.Context) (T, error)) (T, error)
}

// NewRunner creates a new Runner with the specified options.
// If no options are provided, it uses these defaults:
//   - 4 attempts (initial call + 3 retries)
//   - Exponential backoff: 1s base, doubling, uncapped
//   - Additive jitter of up to 1s
//
// Example:
//
//	runner := retry.NewRunner(retry.WithAttempts(5))
//	err := runner.Do(ctx, operation)
func NewRunner(opts ...Option) Runner {
	return &runnerImpl{opts: newOptions(opts...)}
}

// NewValueRunner creates a new ValueRunner for operations that return a value.
// Defaults are the same as NewRunner.
func NewValueRunner[T any](opts ...Option) ValueRunner[T] {
	return &valueRunnerImpl[T]{opts: newOptions(opts...)}
}

func newOptions(opts ...Option) *options {
	intOpts := &options{
		attempts: Attempts(defaultAttempts),
		backoff: ExpBackoff{
			Base:   defaultBaseDelay * time.Millisecond,
			Factor: defaultBackoffFactor,
		},
		jitter: AdditiveJitter(defaultJitterSpread),
	}

	for _, option := range opts {
		if option != nil {
			option(intOpts)
		}
	}

	return intOpts
}

type runnerImpl struct {
	opts *options
}

func (r *runnerImpl) Do(ctx context.Context, f func(ctx context.Context) error) error {
	return do(ctx, r.opts, f)
}

type valueRunnerImpl[T any] struct {
	opts *options
}

// Do returns the first successful result. If every attempt fails, it returns
// the zero value of T and the last (classified) error.
func (v *valueRunnerImpl[T]) Do(ctx context.Context, f func(ctx context.Context) (T, error)) (T, error) {
	var out T

	err := do(ctx, v.opts, func(ctx context.Context) error {
		var err error

		out, err = f(ctx)

		return err
	})
	if err != nil {
		var zero T

		return zero, err
	}

	return out, nil
}

// do is the attempt loop. It returns:
//   - nil as soon as one attempt succeeds
//   - the classified error of a permanent failure, without further attempts
//   - the classified error of the last attempt once the budget is spent
//   - the classified context error if ctx ends before or between attempts
func do(ctx context.Context, opts *options, operation func(ctx context.Context) error) error {
	var lastErr error

	for attemptIndex := uint(0); opts.attempts == 0 || Attempts(attemptIndex) < opts.attempts; attemptIndex++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return opts.classify(ctxErr)
		}

		err := operation(withAttempt(ctx, attemptIndex))
		if err == nil {
			return nil
		}

		// An explicit Abort wins over whatever the classifier would decide.
		var aborted *permanentError
		if errors.As(err, &aborted) {
			err = opts.classify(aborted.error)
			opts.notify(ctx, attemptIndex, err, Decision{})

			return err
		}

		err = opts.classify(err)
		lastErr = err

		if isPermanent(err) {
			opts.notify(ctx, attemptIndex, err, Decision{})

			return err
		}

		if opts.attempts != 0 && Attempts(attemptIndex+1) >= opts.attempts {
			opts.notify(ctx, attemptIndex, err, Decision{})

			break
		}

		delay := opts.jitter.Apply(opts.backoff.Delay(attemptIndex))
		opts.notify(ctx, attemptIndex, err, Decision{Retry: true, Delay: delay})

		// Wait for the delay period, respecting context cancellation
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()

			return opts.classify(ctx.Err())
		case <-timer.C:
		}
	}

	return lastErr
}

func isPermanent(err error) bool {
	var retryErr Error

	return errors.As(err, &retryErr) && !retryErr.Temporary()
}

// Do is a convenience function that creates a Runner and executes the provided function
// with retry logic in a single call.
//
// Example:
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//	    return makeAPICall()
//	}, retry.WithAttempts(5))
func Do(ctx context.Context, f func(ctx context.Context) error, opts ...Option) error {
	return NewRunner(opts...).Do(ctx, f)
}

// DoValue is a convenience function that creates a ValueRunner and executes the provided function
// with retry logic in a single call.
func DoValue[T any](ctx context.Context, f func(ctx context.Context) (T, error), opts ...Option) (T, error) {
	return NewValueRunner[T](opts...).Do(ctx, f)
}
