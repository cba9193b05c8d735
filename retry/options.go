package retry

import (
	"context"
	"time"
)

// Option is a function that configures a Runner or ValueRunner.
type Option func(*options)

// Decision is the outcome of evaluating one failed attempt.
type Decision struct {
	// Retry is true when another attempt will be made.
	Retry bool
	// Delay is how long the loop sleeps before that attempt.
	Delay time.Duration
}

// Observer is called once per failed attempt, after the error has been
// classified and the decision made. attempt is zero-indexed.
type Observer func(ctx context.Context, attempt uint, err error, decision Decision)

type options struct {
	attempts   Attempts
	backoff    Backoff
	jitter     Jitter
	classifier func(error) error
	observers  []Observer
}

func (o *options) classify(err error) error {
	if o.classifier == nil || err == nil {
		return err
	}

	if classified := o.classifier(err); classified != nil {
		return classified
	}

	return err
}

func (o *options) notify(ctx context.Context, attempt uint, err error, decision Decision) {
	for _, obs := range o.observers {
		obs(ctx, attempt, err, decision)
	}
}

// WithAttempts configures the maximum number of attempts, counting the
// initial one. A value of 0 means unlimited retries (use with caution).
//
//	runner := retry.NewRunner(retry.WithAttempts(5))
func WithAttempts(a Attempts) Option {
	return func(o *options) {
		o.attempts = a
	}
}

// WithBackoff configures the backoff strategy for calculating retry delays.
//
//	runner := retry.NewRunner(retry.WithBackoff(retry.ExpBackoff{
//	    Base:   100 * time.Millisecond,
//	    Max:    10 * time.Second,
//	    Factor: 2.0,
//	}))
func WithBackoff(b Backoff) Option {
	return func(o *options) {
		if b != nil {
			o.backoff = b
		}
	}
}

// WithJitter configures how backoff delays are randomized.
//
//	runner := retry.NewRunner(retry.WithJitter(retry.FullJitter))
func WithJitter(j Jitter) Option {
	return func(o *options) {
		if j != nil {
			o.jitter = j
		}
	}
}

// WithClassifier installs a function that normalizes every failure before the
// retry decision is made. The classified error is what the loop inspects for
// Temporary() and what it finally returns.
func WithClassifier(f func(error) error) Option {
	return func(o *options) {
		o.classifier = f
	}
}

// WithObserver registers a callback for every failed attempt. Observers run
// synchronously on the calling goroutine, so they must not block.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}
