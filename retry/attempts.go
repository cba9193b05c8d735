package retry

import "context"

// Attempts is the maximum number of times an operation is tried, counting
// the initial try. A value of 0 means unlimited retries (use with caution).
type Attempts uint

type ctxKey string

const attemptKey ctxKey = "attempt"

func withAttempt(ctx context.Context, attempt uint) context.Context {
	return context.WithValue(ctx, attemptKey, attempt)
}

// Attempt returns the zero-indexed attempt number stored in ctx by the retry
// loop, or 0 outside of one.
//
//	err := retry.Do(ctx, func(ctx context.Context) error {
//	    slog.Debug("calling API", "attempt", retry.Attempt(ctx))
//	    return call(ctx)
//	})
func Attempt(ctx context.Context) uint {
	i := ctx.Value(attemptKey)
	if i == nil {
		return 0
	}

	attemptNum, ok := i.(uint)
	if !ok {
		return 0
	}

	return attemptNum
}
