package executor

import (
	"context"
	"log/slog"

	"github.com/linkforge/apiclient/apierror"
	"github.com/linkforge/apiclient/logger"
	"github.com/linkforge/apiclient/retry"
)

// Sink receives every failed attempt that is worth reporting, together with
// the endpoint it came from. Log is called synchronously; implementations
// must not block. A panicking sink is recovered and cannot affect the
// error returned to the caller.
type Sink interface {
	Log(ctx context.Context, err *apierror.Error, endpoint string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, err *apierror.Error, endpoint string)

func (f SinkFunc) Log(ctx context.Context, err *apierror.Error, endpoint string) {
	f(ctx, err, endpoint)
}

// LogSink writes failures to logger.Get(ctx), which carries the request id.
// Conditions caused by the caller (bad input, missing permission, absent
// resource) are logged at WARN; everything else at ERROR. The error is
// annotated with the retry attempt and whether its code is retryable.
type LogSink struct{}

func (LogSink) Log(ctx context.Context, err *apierror.Error, endpoint string) {
	level := slog.LevelError
	if err.Code.UserFacing() {
		level = slog.LevelWarn
	}

	logger.Get(ctx).Log(ctx, level, "api request failed",
		"endpoint", endpoint,
		"error", logger.AnnotateError(err,
			"attempt", retry.Attempt(ctx),
			"retryable", err.Code.Retryable()))
}
