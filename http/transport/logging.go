package transport

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/linkforge/apiclient/http/redact"
	"github.com/linkforge/apiclient/logger"
)

// NewLoggingTransport wraps transport (http.DefaultTransport when nil) so
// every exchange is logged at debug level through logger.Get. Each request
// gets a UUID v7 correlation id shared by its request and response entries.
// Authorization headers and credential query parameters are redacted.
func NewLoggingTransport(transport http.RoundTripper) http.RoundTripper {
	if transport == nil {
		transport = http.DefaultTransport
	}

	return &loggingTransport{transport: transport, redact: redact.Credentials}
}

type loggingTransport struct {
	transport http.RoundTripper
	redact    redact.Func
}

var _ http.RoundTripper = (*loggingTransport)(nil)

func (l *loggingTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	ctx := request.Context()
	log := logger.Get(ctx)

	uuid7, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("error generating UUID: %w", err)
	}

	correlationID := uuid7.String()

	log.DebugContext(ctx, "http request",
		slog.String("correlationId", correlationID),
		slog.String("method", request.Method),
		slog.String("url", redact.URL(ctx, request.URL, l.redact)),
		slog.Any("headers", redact.Headers(ctx, request.Header, l.redact)))

	start := time.Now()

	response, err := l.transport.RoundTrip(request)
	if err != nil {
		log.DebugContext(ctx, "http request failed",
			slog.String("correlationId", correlationID),
			slog.String("method", request.Method),
			slog.Duration("elapsed", time.Since(start)),
			slog.Any("error", err))

		return response, err
	}

	log.DebugContext(ctx, "http response",
		slog.String("correlationId", correlationID),
		slog.String("method", request.Method),
		slog.Int("status", response.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
		slog.Any("headers", redact.Headers(ctx, response.Header, l.redact)))

	return response, nil
}
