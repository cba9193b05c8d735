// Package executor performs single HTTP attempts against the link API and
// normalizes every outcome into either a decoded payload or an
// *apierror.Error.
//
// An attempt is bounded by a wall-clock timeout (30 seconds by default).
// When it expires the in-flight request is aborted and the attempt fails
// with TIMEOUT_ERROR. Error responses are decoded from the
// {"error": {"code", "message", "details"}} envelope; anything else becomes
// PARSE_ERROR. Each failure is reported to a Sink before it is returned,
// except failures that only mean the caller is not signed in.
//
// The executor never retries. See the client package for the retry policy.
package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/linkforge/apiclient/apierror"
	"github.com/linkforge/apiclient/http/redact"
	"github.com/linkforge/apiclient/http/transport"
	"github.com/linkforge/apiclient/logger"
	"github.com/linkforge/apiclient/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultTimeout bounds a single attempt.
	DefaultTimeout = 30 * time.Second

	// HeaderRequestID carries the per-attempt correlation id.
	HeaderRequestID = "X-Request-Id"

	maxBodyBytes = 10 << 20
)

var errAttemptTimeout = errors.New("attempt timed out")

// Request describes one API call. A non-nil Body is sent as JSON; a
// json.RawMessage or []byte body is sent verbatim.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   any
}

// Executor runs requests. It is safe for concurrent use.
type Executor struct {
	httpClient *http.Client
	timeout    time.Duration
	sink       Sink
	userAgent  string
}

// Option configures an Executor.
type Option func(*Executor)

// WithHTTPClient replaces the HTTP client. Its Timeout, if any, applies in
// addition to the per-attempt timeout.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Executor) {
		if c != nil {
			e.httpClient = c
		}
	}
}

// WithTimeout sets the per-attempt bound. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithSink replaces the failure sink. A nil sink disables reporting.
func WithSink(s Sink) Option {
	return func(e *Executor) {
		e.sink = s
	}
}

// WithUserAgent sets the User-Agent header of every request.
func WithUserAgent(ua string) Option {
	return func(e *Executor) {
		e.userAgent = ua
	}
}

// New returns an Executor using the shared pooled transport, a 30 second
// attempt timeout and a LogSink.
func New(opts ...Option) *Executor {
	e := &Executor{
		timeout: DefaultTimeout,
		sink:    LogSink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}

	if e.httpClient == nil {
		e.httpClient = &http.Client{Transport: transport.Get()}
	}

	return e
}

// Timeout returns the per-attempt bound.
func (e *Executor) Timeout() time.Duration {
	return e.timeout
}

// Do runs req and decodes a successful body into a T. An empty body leaves
// the zero value.
func Do[T any](ctx context.Context, e *Executor, req Request) (T, error) {
	var out T

	if err := e.Execute(ctx, req, &out); err != nil {
		var zero T

		return zero, err
	}

	return out, nil
}

// Execute runs req once. On success the body is decoded into out (which may
// be nil to discard it). Any failure is returned as an *apierror.Error.
func (e *Executor) Execute(ctx context.Context, req Request, out any) error {
	start := time.Now()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	endpoint := endpointOf(ctx, req.URL)

	ctx = logger.WithRequestId(ctx, newRequestID())

	attemptCtx, cancel := context.WithTimeoutCause(ctx, e.timeout, errAttemptTimeout)
	defer cancel()

	attemptCtx, span := telemetry.Tracer().Start(attemptCtx, "executor.attempt",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", endpoint),
		))
	defer span.End()

	status, err := e.attempt(attemptCtx, method, req, out)
	if err != nil {
		apiErr := e.normalize(attemptCtx, err).WithEndpoint(endpoint)

		span.SetAttributes(attribute.String("linkclient.error_code", string(apiErr.Code)))
		span.SetStatus(codes.Error, apiErr.Error())
		observe(method, start, apiErr)
		e.report(ctx, apiErr, endpoint)

		return apiErr
	}

	span.SetAttributes(attribute.Int("http.status_code", status))
	observe(method, start, nil)

	return nil
}

func (e *Executor) attempt(ctx context.Context, method string, req Request, out any) (int, error) {
	httpReq, err := e.newRequest(ctx, method, req)
	if err != nil {
		return 0, err
	}

	rsp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return 0, err
	}

	defer func() {
		if closeErr := rsp.Body.Close(); closeErr != nil {
			logger.Get(ctx).Debug("error closing response body", "error", closeErr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(rsp.Body, maxBodyBytes+1))
	if err != nil {
		return rsp.StatusCode, err
	}

	if len(body) > maxBodyBytes {
		return rsp.StatusCode, apierror.Newf(apierror.ParseError,
			"response body exceeds the %d byte limit", maxBodyBytes).WithStatus(rsp.StatusCode)
	}

	if rsp.StatusCode < 200 || rsp.StatusCode > 299 {
		if apiErr, ok := apierror.ParseEnvelope(body); ok {
			return rsp.StatusCode, apiErr.WithStatus(rsp.StatusCode)
		}

		return rsp.StatusCode, apierror.NewParseFailure(rsp.StatusCode, rsp.Status, nil)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return rsp.StatusCode, nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return rsp.StatusCode, apierror.Wrap(err, apierror.ParseError,
			"decoding response: "+err.Error()).WithStatus(rsp.StatusCode)
	}

	return rsp.StatusCode, nil
}

func (e *Executor) newRequest(ctx context.Context, method string, req Request) (*http.Request, error) {
	var (
		body        io.Reader
		contentType string
	)

	switch payload := req.Body.(type) {
	case nil:
	case json.RawMessage:
		body, contentType = bytes.NewReader(payload), "application/json"
	case []byte:
		body, contentType = bytes.NewReader(payload), "application/json"
	default:
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, apierror.Wrap(err, apierror.UnexpectedError, "encoding request body: "+err.Error())
		}

		body, contentType = bytes.NewReader(encoded), "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, apierror.Wrap(err, apierror.UnexpectedError, "building request: "+err.Error())
	}

	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	if contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	if e.userAgent != "" {
		httpReq.Header.Set("User-Agent", e.userAgent)
	}

	if id, ok := logger.GetRequestId(ctx); ok {
		httpReq.Header.Set(HeaderRequestID, id)
	}

	return httpReq, nil
}

// normalize classifies err, turning expiry of the attempt's own deadline
// into a TIMEOUT_ERROR that names the bound.
func (e *Executor) normalize(attemptCtx context.Context, err error) *apierror.Error {
	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	if errors.Is(context.Cause(attemptCtx), errAttemptTimeout) {
		return apierror.Wrap(err, apierror.TimeoutError,
			fmt.Sprintf("request timed out after %s", e.timeout))
	}

	return apierror.Classify(err)
}

func (e *Executor) report(ctx context.Context, apiErr *apierror.Error, endpoint string) {
	if e.sink == nil || apiErr.Code.Unauthenticated() {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Get(ctx).Error("error sink panicked", "panic", r, "endpoint", endpoint)
		}
	}()

	e.sink.Log(ctx, apiErr, endpoint)
}

// newRequestID returns a time-ordered v7 id, or a random v4 id when the v7
// clock sequence cannot be read.
func newRequestID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}

	return uuid.NewString()
}

func endpointOf(ctx context.Context, raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	return redact.URL(ctx, u, redact.Credentials)
}
