// Package apierror defines the structured failure shape exchanged with the
// link API and the classifier that turns arbitrary Go errors into it.
//
// Every error that leaves the client or executor packages is an *Error. Callers
// switch on Error.Code and use Error.Message for display:
//
//	var apiErr *apierror.Error
//	if errors.As(err, &apiErr) && apiErr.Code == apierror.PlanLimitExceeded {
//	    showUpgradeBanner(apiErr.Message)
//	}
package apierror

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// Error is the canonical failure representation.
//
// Code, Message and Details mirror the wire envelope
// {"error": {"code", "message", "details"}}. Status, Endpoint and Cause are
// client-side context and never serialized.
type Error struct {
	Code    Code            `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`

	// Status is the HTTP status of the response the error was read from, or 0
	// when no response was received.
	Status int `json:"-"`

	// Endpoint is the URL (or path) of the call that failed.
	Endpoint string `json:"-"`

	// Cause is the underlying transport or decoding error, if any.
	Cause error `json:"-"`
}

// Envelope is the JSON wrapper the API uses for error bodies.
type Envelope struct {
	Error *Error `json:"error"`
}

// ValidationIssue is one entry of a VALIDATION_ERROR details list.
type ValidationIssue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Kind    string `json:"type"`
	Input   any    `json:"input,omitempty"`
}

// New returns an Error with the given code and message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Newf is New with fmt formatting.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap returns an Error with the given code whose Cause is err. The message
// defaults to err's text when msg is empty.
func Wrap(err error, code Code, msg string) *Error {
	if msg == "" && err != nil {
		msg = err.Error()
	}

	return &Error{Code: code, Message: msg, Cause: err}
}

// Error implements the error interface as "<code>: <message>".
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}

	if e.Message == "" {
		return string(e.Code)
	}

	return string(e.Code) + ": " + e.Message
}

// Unwrap exposes Cause to errors.Is and errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.Cause
}

// Is matches another *Error by code, so sentinel-style comparisons work:
//
//	errors.Is(err, apierror.New(apierror.NoAuthToken, ""))
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error) //nolint:errorlint
	if !ok || e == nil || t == nil {
		return false
	}

	return e.Code == t.Code
}

// Temporary reports whether the operation that produced e may be retried.
// It satisfies the retry package's permanent-error contract.
func (e *Error) Temporary() bool {
	return IsRetryable(e)
}

// LogValue renders e as a group so structured logs carry the code and
// context as separate fields.
func (e *Error) LogValue() slog.Value {
	if e == nil {
		return slog.StringValue("<nil>")
	}

	attrs := []slog.Attr{
		slog.String("code", string(e.Code)),
		slog.String("message", e.Message),
	}

	if e.Status != 0 {
		attrs = append(attrs, slog.Int("status", e.Status))
	}

	if e.Endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", e.Endpoint))
	}

	if e.Cause != nil {
		attrs = append(attrs, slog.String("cause", e.Cause.Error()))
	}

	return slog.GroupValue(attrs...)
}

// WithStatus returns a shallow copy of e with Status set.
func (e *Error) WithStatus(status int) *Error {
	cp := *e
	cp.Status = status

	return &cp
}

// WithEndpoint returns a shallow copy of e with Endpoint set.
func (e *Error) WithEndpoint(endpoint string) *Error {
	cp := *e
	cp.Endpoint = endpoint

	return &cp
}

// WithDetails returns a shallow copy of e with details marshaled from v.
// If v cannot be marshaled the copy carries no details.
func (e *Error) WithDetails(v any) *Error {
	cp := *e

	raw, err := json.Marshal(v)
	if err != nil {
		cp.Details = nil
	} else {
		cp.Details = raw
	}

	return &cp
}

// ValidationIssues decodes the details of a validation failure. It returns
// nil when there are no details or they are not a list of issues.
func (e *Error) ValidationIssues() []ValidationIssue {
	if e == nil || len(e.Details) == 0 {
		return nil
	}

	var issues []ValidationIssue
	if err := json.Unmarshal(e.Details, &issues); err != nil {
		return nil
	}

	return issues
}

// RetryAfter returns the server's retry hint for a rate-limit failure.
func (e *Error) RetryAfter() (time.Duration, bool) {
	if e == nil || len(e.Details) == 0 {
		return 0, false
	}

	var body struct {
		RetryAfter json.RawMessage `json:"retry_after"`
	}

	if err := json.Unmarshal(e.Details, &body); err != nil || len(body.RetryAfter) == 0 {
		return 0, false
	}

	secs, err := strconv.ParseFloat(string(bytes.Trim(body.RetryAfter, `"`)), 64)
	if err != nil || secs < 0 {
		return 0, false
	}

	return time.Duration(secs * float64(time.Second)), true
}

// ParseEnvelope decodes an error response body. It reports false unless the
// body is a JSON object with an "error" member carrying a non-empty code.
func ParseEnvelope(body []byte) (*Error, bool) {
	var env Envelope

	if err := json.Unmarshal(body, &env); err != nil {
		return nil, false
	}

	if env.Error == nil || env.Error.Code == "" {
		return nil, false
	}

	return env.Error, true
}
