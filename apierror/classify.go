package apierror

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"
)

// Classify normalizes any error into an *Error. It never panics.
//
//   - nil stays nil.
//   - An *Error anywhere in the chain is returned unchanged.
//   - Cancellation and deadlines map to TIMEOUT_ERROR.
//   - Failures where no response was received map to NETWORK_ERROR.
//   - Anything else maps to UNEXPECTED_ERROR, keeping the original message.
//
// The original error is kept as Cause for every synthesized result.
func Classify(err error) (out *Error) {
	if err == nil {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			out = &Error{Code: UnexpectedError, Message: "unclassifiable error", Cause: err}
		}
	}()

	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr
	}

	switch {
	case isTimeout(err):
		return Wrap(err, TimeoutError, "")
	case isNetwork(err):
		return Wrap(err, NetworkError, "")
	default:
		return Wrap(err, UnexpectedError, "")
	}
}

// IsRetryable reports whether err, once classified, is worth another attempt.
// nil is not retryable.
func IsRetryable(err error) bool {
	e := Classify(err)
	if e == nil {
		return false
	}

	return e.Code.Retryable()
}

// CodeOf returns the classified code of err, or "" for nil.
func CodeOf(err error) Code {
	e := Classify(err)
	if e == nil {
		return ""
	}

	return e.Code
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

func isNetwork(err error) bool {
	var (
		netErr net.Error
		opErr  *net.OpError
		dnsErr *net.DNSError
	)

	switch {
	case errors.As(err, &opErr), errors.As(err, &dnsErr), errors.As(err, &netErr):
		return true
	case errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return true
	default:
		return false
	}
}
