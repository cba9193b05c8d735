package cli

import (
	"context"
	"errors"
	"strings"

	"github.com/linkforge/apiclient/apierror"
)

const (
	ExitOK        = 0
	ExitGeneral   = 1
	ExitUsage     = 2
	ExitAuth      = 3
	ExitAPI       = 4
	ExitInterrupt = 130
)

var (
	ErrUsage          = errors.New("usage error")
	ErrRequestsFailed = errors.New("requests failed")
)

var cobraUsageErrorPatterns = []string{ //nolint:gochecknoglobals
	"required flag",
	"unknown flag",
	"unknown shorthand",
	"unknown command",
	"flag needs an argument",
	"invalid argument",
	"accepts ",
	"requires at least",
	"requires at most",
}

// ExitCode maps the error returned by the command tree to a process exit
// status.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	if errors.Is(err, context.Canceled) {
		return ExitInterrupt
	}

	if errors.Is(err, ErrUsage) || isCobraUsageError(err) {
		return ExitUsage
	}

	var apiErr *apierror.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code.Unauthenticated() {
			return ExitAuth
		}

		return ExitAPI
	}

	if errors.Is(err, ErrRequestsFailed) {
		return ExitAPI
	}

	return ExitGeneral
}

func isCobraUsageError(err error) bool {
	msg := err.Error()

	for _, pattern := range cobraUsageErrorPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}
