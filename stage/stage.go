// Package stage reports which deployment environment the process runs in,
// read from RUNNING_ENV. Telemetry tags exported traces with it.
package stage

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"sync"

	"github.com/linkforge/apiclient/envutil"
)

// Stage is a deployment environment.
type Stage string

var ErrUnrecognizedStage = errors.New("unrecognized stage")

const (
	Unknown Stage = "unknown"
	Local   Stage = "local"
	Test    Stage = "test"
	Dev     Stage = "dev"
	Staging Stage = "staging"
	Prod    Stage = "prod"
)

// Parse maps a RUNNING_ENV value to a Stage, case-insensitively.
func Parse(s string) (Stage, error) {
	switch st := Stage(strings.ToLower(strings.TrimSpace(s))); st {
	case Local, Test, Dev, Staging, Prod:
		return st, nil
	default:
		return Unknown, fmt.Errorf("%w: %q", ErrUnrecognizedStage, s)
	}
}

// Current returns the stage of this process. It is read once.
func Current() Stage {
	return runningStage()
}

// IsProd reports whether the process runs in production.
func IsProd() bool {
	return Current() == Prod
}

var runningStage = sync.OnceValue(detect) //nolint:gochecknoglobals

// detect reads RUNNING_ENV. Without a valid value it falls back to Test
// under go test and Unknown otherwise.
func detect() Stage {
	fallback := Unknown
	if flag.Lookup("test.v") != nil {
		fallback = Test
	}

	return envutil.Map(envutil.String("RUNNING_ENV"), Parse).ValueOrElse(fallback)
}
