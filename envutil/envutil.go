// Package envutil reads typed configuration from environment variables.
//
//	timeout := envutil.Duration("LINKAPI_TIMEOUT",
//	    envutil.Default(30*time.Second)).ValueOrElse(30 * time.Second)
//
// A variable set to the empty string counts as unset.
package envutil

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidURL   = errors.New("invalid URL")
	ErrInvalidLevel = errors.New("invalid log level")
)

func get(key string) Reader[string] {
	val, ok := os.LookupEnv(key)
	if strings.TrimSpace(val) == "" {
		ok = false
	}

	return Reader[string]{
		key:     key,
		present: ok,
		value:   val,
	}
}

func apply[T any](rdr Reader[T], opts []Option[T]) Reader[T] {
	for _, opt := range opts {
		if opt != nil {
			rdr = opt(rdr)
		}
	}

	return rdr
}

// NewReader builds a Reader from raw data rather than the environment.
func NewReader[T any](key string, present bool, err error, value T) Reader[T] {
	return Reader[T]{
		key:     key,
		present: present,
		value:   value,
		err:     err,
	}
}

// String reads a string.
func String(key string, opts ...Option[string]) Reader[string] {
	return apply(get(key), opts)
}

// Bool reads a boolean in any form strconv.ParseBool accepts.
func Bool(key string, opts ...Option[bool]) Reader[bool] {
	return apply(Map(get(key), func(s string) (bool, error) {
		return strconv.ParseBool(strings.TrimSpace(s))
	}), opts)
}

// Integer is the set of types Int can produce.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 | ~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// Int reads a base-10 integer, rejecting values that overflow I.
func Int[I Integer](key string, opts ...Option[I]) Reader[I] {
	return apply(Map(get(key), func(s string) (I, error) {
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return 0, err
		}

		out := I(n)
		if int64(out) != n || (out < 0) != (n < 0) {
			return 0, fmt.Errorf("%w: %d", strconv.ErrRange, n)
		}

		return out, nil
	}), opts)
}

// Duration reads a time.ParseDuration string. A bare integer is taken as
// milliseconds.
func Duration(key string, opts ...Option[time.Duration]) Reader[time.Duration] {
	return apply(Map(get(key), func(s string) (time.Duration, error) {
		s = strings.TrimSpace(s)

		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Duration(ms) * time.Millisecond, nil
		}

		return time.ParseDuration(s)
	}), opts)
}

// URL reads an absolute http or https URL.
func URL(key string, opts ...Option[*url.URL]) Reader[*url.URL] {
	return apply(Map(get(key), func(s string) (*url.URL, error) {
		u, err := url.Parse(strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}

		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("%w: %q", ErrInvalidURL, s)
		}

		return u, nil
	}), opts)
}

// SlogLevel reads a level name (debug, info, warn, error), case-insensitively.
func SlogLevel(key string, opts ...Option[slog.Level]) Reader[slog.Level] {
	return apply(Map(get(key), func(s string) (slog.Level, error) {
		var level slog.Level

		if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
		}

		return level, nil
	}), opts)
}
