// Package redact masks credentials in HTTP headers and query parameters so
// request traces can be logged without leaking bearer tokens.
package redact

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

const marker = "[redacted]"

// PartiallyRedactString shows the first visibleRunes characters and replaces the rest
// with asterisks. If the string is shorter than or equal to visibleRunes,
// it is returned unchanged.
//
//	PartiallyRedactString("Bearer eyJhbGciOi", 7, false) // "Bearer **********"
//	PartiallyRedactString("Bearer eyJhbGciOi", 7, true)  // "Bearer [redacted]"
func PartiallyRedactString(value string, visibleRunes int, truncate bool) string {
	runes := []rune(value)
	if len(runes) <= visibleRunes {
		return value
	}

	if visibleRunes < 0 {
		visibleRunes = 0
	}

	show := string(runes[:visibleRunes])

	if truncate {
		return show + marker
	}

	return show + strings.Repeat("*", len(runes)-visibleRunes)
}

// Action represents how a header or query parameter value should be handled during redaction.
type Action int

const (
	// ActionKeep keeps the value as-is.
	ActionKeep Action = iota
	// ActionRedactFully replaces the value with "[redacted]".
	ActionRedactFully
	// ActionRedactPartialWithMask shows the first N characters and masks the rest with asterisks.
	ActionRedactPartialWithMask
	// ActionRedactPartialTruncate shows the first N characters followed by "[redacted]".
	ActionRedactPartialTruncate
	// ActionDelete drops the value from the output.
	ActionDelete
)

// Func decides how to redact a single key-value pair. partialLength is only
// used by the partial actions.
type Func func(ctx context.Context, key, value string) (action Action, partialLength int)

// Credentials is the Func used for API client traces. Bearer tokens keep
// their scheme so a reader can tell an auth header was sent; cookies and API
// keys are removed outright.
func Credentials(_ context.Context, key, value string) (Action, int) {
	switch strings.ToLower(key) {
	case "authorization", "proxy-authorization":
		if scheme, _, ok := strings.Cut(value, " "); ok {
			return ActionRedactPartialTruncate, len(scheme) + 1
		}

		return ActionRedactFully, 0
	case "cookie", "set-cookie":
		return ActionDelete, 0
	case "x-api-key", "api_key", "apikey", "token", "access_token", "id_token":
		return ActionRedactFully, 0
	default:
		return ActionKeep, 0
	}
}

func apply(action Action, partialLen int, val string) (string, bool) {
	switch action {
	case ActionRedactFully:
		return marker, true
	case ActionRedactPartialWithMask:
		return PartiallyRedactString(val, partialLen, false), true
	case ActionRedactPartialTruncate:
		return PartiallyRedactString(val, partialLen, true), true
	case ActionDelete:
		return "", false
	case ActionKeep:
		return val, true
	default:
		return val, true
	}
}

// Headers returns a redacted copy of headers. A nil redact clones them
// unchanged. The input is never modified.
func Headers(ctx context.Context, headers http.Header, redact Func) http.Header {
	if headers == nil {
		return nil
	}

	if redact == nil {
		return headers.Clone()
	}

	redacted := make(http.Header, len(headers))

	for key, hdrs := range headers {
		for _, val := range hdrs {
			action, partialLen := redact(ctx, key, val)
			if out, ok := apply(action, partialLen, val); ok {
				redacted.Add(key, out)
			}
		}
	}

	return redacted
}

// URLValues is the query-string counterpart of Headers.
func URLValues(ctx context.Context, values url.Values, redact Func) url.Values {
	if values == nil {
		return nil
	}

	redacted := make(url.Values, len(values))

	for key, vals := range values {
		for _, val := range vals {
			if redact == nil {
				redacted.Add(key, val)

				continue
			}

			action, partialLen := redact(ctx, key, val)
			if out, ok := apply(action, partialLen, val); ok {
				redacted.Add(key, out)
			}
		}
	}

	return redacted
}

// URL returns u as a string with its query parameters redacted.
func URL(ctx context.Context, u *url.URL, redact Func) string {
	if u == nil {
		return ""
	}

	if u.RawQuery == "" {
		return u.String()
	}

	clone := *u
	clone.RawQuery = URLValues(ctx, u.Query(), redact).Encode()

	return clone.String()
}
