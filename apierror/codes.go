package apierror

// Code identifies the kind of failure carried by an Error.
type Code string

// Codes produced by the API (or by the backend's error handlers).
const (
	ValidationError      Code = "VALIDATION_ERROR"
	RateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"
	AuthenticationError  Code = "AUTHENTICATION_ERROR"
	AuthorizationError   Code = "AUTHORIZATION_ERROR"
	ResourceNotFound     Code = "RESOURCE_NOT_FOUND"
	ResourceConflict     Code = "RESOURCE_CONFLICT"
	SafetyViolation      Code = "SAFETY_VIOLATION"
	PlanLimitExceeded    Code = "PLAN_LIMIT_EXCEEDED"
	ExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
)

// Codes synthesized on the client side. These never come from the server.
const (
	NoAuthToken     Code = "NO_AUTH_TOKEN"
	TimeoutError    Code = "TIMEOUT_ERROR"
	NetworkError    Code = "NETWORK_ERROR"
	ParseError      Code = "PARSE_ERROR"
	UnexpectedError Code = "UNEXPECTED_ERROR"
)

// The backend's generic HTTP exception handler emits status-flavored codes
// instead of the taxonomy above. They are accepted verbatim and only mapped
// when routing decisions are made (see Canonical). A wrong method or a gone
// resource is the caller's problem, so neither is retried.
var aliases = map[Code]Code{ //nolint:gochecknoglobals
	"BAD_REQUEST":           ValidationError,
	"UNPROCESSABLE_ENTITY":  ValidationError,
	"METHOD_NOT_ALLOWED":    ValidationError,
	"UNAUTHORIZED":          AuthenticationError,
	"FORBIDDEN":             AuthorizationError,
	"NOT_FOUND":             ResourceNotFound,
	"GONE":                  ResourceNotFound,
	"CONFLICT":              ResourceConflict,
	"TOO_MANY_REQUESTS":     RateLimitExceeded,
	"INTERNAL_SERVER_ERROR": UnexpectedError,
	"BAD_GATEWAY":           ExternalServiceError,
	"SERVICE_UNAVAILABLE":   ExternalServiceError,
}

var known = map[Code]struct{}{ //nolint:gochecknoglobals
	ValidationError:      {},
	RateLimitExceeded:    {},
	AuthenticationError:  {},
	AuthorizationError:   {},
	ResourceNotFound:     {},
	ResourceConflict:     {},
	SafetyViolation:      {},
	PlanLimitExceeded:    {},
	ExternalServiceError: {},
	NoAuthToken:          {},
	TimeoutError:         {},
	NetworkError:         {},
	ParseError:           {},
	UnexpectedError:      {},
}

// nonRetryable lists conditions a retry cannot fix: bad input, missing
// permission, absent resource, unsafe content.
var nonRetryable = map[Code]struct{}{ //nolint:gochecknoglobals
	ValidationError:     {},
	AuthenticationError: {},
	AuthorizationError:  {},
	ResourceNotFound:    {},
	SafetyViolation:     {},
}

// Codes returns the full taxonomy in declaration order.
func Codes() []Code {
	return []Code{
		ValidationError,
		RateLimitExceeded,
		AuthenticationError,
		AuthorizationError,
		ResourceNotFound,
		ResourceConflict,
		SafetyViolation,
		PlanLimitExceeded,
		ExternalServiceError,
		NoAuthToken,
		TimeoutError,
		NetworkError,
		ParseError,
		UnexpectedError,
	}
}

// String implements fmt.Stringer.
func (c Code) String() string {
	return string(c)
}

// Known reports whether c is part of the taxonomy (aliases included).
func (c Code) Known() bool {
	_, ok := known[c.Canonical()]

	return ok
}

// Canonical maps a status-flavored alias onto the taxonomy. Codes that are
// already canonical, and codes nobody knows about, are returned unchanged.
func (c Code) Canonical() Code {
	if canon, ok := aliases[c]; ok {
		return canon
	}

	return c
}

// Retryable reports whether an error carrying this code may succeed if the
// same operation is attempted again. Unknown codes are treated as transient.
func (c Code) Retryable() bool {
	_, denied := nonRetryable[c.Canonical()]

	return !denied
}

// Unauthenticated reports whether the code means the caller simply isn't
// signed in. These are an expected UI state rather than a system fault.
func (c Code) Unauthenticated() bool {
	switch c.Canonical() {
	case NoAuthToken, AuthenticationError:
		return true
	default:
		return false
	}
}

// UserFacing reports whether the code describes a condition caused by the
// caller's input or permissions rather than by the system.
func (c Code) UserFacing() bool {
	switch c.Canonical() {
	case ValidationError, AuthorizationError, ResourceNotFound, ResourceConflict,
		SafetyViolation, PlanLimitExceeded:
		return true
	default:
		return false
	}
}
