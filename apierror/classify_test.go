package apierror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func TestClassify_Nil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Classify(nil))
	assert.False(t, IsRetryable(nil))
	assert.Empty(t, CodeOf(nil))
}

func TestClassify_PassThrough(t *testing.T) {
	t.Parallel()

	for _, code := range Codes() {
		t.Run(string(code), func(t *testing.T) {
			t.Parallel()

			original := New(code, "message for "+string(code))
			classified := Classify(original)

			require.NotNil(t, classified)
			assert.Same(t, original, classified)
			assert.Equal(t, code, classified.Code)
			assert.Equal(t, "message for "+string(code), classified.Message)
		})
	}
}

func TestClassify_PassThroughWrapped(t *testing.T) {
	t.Parallel()

	original := New(RateLimitExceeded, "slow down")
	wrapped := fmt.Errorf("fetching links: %w", original)

	assert.Same(t, original, Classify(wrapped))
}

func TestClassify_PassThroughDecodedEnvelope(t *testing.T) {
	t.Parallel()

	parsed, ok := ParseEnvelope([]byte(`{"error":{"code":"SOMETHING_NEW","message":"odd"}}`))
	require.True(t, ok)

	classified := Classify(parsed)
	assert.Equal(t, Code("SOMETHING_NEW"), classified.Code)
	assert.Equal(t, "odd", classified.Message)
}

func TestClassify_Timeouts(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{"deadline", context.DeadlineExceeded},
		{"canceled", context.Canceled},
		{"wrapped deadline", fmt.Errorf("request: %w", context.DeadlineExceeded)},
		{"url error", &url.Error{Op: "Get", URL: "http://x", Err: context.DeadlineExceeded}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			classified := Classify(tt.err)
			assert.Equal(t, TimeoutError, classified.Code)
			require.ErrorIs(t, classified, tt.err)
		})
	}
}

func TestClassify_Network(t *testing.T) {
	t.Parallel()

	opErr := &net.OpError{Op: "dial", Net: "tcp", Err: errBoom}
	classified := Classify(&url.Error{Op: "Get", URL: "http://x", Err: opErr})

	assert.Equal(t, NetworkError, classified.Code)
	assert.ErrorIs(t, classified, errBoom)
}

func TestClassify_Unexpected(t *testing.T) {
	t.Parallel()

	classified := Classify(errBoom)

	assert.Equal(t, UnexpectedError, classified.Code)
	assert.Equal(t, "boom", classified.Message)
	assert.ErrorIs(t, classified, errBoom)
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	denied := []Code{ValidationError, AuthenticationError, AuthorizationError, ResourceNotFound, SafetyViolation}
	allowed := []Code{
		RateLimitExceeded, ExternalServiceError, TimeoutError, NetworkError,
		ParseError, UnexpectedError, ResourceConflict, PlanLimitExceeded, "INTERNAL_SERVER_ERROR",
	}

	for _, code := range denied {
		assert.False(t, IsRetryable(New(code, "")), code)
	}

	for _, code := range allowed {
		assert.True(t, IsRetryable(New(code, "")), code)
	}
}

func TestIsRetryable_Aliases(t *testing.T) {
	t.Parallel()

	assert.False(t, IsRetryable(New("FORBIDDEN", "Admin access required")))
	assert.False(t, IsRetryable(New("UNAUTHORIZED", "")))
	assert.False(t, IsRetryable(New("NOT_FOUND", "")))
	assert.True(t, IsRetryable(New("TOO_MANY_REQUESTS", "")))
	assert.True(t, IsRetryable(New("SERVICE_UNAVAILABLE", "")))
	assert.False(t, IsRetryable(New("METHOD_NOT_ALLOWED", "")))
	assert.False(t, IsRetryable(New("GONE", "")))
	assert.True(t, IsRetryable(New("INTERNAL_SERVER_ERROR", "")))
	assert.True(t, IsRetryable(New("BAD_GATEWAY", "")))

	for _, alias := range []Code{"METHOD_NOT_ALLOWED", "GONE", "INTERNAL_SERVER_ERROR", "BAD_GATEWAY", "SERVICE_UNAVAILABLE"} {
		assert.True(t, alias.Known(), alias)
	}

	assert.True(t, Code("GONE").UserFacing(), "logged at WARN")
	assert.False(t, Code("INTERNAL_SERVER_ERROR").UserFacing())
}

func TestCode_Predicates(t *testing.T) {
	t.Parallel()

	assert.True(t, NoAuthToken.Unauthenticated())
	assert.True(t, Code("UNAUTHORIZED").Unauthenticated())
	assert.False(t, AuthorizationError.Unauthenticated())

	assert.True(t, ValidationError.UserFacing())
	assert.True(t, Code("FORBIDDEN").UserFacing())
	assert.False(t, NetworkError.UserFacing())

	assert.True(t, Code("CONFLICT").Known())
	assert.False(t, Code("HTTP_ERROR").Known())
	assert.Len(t, Codes(), 14)
}

func TestError_TemporaryAndIs(t *testing.T) {
	t.Parallel()

	assert.False(t, New(ValidationError, "bad").Temporary())
	assert.True(t, New(NetworkError, "down").Temporary())

	err := fmt.Errorf("wrapped: %w", New(NoAuthToken, "sign in"))
	require.ErrorIs(t, err, New(NoAuthToken, ""))
	assert.NotErrorIs(t, err, New(TimeoutError, ""))
	assert.Equal(t, "NO_AUTH_TOKEN: sign in", New(NoAuthToken, "sign in").Error())
	assert.Equal(t, http.StatusTeapot, New(ParseError, "").WithStatus(http.StatusTeapot).Status)
}
