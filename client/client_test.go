package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/linkforge/apiclient/apierror"
	"github.com/linkforge/apiclient/retry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type shortLink struct {
	Slug string `json:"slug"`
	URL  string `json:"url,omitempty"`
}

func testConfig(t *testing.T, raw string) Config {
	t.Helper()

	base, err := url.Parse(raw)
	require.NoError(t, err)

	return Config{
		BaseURL:        base,
		Timeout:        5 * time.Second,
		RetryAttempts:  4,
		RetryBaseDelay: time.Millisecond,
		UserAgent:      "linkctl-test",
	}
}

func newTestClient(t *testing.T, raw string, opts ...Option) *Client {
	t.Helper()

	c, err := New(testConfig(t, raw), append([]Option{WithSink(nil)}, opts...)...)
	require.NoError(t, err)

	return c
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": msg},
	})
}

func TestGet_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	calls := atomic.NewInt32(0)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Inc() <= 2 {
			writeError(w, http.StatusServiceUnavailable, "EXTERNAL_SERVICE_ERROR", "firestore unavailable")

			return
		}

		_, _ = w.Write([]byte(`{"slug":"ok"}`))
	}))
	defer server.Close()

	got, err := GetValue[shortLink](t.Context(), newTestClient(t, server.URL), "/api/links/ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Slug)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGet_DoesNotRetryPermanentFailures(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		status int
		code   string
	}{
		{http.StatusBadRequest, "VALIDATION_ERROR"},
		{http.StatusForbidden, "AUTHORIZATION_ERROR"},
		{http.StatusNotFound, "RESOURCE_NOT_FOUND"},
		{http.StatusBadRequest, "SAFETY_VIOLATION"},
		{http.StatusUnauthorized, "AUTHENTICATION_ERROR"},
	} {
		t.Run(tt.code, func(t *testing.T) {
			t.Parallel()

			calls := atomic.NewInt32(0)

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Inc()
				writeError(w, tt.status, tt.code, "nope")
			}))
			defer server.Close()

			err := newTestClient(t, server.URL).Get(t.Context(), "/api/links/x", nil)

			var apiErr *apierror.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, apierror.Code(tt.code), apiErr.Code)
			assert.Equal(t, "nope", apiErr.Message)
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestGet_StatusAliasesAreNotRetried(t *testing.T) {
	t.Parallel()

	for status, code := range map[int]string{
		http.StatusMethodNotAllowed: "METHOD_NOT_ALLOWED",
		http.StatusGone:             "GONE",
	} {
		t.Run(code, func(t *testing.T) {
			t.Parallel()

			calls := atomic.NewInt32(0)

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Inc()
				writeError(w, status, code, http.StatusText(status))
			}))
			defer server.Close()

			err := newTestClient(t, server.URL).Get(t.Context(), "/api/links/x", nil)
			assert.Equal(t, apierror.Code(code), apierror.CodeOf(err))
			assert.Equal(t, int32(1), calls.Load())
		})
	}
}

func TestGet_ExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := atomic.NewInt32(0)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Inc()
		writeError(w, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "slow down")
	}))
	defer server.Close()

	err := newTestClient(t, server.URL).Get(t.Context(), "/api/links", nil)
	assert.Equal(t, apierror.RateLimitExceeded, apierror.CodeOf(err))
	assert.Equal(t, int32(4), calls.Load())
}

func TestGet_SingleAttemptBudget(t *testing.T) {
	t.Parallel()

	calls := atomic.NewInt32(0)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Inc()
		writeError(w, http.StatusBadGateway, "EXTERNAL_SERVICE_ERROR", "down")
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	cfg.RetryAttempts = 1

	c, err := New(cfg, WithSink(nil))
	require.NoError(t, err)

	err = c.Get(t.Context(), "/api/links", nil)
	assert.Equal(t, apierror.ExternalServiceError, apierror.CodeOf(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestGet_CancelInterruptsBackoff(t *testing.T) {
	t.Parallel()

	calls := atomic.NewInt32(0)
	ctx, cancel := context.WithCancel(t.Context())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Inc()
		writeError(w, http.StatusServiceUnavailable, "EXTERNAL_SERVICE_ERROR", "down")
		cancel()
	}))
	defer server.Close()

	cfg := testConfig(t, server.URL)
	cfg.RetryBaseDelay = time.Hour

	c, err := New(cfg, WithSink(nil))
	require.NoError(t, err)

	done := make(chan error, 1)

	go func() { done <- c.Get(ctx, "/api/links", nil) }()

	select {
	case err := <-done:
		assert.Equal(t, apierror.TimeoutError, apierror.CodeOf(err))
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(10 * time.Second):
		t.Fatal("backoff was not interrupted")
	}

	assert.Equal(t, int32(1), calls.Load())
}

func TestWithRetryOptions_Observer(t *testing.T) {
	t.Parallel()

	calls := atomic.NewInt32(0)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Inc() < 3 {
			writeError(w, http.StatusServiceUnavailable, "EXTERNAL_SERVICE_ERROR", "busy")

			return
		}

		_ = json.NewEncoder(w).Encode(shortLink{Slug: "abc"})
	}))
	defer server.Close()

	var attempts []uint

	c := newTestClient(t, server.URL, WithRetryOptions(
		retry.WithObserver(func(_ context.Context, attempt uint, _ error, decision retry.Decision) {
			if decision.Retry {
				attempts = append(attempts, attempt)
			}
		}),
	))

	link, err := GetValue[shortLink](t.Context(), c, "/api/links/abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", link.Slug)
	assert.Equal(t, []uint{0, 1}, attempts)
}

func TestWrites_AreNotRetried(t *testing.T) {
	t.Parallel()

	type seen struct {
		method string
		body   string
	}

	requests := make(chan seen, 8)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests <- seen{method: r.Method, body: string(body)}

		writeError(w, http.StatusServiceUnavailable, "EXTERNAL_SERVICE_ERROR", "down")
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	require.Error(t, c.Post(t.Context(), "/api/links", shortLink{Slug: "a"}, nil))
	require.Error(t, c.Put(t.Context(), "/api/links/a", shortLink{Slug: "b"}, nil))
	require.Error(t, c.Delete(t.Context(), "/api/links/a", nil))

	close(requests)

	var got []seen
	for s := range requests {
		got = append(got, s)
	}

	assert.Equal(t, []seen{
		{http.MethodPost, `{"slug":"a"}`},
		{http.MethodPut, `{"slug":"b"}`},
		{http.MethodDelete, ``},
	}, got)
}

func TestWrites_DecodeResponse(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in shortLink

		assert.NoError(t, json.NewDecoder(r.Body).Decode(&in))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(shortLink{Slug: in.Slug, URL: "https://go2.tools/" + in.Slug})
	}))
	defer server.Close()

	var out shortLink

	require.NoError(t, newTestClient(t, server.URL).Post(t.Context(), "/api/links", shortLink{Slug: "launch"}, &out))
	assert.Equal(t, shortLink{Slug: "launch", URL: "https://go2.tools/launch"}, out)
}

func TestResolve(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, "https://api.go2.tools/v1/")

	tests := []struct {
		path string
		want string
	}{
		{"links", "https://api.go2.tools/v1/links"},
		{"/api/links", "https://api.go2.tools/api/links"},
		{"links?limit=10", "https://api.go2.tools/v1/links?limit=10"},
		{"http://other.test/x", "http://other.test/x"},
	}

	for _, tt := range tests {
		got, err := c.resolve(tt.path)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.path)
	}

	_, err := c.resolve("http://[::1")
	assert.Equal(t, apierror.UnexpectedError, apierror.CodeOf(err))
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.ErrorIs(t, err, ErrInvalidBaseURL)

	relative, _ := url.Parse("/api")

	_, err = New(Config{BaseURL: relative})
	require.ErrorIs(t, err, ErrInvalidBaseURL)

	c, err := New(DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL().String())
}

func TestNew_RoundTripperOverride(t *testing.T) {
	t.Parallel()

	rt := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "linkctl-test", r.Header.Get("User-Agent"))

		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body:       io.NopCloser(jsonReader(`{"slug":"stub"}`)),
			Request:    r,
		}, nil
	})

	c := newTestClient(t, "http://api.test", WithRoundTripper(rt))

	got, err := GetValue[shortLink](t.Context(), c, "/api/links/stub")
	require.NoError(t, err)
	assert.Equal(t, "stub", got.Slug)
}

func TestGet_CountsRetries(t *testing.T) { //nolint:paralleltest // reads a global counter
	calls := atomic.NewInt32(0)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Inc() == 1 {
			writeError(w, http.StatusGatewayTimeout, "EXTERNAL_SERVICE_ERROR", "slow")

			return
		}

		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	before := testutil.ToFloat64(retries.WithLabelValues(http.MethodGet))

	require.NoError(t, newTestClient(t, server.URL).Get(t.Context(), "/api/links", nil))
	assert.InDelta(t, before+1, testutil.ToFloat64(retries.WithLabelValues(http.MethodGet)), 0)
}
