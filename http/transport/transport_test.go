package transport

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTransport struct{}

func (s *stubTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, ErrNoRoundTrip
}

func TestNew(t *testing.T) { //nolint:paralleltest // uses t.Setenv
	t.Setenv("LINKAPI_HTTP_MAX_IDLE_CONNS", "7")
	t.Setenv("LINKAPI_HTTP_IDLE_CONN_TIMEOUT", "15s")

	tr := New(DisableConnectionPooling)

	assert.Equal(t, 7, tr.MaxIdleConns)
	assert.Equal(t, 15*time.Second, tr.IdleConnTimeout)
	assert.True(t, tr.DisableKeepAlives)
	assert.True(t, tr.DisableCompression)
	assert.Equal(t, defaultTLSHandshakeTimeout, tr.TLSHandshakeTimeout)
}

func TestGetTransportInstance_Shared(t *testing.T) {
	t.Parallel()

	a := getTransportInstance(&config{})
	b := getTransportInstance(&config{})
	c := getTransportInstance(&config{EnableDNSCache: true})

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestGet_Precedence(t *testing.T) {
	t.Parallel()

	override := &stubTransport{}
	later := &stubTransport{}

	rt := Get(WithTransportOverride(nil, override))
	dec, ok := rt.(*decompressor)
	require.True(t, ok)
	assert.Same(t, override, dec.roundTripper)

	rt = Get(WithTransportOverride(override), WithTransportOverride(later))
	dec, ok = rt.(*decompressor)
	require.True(t, ok)
	assert.Same(t, override, dec.roundTripper, "the first override wins")

	rt = Get(DebugLog)
	_, ok = rt.(*loggingTransport)
	assert.True(t, ok)
}

func TestGet_DNSCache(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	}))
	defer server.Close()

	client := &http.Client{Transport: Get(EnableDNSCache)}

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	rsp, err := client.Do(req)
	require.NoError(t, err)

	defer func() { _ = rsp.Body.Close() }()

	body, err := io.ReadAll(rsp.Body)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))
}
