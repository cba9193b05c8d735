// Package transport builds the HTTP round trippers used by the API client.
//
// Transports are pooled and shared: Get hands out one process-wide
// *http.Transport per configuration so connections are reused across
// clients. Every transport returned by Get transparently decompresses
// gzip, deflate, br and zstd response bodies.
//
//	rt := transport.Get(transport.EnableDNSCache)
//	httpClient := &http.Client{Transport: rt}
//
// Tests swap the transport out with WithTransportOverride and NewCustom.
//
// # Environment Variables
//
//   - LINKAPI_HTTP_PREFER_POOLED: keep-alive connection reuse (default: true)
//   - LINKAPI_HTTP_MAX_IDLE_CONNS: maximum idle connections (default: 100)
//   - LINKAPI_HTTP_IDLE_CONN_TIMEOUT: idle connection timeout (default: 90s)
//   - LINKAPI_HTTP_TLS_HANDSHAKE_TIMEOUT: TLS handshake timeout (default: 10s)
//   - LINKAPI_HTTP_DIAL_TIMEOUT: connection dial timeout (default: 30s)
//   - LINKAPI_HTTP_DIAL_KEEPALIVE: TCP keep-alive period (default: 30s)
//   - LINKAPI_HTTP_FORCE_ATTEMPT_HTTP2: try HTTP/2 (default: true)
package transport

import (
	"net"
	"net/http"
	"time"

	"github.com/linkforge/apiclient/envutil"
)

const (
	defaultIdleConnTimeout       = 90 * time.Second
	defaultMaxIdleConns          = 100
	defaultTLSHandshakeTimeout   = 10 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultForceAttemptHTTP2     = true
	defaultDialTimeout           = 30 * time.Second //nolint:mnd
	defaultKeepAlive             = 30 * time.Second //nolint:mnd
)

// New returns a fresh *http.Transport. Prefer Get, which shares one
// transport per configuration.
func New(opts ...Option) *http.Transport {
	return create(readOptions(opts...))
}

func create(cfg *config) *http.Transport {
	dialTimeout := envutil.Duration("LINKAPI_HTTP_DIAL_TIMEOUT",
		envutil.Default(defaultDialTimeout)).
		ValueOrElse(defaultDialTimeout)

	keepAlive := envutil.Duration("LINKAPI_HTTP_DIAL_KEEPALIVE",
		envutil.Default(defaultKeepAlive)).
		ValueOrElse(defaultKeepAlive)

	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: keepAlive,
	}

	transport := &http.Transport{
		Proxy:       http.ProxyFromEnvironment,
		DialContext: dialer.DialContext,
		ForceAttemptHTTP2: envutil.Bool("LINKAPI_HTTP_FORCE_ATTEMPT_HTTP2",
			envutil.Default(defaultForceAttemptHTTP2)).
			ValueOrElse(defaultForceAttemptHTTP2),
		MaxIdleConns: envutil.Int("LINKAPI_HTTP_MAX_IDLE_CONNS",
			envutil.Default(defaultMaxIdleConns)).
			ValueOrElse(defaultMaxIdleConns),
		IdleConnTimeout: envutil.Duration("LINKAPI_HTTP_IDLE_CONN_TIMEOUT",
			envutil.Default(defaultIdleConnTimeout)).
			ValueOrElse(defaultIdleConnTimeout),
		TLSHandshakeTimeout: envutil.Duration("LINKAPI_HTTP_TLS_HANDSHAKE_TIMEOUT",
			envutil.Default(defaultTLSHandshakeTimeout)).
			ValueOrElse(defaultTLSHandshakeTimeout),
		ExpectContinueTimeout: defaultExpectContinueTimeout,
		// Compression is negotiated by the decompressor wrapper.
		DisableCompression: true,
	}

	if cfg.DisableConnectionPooling {
		transport.DisableKeepAlives = true
	}

	if cfg.EnableDNSCache {
		useDNSCacheDialer(transport, dialer)
	}

	return transport
}

// Get returns the round tripper to use for a request: the first non-nil
// WithTransportOverride, or else the shared pooled instance for the requested
// configuration. The result always decompresses responses, and logs traffic
// when DebugLog is set.
func Get(opts ...Option) http.RoundTripper {
	cfg := readOptions(opts...)

	rt := NewDecompressor(getTransportInstance(cfg))

	if cfg.DebugLog {
		rt = NewLoggingTransport(rt)
	}

	return rt
}
