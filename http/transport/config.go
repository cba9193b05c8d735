package transport

import (
	"net/http"
	"sync"

	"github.com/linkforge/apiclient/envutil"
)

// Option adjusts how Get and New build a transport.
type Option func(*config)

type config struct {
	TransportOverrides       []http.RoundTripper
	DisableConnectionPooling bool
	EnableDNSCache           bool
	DebugLog                 bool
}

// DisableConnectionPooling turns off keep-alives.
func DisableConnectionPooling(c *config) {
	c.DisableConnectionPooling = true
}

// EnableDNSCache resolves hosts through a shared caching resolver.
func EnableDNSCache(c *config) {
	c.EnableDNSCache = true
}

// DebugLog wraps the transport in a round tripper that logs every exchange
// at debug level with credentials redacted.
func DebugLog(c *config) {
	c.DebugLog = true
}

// WithTransportOverride replaces the pooled transport with the first non-nil
// round tripper given.
func WithTransportOverride(transport ...http.RoundTripper) Option {
	return func(c *config) {
		c.TransportOverrides = append(c.TransportOverrides, transport...)
	}
}

var preferPooled = sync.OnceValue(func() bool { //nolint:gochecknoglobals
	return envutil.Bool("LINKAPI_HTTP_PREFER_POOLED",
		envutil.Default(true)).ValueOrElse(true)
})

func readOptions(opts ...Option) *config {
	cfg := &config{}

	if !preferPooled() {
		cfg.DisableConnectionPooling = true
	}

	for _, c := range opts {
		if c != nil {
			c(cfg)
		}
	}

	return cfg
}
