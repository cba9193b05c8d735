package transport

import (
	"net/http"
	"sync"
)

type instanceKey struct {
	unpooled bool
	dnsCache bool
}

var (
	instancesMu sync.Mutex                          //nolint:gochecknoglobals
	instances   = map[instanceKey]*http.Transport{} //nolint:gochecknoglobals
)

// getTransportInstance returns the shared transport for cfg, creating it on
// first use. Overrides bypass the pool.
func getTransportInstance(cfg *config) http.RoundTripper {
	for _, tr := range cfg.TransportOverrides {
		if tr != nil {
			return tr
		}
	}

	key := instanceKey{
		unpooled: cfg.DisableConnectionPooling,
		dnsCache: cfg.EnableDNSCache,
	}

	instancesMu.Lock()
	defer instancesMu.Unlock()

	tr, ok := instances[key]
	if !ok {
		tr = create(cfg)
		instances[key] = tr
	}

	return tr
}
