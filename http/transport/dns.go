package transport

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/rs/dnscache"
)

const dnsRefreshInterval = 5 * time.Minute

var dnsResolver = &dnscache.Resolver{} //nolint:gochecknoglobals

// StartDNSRefresh refreshes cached DNS entries until ctx is done, dropping
// hosts that were not looked up since the previous refresh.
func StartDNSRefresh(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(dnsRefreshInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				dnsResolver.Refresh(true)
			}
		}
	}()
}

// useDNSCacheDialer resolves through dnsResolver and dials each address in
// turn until one connects.
func useDNSCacheDialer(trans *http.Transport, dialer *net.Dialer) {
	trans.DialContext = func(ctx context.Context, network string, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, err
		}

		ips, err := dnsResolver.LookupHost(ctx, host)
		if err != nil {
			return nil, err
		}

		if len(ips) == 0 {
			return nil, &net.DNSError{Err: "no addresses", Name: host, IsNotFound: true}
		}

		var conn net.Conn

		for _, ip := range ips {
			conn, err = dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
			if err == nil {
				return conn, nil
			}
		}

		return nil, err
	}
}
