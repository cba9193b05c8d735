package transport

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoRoundTrip is returned by a NewCustom transport built without a function.
var ErrNoRoundTrip = errors.New("transport: no round trip function")

// NewCustom adapts a function to http.RoundTripper. It is mostly used in
// tests to script server behavior without a listener:
//
//	rt := transport.NewCustom(func(req *http.Request) (*http.Response, error) {
//	    return nil, syscall.ECONNREFUSED
//	})
//
// A nil function yields a transport that fails every request, which is handy
// for asserting that no network call is made.
func NewCustom(roundTrip func(req *http.Request) (*http.Response, error)) http.RoundTripper {
	if roundTrip == nil {
		roundTrip = func(req *http.Request) (*http.Response, error) {
			return nil, fmt.Errorf("%w: %s %s", ErrNoRoundTrip, req.Method, req.URL)
		}
	}

	return customTransport(roundTrip)
}

type customTransport func(req *http.Request) (*http.Response, error)

var _ http.RoundTripper = customTransport(nil)

func (c customTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	return c(request)
}
