// Package client is the facade callers use to reach the link API.
//
// A Client issues unauthenticated calls; Authenticated derives an AuthClient
// that attaches a bearer credential to every call. On both, Get is retried
// with exponential backoff and jitter while Post, Put and Delete are sent
// exactly once, since a failed write cannot be told apart from a partial
// success. Every method either decodes the response into out or returns an
// *apierror.Error.
package client

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/linkforge/apiclient/apierror"
	"github.com/linkforge/apiclient/http/executor"
	"github.com/linkforge/apiclient/http/transport"
	"github.com/linkforge/apiclient/logger"
	"github.com/linkforge/apiclient/retry"
)

// API is the call surface shared by Client and AuthClient.
type API interface {
	Get(ctx context.Context, path string, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

var (
	_ API = (*Client)(nil)
	_ API = (*AuthClient)(nil)
)

// Client calls the link API without credentials. It is safe for concurrent
// use.
type Client struct {
	base      *url.URL
	exec      *executor.Executor
	retryOpts []retry.Option
}

// Option customizes a Client beyond its Config.
type Option func(*settings)

type settings struct {
	execOpts      []executor.Option
	retryOpts     []retry.Option
	transportOpts []transport.Option
}

// WithSink replaces the failure sink of the underlying executor.
func WithSink(sink executor.Sink) Option {
	return func(s *settings) {
		s.execOpts = append(s.execOpts, executor.WithSink(sink))
	}
}

// WithHTTPClient sends requests through c instead of the shared transport.
func WithHTTPClient(c *http.Client) Option {
	return func(s *settings) {
		s.execOpts = append(s.execOpts, executor.WithHTTPClient(c))
	}
}

// WithRoundTripper sends requests through rt, keeping the response
// decompression and debug logging layers.
func WithRoundTripper(rt http.RoundTripper) Option {
	return func(s *settings) {
		s.transportOpts = append(s.transportOpts, transport.WithTransportOverride(rt))
	}
}

// WithRetryOptions appends options to the retry policy of Get.
func WithRetryOptions(opts ...retry.Option) Option {
	return func(s *settings) {
		s.retryOpts = append(s.retryOpts, opts...)
	}
}

// New builds a Client from cfg. Unset fields take their defaults; BaseURL is
// required.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	st := &settings{}

	if cfg.EnableDNSCache {
		st.transportOpts = append(st.transportOpts, transport.EnableDNSCache)
	}

	if cfg.DebugHTTP {
		st.transportOpts = append(st.transportOpts, transport.DebugLog)
	}

	for _, opt := range opts {
		if opt != nil {
			opt(st)
		}
	}

	execOpts := append([]executor.Option{
		executor.WithHTTPClient(&http.Client{
			Transport: transport.Get(st.transportOpts...),
		}),
		executor.WithTimeout(cfg.Timeout),
		executor.WithUserAgent(cfg.UserAgent),
	}, st.execOpts...)

	retryOpts := append([]retry.Option{
		retry.WithAttempts(retry.Attempts(cfg.RetryAttempts)),
		retry.WithBackoff(retry.ExpBackoff{Base: cfg.RetryBaseDelay, Factor: 2}),
		retry.WithJitter(retry.AdditiveJitter(cfg.RetryJitter)),
		retry.WithClassifier(classify),
		retry.WithObserver(observeRetry),
	}, st.retryOpts...)

	base := *cfg.BaseURL

	return &Client{
		base:      &base,
		exec:      executor.New(execOpts...),
		retryOpts: retryOpts,
	}, nil
}

// BaseURL returns a copy of the url relative paths resolve against.
func (c *Client) BaseURL() *url.URL {
	u := *c.base

	return &u
}

// Get fetches path into out, retrying transient failures.
func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.get(ctx, path, out, nil)
}

// Post sends body to path once.
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.send(ctx, http.MethodPost, path, body, out, nil)
}

// Put sends body to path once.
func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.send(ctx, http.MethodPut, path, body, out, nil)
}

// Delete removes path once.
func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.send(ctx, http.MethodDelete, path, nil, out, nil)
}

// Authenticated returns a client that attaches the credential from provider
// to every call. It shares this client's executor and retry policy.
func (c *Client) Authenticated(provider IdentityProvider) *AuthClient {
	return &AuthClient{client: c, provider: provider}
}

// headerFunc produces the extra headers of one attempt. It runs before
// every attempt, so retried reads pick up a fresh credential.
type headerFunc func(ctx context.Context) (http.Header, error)

func (c *Client) get(ctx context.Context, path string, out any, headers headerFunc) error {
	target, err := c.resolve(path)
	if err != nil {
		return err
	}

	ctx = logger.With(ctx, "method", http.MethodGet, "path", path)

	return retry.Do(ctx, func(ctx context.Context) error {
		header, err := prepare(ctx, headers)
		if err != nil {
			return retry.Abort(err)
		}

		return c.exec.Execute(ctx, executor.Request{
			Method: http.MethodGet,
			URL:    target,
			Header: header,
		}, out)
	}, c.retryOpts...)
}

func (c *Client) send(ctx context.Context, method, path string, body, out any, headers headerFunc) error {
	target, err := c.resolve(path)
	if err != nil {
		return err
	}

	header, err := prepare(ctx, headers)
	if err != nil {
		return err
	}

	return c.exec.Execute(ctx, executor.Request{
		Method: method,
		URL:    target,
		Header: header,
		Body:   body,
	}, out)
}

func prepare(ctx context.Context, headers headerFunc) (http.Header, error) {
	if headers == nil {
		return nil, nil //nolint:nilnil
	}

	return headers(ctx)
}

// resolve turns path into an absolute url. Absolute urls are used as given.
func (c *Client) resolve(path string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(path))
	if err != nil {
		return "", apierror.Wrap(err, apierror.UnexpectedError, "invalid request path: "+err.Error())
	}

	if ref.IsAbs() {
		return ref.String(), nil
	}

	return c.base.ResolveReference(ref).String(), nil
}

func classify(err error) error {
	if apiErr := apierror.Classify(err); apiErr != nil {
		return apiErr
	}

	return err
}

// GetValue is Get for callers that want the decoded value returned.
func GetValue[T any](ctx context.Context, api API, path string) (T, error) {
	var out T

	if err := api.Get(ctx, path, &out); err != nil {
		var zero T

		return zero, err
	}

	return out, nil
}
