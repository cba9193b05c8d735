package client

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/linkforge/apiclient/envutil"
	"github.com/linkforge/apiclient/http/executor"
	"github.com/linkforge/apiclient/stage"
)

const (
	// DefaultBaseURL is used when LINKAPI_BASE_URL is unset.
	DefaultBaseURL = "http://localhost:8000"

	DefaultRetryAttempts  = 4
	DefaultRetryBaseDelay = time.Second
	DefaultRetryJitter    = time.Second
	DefaultUserAgent      = "linkforge-apiclient"
)

var (
	ErrInvalidBaseURL = errors.New("base url must be an absolute http or https url")
	ErrInvalidConfig  = errors.New("invalid client config")
)

// Config controls a Client. Zero Timeout, RetryAttempts, RetryBaseDelay and
// UserAgent fall back to their defaults. A zero RetryJitter disables jitter,
// and a negative one is treated as zero. BaseURL is required.
type Config struct {
	BaseURL        *url.URL
	Timeout        time.Duration
	RetryAttempts  uint
	RetryBaseDelay time.Duration
	RetryJitter    time.Duration
	UserAgent      string
	EnableDNSCache bool
	DebugHTTP      bool
}

// DefaultConfig returns a Config pointing at DefaultBaseURL. The DNS cache is
// on by default only in production, where processes live long enough to
// benefit from it.
func DefaultConfig() Config {
	base, _ := url.Parse(DefaultBaseURL)

	return Config{
		BaseURL:        base,
		Timeout:        executor.DefaultTimeout,
		RetryAttempts:  DefaultRetryAttempts,
		RetryBaseDelay: DefaultRetryBaseDelay,
		RetryJitter:    DefaultRetryJitter,
		UserAgent:      DefaultUserAgent,
		EnableDNSCache: stage.IsProd(),
	}
}

// LoadConfig reads the client configuration from the environment:
//
//	LINKAPI_BASE_URL           absolute base url (default http://localhost:8000)
//	LINKAPI_TIMEOUT            per-attempt timeout (default 30s)
//	LINKAPI_RETRY_ATTEMPTS     attempts for retried reads, counting the first (default 4)
//	LINKAPI_RETRY_BASE_DELAY   first backoff delay (default 1s)
//	LINKAPI_RETRY_JITTER       upper bound of the random delay added to each backoff (default 1s)
//	LINKAPI_USER_AGENT         User-Agent header
//	LINKAPI_DNS_CACHE          resolve through the shared DNS cache (default on in prod)
//	LINKAPI_DEBUG_HTTP         log every exchange at debug level
func LoadConfig() (Config, error) {
	dfl := DefaultConfig()

	positive := func(d time.Duration) error {
		if d <= 0 {
			return fmt.Errorf("%w: duration must be positive, got %s", ErrInvalidConfig, d)
		}

		return nil
	}

	nonNegative := func(d time.Duration) error {
		if d < 0 {
			return fmt.Errorf("%w: duration must not be negative, got %s", ErrInvalidConfig, d)
		}

		return nil
	}

	var err error

	cfg := Config{}

	cfg.BaseURL, err = envutil.URL("LINKAPI_BASE_URL", envutil.Default(dfl.BaseURL)).Value()
	if err != nil {
		return Config{}, err
	}

	cfg.Timeout, err = envutil.Duration("LINKAPI_TIMEOUT",
		envutil.Default(dfl.Timeout), envutil.Validate(positive)).Value()
	if err != nil {
		return Config{}, err
	}

	cfg.RetryAttempts, err = envutil.Int[uint]("LINKAPI_RETRY_ATTEMPTS",
		envutil.Default[uint](DefaultRetryAttempts),
		envutil.Validate(func(n uint) error {
			if n == 0 {
				return fmt.Errorf("%w: retry attempts must be at least 1", ErrInvalidConfig)
			}

			return nil
		})).Value()
	if err != nil {
		return Config{}, err
	}

	cfg.RetryBaseDelay, err = envutil.Duration("LINKAPI_RETRY_BASE_DELAY",
		envutil.Default(dfl.RetryBaseDelay), envutil.Validate(positive)).Value()
	if err != nil {
		return Config{}, err
	}

	cfg.RetryJitter, err = envutil.Duration("LINKAPI_RETRY_JITTER",
		envutil.Default(dfl.RetryJitter), envutil.Validate(nonNegative)).Value()
	if err != nil {
		return Config{}, err
	}

	cfg.UserAgent = envutil.String("LINKAPI_USER_AGENT", envutil.Default(dfl.UserAgent)).ValueOrElse(dfl.UserAgent)

	cfg.EnableDNSCache, err = envutil.Bool("LINKAPI_DNS_CACHE", envutil.Default(dfl.EnableDNSCache)).Value()
	if err != nil {
		return Config{}, err
	}

	cfg.DebugHTTP, err = envutil.Bool("LINKAPI_DEBUG_HTTP", envutil.Default(false)).Value()
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) withDefaults() Config {
	dfl := DefaultConfig()

	if c.Timeout <= 0 {
		c.Timeout = dfl.Timeout
	}

	if c.RetryAttempts == 0 {
		c.RetryAttempts = dfl.RetryAttempts
	}

	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = dfl.RetryBaseDelay
	}

	if c.RetryJitter < 0 {
		c.RetryJitter = 0
	}

	if c.UserAgent == "" {
		c.UserAgent = dfl.UserAgent
	}

	return c
}

func (c Config) validate() error {
	if c.BaseURL == nil || !c.BaseURL.IsAbs() ||
		(c.BaseURL.Scheme != "http" && c.BaseURL.Scheme != "https") || c.BaseURL.Host == "" {
		return ErrInvalidBaseURL
	}

	return nil
}
