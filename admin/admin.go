// Package admin answers whether the signed-in user is an administrator,
// caching the answer per identity.
package admin

import (
	"context"
	"time"

	"github.com/linkforge/apiclient/client"
	"github.com/linkforge/apiclient/kvstore"
	"github.com/linkforge/apiclient/logger"
	"github.com/linkforge/apiclient/verdict"
)

// CheckPath is the endpoint that reports the caller's admin status.
const CheckPath = "/api/users/admin/check"

// CacheName names the verdict cache in storage keys and metrics.
const CacheName = "admin-status"

// Status is the response of CheckPath.
type Status struct {
	IsAdmin bool   `json:"is_admin"`
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

// IdentityFunc returns a stable key for the signed-in user, or "" when
// nobody is signed in.
type IdentityFunc func(ctx context.Context) string

// Checker is safe for concurrent use.
type Checker struct {
	api      client.API
	identity IdentityFunc
	cache    *verdict.Cache[bool]
}

type options struct {
	cacheOpts []verdict.Option[bool]
}

// Option configures a Checker.
type Option func(*options)

// WithStore persists verdicts in store.
func WithStore(store kvstore.Store) Option {
	return func(o *options) {
		o.cacheOpts = append(o.cacheOpts, verdict.WithStore[bool](store))
	}
}

// WithTTL overrides how long a verdict is trusted.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.cacheOpts = append(o.cacheOpts, verdict.WithTTL[bool](ttl))
	}
}

// WithClock replaces time.Now in the cache.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.cacheOpts = append(o.cacheOpts, verdict.WithClock[bool](now))
	}
}

// NewChecker probes CheckPath through api, which should be an authenticated
// client.
func NewChecker(api client.API, identity IdentityFunc, opts ...Option) *Checker {
	o := &options{}

	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	c := &Checker{
		api:      api,
		identity: identity,
	}

	cacheOpts := append([]verdict.Option[bool]{verdict.WithName[bool](CacheName)}, o.cacheOpts...)
	c.cache = verdict.New(c.check, cacheOpts...)

	return c
}

// IsAdmin reports whether the signed-in user is an administrator. Any
// failure to find out counts as false.
func (c *Checker) IsAdmin(ctx context.Context) bool {
	return c.cache.Check(ctx, c.currentIdentity(ctx))
}

// Refresh asks the API again, ignoring any cached verdict.
func (c *Checker) Refresh(ctx context.Context) bool {
	return c.cache.Refresh(ctx, c.currentIdentity(ctx))
}

// Peek returns the cached verdict for the signed-in user without asking the
// API. The second result is false when nothing fresh is cached.
func (c *Checker) Peek(ctx context.Context) (bool, bool) {
	return c.cache.Peek(ctx, c.currentIdentity(ctx))
}

// SignOut drops the cached verdict of the last identity served.
func (c *Checker) SignOut(ctx context.Context) {
	c.cache.Check(ctx, "")
}

// Probe calls CheckPath without consulting the cache.
func (c *Checker) Probe(ctx context.Context) (Status, error) {
	return client.GetValue[Status](ctx, c.api, CheckPath)
}

func (c *Checker) check(ctx context.Context, _ string) (bool, error) {
	status, err := c.Probe(ctx)
	if err != nil {
		return false, err
	}

	logger.Get(ctx).Debug("admin status checked", "userId", status.UserID, "isAdmin", status.IsAdmin)

	return status.IsAdmin, nil
}

func (c *Checker) currentIdentity(ctx context.Context) string {
	if c.identity == nil {
		return ""
	}

	return c.identity(ctx)
}
