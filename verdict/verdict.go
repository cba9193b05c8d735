// Package verdict caches the outcome of an authority check, such as "is
// this user an administrator", for a bounded time.
//
// A Cache serves one signed-in identity at a time. Within the TTL a cached
// verdict is returned without running the check; after it, or on Refresh,
// the check runs again. A failed check is turned into a definitive verdict
// (false for booleans) and cached like any other, so callers never loop on
// an unreachable check. Switching identity drops the previous identity's
// entry, and signing out (an empty identity) drops it without checking.
//
// Entries and the identity last served are persisted through a
// kvstore.Store, so both verdicts and invalidation survive restarts.
// Unreadable entries count as misses.
//
// Callers alternating between identities on one Cache evict each other on
// every switch, and a check that finishes after a switch is not stored. Their
// verdicts stay correct but are never cached; give each concurrent identity
// its own Cache (a distinct name) when that matters.
package verdict

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/linkforge/apiclient/kvstore"
	"github.com/linkforge/apiclient/logger"
	"go.uber.org/atomic"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a verdict is served without re-checking.
const DefaultTTL = 5 * time.Minute

// Checker decides the verdict for identity. A non-nil error is converted by
// the cache's failure verdict.
type Checker[V any] func(ctx context.Context, identity string) (V, error)

// Cache is safe for concurrent use.
type Cache[V any] struct {
	name    string
	check   Checker[V]
	ttl     time.Duration
	store   kvstore.Store
	now     func() time.Time
	failure func(error) V

	current *atomic.String
	group   singleflight.Group
}

// entry is the persisted form of a verdict.
type entry[V any] struct {
	Verdict     V      `json:"verdict"`
	IdentityKey string `json:"identityKey"`
	WrittenAtMs int64  `json:"writtenAtMs"`
}

// Option configures a Cache.
type Option[V any] func(*Cache[V])

// WithTTL sets how long a verdict stays fresh. Non-positive values are
// ignored.
func WithTTL[V any](ttl time.Duration) Option[V] {
	return func(c *Cache[V]) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithStore persists entries in store instead of process memory.
func WithStore[V any](store kvstore.Store) Option[V] {
	return func(c *Cache[V]) {
		if store != nil {
			c.store = store
		}
	}
}

// WithClock replaces time.Now.
func WithClock[V any](now func() time.Time) Option[V] {
	return func(c *Cache[V]) {
		if now != nil {
			c.now = now
		}
	}
}

// WithName sets the cache name. It prefixes storage keys and labels
// metrics.
func WithName[V any](name string) Option[V] {
	return func(c *Cache[V]) {
		if name != "" {
			c.name = name
		}
	}
}

// WithFailureVerdict sets the verdict recorded when the check fails. The
// default is the zero value of V.
func WithFailureVerdict[V any](f func(err error) V) Option[V] {
	return func(c *Cache[V]) {
		if f != nil {
			c.failure = f
		}
	}
}

// New returns a Cache around check.
func New[V any](check Checker[V], opts ...Option[V]) *Cache[V] {
	c := &Cache[V]{
		name:  "verdict",
		check: check,
		ttl:   DefaultTTL,
		store: kvstore.NewMemory(),
		now:   time.Now,
		failure: func(error) V {
			var zero V

			return zero
		},
		current: atomic.NewString(""),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// Name returns the cache name.
func (c *Cache[V]) Name() string {
	return c.name
}

// TTL returns how long a verdict stays fresh.
func (c *Cache[V]) TTL() time.Duration {
	return c.ttl
}

// Check returns the verdict for identity, running the check only when no
// fresh verdict is stored. An empty identity signs out: the previous
// identity's entry is removed and the zero verdict is returned. If ctx is
// already done the failure verdict is returned without checking.
func (c *Cache[V]) Check(ctx context.Context, identity string) V {
	if identity == "" {
		c.signOut(ctx)

		var zero V

		return zero
	}

	if err := ctx.Err(); err != nil {
		return c.failure(err)
	}

	c.switchTo(ctx, identity)

	stored, result := c.load(ctx, identity)
	if result == resultHit {
		record(c.name, resultHit)

		return stored.Verdict
	}

	record(c.name, result)

	return c.run(ctx, identity)
}

// Refresh runs the check for identity regardless of any stored verdict.
func (c *Cache[V]) Refresh(ctx context.Context, identity string) V {
	if identity == "" {
		return c.Check(ctx, identity)
	}

	if err := ctx.Err(); err != nil {
		return c.failure(err)
	}

	c.switchTo(ctx, identity)
	record(c.name, resultRefresh)

	return c.run(ctx, identity)
}

// Peek returns the stored verdict for identity if it is still fresh. It
// never runs the check.
func (c *Cache[V]) Peek(ctx context.Context, identity string) (V, bool) {
	var zero V

	if identity == "" {
		return zero, false
	}

	stored, result := c.load(ctx, identity)
	if result != resultHit {
		return zero, false
	}

	return stored.Verdict, true
}

// Invalidate removes the stored verdict for identity.
func (c *Cache[V]) Invalidate(ctx context.Context, identity string) {
	if identity == "" {
		return
	}

	c.remove(ctx, identity)
}

// run performs the check once per identity at a time. Concurrent callers
// share the result. The check is detached from the caller's cancellation so
// one caller giving up does not fail the others; a caller whose context
// ends gets the failure verdict, which is not stored.
func (c *Cache[V]) run(ctx context.Context, identity string) V {
	detached := context.WithoutCancel(ctx)

	ch := c.group.DoChan(identity, func() (any, error) {
		return c.checkAndStore(detached, identity), nil
	})

	select {
	case res := <-ch:
		v, _ := res.Val.(V)

		return v
	case <-ctx.Done():
		return c.failure(ctx.Err())
	}
}

func (c *Cache[V]) checkAndStore(ctx context.Context, identity string) V {
	verdict, err := c.check(ctx, identity)
	if err != nil {
		logger.Get(ctx).Debug("verdict check failed, recording failure verdict",
			"cache", c.name, "error", err)

		verdict = c.failure(err)
	}

	// The identity may have changed while the check ran.
	if c.current.Load() != identity {
		return verdict
	}

	c.save(ctx, identity, verdict)

	return verdict
}

// switchTo records identity as the one being served and evicts the entry of
// whichever identity was served before, in this process or, through the
// persisted marker, in an earlier one.
func (c *Cache[V]) switchTo(ctx context.Context, identity string) {
	prev := c.current.Swap(identity)
	persisted := c.loadCurrent(ctx)

	c.evict(ctx, identity, prev, persisted)

	if persisted != identity {
		c.saveCurrent(ctx, identity)
	}
}

func (c *Cache[V]) signOut(ctx context.Context) {
	prev := c.current.Swap("")
	persisted := c.loadCurrent(ctx)

	c.evict(ctx, "", prev, persisted)

	if persisted != "" {
		if err := c.store.Remove(context.WithoutCancel(ctx), c.currentKey()); err != nil {
			logger.Get(ctx).Warn("error clearing verdict cache identity", "cache", c.name, "error", err)
		}
	}
}

func (c *Cache[V]) evict(ctx context.Context, keep string, identities ...string) {
	seen := make(map[string]struct{}, len(identities))

	for _, id := range identities {
		if id == "" || id == keep {
			continue
		}

		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}
		c.remove(ctx, id)
	}
}

func (c *Cache[V]) loadCurrent(ctx context.Context) string {
	raw, err := c.store.Get(ctx, c.currentKey())
	if errors.Is(err, kvstore.ErrNotFound) {
		return ""
	} else if err != nil {
		logger.Get(ctx).Warn("error reading verdict cache identity", "cache", c.name, "error", err)

		return ""
	}

	return string(raw)
}

func (c *Cache[V]) saveCurrent(ctx context.Context, identity string) {
	if err := c.store.Set(context.WithoutCancel(ctx), c.currentKey(), []byte(identity)); err != nil {
		logger.Get(ctx).Warn("error writing verdict cache identity", "cache", c.name, "error", err)
	}
}

// currentKey holds the identity last served. The "/" keeps it apart from
// the "name:identity" entry keys.
func (c *Cache[V]) currentKey() string {
	return c.name + "/current"
}

func (c *Cache[V]) key(identity string) string {
	return c.name + ":" + identity
}

func (c *Cache[V]) load(ctx context.Context, identity string) (entry[V], result) {
	var stored entry[V]

	raw, err := c.store.Get(ctx, c.key(identity))
	if errors.Is(err, kvstore.ErrNotFound) {
		return stored, resultMiss
	} else if err != nil {
		logger.Get(ctx).Warn("error reading verdict cache", "cache", c.name, "error", err)

		return stored, resultMiss
	}

	if err := json.Unmarshal(raw, &stored); err != nil || stored.IdentityKey != identity {
		logger.Get(ctx).Debug("discarding unreadable verdict cache entry", "cache", c.name)
		c.remove(ctx, identity)

		return entry[V]{}, resultMiss
	}

	age := c.now().Sub(time.UnixMilli(stored.WrittenAtMs))
	if age < 0 || age >= c.ttl {
		return stored, resultStale
	}

	return stored, resultHit
}

func (c *Cache[V]) save(ctx context.Context, identity string, verdict V) {
	raw, err := json.Marshal(entry[V]{
		Verdict:     verdict,
		IdentityKey: identity,
		WrittenAtMs: c.now().UnixMilli(),
	})
	if err != nil {
		logger.Get(ctx).Warn("error encoding verdict", "cache", c.name, "error", err)

		return
	}

	if err := c.store.Set(ctx, c.key(identity), raw); err != nil {
		logger.Get(ctx).Warn("error writing verdict cache", "cache", c.name, "error", err)
	}
}

func (c *Cache[V]) remove(ctx context.Context, identity string) {
	if err := c.store.Remove(context.WithoutCancel(ctx), c.key(identity)); err != nil {
		logger.Get(ctx).Warn("error removing verdict cache entry", "cache", c.name, "error", err)
	}
}
