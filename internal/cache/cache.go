// Package cache is the read-through response cache in front of providers:
// a bounded in-process TTL map with an optional persistent second tier.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sells-group/geoassist/internal/store"
)

// DefaultMaxEntries bounds a namespace when no option overrides it.
const DefaultMaxEntries = 10_000

type entry struct {
	value   []byte
	expires time.Time
}

// Cache holds encoded values for one namespace. Values are stored as bytes,
// so callers never share a decoded value.
type Cache struct {
	namespace  string
	ttl        time.Duration
	maxEntries int
	l2         store.Store

	mu      sync.Mutex
	entries map[string]entry
	group   singleflight.Group

	now func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithMaxEntries bounds the in-process tier.
func WithMaxEntries(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithStore adds a persistent second tier. A nil store is ignored.
func WithStore(s store.Store) Option {
	return func(c *Cache) {
		c.l2 = s
	}
}

// New creates a cache for namespace whose entries live for ttl.
func New(namespace string, ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{
		namespace:  namespace,
		ttl:        ttl,
		maxEntries: DefaultMaxEntries,
		entries:    make(map[string]entry),
		now:        time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Namespace returns the cache namespace.
func (c *Cache) Namespace() string { return c.namespace }

// Len returns the number of entries in the in-process tier, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Get returns the value for key from the first tier that has it. A second
// tier hit is promoted into memory.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if ok && c.now().Before(e.expires) {
		c.mu.Unlock()
		return e.value, true
	}
	if ok {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if c.l2 == nil {
		return nil, false
	}
	v, err := c.l2.Get(ctx, c.namespace, key)
	if err != nil {
		zap.L().Warn("cache: store get failed",
			zap.String("namespace", c.namespace),
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, false
	}
	if v == nil {
		return nil, false
	}
	c.setLocal(key, v)
	return v, true
}

// Set stores value in every tier. Store failures are logged, not returned.
func (c *Cache) Set(ctx context.Context, key string, value []byte) {
	c.setLocal(key, value)
	if c.l2 == nil {
		return
	}
	if err := c.l2.Set(ctx, c.namespace, key, value, c.ttl); err != nil {
		zap.L().Warn("cache: store set failed",
			zap.String("namespace", c.namespace),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

func (c *Cache) setLocal(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLocked(now)
	}
	c.entries[key] = entry{value: value, expires: now.Add(c.ttl)}
}

// evictLocked drops expired entries, then the soonest-to-expire one if the
// map is still full.
func (c *Cache) evictLocked(now time.Time) {
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.maxEntries {
		return
	}
	var (
		victim string
		soon   time.Time
		first  = true
	)
	for k, e := range c.entries {
		if first || e.expires.Before(soon) {
			victim, soon, first = k, e.expires, false
		}
	}
	delete(c.entries, victim)
}

// Purge drops expired entries from the in-process tier.
func (c *Cache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, e := range c.entries {
		if !now.Before(e.expires) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Loader produces a value and reports whether it may be cached.
type Loader[T any] func(ctx context.Context) (value T, cacheable bool, err error)

// GetOrLoad returns the cached value for key or calls load once, sharing the
// call among concurrent callers of the same key. A nil cache calls load
// directly.
func GetOrLoad[T any](ctx context.Context, c *Cache, key string, load Loader[T]) (T, error) {
	var zero T
	if c == nil {
		v, _, err := load(ctx)
		return v, err
	}

	if b, ok := c.Get(ctx, key); ok {
		var v T
		if err := json.Unmarshal(b, &v); err == nil {
			zap.L().Debug("cache hit", zap.String("namespace", c.namespace), zap.String("key", key))
			return v, nil
		}
	}

	type result struct {
		value []byte
		typed T
	}
	out, err, _ := c.group.Do(key, func() (any, error) {
		v, cacheable, err := load(ctx)
		if err != nil {
			return nil, err
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, eris.Wrap(err, "cache: encode value")
		}
		if cacheable {
			c.Set(ctx, key, b)
		}
		return result{value: b, typed: v}, nil
	})
	if err != nil && ctx.Err() == nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		// The shared flight belonged to a caller that went away.
		v, _, err := load(ctx)
		return v, err
	}
	if err != nil {
		return zero, err
	}
	r := out.(result)
	// Shared callers decode their own copy.
	var v T
	if err := json.Unmarshal(r.value, &v); err != nil {
		return r.typed, nil
	}
	return v, nil
}
