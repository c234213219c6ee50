package geocode

import (
	"context"
	"fmt"
	"strconv"

	"github.com/sells-group/geoassist/internal/cache"
	"github.com/sells-group/geoassist/internal/textnorm"
)

// Suggester is satisfied by SuggestIndex and by any single Adapter.
type Suggester interface {
	Suggest(ctx context.Context, text string, cityOnly bool) Response
}

// Cached puts a read-through cache in front of an adapter. Unavailable
// responses are never cached.
type Cached struct {
	Adapter
	cache *cache.Cache
}

// NewCached wraps a. The cache namespace is shared by every wrapped adapter,
// so keys carry the adapter name.
func NewCached(a Adapter, c *cache.Cache) *Cached {
	return &Cached{Adapter: a, cache: c}
}

// ForwardKey is the cache key of a forward search.
func ForwardKey(provider, text string) string {
	return provider + ":fwd:" + textnorm.Normalize(text)
}

// SuggestKey is the cache key of a suggestion lookup.
func SuggestKey(provider, text string, cityOnly bool) string {
	return provider + ":sug:" + strconv.FormatBool(cityOnly) + ":" + textnorm.Normalize(text)
}

// ReverseKey is the cache key of a reverse lookup: coordinates rounded to
// three decimals (about 100 m) plus the zoom.
func ReverseKey(provider string, lat, lon float64, zoom int) string {
	return fmt.Sprintf("%s:rev:%.3f,%.3f:%d", provider, lat, lon, zoom)
}

func (c *Cached) load(ctx context.Context, key string, call func(context.Context) Response) Response {
	resp, err := cache.GetOrLoad(ctx, c.cache, key, func(ctx context.Context) (Response, bool, error) {
		r := call(ctx)
		return r, r.Cacheable(), nil
	})
	if err != nil {
		return Unavailable(c.Name(), err)
	}
	return resp
}

// ForwardSearch implements Adapter.
func (c *Cached) ForwardSearch(ctx context.Context, text string) Response {
	return c.load(ctx, ForwardKey(c.Name(), text), func(ctx context.Context) Response {
		return c.Adapter.ForwardSearch(ctx, text)
	})
}

// ReverseSearch implements Adapter.
func (c *Cached) ReverseSearch(ctx context.Context, lat, lon float64, zoom int) Response {
	return c.load(ctx, ReverseKey(c.Name(), lat, lon, zoom), func(ctx context.Context) Response {
		return c.Adapter.ReverseSearch(ctx, lat, lon, zoom)
	})
}

// Suggest implements Adapter.
func (c *Cached) Suggest(ctx context.Context, text string, cityOnly bool) Response {
	return c.load(ctx, SuggestKey(c.Name(), text, cityOnly), func(ctx context.Context) Response {
		return c.Adapter.Suggest(ctx, text, cityOnly)
	})
}

// CachedSuggester caches a merged suggestion list.
type CachedSuggester struct {
	inner Suggester
	cache *cache.Cache
}

// NewCachedSuggester wraps s.
func NewCachedSuggester(s Suggester, c *cache.Cache) *CachedSuggester {
	return &CachedSuggester{inner: s, cache: c}
}

// Suggest implements Suggester.
func (c *CachedSuggester) Suggest(ctx context.Context, text string, cityOnly bool) Response {
	resp, err := cache.GetOrLoad(ctx, c.cache, SuggestKey("index", text, cityOnly),
		func(ctx context.Context) (Response, bool, error) {
			r := c.inner.Suggest(ctx, text, cityOnly)
			return r, r.Cacheable(), nil
		})
	if err != nil {
		return Unavailable("suggest", err)
	}
	return resp
}
