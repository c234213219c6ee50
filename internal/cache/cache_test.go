package cache

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geoassist/internal/store"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(ttl time.Duration, opts ...Option) (*Cache, *clock) {
	c := New("test", ttl, opts...)
	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	c.now = clk.now
	return c, clk
}

func TestCache_SetGetExpire(t *testing.T) {
	c, clk := newTestCache(time.Minute)
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"))
	v, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", string(v))

	clk.t = clk.t.Add(time.Minute)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_MaxEntriesEvictsExpiredFirst(t *testing.T) {
	c, clk := newTestCache(time.Minute, WithMaxEntries(2))
	ctx := context.Background()

	c.Set(ctx, "old", []byte("1"))
	clk.t = clk.t.Add(2 * time.Minute)
	c.Set(ctx, "a", []byte("2"))
	c.Set(ctx, "b", []byte("3"))

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(ctx, "a")
	assert.True(t, ok)
	_, ok = c.Get(ctx, "b")
	assert.True(t, ok)
}

func TestCache_MaxEntriesEvictsSoonestToExpire(t *testing.T) {
	c, clk := newTestCache(time.Minute, WithMaxEntries(2))
	ctx := context.Background()

	c.Set(ctx, "first", []byte("1"))
	clk.t = clk.t.Add(time.Second)
	c.Set(ctx, "second", []byte("2"))
	clk.t = clk.t.Add(time.Second)
	c.Set(ctx, "third", []byte("3"))

	_, ok := c.Get(ctx, "first")
	assert.False(t, ok)
	_, ok = c.Get(ctx, "third")
	assert.True(t, ok)
}

func TestCache_Purge(t *testing.T) {
	c, clk := newTestCache(time.Minute)
	ctx := context.Background()
	c.Set(ctx, "a", []byte("1"))
	c.Set(ctx, "b", []byte("1"))
	clk.t = clk.t.Add(time.Hour)
	assert.Equal(t, 2, c.Purge())
}

func TestCache_SecondTierPromotes(t *testing.T) {
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "l2.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	ctx := context.Background()
	writer := New("geocode", time.Hour, WithStore(st))
	writer.Set(ctx, "fwd:madrid", []byte(`"x"`))

	reader := New("geocode", time.Hour, WithStore(st))
	assert.Equal(t, 0, reader.Len())
	v, ok := reader.Get(ctx, "fwd:madrid")
	require.True(t, ok)
	assert.Equal(t, `"x"`, string(v))
	assert.Equal(t, 1, reader.Len())
}

type payload struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func TestGetOrLoad_CachesCacheable(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	var calls int
	load := func(context.Context) (payload, bool, error) {
		calls++
		return payload{Name: "Madrid", Items: []string{"a"}}, true, nil
	}

	p1, err := GetOrLoad(context.Background(), c, "k", load)
	require.NoError(t, err)
	p1.Items[0] = "mutated"

	p2, err := GetOrLoad(context.Background(), c, "k", load)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, "a", p2.Items[0], "cached values are not shared")
}

func TestGetOrLoad_SkipsNonCacheable(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	var calls int
	load := func(context.Context) (int, bool, error) {
		calls++
		return calls, false, nil
	}
	_, _ = GetOrLoad(context.Background(), c, "k", load)
	v, err := GetOrLoad(context.Background(), c, "k", load)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestGetOrLoad_Error(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	_, err := GetOrLoad(context.Background(), c, "k", func(context.Context) (int, bool, error) {
		return 0, true, errors.New("boom")
	})
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}

func TestGetOrLoad_NilCache(t *testing.T) {
	v, err := GetOrLoad(context.Background(), nil, "k", func(context.Context) (string, bool, error) {
		return "direct", true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "direct", v)
}

func TestGetOrLoad_SharesConcurrentLoads(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})
	load := func(context.Context) (int, bool, error) {
		calls.Add(1)
		<-release
		return 42, true, nil
	}

	var wg sync.WaitGroup
	results := make([]int, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := GetOrLoad(context.Background(), c, "k", load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	for _, v := range results {
		assert.Equal(t, 42, v)
	}
	assert.LessOrEqual(t, calls.Load(), int32(5))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}
