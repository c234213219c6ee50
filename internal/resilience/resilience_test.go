package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("bad request body"), false},
		{"marked", NewTransientError(errors.New("x")), true},
		{"status 503", &StatusError{Host: "a", StatusCode: 503}, true},
		{"status 429", eris.Wrap(&StatusError{Host: "a", StatusCode: 429}, "get"), true},
		{"status 404", &StatusError{Host: "a", StatusCode: 404}, false},
		{"reset text", errors.New("read: connection reset by peer"), true},
		{"canceled", context.Canceled, false},
		{"deadline", eris.Wrap(context.DeadlineExceeded, "fetch"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestBreaker_OpensAndRecovers(t *testing.T) {
	now := time.Unix(1000, 0)
	b := NewBreaker("nominatim", BreakerConfig{FailureThreshold: 2, Cooldown: time.Minute})
	b.now = func() time.Time { return now }

	fail := func(context.Context) (int, error) { return 0, errors.New("boom") }
	ok := func(context.Context) (int, error) { return 7, nil }
	ctx := context.Background()

	_, _ = Call(ctx, b, fail)
	assert.Equal(t, Closed, b.State())
	_, _ = Call(ctx, b, fail)
	assert.Equal(t, Open, b.State())

	var called bool
	_, err := Call(ctx, b, func(context.Context) (int, error) { called = true; return 0, nil })
	require.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)

	now = now.Add(time.Minute)
	assert.Equal(t, HalfOpen, b.State())

	v, err := Call(ctx, b, ok)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	now := time.Unix(1000, 0)
	b := NewBreaker("wikidata", BreakerConfig{FailureThreshold: 1, Cooldown: time.Second})
	b.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = Call(ctx, b, func(context.Context) (struct{}, error) { return struct{}{}, errors.New("x") })
	now = now.Add(2 * time.Second)
	_, _ = Call(ctx, b, func(context.Context) (struct{}, error) { return struct{}{}, errors.New("x") })
	assert.Equal(t, Open, b.State())
}

func TestBreaker_IgnoresCallerCancellation(t *testing.T) {
	b := NewBreaker("glofas", BreakerConfig{FailureThreshold: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _ = Call(ctx, b, func(ctx context.Context) (int, error) { return 0, ctx.Err() })
	assert.Equal(t, Closed, b.State())
}

func TestBreakers_PerService(t *testing.T) {
	r := NewBreakers(BreakerConfig{FailureThreshold: 1})
	assert.Same(t, r.Get("a"), r.Get("a"))
	assert.NotSame(t, r.Get("a"), r.Get("b"))

	_, _ = Call(context.Background(), r.Get("a"), func(context.Context) (int, error) { return 0, errors.New("x") })
	states := r.States()
	assert.Equal(t, Open, states["a"])
	assert.Equal(t, Closed, states["b"])
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	var calls atomic.Int32
	cfg := RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	v, err := Retry(context.Background(), cfg, "svc", func(context.Context) (string, error) {
		if calls.Add(1) < 3 {
			return "", &StatusError{Host: "svc", StatusCode: 502}
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetry_PermanentStopsImmediately(t *testing.T) {
	var calls int
	cfg := RetryConfig{MaxAttempts: 5, InitialBackoff: time.Millisecond}

	_, err := Retry(context.Background(), cfg, "svc", func(context.Context) (int, error) {
		calls++
		return 0, &StatusError{Host: "svc", StatusCode: 400}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_StopsOnContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	cfg := RetryConfig{MaxAttempts: 5, InitialBackoff: time.Hour, MaxBackoff: time.Hour}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := Retry(ctx, cfg, "svc", func(context.Context) (int, error) {
		calls++
		return 0, NewTransientError(errors.New("flaky"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBackoff_Capped(t *testing.T) {
	cfg := RetryConfig{InitialBackoff: 100 * time.Millisecond, MaxBackoff: 300 * time.Millisecond}.withDefaults()
	cfg.JitterFraction = 0
	assert.Equal(t, 100*time.Millisecond, backoff(0, cfg))
	assert.Equal(t, 200*time.Millisecond, backoff(1, cfg))
	assert.Equal(t, 300*time.Millisecond, backoff(5, cfg))
}

func TestDo_NilGuardRunsOnce(t *testing.T) {
	var calls int
	_, err := Do(context.Background(), nil, "svc", func(context.Context) (int, error) {
		calls++
		return 0, NewTransientError(errors.New("x"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_GuardRetriesAndTrips(t *testing.T) {
	g := NewGuard(
		RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond},
		BreakerConfig{FailureThreshold: 1, Cooldown: time.Hour},
	)
	var calls int
	_, err := Do(context.Background(), g, "overpass", func(context.Context) (int, error) {
		calls++
		return 0, &StatusError{Host: "overpass", StatusCode: 504}
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)

	_, err = Do(context.Background(), g, "overpass", func(context.Context) (int, error) {
		calls++
		return 1, nil
	})
	require.ErrorIs(t, err, ErrOpen)
	assert.Equal(t, 2, calls)
}
