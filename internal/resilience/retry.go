package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls retries of transient upstream failures.
type RetryConfig struct {
	// MaxAttempts includes the first try. Default 2: provider calls already
	// run under a tight timeout, so one retry is the useful maximum.
	MaxAttempts int
	// InitialBackoff before the first retry. Default 200ms.
	InitialBackoff time.Duration
	// MaxBackoff caps the delay. Default 2s.
	MaxBackoff time.Duration
	// JitterFraction of the delay added or removed at random. Default 0.25.
	JitterFraction float64
}

// DefaultRetryConfig returns the provider-call defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		JitterFraction: 0.25,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	d := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.InitialBackoff <= 0 {
		c.InitialBackoff = d.InitialBackoff
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = d.MaxBackoff
	}
	if c.JitterFraction < 0 {
		c.JitterFraction = 0
	}
	return c
}

// Retry runs fn until it succeeds, fails with a non-transient error, runs
// out of attempts or ctx is done.
func Retry[T any](ctx context.Context, cfg RetryConfig, service string, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	var zero T
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if ctx.Err() != nil || !IsTransient(err) || attempt == cfg.MaxAttempts-1 {
			break
		}

		zap.L().Debug("retrying upstream call",
			zap.String("service", service),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)

		t := time.NewTimer(backoff(attempt, cfg))
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, lastErr
		case <-t.C:
		}
	}
	return zero, lastErr
}

func backoff(attempt int, cfg RetryConfig) time.Duration {
	d := float64(cfg.InitialBackoff) * math.Pow(2, float64(attempt))
	if d > float64(cfg.MaxBackoff) {
		d = float64(cfg.MaxBackoff)
	}
	if cfg.JitterFraction > 0 {
		d += (rand.Float64()*2 - 1) * d * cfg.JitterFraction
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Guard combines a retry policy with per-service breakers.
type Guard struct {
	Retry    RetryConfig
	Breakers *Breakers
}

// NewGuard builds a Guard from the given policies.
func NewGuard(retry RetryConfig, breaker BreakerConfig) *Guard {
	return &Guard{Retry: retry, Breakers: NewBreakers(breaker)}
}

// Do runs fn for service under the breaker, retrying transient failures.
// A nil Guard runs fn once.
func Do[T any](ctx context.Context, g *Guard, service string, fn func(ctx context.Context) (T, error)) (T, error) {
	if g == nil {
		return fn(ctx)
	}
	b := g.Breakers.Get(service)
	return Call(ctx, b, func(ctx context.Context) (T, error) {
		return Retry(ctx, g.Retry, service, fn)
	})
}
