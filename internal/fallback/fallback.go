// Package fallback evaluates ordered strategies until one produces a result.
package fallback

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrExhausted is returned when no strategy produced a result.
var ErrExhausted = eris.New("fallback: all strategies exhausted")

// Strategy is one step of a fallback chain. Try returns ok=false with a nil
// error for an empty result; a non-nil error marks the step as failed. Both
// move evaluation on to the next strategy.
type Strategy[T any] struct {
	Name string
	Try  func(ctx context.Context) (T, bool, error)
}

// Step is a shorthand constructor for a Strategy.
func Step[T any](name string, try func(ctx context.Context) (T, bool, error)) Strategy[T] {
	return Strategy[T]{Name: name, Try: try}
}

// Value builds a strategy that succeeds with v unless ok is false. Useful for
// chains of already-computed alternatives.
func Value[T any](name string, v T, ok bool) Strategy[T] {
	return Strategy[T]{Name: name, Try: func(context.Context) (T, bool, error) { return v, ok, nil }}
}

// TryInOrder runs strategies sequentially and returns the first successful
// value with the name of the strategy that produced it. Later strategies run
// only after earlier ones are confirmed empty or failed. Cancellation of ctx
// stops the chain.
func TryInOrder[T any](ctx context.Context, strategies ...Strategy[T]) (T, string, error) {
	var zero T
	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return zero, "", eris.Wrap(err, "fallback: cancelled")
		}
		v, ok, err := s.Try(ctx)
		if err != nil {
			zap.L().Debug("fallback: strategy failed, trying next",
				zap.String("strategy", s.Name),
				zap.Error(err),
			)
			continue
		}
		if ok {
			return v, s.Name, nil
		}
	}
	if err := ctx.Err(); err != nil {
		return zero, "", eris.Wrap(err, "fallback: cancelled")
	}
	return zero, "", ErrExhausted
}
