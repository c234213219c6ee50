// Package supersede cancels in-flight work when a newer request for the same
// key arrives.
package supersede

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type flight struct {
	seq    uint64
	cancel context.CancelFunc
}

// Registry tracks the latest request per key.
type Registry struct {
	mu      sync.Mutex
	seq     uint64
	flights map[string]flight
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{flights: make(map[string]flight)}
}

// Begin derives a context for a new request under key and cancels the
// previous request with the same key. done must be called when the request
// finishes. An empty key is never superseded.
func (r *Registry) Begin(ctx context.Context, key string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	if key == "" {
		return ctx, cancel
	}

	r.mu.Lock()
	r.seq++
	seq := r.seq
	if prev, ok := r.flights[key]; ok {
		prev.cancel()
		zap.L().Debug("supersede: cancelled previous request", zap.String("key", key))
	}
	r.flights[key] = flight{seq: seq, cancel: cancel}
	r.mu.Unlock()

	return ctx, func() {
		cancel()
		r.mu.Lock()
		if cur, ok := r.flights[key]; ok && cur.seq == seq {
			delete(r.flights, key)
		}
		r.mu.Unlock()
	}
}

// InFlight returns the number of tracked keys.
func (r *Registry) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.flights)
}
