// Package geocode provides place lookups over several geocoding backends
// behind one Adapter interface. Adapters never return transport errors:
// every call yields a Response tagged OK, Empty or Unavailable.
package geocode

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/geoassist/internal/model"
)

// Status tags a Response.
type Status string

const (
	// StatusOK carries at least one candidate.
	StatusOK Status = "ok"
	// StatusEmpty means the provider answered with no match.
	StatusEmpty Status = "empty"
	// StatusUnavailable means the provider could not be asked: timeout,
	// non-2xx, malformed payload or missing credentials.
	StatusUnavailable Status = "unavailable"
)

// Response is the tagged result of one adapter call.
type Response struct {
	Status     Status                 `json:"status"`
	Candidates []model.PlaceCandidate `json:"candidates,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
	// Partial marks a merged answer missing at least one unavailable provider.
	Partial bool `json:"partial,omitempty"`
}

// OK reports whether the response carries candidates.
func (r Response) OK() bool { return r.Status == StatusOK && len(r.Candidates) > 0 }

// First returns the first candidate of an OK response.
func (r Response) First() (model.PlaceCandidate, bool) {
	if !r.OK() {
		return model.PlaceCandidate{}, false
	}
	return r.Candidates[0], true
}

// Cacheable reports whether the response is a complete provider answer
// rather than a transient failure.
func (r Response) Cacheable() bool { return r.Status != StatusUnavailable && !r.Partial }

// Found builds a response from candidates, dropping any outside the valid
// coordinate range. No survivors yields Empty.
func Found(source string, cands []model.PlaceCandidate) Response {
	out := cands[:0:0]
	for _, c := range cands {
		if err := c.Validate(); err != nil {
			zap.L().Debug("geocode: dropping invalid candidate",
				zap.String("provider", source),
				zap.Error(err),
			)
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return Empty()
	}
	return Response{Status: StatusOK, Candidates: out}
}

// Empty is a valid no-match answer.
func Empty() Response { return Response{Status: StatusEmpty} }

// Unavailable records why a provider could not answer.
func Unavailable(provider string, err error) Response {
	zap.L().Debug("geocode: provider unavailable",
		zap.String("provider", provider),
		zap.Error(err),
	)
	reason := provider + ": unavailable"
	if err != nil {
		reason = provider + ": " + err.Error()
	}
	return Response{Status: StatusUnavailable, Reason: reason}
}

// Adapter is a uniform interface over one geocoding backend.
type Adapter interface {
	// Name identifies the provider in candidates and logs.
	Name() string
	// Available reports whether the adapter is configured for use.
	Available() bool
	ForwardSearch(ctx context.Context, text string) Response
	// ReverseSearch resolves a point. zoom is the map zoom hint (1-18);
	// adapters retry at coarser precision when the fine query is empty.
	ReverseSearch(ctx context.Context, lat, lon float64, zoom int) Response
	Suggest(ctx context.Context, text string, cityOnly bool) Response
}

// DefaultTimeout bounds a single adapter call when none is configured.
const DefaultTimeout = 8 * time.Second

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = DefaultTimeout
	}
	return context.WithTimeout(ctx, d)
}
