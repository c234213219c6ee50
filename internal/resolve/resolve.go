// Package resolve turns a free-text or coordinate query into one resolved
// place by walking geocoding adapters in priority order.
package resolve

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoassist/internal/fallback"
	"github.com/sells-group/geoassist/internal/model"
	"github.com/sells-group/geoassist/pkg/geocode"
)

// Resolver picks one candidate per query.
type Resolver struct {
	suggest geocode.Suggester
	forward []geocode.Adapter
	reverse []geocode.Adapter
}

// New builds a Resolver. forward and reverse are in priority order; suggest
// may be nil.
func New(suggest geocode.Suggester, forward, reverse []geocode.Adapter) *Resolver {
	return &Resolver{suggest: suggest, forward: forward, reverse: reverse}
}

// Resolve validates q and resolves it. Coordinates always resolve, possibly
// without a label. Text fails with model.ErrNotFound when no adapter has a
// candidate.
func (r *Resolver) Resolve(ctx context.Context, q model.PlaceQuery) (model.ResolvedPlace, error) {
	if err := q.Validate(); err != nil {
		return model.ResolvedPlace{}, err
	}
	if q.HasCoordinates() {
		return r.resolveCoordinates(ctx, *q.Lat, *q.Lon, q.Zoom)
	}
	return r.resolveText(ctx, strings.TrimSpace(q.Text), q.Zoom)
}

func responseStrategy(name string, call func(ctx context.Context) geocode.Response) fallback.Strategy[model.PlaceCandidate] {
	return fallback.Step(name, func(ctx context.Context) (model.PlaceCandidate, bool, error) {
		resp := call(ctx)
		if resp.Status == geocode.StatusUnavailable {
			return model.PlaceCandidate{}, false, eris.New(resp.Reason)
		}
		c, ok := resp.First()
		return c, ok, nil
	})
}

func (r *Resolver) resolveCoordinates(ctx context.Context, lat, lon float64, zoom int) (model.ResolvedPlace, error) {
	zoom = model.ClampZoom(zoom)
	if zoom == 0 {
		zoom = DefaultZoom
	}
	scope := ScopeForZoom(zoom)
	precision := PrecisionForScope(scope)

	var strategies []fallback.Strategy[model.PlaceCandidate]
	for _, a := range r.reverse {
		if !a.Available() {
			continue
		}
		strategies = append(strategies, responseStrategy(a.Name(), func(ctx context.Context) geocode.Response {
			return a.ReverseSearch(ctx, lat, lon, precision)
		}))
	}

	cand, source, err := fallback.TryInOrder(ctx, strategies...)
	if err != nil {
		if ctx.Err() != nil {
			return model.ResolvedPlace{}, eris.Wrap(ctx.Err(), "resolve: reverse")
		}
		zap.L().Warn("resolve: no reverse geocoder answered",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Int("zoom", zoom),
		)
		return model.ResolvedPlace{
			Candidate: model.PlaceCandidate{Latitude: lat, Longitude: lon},
			Scope:     scope,
			Warning:   "reverse geocoding returned no result; showing coordinates only",
		}, nil
	}

	// The clicked point is authoritative; the provider may answer with a centroid.
	cand.Latitude, cand.Longitude = lat, lon
	zap.L().Debug("resolve: reverse resolved",
		zap.String("provider", source),
		zap.Stringer("scope", scope),
	)
	return model.ResolvedPlace{
		Candidate: cand,
		Scope:     scope,
		Label:     labelFor(cand, scope),
	}, nil
}

func (r *Resolver) resolveText(ctx context.Context, text string, zoom int) (model.ResolvedPlace, error) {
	var strategies []fallback.Strategy[model.PlaceCandidate]
	if r.suggest != nil {
		strategies = append(strategies, responseStrategy("suggest", func(ctx context.Context) geocode.Response {
			return r.suggest.Suggest(ctx, text, true)
		}))
	}
	for _, a := range r.forward {
		if !a.Available() {
			continue
		}
		strategies = append(strategies, responseStrategy(a.Name(), func(ctx context.Context) geocode.Response {
			return a.ForwardSearch(ctx, text)
		}))
	}

	cand, source, err := fallback.TryInOrder(ctx, strategies...)
	if err != nil {
		if ctx.Err() != nil {
			return model.ResolvedPlace{}, eris.Wrap(ctx.Err(), "resolve: text")
		}
		return model.ResolvedPlace{}, &model.NotFoundError{Query: text}
	}

	scope := ScopeForClassification(cand.Classification)
	if z := model.ClampZoom(zoom); z > 0 {
		scope = ScopeForZoom(z)
	}
	zap.L().Debug("resolve: text resolved",
		zap.String("query", text),
		zap.String("provider", source),
		zap.Stringer("scope", scope),
	)
	return model.ResolvedPlace{
		Candidate: cand,
		Scope:     scope,
		Label:     labelFor(cand, scope),
		Query:     text,
	}, nil
}

func labelFor(c model.PlaceCandidate, scope model.SelectionScope) string {
	if l := LabelForScope(c.Address, scope); l != "" {
		return l
	}
	return c.DisplayLabel
}
