// Package assist is the request-level facade over resolution, fact
// aggregation, comparison and the shelter search.
package assist

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geoassist/internal/cache"
	"github.com/sells-group/geoassist/internal/compare"
	"github.com/sells-group/geoassist/internal/fallback"
	"github.com/sells-group/geoassist/internal/model"
	"github.com/sells-group/geoassist/pkg/geocode"
	"github.com/sells-group/geoassist/pkg/overpass"
)

// Resolver turns a query into one place.
type Resolver interface {
	Resolve(ctx context.Context, q model.PlaceQuery) (model.ResolvedPlace, error)
}

// Aggregator collects facts for a resolved place. It never fails.
type Aggregator interface {
	Aggregate(ctx context.Context, place model.ResolvedPlace) model.FactRecord
}

// OverpassQuerier runs a raw Overpass QL query.
type OverpassQuerier interface {
	Query(ctx context.Context, q string) (*overpass.Response, error)
}

// Engine answers API requests.
type Engine struct {
	resolver      Resolver
	facts         Aggregator
	suggest       geocode.Suggester
	forward       []geocode.Adapter
	shelters      OverpassQuerier
	sheltersCache *cache.Cache
}

// Option configures an Engine.
type Option func(*Engine)

// WithSuggester sets the suggestion index used by Suggest.
func WithSuggester(s geocode.Suggester) Option {
	return func(e *Engine) {
		e.suggest = s
	}
}

// WithForward sets the forward geocoders used by Geocode, in priority order.
func WithForward(adapters ...geocode.Adapter) Option {
	return func(e *Engine) {
		e.forward = adapters
	}
}

// WithShelters enables the shelter search. c may be nil.
func WithShelters(q OverpassQuerier, c *cache.Cache) Option {
	return func(e *Engine) {
		e.shelters = q
		e.sheltersCache = c
	}
}

// New creates an Engine.
func New(r Resolver, a Aggregator, opts ...Option) *Engine {
	e := &Engine{resolver: r, facts: a}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Facts resolves q and aggregates its facts. Only text queries can fail
// with model.ErrNotFound.
func (e *Engine) Facts(ctx context.Context, q model.PlaceQuery) (model.ResolvedPlace, model.FactRecord, error) {
	place, err := e.resolver.Resolve(ctx, q)
	if err != nil {
		return model.ResolvedPlace{}, model.FactRecord{}, err
	}
	return place, e.facts.Aggregate(ctx, place), nil
}

// Compare resolves both cities concurrently, aggregates both concurrently
// and compares the records. Both inputs are required.
func (e *Engine) Compare(ctx context.Context, cityA, cityB string) (model.ComparisonResult, error) {
	inputs := [2]string{strings.TrimSpace(cityA), strings.TrimSpace(cityB)}
	for i, field := range [2]string{"cityA", "cityB"} {
		if inputs[i] == "" {
			return model.ComparisonResult{}, &model.InvalidInputError{Field: field, Reason: "is required"}
		}
	}

	var places [2]model.ResolvedPlace
	g, gctx := errgroup.WithContext(ctx)
	for i := range inputs {
		g.Go(func() error {
			p, err := e.resolver.Resolve(gctx, model.PlaceQuery{Text: SearchTerm(inputs[i])})
			if err != nil {
				return err
			}
			p.Query = inputs[i]
			p.Label = DisplayName(inputs[i], p.Candidate)
			places[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.ComparisonResult{}, err
	}

	var recs [2]model.FactRecord
	var ag errgroup.Group
	for i := range places {
		ag.Go(func() error {
			recs[i] = e.facts.Aggregate(ctx, places[i])
			return nil
		})
	}
	_ = ag.Wait()

	return compare.Compare(recs[0], recs[1]), nil
}

// SearchTerm is the part of a compare input sent to the geocoders: the
// first comma segment.
func SearchTerm(input string) string {
	head, _, _ := strings.Cut(input, ",")
	return strings.TrimSpace(head)
}

// DisplayName picks the first non-empty of the user's label, the candidate's
// display label, its name and its coordinates.
func DisplayName(userLabel string, c model.PlaceCandidate) string {
	nonEmpty := func(s string) bool { return strings.TrimSpace(s) != "" }
	name, _, _ := fallback.TryInOrder(context.Background(),
		fallback.Value("user", strings.TrimSpace(userLabel), nonEmpty(userLabel)),
		fallback.Value("display", c.DisplayLabel, nonEmpty(c.DisplayLabel)),
		fallback.Value("name", c.Name, nonEmpty(c.Name)),
		fallback.Value("coordinates", c.CoordinateLabel(), true),
	)
	return name
}

// Geocode returns the candidates of the first forward geocoder that has any.
func (e *Engine) Geocode(ctx context.Context, text string) ([]model.PlaceCandidate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &model.InvalidInputError{Field: "q", Reason: "an address is required"}
	}
	var strategies []fallback.Strategy[[]model.PlaceCandidate]
	for _, a := range e.forward {
		if !a.Available() {
			continue
		}
		strategies = append(strategies, fallback.Step(a.Name(), func(ctx context.Context) ([]model.PlaceCandidate, bool, error) {
			resp := a.ForwardSearch(ctx, text)
			if resp.Status == geocode.StatusUnavailable {
				return nil, false, eris.New(resp.Reason)
			}
			return resp.Candidates, resp.OK(), nil
		}))
	}
	cands, source, err := fallback.TryInOrder(ctx, strategies...)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "assist: geocode")
		}
		return nil, &model.NotFoundError{Query: text}
	}
	zap.L().Debug("assist: geocoded", zap.String("query", text), zap.String("provider", source), zap.Int("results", len(cands)))
	return cands, nil
}

// Reverse resolves a map click.
func (e *Engine) Reverse(ctx context.Context, lat, lon float64, zoom int) (model.ResolvedPlace, error) {
	return e.resolver.Resolve(ctx, model.PlaceQuery{Lat: &lat, Lon: &lon, Zoom: zoom})
}

// Suggest returns ranked autocomplete candidates. An unavailable index
// yields an empty list.
func (e *Engine) Suggest(ctx context.Context, text string, cityOnly bool) ([]model.PlaceCandidate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &model.InvalidInputError{Field: "query", Reason: "a search text is required"}
	}
	if e.suggest == nil {
		return []model.PlaceCandidate{}, nil
	}
	resp := e.suggest.Suggest(ctx, text, cityOnly)
	if !resp.OK() {
		return []model.PlaceCandidate{}, nil
	}
	return resp.Candidates, nil
}
