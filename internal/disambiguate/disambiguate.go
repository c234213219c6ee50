// Package disambiguate maps a city name, optionally qualified by a country,
// to a knowledge-graph entity.
package disambiguate

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoassist/internal/cache"
	"github.com/sells-group/geoassist/internal/fallback"
	"github.com/sells-group/geoassist/internal/textnorm"
	"github.com/sells-group/geoassist/pkg/wikidata"
)

// DefaultLanguages are tried in order for every search term.
var DefaultLanguages = []string{"es", "en"}

// EntitySearcher finds knowledge entities by name.
type EntitySearcher interface {
	SearchEntities(ctx context.Context, q wikidata.SearchQuery) ([]wikidata.Entity, error)
}

// Option configures a Disambiguator.
type Option func(*Disambiguator)

// WithLanguages sets the query languages in the order they are tried.
func WithLanguages(langs ...string) Option {
	return func(d *Disambiguator) {
		if len(langs) > 0 {
			d.languages = langs
		}
	}
}

// WithCache stores search results in c.
func WithCache(c *cache.Cache) Option {
	return func(d *Disambiguator) {
		d.cache = c
	}
}

// Disambiguator resolves names to entity IDs.
type Disambiguator struct {
	search    EntitySearcher
	languages []string
	cache     *cache.Cache
}

// New creates a Disambiguator over search.
func New(search EntitySearcher, opts ...Option) *Disambiguator {
	d := &Disambiguator{search: search, languages: DefaultLanguages}
	for _, o := range opts {
		o(d)
	}
	return d
}

// FindEntity returns the entity ID for city, or "" when no search accepts a
// candidate. An error is returned only when ctx ends first.
func (d *Disambiguator) FindEntity(ctx context.Context, city, country string) (string, error) {
	city, country = strings.TrimSpace(city), strings.TrimSpace(country)
	if city == "" {
		return "", nil
	}

	var countryID string
	if country != "" {
		id, err := d.findCountry(ctx, country)
		if err != nil {
			return "", err
		}
		countryID = id
	}

	terms := []string{city}
	if country != "" {
		terms = []string{city + ", " + country, city}
	}

	var strategies []fallback.Strategy[wikidata.Entity]
	for _, term := range terms {
		for _, lang := range d.languages {
			strategies = append(strategies, fallback.Step(term+"/"+lang, func(ctx context.Context) (wikidata.Entity, bool, error) {
				return d.tryPlace(ctx, term, lang, city, country, countryID)
			}))
		}
	}

	ent, step, err := fallback.TryInOrder(ctx, strategies...)
	if err != nil {
		if ctx.Err() != nil {
			return "", eris.Wrap(ctx.Err(), "disambiguate: find entity")
		}
		zap.L().Debug("disambiguate: no entity",
			zap.String("city", city),
			zap.String("country", country),
		)
		return "", nil
	}
	zap.L().Debug("disambiguate: entity found",
		zap.String("city", city),
		zap.String("entity", ent.ID),
		zap.String("step", step),
	)
	return ent.ID, nil
}

func (d *Disambiguator) findCountry(ctx context.Context, country string) (string, error) {
	strategies := make([]fallback.Strategy[wikidata.Entity], 0, len(d.languages))
	for _, lang := range d.languages {
		strategies = append(strategies, fallback.Step(lang, func(ctx context.Context) (wikidata.Entity, bool, error) {
			ents, err := d.searchCached(ctx, wikidata.SearchQuery{Term: country, Language: lang, Kind: wikidata.KindCountry})
			if err != nil {
				return wikidata.Entity{}, false, err
			}
			e, ok := pick(ents, country)
			return e, ok, nil
		}))
	}
	ent, _, err := fallback.TryInOrder(ctx, strategies...)
	if err != nil {
		if ctx.Err() != nil {
			return "", eris.Wrap(ctx.Err(), "disambiguate: country")
		}
		return "", nil
	}
	return ent.ID, nil
}

// tryPlace runs one (term, language) step: filtered by country when its ID
// is known, then unfiltered with a post-hoc country label check.
func (d *Disambiguator) tryPlace(ctx context.Context, term, lang, city, country, countryID string) (wikidata.Entity, bool, error) {
	q := wikidata.SearchQuery{Term: term, Language: lang, Kind: wikidata.KindPlace}
	if countryID == "" {
		ents, err := d.searchCached(ctx, q)
		if err != nil {
			return wikidata.Entity{}, false, err
		}
		e, ok := pick(ents, city)
		return e, ok, nil
	}

	q.CountryID = countryID
	ents, err := d.searchCached(ctx, q)
	if err != nil && ctx.Err() != nil {
		return wikidata.Entity{}, false, err
	}
	if len(ents) > 0 {
		e, ok := pick(ents, city)
		return e, ok, nil
	}

	q.CountryID = ""
	ents, err = d.searchCached(ctx, q)
	if err != nil {
		return wikidata.Entity{}, false, err
	}
	e, ok := pick(inCountry(ents, country), city)
	return e, ok, nil
}

func inCountry(ents []wikidata.Entity, country string) []wikidata.Entity {
	var out []wikidata.Entity
	for _, e := range ents {
		if textnorm.LabelMatches(e.CountryLabel, country) {
			out = append(out, e)
		}
	}
	return out
}

// pick prefers the best-ranked entity whose label matches name and falls
// back to the best-ranked entity overall.
func pick(ents []wikidata.Entity, name string) (wikidata.Entity, bool) {
	if len(ents) == 0 {
		return wikidata.Entity{}, false
	}
	for _, e := range ents {
		if textnorm.LabelMatches(e.Label, name) {
			return e, true
		}
	}
	return ents[0], true
}

// SearchKey is the cache key of one entity search.
func SearchKey(q wikidata.SearchQuery) string {
	return fmt.Sprintf("search:%s:%s:%s:%s", q.Kind, q.Language, q.CountryID, textnorm.Normalize(q.Term))
}

func (d *Disambiguator) searchCached(ctx context.Context, q wikidata.SearchQuery) ([]wikidata.Entity, error) {
	return cache.GetOrLoad(ctx, d.cache, SearchKey(q), func(ctx context.Context) ([]wikidata.Entity, bool, error) {
		ents, err := d.search.SearchEntities(ctx, q)
		return ents, err == nil, err
	})
}
