package facts

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/sells-group/geoassist/internal/cache"
	"github.com/sells-group/geoassist/internal/model"
	"github.com/sells-group/geoassist/internal/textnorm"
	"github.com/sells-group/geoassist/pkg/wikidata"
)

// EntityFinder maps a city name to a knowledge entity ID, "" when unknown.
type EntityFinder interface {
	FindEntity(ctx context.Context, city, country string) (string, error)
}

// FactsSource returns the raw statements of an entity.
type FactsSource interface {
	GetFacts(ctx context.Context, id string) (*wikidata.Facts, error)
}

// KnowledgeLookup resolves the place to a knowledge entity and copies its
// demographic facts. Results are cached per entity in c, which may be nil.
func KnowledgeLookup(finder EntityFinder, src FactsSource, c *cache.Cache, timeout time.Duration) Lookup {
	return Lookup{
		Name:    "knowledge",
		Timeout: timeout,
		Run: func(ctx context.Context, p model.ResolvedPlace) (Patch, error) {
			city, country := EntityNames(p)
			if city == "" {
				return nil, nil
			}
			id, err := finder.FindEntity(ctx, city, country)
			if err != nil || id == "" {
				return nil, err
			}
			f, err := cache.GetOrLoad(ctx, c, "facts:"+id, func(ctx context.Context) (*wikidata.Facts, bool, error) {
				f, err := src.GetFacts(ctx, id)
				return f, err == nil, err
			})
			if err != nil {
				return nil, err
			}
			return knowledgePatch(id, f), nil
		},
	}
}

// EntityNames picks the city and country to search for. A typed query wins
// over the geocoder's address components.
func EntityNames(p model.ResolvedPlace) (city, country string) {
	if q := strings.TrimSpace(p.Query); q != "" {
		cc := textnorm.SplitCityCountry(q)
		city, country = cc.City, cc.Country
	}
	if city == "" {
		city = firstNonEmpty(p.Candidate.Address.City, p.Candidate.Name)
	}
	if country == "" && !textnorm.LabelMatches(city, p.Candidate.Address.Country) {
		country = p.Candidate.Address.Country
	}
	return city, country
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func knowledgePatch(id string, f *wikidata.Facts) Patch {
	if f == nil {
		f = &wikidata.Facts{}
	}
	var population *int64
	if o, ok := PickLatest(f.Population); ok && o.Value >= 0 {
		v := int64(math.Round(o.Value))
		population = &v
	}
	area := PickArea(f.Area)
	ratio := SexRatioOf(f.Male, f.Female)
	var flag *string
	if f.FlagURL != "" {
		u := f.FlagURL
		flag = &u
	}
	var elevation *float64
	if f.Elevation != nil {
		e := *f.Elevation
		elevation = &e
	}

	return func(rec *model.FactRecord) {
		rec.EntityID = &id
		rec.Population = population
		rec.AreaKm2 = area
		rec.Elevation = elevation
		rec.SexRatio = ratio
		rec.FlagImageURL = flag
	}
}
