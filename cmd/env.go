package main

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoassist/internal/assist"
	"github.com/sells-group/geoassist/internal/cache"
	"github.com/sells-group/geoassist/internal/config"
	"github.com/sells-group/geoassist/internal/disambiguate"
	"github.com/sells-group/geoassist/internal/facts"
	"github.com/sells-group/geoassist/internal/fetcher"
	"github.com/sells-group/geoassist/internal/report"
	"github.com/sells-group/geoassist/internal/resilience"
	"github.com/sells-group/geoassist/internal/resolve"
	"github.com/sells-group/geoassist/internal/store"
	anthropicpkg "github.com/sells-group/geoassist/pkg/anthropic"
	"github.com/sells-group/geoassist/pkg/geocode"
	"github.com/sells-group/geoassist/pkg/overpass"
	"github.com/sells-group/geoassist/pkg/waqi"
	"github.com/sells-group/geoassist/pkg/wikidata"
	"github.com/sells-group/geoassist/pkg/wms"
)

// assistEnv holds everything a command needs to answer place questions.
type assistEnv struct {
	Store    store.Store // nil with the memory driver
	Engine   *assist.Engine
	Resolver *resolve.Resolver
	Reports  report.Writer // nil without an Anthropic key
}

// Close releases resources held by the environment.
func (e *assistEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv opens the cache store and wires every provider from cfg.
// Callers should defer env.Close().
func initEnv(ctx context.Context) (*assistEnv, error) {
	st, err := store.Open(ctx, cfg.Cache.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open cache store")
	}
	return buildEnv(cfg, st), nil
}

// buildEnv wires the providers, caches and engine. st may be nil.
func buildEnv(c *config.Config, st store.Store) *assistEnv {
	cacheOpts := []cache.Option{cache.WithMaxEntries(c.Cache.MaxEntries)}
	if st != nil {
		cacheOpts = append(cacheOpts, cache.WithStore(st))
	}
	geoCache := cache.New("geocode", c.Cache.GeocodeTTL, cacheOpts...)
	knowledgeCache := cache.New("knowledge", c.Cache.KnowledgeTTL, cacheOpts...)
	shelterCache := cache.New("shelters", c.Cache.SheltersTTL, cacheOpts...)

	guard := resilience.NewGuard(
		resilience.RetryConfig{
			MaxAttempts:    c.Resilience.MaxAttempts,
			InitialBackoff: c.Resilience.InitialBackoff,
			MaxBackoff:     c.Resilience.MaxBackoff,
		},
		resilience.BreakerConfig{
			FailureThreshold: c.Resilience.FailureThreshold,
			Cooldown:         c.Resilience.Cooldown,
		},
	)
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:      c.Geocode.UserAgent,
		AcceptLanguage: c.Geocode.AcceptLanguage,
		RateLimiters:   fetcher.DefaultRateLimiters(),
		Guard:          guard,
	})

	google := geocode.NewCached(geocode.NewGoogle(f, c.Geocode.GoogleKey,
		geocode.WithGoogleBaseURL(c.Geocode.GoogleURL),
		geocode.WithGoogleLanguage(c.Geocode.GoogleLanguage),
		geocode.WithGoogleTimeout(c.Geocode.Timeout),
	), geoCache)
	nominatim := geocode.NewCached(geocode.NewNominatim(f,
		geocode.WithNominatimBaseURL(c.Geocode.NominatimURL),
		geocode.WithNominatimTimeout(c.Geocode.Timeout),
		geocode.WithNominatimSuggestTimeout(c.Geocode.SuggestTimeout),
	), geoCache)
	seeds := geocode.NewSeeds()
	if google.Available() {
		zap.L().Info("google geocoding enabled")
	} else {
		zap.L().Debug("google maps key not set, google geocoding disabled")
	}

	forward := []geocode.Adapter{nominatim, google, seeds}
	reverse := []geocode.Adapter{google, nominatim, seeds}
	suggest := geocode.NewCachedSuggester(
		geocode.NewSuggestIndex([]geocode.Adapter{seeds, nominatim, google}, geocode.WithSuggestLimit(c.Geocode.SuggestLimit)),
		geoCache,
	)
	resolver := resolve.New(suggest, forward, reverse)

	kg := wikidata.NewClient(f,
		wikidata.WithEndpoint(c.Knowledge.Endpoint),
		wikidata.WithTimeout(c.Knowledge.Timeout),
		wikidata.WithLimit(c.Knowledge.Limit),
	)
	finder := disambiguate.New(kg,
		disambiguate.WithLanguages(c.Knowledge.Languages...),
		disambiguate.WithCache(knowledgeCache),
	)

	op := overpass.NewClient(f,
		overpass.WithMirrors(c.Environment.OverpassMirrors...),
		overpass.WithTimeout(c.Environment.OverpassTimeout),
	)
	air := waqi.NewClient(f, c.AirQuality.Token,
		waqi.WithBaseURL(c.AirQuality.BaseURL),
		waqi.WithTimeout(c.AirQuality.Timeout),
	)
	if !air.Enabled() {
		zap.L().Debug("air quality token not set, AQI lookups disabled")
	}
	lookupTimeout := c.Environment.LookupTimeout
	aggregator := facts.New(
		facts.KnowledgeLookup(finder, kg, knowledgeCache, c.Knowledge.Timeout),
		facts.FloodLookup(wms.NewClient(f, c.Environment.GloFASURL, c.Environment.WMSTimeout), lookupTimeout),
		facts.FireLookup(wms.NewClient(f, c.Environment.GWISURL, c.Environment.WMSTimeout), time.Now, lookupTimeout),
		facts.AirLookup(air, c.AirQuality.Timeout),
		facts.UrbanLookup(wms.NewClient(f, c.Environment.IGNURL, c.Environment.WMSTimeout), op, lookupTimeout),
	)

	engine := assist.New(resolver, aggregator,
		assist.WithForward(forward...),
		assist.WithSuggester(suggest),
		assist.WithShelters(op, shelterCache),
	)

	env := &assistEnv{
		Store:    st,
		Engine:   engine,
		Resolver: resolver,
	}
	if c.Anthropic.Key != "" {
		env.Reports = report.NewAnthropicWriter(anthropicpkg.NewClient(c.Anthropic.Key), c.Anthropic.Model, c.Anthropic.MaxTokens)
		zap.L().Info("report writer enabled", zap.String("model", c.Anthropic.Model))
	} else {
		zap.L().Debug("anthropic key not set, reports disabled")
	}
	return env
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return eris.Wrap(enc.Encode(v), "encode output")
}
