package facts

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geoassist/internal/fallback"
	"github.com/sells-group/geoassist/internal/model"
	"github.com/sells-group/geoassist/pkg/overpass"
	"github.com/sells-group/geoassist/pkg/waqi"
	"github.com/sells-group/geoassist/pkg/wms"
)

// Public endpoints and layers used by the environment lookups.
const (
	GloFASURL        = "https://ows.globalfloods.eu/glofas-ows/ows.py"
	GloFASFloodLayer = "FloodHazard100y"

	GWISURL           = "https://maps.effis.emergency.copernicus.eu/gwis"
	GWISFWILayer      = "mf025.fwi"
	GWISQueryLayer    = "mf025.query"
	gwisFWIMetric     = "Fire Weather Index (FWI)"
	gwisDateLayout    = "2006-01-02"
	IGNBaseURL        = "https://www.ign.es/wms-inspire/ign-base"
	IGNBaseLayer      = "IGNBaseTodo"
	UrbanRadiusMetres = 600
	urbanTopN         = 5
)

// FloodLookup reads the 100-year flood hazard value at the point. A missing
// or negative value leaves both flood fields null.
func FloodLookup(c *wms.Client, timeout time.Duration) Lookup {
	return Lookup{
		Name:    "flood",
		Timeout: timeout,
		Run: func(ctx context.Context, p model.ResolvedPlace) (Patch, error) {
			body, err := c.GetFeatureInfo(ctx, wms.FeatureInfoRequest{
				Version: wms.Version130,
				Layers:  GloFASFloodLayer,
			}, p.Candidate.Latitude, p.Candidate.Longitude)
			if err != nil {
				return nil, err
			}
			if wms.NoData(body) {
				return nil, nil
			}
			v, ok := wms.FirstNumericProperty(body)
			if !ok || v < 0 {
				return nil, nil
			}
			level := ClassifyFloodRisk(v)
			return func(rec *model.FactRecord) {
				rec.FloodRiskValue = &v
				rec.FloodRiskLevel = &level
			}, nil
		},
	}
}

// FireLookup reads the Fire Weather Index for today, or yesterday when
// today's grid is not published yet.
func FireLookup(c *wms.Client, now func() time.Time, timeout time.Duration) Lookup {
	if now == nil {
		now = time.Now
	}
	return Lookup{
		Name:    "fire",
		Timeout: timeout,
		Run: func(ctx context.Context, p model.ResolvedPlace) (Patch, error) {
			today := now().UTC()
			var strategies []fallback.Strategy[float64]
			for _, day := range []time.Time{today, today.AddDate(0, 0, -1)} {
				date := day.Format(gwisDateLayout)
				strategies = append(strategies, fallback.Step(date, func(ctx context.Context) (float64, bool, error) {
					return fireIndex(ctx, c, date, p.Candidate.Latitude, p.Candidate.Longitude)
				}))
			}
			fwi, _, err := fallback.TryInOrder(ctx, strategies...)
			if eris.Is(err, fallback.ErrExhausted) {
				return nil, nil
			}
			if err != nil {
				return nil, err
			}
			level := ClassifyFWI(fwi)
			return func(rec *model.FactRecord) {
				rec.FireWeatherIndex = &fwi
				rec.FireRiskLevel = &level
			}, nil
		},
	}
}

func fireIndex(ctx context.Context, c *wms.Client, date string, lat, lon float64) (float64, bool, error) {
	body, err := c.GetFeatureInfo(ctx, wms.FeatureInfoRequest{
		Version:     wms.Version111,
		Layers:      GWISFWILayer,
		QueryLayers: GWISQueryLayer,
		InfoFormat:  "text/html",
		Styles:      "default",
		Time:        date,
	}, lat, lon)
	if err != nil {
		return 0, false, err
	}
	if wms.NoData(body) {
		return 0, false, nil
	}
	v, ok := wms.TableMetrics(body)[gwisFWIMetric]
	return v, ok, nil
}

// AirLookup reads the nearest AQI. Without a configured token it reports
// nothing and makes no call.
func AirLookup(c *waqi.Client, timeout time.Duration) Lookup {
	return Lookup{
		Name:    "air",
		Timeout: timeout,
		Run: func(ctx context.Context, p model.ResolvedPlace) (Patch, error) {
			if !c.Enabled() {
				return nil, nil
			}
			r, err := c.Nearest(ctx, p.Candidate.Latitude, p.Candidate.Longitude)
			if err != nil || r == nil {
				return nil, err
			}
			aqi := r.AQI
			return func(rec *model.FactRecord) {
				rec.AQI = &aqi
			}, nil
		},
	}
}

// UrbanLookup summarises the surroundings from the IGN base map, falling
// back to OpenStreetMap counts around the point.
func UrbanLookup(ign *wms.Client, op *overpass.Client, timeout time.Duration) Lookup {
	return Lookup{
		Name:    "urban",
		Timeout: timeout,
		Run: func(ctx context.Context, p model.ResolvedPlace) (Patch, error) {
			lat, lon := p.Candidate.Latitude, p.Candidate.Longitude
			var strategies []fallback.Strategy[*model.UrbanContext]
			if ign != nil {
				strategies = append(strategies, fallback.Step("ign", func(ctx context.Context) (*model.UrbanContext, bool, error) {
					return ignUrban(ctx, ign, lat, lon)
				}))
			}
			if op != nil {
				strategies = append(strategies, fallback.Step("overpass", func(ctx context.Context) (*model.UrbanContext, bool, error) {
					return overpassUrban(ctx, op, lat, lon)
				}))
			}
			u, _, err := fallback.TryInOrder(ctx, strategies...)
			if err != nil {
				return nil, err
			}
			return func(rec *model.FactRecord) {
				rec.Urban = u
			}, nil
		},
	}
}

func ignUrban(ctx context.Context, c *wms.Client, lat, lon float64) (*model.UrbanContext, bool, error) {
	body, err := c.GetFeatureInfo(ctx, wms.FeatureInfoRequest{
		Version: wms.Version130,
		Layers:  IGNBaseLayer,
	}, lat, lon)
	if err != nil {
		return nil, false, err
	}
	props, ok := wms.FirstFeatureProperties(body)
	if !ok {
		return nil, false, nil
	}
	return &model.UrbanContext{
		Source:  "IGN WMS",
		Method:  "GetFeatureInfo",
		Summary: "Result from the IGN base map.",
		Details: props,
	}, true, nil
}

func overpassUrban(ctx context.Context, c *overpass.Client, lat, lon float64) (*model.UrbanContext, bool, error) {
	resp, err := c.Query(ctx, overpass.AroundQuery(lat, lon, UrbanRadiusMetres))
	if err != nil {
		return nil, false, err
	}
	landuse := map[string]int{}
	amenities := map[string]int{}
	var buildings, amenityTotal int
	for _, e := range resp.Elements {
		if v := e.Tags["landuse"]; v != "" {
			landuse[v]++
		}
		if v := e.Tags["amenity"]; v != "" {
			amenities[v]++
			amenityTotal++
		}
		if e.Tags["building"] != "" {
			buildings++
		}
	}
	radius := UrbanRadiusMetres
	topLanduse, topAmenities := topCounts(landuse, urbanTopN), topCounts(amenities, urbanTopN)
	return &model.UrbanContext{
		Source:        "OpenStreetMap (Overpass)",
		Method:        "Surroundings query",
		Summary:       "Land use and amenities nearby.",
		RadiusM:       &radius,
		Landuse:       topLanduse,
		Amenities:     topAmenities,
		BuildingCount: &buildings,
		AmenityCount:  &amenityTotal,
		Details: map[string]any{
			"radius_m":       radius,
			"landuse":        topLanduse,
			"amenities":      topAmenities,
			"building_count": buildings,
		},
	}, true, nil
}

// topCounts returns the n most frequent values, ties broken by name.
func topCounts(counts map[string]int, n int) []model.CountEntry {
	out := make([]model.CountEntry, 0, len(counts))
	for k, v := range counts {
		out = append(out, model.CountEntry{Type: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Type < out[j].Type
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
