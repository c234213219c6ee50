package facts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geoassist/internal/fetcher"
	"github.com/sells-group/geoassist/pkg/overpass"
	"github.com/sells-group/geoassist/pkg/waqi"
	"github.com/sells-group/geoassist/pkg/wms"
)

func testFetcher() fetcher.Fetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{RateLimiters: map[string]*fetcher.AdaptiveLimiter{}})
}

func serve(t *testing.T, h http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestFloodLookup(t *testing.T) {
	u := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, GloFASFloodLayer, r.URL.Query().Get("LAYERS"))
		assert.Equal(t, "1.3.0", r.URL.Query().Get("VERSION"))
		_, _ = w.Write([]byte(`{"type":"FeatureCollection","features":[{"properties":{"band":"x","value":"0.35"}}]}`))
	})
	rec := New(FloodLookup(wms.NewClient(testFetcher(), u, time.Second), time.Second)).Aggregate(context.Background(), madridPlace)
	require.NotNil(t, rec.FloodRiskValue)
	assert.Equal(t, 0.35, *rec.FloodRiskValue)
	require.NotNil(t, rec.FloodRiskLevel)
	assert.Equal(t, "Medium", *rec.FloodRiskLevel)
}

func TestFloodLookup_NegativeDiscarded(t *testing.T) {
	u := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features":[{"properties":{"value":-9999}}]}`))
	})
	rec := New(FloodLookup(wms.NewClient(testFetcher(), u, time.Second), time.Second)).Aggregate(context.Background(), madridPlace)
	assert.Nil(t, rec.FloodRiskValue)
	assert.Nil(t, rec.FloodRiskLevel)
}

func TestFloodLookup_ExceptionReportLeavesFieldsNull(t *testing.T) {
	u := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<ServiceExceptionReport version="1.3.0" xmlns="http://www.opengis.net/ogc">
  <ServiceException code="InvalidPoint">Point 2 is outside the layer extent</ServiceException>
</ServiceExceptionReport>`))
	})
	rec := New(FloodLookup(wms.NewClient(testFetcher(), u, time.Second), time.Second)).Aggregate(context.Background(), madridPlace)
	assert.Nil(t, rec.FloodRiskValue)
	assert.Nil(t, rec.FloodRiskLevel)
}

func TestFireLookup_FallsBackToPreviousDay(t *testing.T) {
	var (
		mu    sync.Mutex
		dates []string
	)
	u := serve(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "1.1.1", q.Get("VERSION"))
		assert.Equal(t, GWISQueryLayer, q.Get("QUERY_LAYERS"))
		mu.Lock()
		dates = append(dates, q.Get("TIME"))
		mu.Unlock()
		if q.Get("TIME") == "2026-10-19" {
			_, _ = w.Write([]byte("Search returned no results."))
			return
		}
		_, _ = w.Write([]byte(`<table><tr><td>Fire Weather Index (FWI)</td><td>31.5</td></tr></table>`))
	})
	now := func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }

	rec := New(FireLookup(wms.NewClient(testFetcher(), u, time.Second), now, time.Second)).Aggregate(context.Background(), madridPlace)
	mu.Lock()
	assert.Equal(t, []string{"2026-10-19", "2026-10-18"}, dates)
	mu.Unlock()
	require.NotNil(t, rec.FireWeatherIndex)
	assert.Equal(t, 31.5, *rec.FireWeatherIndex)
	require.NotNil(t, rec.FireRiskLevel)
	assert.Equal(t, "Very high", *rec.FireRiskLevel)
}

func TestFireLookup_NoData(t *testing.T) {
	u := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<ServiceExceptionReport/>"))
	})
	rec := New(FireLookup(wms.NewClient(testFetcher(), u, time.Second), nil, time.Second)).Aggregate(context.Background(), madridPlace)
	assert.Nil(t, rec.FireWeatherIndex)
	assert.Nil(t, rec.FireRiskLevel)
}

func TestUrbanLookup_IGNFirst(t *testing.T) {
	ign := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, IGNBaseLayer, r.URL.Query().Get("LAYERS"))
		_, _ = w.Write([]byte(`{"features":[{"properties":{"uso":"urbano"}}]}`))
	})
	op := serve(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("overpass should not be called")
	})
	lookup := UrbanLookup(
		wms.NewClient(testFetcher(), ign, time.Second),
		overpass.NewClient(testFetcher(), overpass.WithMirrors(op)),
		time.Second,
	)
	rec := New(lookup).Aggregate(context.Background(), madridPlace)
	require.NotNil(t, rec.Urban)
	assert.Equal(t, "IGN WMS", rec.Urban.Source)
	assert.Equal(t, "urbano", rec.Urban.Details["uso"])
	assert.Nil(t, rec.Urban.AmenityCount)
}

func TestUrbanLookup_OverpassFallback(t *testing.T) {
	ign := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"features":[]}`))
	})
	op := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"elements":[
			{"type":"way","id":1,"tags":{"landuse":"residential"}},
			{"type":"way","id":2,"tags":{"landuse":"residential"}},
			{"type":"way","id":3,"tags":{"landuse":"retail"}},
			{"type":"node","id":4,"tags":{"amenity":"cafe"}},
			{"type":"node","id":5,"tags":{"amenity":"cafe"}},
			{"type":"node","id":6,"tags":{"amenity":"bank"}},
			{"type":"way","id":7,"tags":{"building":"yes","amenity":"school"}},
			{"type":"way","id":8,"tags":{"building":"apartments"}}
		]}`))
	})
	lookup := UrbanLookup(
		wms.NewClient(testFetcher(), ign, time.Second),
		overpass.NewClient(testFetcher(), overpass.WithMirrors(op)),
		time.Second,
	)
	rec := New(lookup).Aggregate(context.Background(), madridPlace)
	require.NotNil(t, rec.Urban)
	u := rec.Urban
	assert.Equal(t, "OpenStreetMap (Overpass)", u.Source)
	require.NotNil(t, u.RadiusM)
	assert.Equal(t, 600, *u.RadiusM)
	require.NotNil(t, u.BuildingCount)
	assert.Equal(t, 2, *u.BuildingCount)
	require.NotNil(t, u.AmenityCount)
	assert.Equal(t, 4, *u.AmenityCount)
	require.NotEmpty(t, u.Landuse)
	assert.Equal(t, "residential", u.Landuse[0].Type)
	assert.Equal(t, 2, u.Landuse[0].Count)
	assert.Equal(t, "cafe", u.Amenities[0].Type)
}

func TestAirLookup_DisabledWithoutToken(t *testing.T) {
	u := serve(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	rec := New(AirLookup(waqi.NewClient(testFetcher(), "", waqi.WithBaseURL(u)), time.Second)).Aggregate(context.Background(), madridPlace)
	assert.Nil(t, rec.AQI)
	assert.Nil(t, rec.AQILabel)
}

func TestAirLookup(t *testing.T) {
	u := serve(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok","data":{"aqi":160}}`))
	})
	rec := New(AirLookup(waqi.NewClient(testFetcher(), "tok", waqi.WithBaseURL(u)), time.Second)).Aggregate(context.Background(), madridPlace)
	require.NotNil(t, rec.AQI)
	assert.Equal(t, 160.0, *rec.AQI)
	assert.Equal(t, AQIExtremelyUnfavourable, *rec.AQILabel)
}

func TestTopCounts(t *testing.T) {
	got := topCounts(map[string]int{"b": 2, "a": 2, "c": 5, "d": 1}, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{got[0].Type, got[1].Type, got[2].Type})
}
