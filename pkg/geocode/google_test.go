package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const googleMadridJSON = `{
  "status": "OK",
  "results": [{
    "formatted_address": "Madrid, España",
    "types": ["locality", "political"],
    "geometry": {"location": {"lat": 40.4167754, "lng": -3.7037902}, "location_type": "APPROXIMATE"},
    "address_components": [
      {"long_name": "Madrid", "types": ["locality", "political"]},
      {"long_name": "Comunidad de Madrid", "types": ["administrative_area_level_1", "political"]},
      {"long_name": "España", "types": ["country", "political"]}
    ]
  }]
}`

func newGoogleServer(t *testing.T, handler http.HandlerFunc) *Google {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGoogle(newTestFetcher(srv.URL, googleGeocodeURL), "test-key")
}

func TestGoogle_Unavailable_NoKey(t *testing.T) {
	g := NewGoogle(nil, "")
	assert.False(t, g.Available())
	resp := g.ForwardSearch(context.Background(), "Madrid")
	assert.Equal(t, StatusUnavailable, resp.Status)
}

func TestGoogle_ForwardSearch(t *testing.T) {
	g := newGoogleServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Madrid", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "es", r.URL.Query().Get("language"))
		_, _ = w.Write([]byte(googleMadridJSON))
	})

	resp := g.ForwardSearch(context.Background(), "Madrid")
	c, ok := resp.First()
	require.True(t, ok)
	assert.Equal(t, "Madrid", c.Address.City)
	assert.Equal(t, "Comunidad de Madrid", c.Address.Region)
	assert.Equal(t, "España", c.Address.Country)
	assert.True(t, c.Classification.IsCityLike())
	assert.Equal(t, "google", c.Source)
}

func TestGoogle_StatusMapping(t *testing.T) {
	tests := []struct {
		body string
		want Status
	}{
		{`{"status":"ZERO_RESULTS","results":[]}`, StatusEmpty},
		{`{"status":"OVER_QUERY_LIMIT","results":[]}`, StatusUnavailable},
		{`{"status":"REQUEST_DENIED","error_message":"bad key"}`, StatusUnavailable},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			g := newGoogleServer(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})
			assert.Equal(t, tt.want, g.ForwardSearch(context.Background(), "x").Status)
		})
	}
}

func TestGoogle_ReverseSearch_RetriesUnfiltered(t *testing.T) {
	var filters []string
	g := newGoogleServer(t, func(w http.ResponseWriter, r *http.Request) {
		rt := r.URL.Query().Get("result_type")
		filters = append(filters, rt)
		assert.Equal(t, "40.4168,-3.7038", r.URL.Query().Get("latlng"))
		if rt != "" {
			_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","results":[]}`))
			return
		}
		_, _ = w.Write([]byte(googleMadridJSON))
	})

	resp := g.ReverseSearch(context.Background(), 40.4168, -3.7038, 9)
	require.True(t, resp.OK())
	assert.Equal(t, []string{"locality", ""}, filters)
	assert.Len(t, resp.Candidates, 1)
}

func TestResultTypeForZoom(t *testing.T) {
	assert.Equal(t, "", resultTypeForZoom(0))
	assert.Equal(t, "country", resultTypeForZoom(4))
	assert.Equal(t, "administrative_area_level_1", resultTypeForZoom(7))
	assert.Equal(t, "locality", resultTypeForZoom(10))
	assert.Equal(t, "sublocality|neighborhood", resultTypeForZoom(12))
	assert.Equal(t, "street_address|route", resultTypeForZoom(17))
}

func TestClassifyGoogle(t *testing.T) {
	assert.Equal(t, "place/city", classifyGoogle([]string{"political", "locality"}).String())
	assert.Equal(t, "aeroway/aerodrome", classifyGoogle([]string{"airport"}).String())
	assert.Equal(t, "google/point_of_interest", classifyGoogle([]string{"point_of_interest"}).String())
	assert.Equal(t, "", classifyGoogle(nil).String())
}
