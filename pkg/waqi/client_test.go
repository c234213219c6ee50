package waqi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geoassist/internal/fetcher"
)

func newTestClient(t *testing.T, token string, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{RateLimiters: map[string]*fetcher.AdaptiveLimiter{}})
	return NewClient(f, token, WithBaseURL(srv.URL), WithTimeout(time.Second))
}

func TestNearest(t *testing.T) {
	c := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/feed/geo:40.4168;-3.7038/", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("token"))
		_, _ = w.Write([]byte(`{"status":"ok","data":{"aqi":42,"city":{"name":"Madrid - Plaza del Carmen"}}}`))
	})

	r, err := c.Nearest(context.Background(), 40.4168, -3.7038)
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, 42.0, r.AQI)
	assert.Equal(t, "Madrid - Plaza del Carmen", r.Station)
}

func TestNearest_NoToken(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})
	assert.False(t, c.Enabled())
	_, err := c.Nearest(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrNoToken)

	var nilClient *Client
	assert.False(t, nilClient.Enabled())
}

func TestParseFeed(t *testing.T) {
	r, err := parseFeed([]byte(`{"status":"ok","data":{"aqi":"-"}}`))
	assert.NoError(t, err)
	assert.Nil(t, r, "station without a reading")

	r, err = parseFeed([]byte(`{"status":"ok","data":{"aqi":"17"}}`))
	require.NoError(t, err)
	assert.Equal(t, 17.0, r.AQI)

	r, err = parseFeed([]byte(`{"status":"ok","data":{}}`))
	assert.NoError(t, err)
	assert.Nil(t, r)

	_, err = parseFeed([]byte(`{"status":"error","data":"Invalid key"}`))
	assert.Error(t, err)

	_, err = parseFeed([]byte(`<html>`))
	assert.Error(t, err)
}

func TestNearest_Non2xx(t *testing.T) {
	c := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := c.Nearest(context.Background(), 1, 1)
	assert.Error(t, err)
}
