// Package wms issues OGC WMS GetFeatureInfo requests for a single point and
// extracts values from the loosely structured answers.
package wms

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/geoassist/internal/fetcher"
)

// WMS protocol versions. 1.3.0 with EPSG:4326 uses lat/lon axis order.
const (
	Version111 = "1.1.1"
	Version130 = "1.3.0"
)

const (
	// DefaultHalfSizeDeg is half the side of the query window in degrees.
	DefaultHalfSizeDeg = 0.02
	// DefaultPixels is the width and height of the virtual map image.
	DefaultPixels = 101
)

// FeatureInfoRequest describes one layer query. The point is always placed
// at the centre pixel of a square window.
type FeatureInfoRequest struct {
	Version     string
	Layers      string
	QueryLayers string
	InfoFormat  string
	Styles      string
	Time        string
	HalfSizeDeg float64
	Pixels      int
}

func (r FeatureInfoRequest) withDefaults() FeatureInfoRequest {
	if r.Version == "" {
		r.Version = Version130
	}
	if r.QueryLayers == "" {
		r.QueryLayers = r.Layers
	}
	if r.InfoFormat == "" {
		r.InfoFormat = "application/json"
	}
	if r.HalfSizeDeg <= 0 {
		r.HalfSizeDeg = DefaultHalfSizeDeg
	}
	if r.Pixels <= 0 {
		r.Pixels = DefaultPixels
	}
	return r
}

// Window returns the lon/lat bounds of a square centred on the point.
func Window(lat, lon, halfSizeDeg float64) *geom.Bounds {
	return geom.NewBounds(geom.XY).Set(lon-halfSizeDeg, lat-halfSizeDeg, lon+halfSizeDeg, lat+halfSizeDeg)
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// BBoxParam renders bounds in the axis order the version expects.
func BBoxParam(b *geom.Bounds, version string) string {
	minLon, minLat, maxLon, maxLat := b.Min(0), b.Min(1), b.Max(0), b.Max(1)
	if version == Version130 {
		return formatCoord(minLat) + "," + formatCoord(minLon) + "," + formatCoord(maxLat) + "," + formatCoord(maxLon)
	}
	return formatCoord(minLon) + "," + formatCoord(minLat) + "," + formatCoord(maxLon) + "," + formatCoord(maxLat)
}

// Params builds the GetFeatureInfo query string for a point.
func (r FeatureInfoRequest) Params(lat, lon float64) url.Values {
	r = r.withDefaults()
	size := strconv.Itoa(r.Pixels)
	centre := strconv.Itoa(r.Pixels / 2)

	v := url.Values{
		"SERVICE":      {"WMS"},
		"REQUEST":      {"GetFeatureInfo"},
		"VERSION":      {r.Version},
		"BBOX":         {BBoxParam(Window(lat, lon, r.HalfSizeDeg), r.Version)},
		"WIDTH":        {size},
		"HEIGHT":       {size},
		"LAYERS":       {r.Layers},
		"QUERY_LAYERS": {r.QueryLayers},
		"INFO_FORMAT":  {r.InfoFormat},
	}
	if r.Version == Version130 {
		v.Set("CRS", "EPSG:4326")
		v.Set("I", centre)
		v.Set("J", centre)
	} else {
		v.Set("SRS", "EPSG:4326")
		v.Set("X", centre)
		v.Set("Y", centre)
	}
	if r.Styles != "" {
		v.Set("STYLES", r.Styles)
	}
	if r.Time != "" {
		v.Set("TIME", r.Time)
	}
	return v
}

// Client queries one WMS endpoint.
type Client struct {
	fetch   fetcher.Fetcher
	baseURL string
	timeout time.Duration
}

// NewClient creates a client for the service at baseURL.
func NewClient(f fetcher.Fetcher, baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{fetch: f, baseURL: baseURL, timeout: timeout}
}

// BaseURL returns the service endpoint.
func (c *Client) BaseURL() string { return c.baseURL }

// GetFeatureInfo returns the raw body for the point query.
func (c *Client) GetFeatureInfo(ctx context.Context, req FeatureInfoRequest, lat, lon float64) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.fetch.GetText(ctx, c.baseURL+"?"+req.Params(lat, lon).Encode())
	if err != nil {
		return nil, eris.Wrapf(err, "wms: GetFeatureInfo %s", req.Layers)
	}
	return body, nil
}
