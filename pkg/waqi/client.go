// Package waqi reads the air quality index nearest to a point from the
// World Air Quality Index feed.
package waqi

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"

	"github.com/sells-group/geoassist/internal/fetcher"
)

const (
	defaultBaseURL = "https://api.waqi.info"
	defaultTimeout = 8 * time.Second
)

// ErrNoToken means the client was built without a credential.
var ErrNoToken = eris.New("waqi: no token configured")

// Reading is the AQI of the station nearest to the query point.
type Reading struct {
	AQI     float64 `json:"aqi"`
	Station string  `json:"station,omitempty"`
}

// Client queries the geo feed.
type Client struct {
	fetch   fetcher.Fetcher
	token   string
	baseURL string
	timeout time.Duration
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL overrides the API base URL.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithTimeout bounds each lookup.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewClient creates a client. An empty token disables it.
func NewClient(f fetcher.Fetcher, token string, opts ...Option) *Client {
	c := &Client{fetch: f, token: token, baseURL: defaultBaseURL, timeout: defaultTimeout}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Enabled reports whether a token is configured.
func (c *Client) Enabled() bool { return c != nil && c.token != "" }

// Nearest returns the reading for the station nearest to the point. A nil
// reading with a nil error means the feed has no numeric index there.
func (c *Client) Nearest(ctx context.Context, lat, lon float64) (*Reading, error) {
	if !c.Enabled() {
		return nil, ErrNoToken
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := fmt.Sprintf("%s/feed/geo:%s;%s/?token=%s", c.baseURL,
		strconv.FormatFloat(lat, 'f', -1, 64), strconv.FormatFloat(lon, 'f', -1, 64), c.token)
	body, err := c.fetch.GetText(ctx, u)
	if err != nil {
		return nil, eris.Wrap(err, "waqi: feed")
	}
	return parseFeed(body)
}

func parseFeed(body []byte) (*Reading, error) {
	if !gjson.ValidBytes(body) {
		return nil, eris.New("waqi: malformed feed")
	}
	res := gjson.ParseBytes(body)
	if status := res.Get("status").String(); status != "ok" {
		return nil, eris.Errorf("waqi: status %q: %s", status, res.Get("data").String())
	}
	// The index is "-" when the station has no current reading.
	aqi := res.Get("data.aqi")
	var v float64
	switch aqi.Type {
	case gjson.Number:
		v = aqi.Num
	case gjson.String:
		f, err := strconv.ParseFloat(aqi.Str, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, nil
		}
		v = f
	default:
		return nil, nil
	}
	return &Reading{AQI: v, Station: res.Get("data.city.name").String()}, nil
}
