// Package overpass runs Overpass QL queries against a list of public
// OpenStreetMap mirrors, first answer wins.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/geoassist/internal/fallback"
	"github.com/sells-group/geoassist/internal/fetcher"
)

// DefaultMirrors are tried in order.
var DefaultMirrors = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
	"https://overpass.nchc.org.tw/api/interpreter",
}

const defaultTimeout = 12 * time.Second

// Element is one node, way or relation. Ways and relations queried with
// "out center" carry a Center instead of Lat/Lon.
type Element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat,omitempty"`
	Lon    *float64          `json:"lon,omitempty"`
	Center *Point            `json:"center,omitempty"`
	Tags   map[string]string `json:"tags,omitempty"`
}

// Point is a bare coordinate pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Position returns the element coordinates, falling back to its centre.
func (e Element) Position() (lat, lon float64, ok bool) {
	if e.Lat != nil && e.Lon != nil {
		return *e.Lat, *e.Lon, true
	}
	if e.Center != nil {
		return e.Center.Lat, e.Center.Lon, true
	}
	return 0, 0, false
}

// Response is the JSON answer of the interpreter.
type Response struct {
	Elements []Element `json:"elements"`
}

// Option configures the client.
type Option func(*Client)

// WithMirrors replaces the mirror list.
func WithMirrors(urls ...string) Option {
	return func(c *Client) {
		if len(urls) > 0 {
			c.mirrors = urls
		}
	}
}

// WithTimeout bounds each mirror attempt.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// Client posts queries to the mirrors.
type Client struct {
	fetch   fetcher.Fetcher
	mirrors []string
	timeout time.Duration
}

// NewClient creates an Overpass client.
func NewClient(f fetcher.Fetcher, opts ...Option) *Client {
	c := &Client{fetch: f, mirrors: DefaultMirrors, timeout: defaultTimeout}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Query runs q on each mirror in turn and returns the first decoded answer.
func (c *Client) Query(ctx context.Context, q string) (*Response, error) {
	strategies := make([]fallback.Strategy[*Response], 0, len(c.mirrors))
	for _, m := range c.mirrors {
		strategies = append(strategies, fallback.Step(m, func(ctx context.Context) (*Response, bool, error) {
			resp, err := c.queryMirror(ctx, m, q)
			return resp, err == nil, err
		}))
	}
	resp, _, err := fallback.TryInOrder(ctx, strategies...)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: no mirror answered")
	}
	return resp, nil
}

func (c *Client) queryMirror(ctx context.Context, mirror, q string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := c.fetch.PostForm(ctx, mirror, url.Values{"data": {q}})
	if err != nil {
		return nil, err
	}
	var resp Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrapf(err, "overpass: decode answer from %s", mirror)
	}
	return &resp, nil
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// AroundQuery selects land use, amenities and buildings within radiusM
// metres of the point, tags only.
func AroundQuery(lat, lon float64, radiusM int) string {
	around := fmt.Sprintf("(around:%d,%s,%s)", radiusM, coord(lat), coord(lon))
	var b strings.Builder
	b.WriteString("[out:json][timeout:25];\n(\n")
	for _, sel := range []string{
		`way%s["landuse"];`,
		`relation%s["landuse"];`,
		`node%s["amenity"];`,
		`way%s["amenity"];`,
		`relation%s["amenity"];`,
		`way%s["building"];`,
		`relation%s["building"];`,
	} {
		b.WriteString("  " + fmt.Sprintf(sel, around) + "\n")
	}
	b.WriteString(");\nout tags;")
	return b.String()
}

// ShelterFilters are the tag filters of a shelter search, in category order.
var ShelterFilters = []string{
	`["emergency"="shelter"]`,
	`["amenity"="shelter"]`,
	`["military"="bunker"]`,
}

// SheltersQuery selects shelters and bunkers inside the bounds with centres
// for ways and relations.
func SheltersQuery(b *geom.Bounds) string {
	box := fmt.Sprintf("(%s,%s,%s,%s)", coord(b.Min(1)), coord(b.Min(0)), coord(b.Max(1)), coord(b.Max(0)))
	var sb strings.Builder
	sb.WriteString("[out:json][timeout:25];\n(\n")
	for _, f := range ShelterFilters {
		for _, kind := range []string{"node", "way", "relation"} {
			sb.WriteString("  " + kind + f + box + ";\n")
		}
	}
	sb.WriteString(");\nout center tags;")
	return sb.String()
}
