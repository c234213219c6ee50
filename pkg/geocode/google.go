package geocode

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geoassist/internal/fetcher"
	"github.com/sells-group/geoassist/internal/model"
)

const googleGeocodeURL = "https://maps.googleapis.com/maps/api/geocode/json"

// Google queries the Google Geocoding API. It is unavailable without a key.
type Google struct {
	fetch    fetcher.Fetcher
	key      string
	baseURL  string
	language string
	timeout  time.Duration
}

// GoogleOption configures the Google adapter.
type GoogleOption func(*Google)

// WithGoogleBaseURL overrides the API endpoint.
func WithGoogleBaseURL(u string) GoogleOption {
	return func(g *Google) { g.baseURL = u }
}

// WithGoogleLanguage sets the result language.
func WithGoogleLanguage(lang string) GoogleOption {
	return func(g *Google) { g.language = lang }
}

// WithGoogleTimeout bounds each call.
func WithGoogleTimeout(d time.Duration) GoogleOption {
	return func(g *Google) { g.timeout = d }
}

// NewGoogle creates the adapter.
func NewGoogle(f fetcher.Fetcher, apiKey string, opts ...GoogleOption) *Google {
	g := &Google{
		fetch:    f,
		key:      apiKey,
		baseURL:  googleGeocodeURL,
		language: "es",
		timeout:  6 * time.Second,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Name implements Adapter.
func (g *Google) Name() string { return "google" }

// Available implements Adapter.
func (g *Google) Available() bool { return g.key != "" && g.fetch != nil }

type googleGeocodeResponse struct {
	Results      []googleResult `json:"results"`
	Status       string         `json:"status"`
	ErrorMessage string         `json:"error_message"`
}

type googleResult struct {
	AddressComponents []struct {
		LongName string   `json:"long_name"`
		Types    []string `json:"types"`
	} `json:"address_components"`
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		LocationType string `json:"location_type"`
	} `json:"geometry"`
	FormattedAddress string   `json:"formatted_address"`
	Types            []string `json:"types"`
}

// googleClasses maps Google result types onto OSM-style class/type pairs so
// scoring and city filters treat every provider alike.
var googleClasses = map[string]model.Classification{
	"locality":                    {Class: "place", Type: "city"},
	"postal_town":                 {Class: "place", Type: "town"},
	"administrative_area_level_3": {Class: "place", Type: "municipality"},
	"country":                     {Class: "place", Type: "country"},
	"administrative_area_level_1": {Class: "place", Type: "state"},
	"administrative_area_level_2": {Class: "boundary", Type: "administrative"},
	"sublocality":                 {Class: "place", Type: "suburb"},
	"neighborhood":                {Class: "place", Type: "neighbourhood"},
	"route":                       {Class: "highway", Type: "road"},
	"street_address":              {Class: "building", Type: "address"},
	"premise":                     {Class: "building", Type: "address"},
	"airport":                     {Class: "aeroway", Type: "aerodrome"},
}

func classifyGoogle(types []string) model.Classification {
	for _, t := range types {
		if c, ok := googleClasses[t]; ok {
			return c
		}
	}
	if len(types) > 0 {
		return model.Classification{Class: "google", Type: types[0]}
	}
	return model.Classification{}
}

func (r googleResult) candidate() model.PlaceCandidate {
	var addr model.Address
	name := ""
	for _, comp := range r.AddressComponents {
		for _, t := range comp.Types {
			switch t {
			case "locality", "postal_town":
				if addr.City == "" {
					addr.City = comp.LongName
				}
			case "country":
				addr.Country = comp.LongName
			case "administrative_area_level_1":
				addr.Region = comp.LongName
			case "sublocality", "sublocality_level_1", "neighborhood":
				if addr.District == "" {
					addr.District = comp.LongName
				}
			case "route":
				addr.Street = comp.LongName
			case "street_number":
				addr.HouseNumber = comp.LongName
			case "postal_code":
				addr.Postcode = comp.LongName
			}
		}
		if name == "" {
			name = comp.LongName
		}
	}
	importance := 0.5
	if r.Geometry.LocationType == "ROOFTOP" {
		importance = 0.7
	}
	return model.PlaceCandidate{
		Name:           name,
		DisplayLabel:   r.FormattedAddress,
		Latitude:       r.Geometry.Location.Lat,
		Longitude:      r.Geometry.Location.Lng,
		Address:        addr,
		Source:         "google",
		Classification: classifyGoogle(r.Types),
		Importance:     importance,
	}
}

func (g *Google) query(ctx context.Context, params url.Values) Response {
	if !g.Available() {
		return Unavailable(g.Name(), eris.New("api key not configured"))
	}
	params.Set("key", g.key)
	if g.language != "" {
		params.Set("language", g.language)
	}

	var resp googleGeocodeResponse
	if err := g.fetch.GetJSON(ctx, g.baseURL+"?"+params.Encode(), &resp); err != nil {
		return Unavailable(g.Name(), err)
	}
	switch resp.Status {
	case "OK":
		cands := make([]model.PlaceCandidate, 0, len(resp.Results))
		for _, r := range resp.Results {
			cands = append(cands, r.candidate())
		}
		return Found(g.Name(), cands)
	case "ZERO_RESULTS":
		return Empty()
	default:
		return Unavailable(g.Name(), eris.Errorf("status %s: %s", resp.Status, resp.ErrorMessage))
	}
}

// ForwardSearch implements Adapter.
func (g *Google) ForwardSearch(ctx context.Context, text string) Response {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()
	return g.query(ctx, url.Values{"address": {text}})
}

// resultTypeForZoom picks the Google result_type filter matching the zoom band.
func resultTypeForZoom(zoom int) string {
	switch {
	case zoom <= 0:
		return ""
	case zoom <= 5:
		return "country"
	case zoom <= 7:
		return "administrative_area_level_1"
	case zoom <= 10:
		return "locality"
	case zoom <= 12:
		return "sublocality|neighborhood"
	default:
		return "street_address|route"
	}
}

// ReverseSearch implements Adapter. A filtered query with no results is
// retried without the result_type filter.
func (g *Google) ReverseSearch(ctx context.Context, lat, lon float64, zoom int) Response {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	latlng := strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lon, 'f', -1, 64)
	params := url.Values{"latlng": {latlng}}
	rt := resultTypeForZoom(zoom)
	if rt != "" {
		params.Set("result_type", rt)
	}
	resp := g.query(ctx, params)
	if resp.Status == StatusEmpty && rt != "" {
		resp = g.query(ctx, url.Values{"latlng": {latlng}})
	}
	if resp.OK() {
		resp.Candidates = resp.Candidates[:1]
	}
	return resp
}

// Suggest implements Adapter. Google has no autocomplete here, so this is a
// forward search narrowed to settlements when cityOnly is set.
func (g *Google) Suggest(ctx context.Context, text string, cityOnly bool) Response {
	resp := g.ForwardSearch(ctx, strings.TrimSpace(text))
	if !resp.OK() || !cityOnly {
		return resp
	}
	return Found(g.Name(), filterCandidates(resp.Candidates, func(c model.PlaceCandidate) bool {
		return c.Classification.IsCityLike()
	}))
}
