package geocode

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geoassist/internal/fetcher"
	"github.com/sells-group/geoassist/internal/model"
)

const nominatimBaseURL = "https://nominatim.openstreetmap.org"

// Nominatim queries an OpenStreetMap Nominatim instance.
type Nominatim struct {
	fetch          fetcher.Fetcher
	baseURL        string
	timeout        time.Duration
	suggestTimeout time.Duration
	limit          int
}

// NominatimOption configures the Nominatim adapter.
type NominatimOption func(*Nominatim)

// WithNominatimBaseURL points the adapter at another instance.
func WithNominatimBaseURL(u string) NominatimOption {
	return func(n *Nominatim) {
		n.baseURL = strings.TrimRight(u, "/")
	}
}

// WithNominatimTimeout bounds forward and reverse calls.
func WithNominatimTimeout(d time.Duration) NominatimOption {
	return func(n *Nominatim) { n.timeout = d }
}

// WithNominatimSuggestTimeout bounds each suggestion search.
func WithNominatimSuggestTimeout(d time.Duration) NominatimOption {
	return func(n *Nominatim) { n.suggestTimeout = d }
}

// NewNominatim creates the adapter. The fetcher carries User-Agent,
// Accept-Language and the 1 rps host limiter.
func NewNominatim(f fetcher.Fetcher, opts ...NominatimOption) *Nominatim {
	n := &Nominatim{
		fetch:          f,
		baseURL:        nominatimBaseURL,
		timeout:        6 * time.Second,
		suggestTimeout: 3 * time.Second,
		limit:          50,
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Name implements Adapter.
func (n *Nominatim) Name() string { return "nominatim" }

// Available implements Adapter.
func (n *Nominatim) Available() bool { return n.fetch != nil }

type nominatimPlace struct {
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	Name        string            `json:"name"`
	Class       string            `json:"class"`
	Category    string            `json:"category"`
	Type        string            `json:"type"`
	Importance  float64           `json:"importance"`
	Address     map[string]string `json:"address"`
	Error       string            `json:"error"`
}

func firstOf(m map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(m[k]); v != "" {
			return v
		}
	}
	return ""
}

func (p nominatimPlace) candidate() (model.PlaceCandidate, bool) {
	lat, err1 := strconv.ParseFloat(p.Lat, 64)
	lon, err2 := strconv.ParseFloat(p.Lon, 64)
	if err1 != nil || err2 != nil {
		return model.PlaceCandidate{}, false
	}
	class := p.Class
	if class == "" {
		class = p.Category
	}
	name := p.Name
	if name == "" {
		name = firstOf(p.Address, "road", "city", "town", "village")
	}
	return model.PlaceCandidate{
		Name:         name,
		DisplayLabel: p.DisplayName,
		Latitude:     lat,
		Longitude:    lon,
		Address: model.Address{
			City:        firstOf(p.Address, "city", "town", "village", "municipality", "hamlet"),
			Country:     firstOf(p.Address, "country"),
			Region:      firstOf(p.Address, "state", "region", "province", "county"),
			District:    firstOf(p.Address, "city_district", "suburb", "borough", "quarter", "neighbourhood"),
			Street:      firstOf(p.Address, "road", "pedestrian", "footway", "path"),
			HouseNumber: firstOf(p.Address, "house_number"),
			Postcode:    firstOf(p.Address, "postcode"),
		},
		Source:         "nominatim",
		Classification: model.Classification{Class: class, Type: p.Type},
		Importance:     p.Importance,
	}, true
}

func toCandidates(places []nominatimPlace) []model.PlaceCandidate {
	out := make([]model.PlaceCandidate, 0, len(places))
	for _, p := range places {
		if c, ok := p.candidate(); ok {
			out = append(out, c)
		}
	}
	return out
}

func (n *Nominatim) search(ctx context.Context, text string, extra url.Values) ([]nominatimPlace, error) {
	params := url.Values{
		"q":              {text},
		"format":         {"json"},
		"addressdetails": {"1"},
		"dedupe":         {"1"},
		"limit":          {strconv.Itoa(n.limit)},
	}
	for k, v := range extra {
		params[k] = v
	}
	var places []nominatimPlace
	if err := n.fetch.GetJSON(ctx, n.baseURL+"/search?"+params.Encode(), &places); err != nil {
		return nil, eris.Wrap(err, "nominatim: search")
	}
	return places, nil
}

// ForwardSearch implements Adapter.
func (n *Nominatim) ForwardSearch(ctx context.Context, text string) Response {
	ctx, cancel := withTimeout(ctx, n.timeout)
	defer cancel()

	places, err := n.search(ctx, text, nil)
	if err != nil {
		return Unavailable(n.Name(), err)
	}
	return Found(n.Name(), toCandidates(places))
}

// coarserZoom returns the next reverse precision to try, or 0 when none.
func coarserZoom(zoom int) int {
	switch {
	case zoom > 16:
		return 16
	case zoom > 10:
		return 10
	case zoom > 5:
		return 5
	default:
		return 0
	}
}

func (n *Nominatim) reverseOnce(ctx context.Context, lat, lon float64, zoom int) (*nominatimPlace, error) {
	params := url.Values{
		"format":         {"json"},
		"lat":            {strconv.FormatFloat(lat, 'f', -1, 64)},
		"lon":            {strconv.FormatFloat(lon, 'f', -1, 64)},
		"zoom":           {strconv.Itoa(zoom)},
		"addressdetails": {"1"},
	}
	var place nominatimPlace
	if err := n.fetch.GetJSON(ctx, n.baseURL+"/reverse?"+params.Encode(), &place); err != nil {
		return nil, eris.Wrap(err, "nominatim: reverse")
	}
	if place.Error != "" || place.Lat == "" {
		return nil, nil
	}
	return &place, nil
}

// ReverseSearch implements Adapter. An empty or failed answer is retried at
// the next coarser zoom band.
func (n *Nominatim) ReverseSearch(ctx context.Context, lat, lon float64, zoom int) Response {
	ctx, cancel := withTimeout(ctx, n.timeout)
	defer cancel()

	if zoom <= 0 || zoom > 18 {
		zoom = 18
	}
	var lastErr error
	answered := false
	for z := zoom; z > 0; z = coarserZoom(z) {
		place, err := n.reverseOnce(ctx, lat, lon, z)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		answered = true
		if place == nil {
			continue
		}
		if c, ok := place.candidate(); ok {
			return Found(n.Name(), []model.PlaceCandidate{c})
		}
	}
	if !answered {
		return Unavailable(n.Name(), lastErr)
	}
	return Empty()
}

// Suggest implements Adapter. The general and city-typed searches run
// concurrently; city results come first.
func (n *Nominatim) Suggest(ctx context.Context, text string, cityOnly bool) Response {
	ctx, cancel := withTimeout(ctx, n.suggestTimeout)
	defer cancel()

	var (
		general, cities       []nominatimPlace
		generalErr, citiesErr error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cities, citiesErr = n.search(gctx, text, url.Values{"featuretype": {"city"}})
		return nil
	})
	g.Go(func() error {
		general, generalErr = n.search(gctx, text, nil)
		return nil
	})
	_ = g.Wait()

	if generalErr != nil && citiesErr != nil {
		return Unavailable(n.Name(), generalErr)
	}

	merged := toCandidates(append(cities, general...))
	if cityOnly {
		merged = filterCandidates(merged, func(c model.PlaceCandidate) bool {
			return c.Classification.IsCityLike()
		})
	}
	return Found(n.Name(), merged)
}

func filterCandidates(in []model.PlaceCandidate, keep func(model.PlaceCandidate) bool) []model.PlaceCandidate {
	out := in[:0:0]
	for _, c := range in {
		if keep(c) {
			out = append(out, c)
		}
	}
	return out
}
