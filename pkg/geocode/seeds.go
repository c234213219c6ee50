package geocode

import (
	"bytes"
	"context"
	_ "embed"
	"io"
	"sort"

	"github.com/golang/geo/s2"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/geoassist/internal/model"
)

//go:embed seeds.yaml
var seedsYAML []byte

// EarthRadiusKm is the mean Earth radius used for great-circle distances.
const EarthRadiusKm = 6371.0088

// SeedReverseRadiusKm is how far from a seed city a point may be for the
// offline reverse lookup to answer.
const SeedReverseRadiusKm = 30.0

// SeedReverseMaxZoom is the finest zoom the offline reverse lookup serves;
// it knows cities, not streets.
const SeedReverseMaxZoom = 10

// Seed is one gazetteer entry.
type Seed struct {
	Name    string  `yaml:"name"`
	Region  string  `yaml:"region"`
	Country string  `yaml:"country"`
	Lat     float64 `yaml:"lat"`
	Lon     float64 `yaml:"lon"`
}

// Label renders "name, region, country".
func (s Seed) Label() string {
	return s.Name + ", " + s.Region + ", " + s.Country
}

func (s Seed) candidate() model.PlaceCandidate {
	return model.PlaceCandidate{
		Name:         s.Name,
		DisplayLabel: s.Label(),
		Latitude:     s.Lat,
		Longitude:    s.Lon,
		Address: model.Address{
			City:    s.Name,
			Region:  s.Region,
			Country: s.Country,
		},
		Source:         SeedsSource,
		Classification: model.Classification{Class: "place", Type: "city"},
		Importance:     1,
	}
}

// SeedsSource is the Source of seed candidates.
const SeedsSource = "seeds"

// Seeds answers from an embedded list of popular cities without network.
type Seeds struct {
	seeds []Seed
	pts   []s2.LatLng
}

// LoadSeeds parses a YAML gazetteer.
func LoadSeeds(r io.Reader) (*Seeds, error) {
	var doc struct {
		Cities []Seed `yaml:"cities"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, eris.Wrap(err, "geocode: parse seeds")
	}
	s := &Seeds{seeds: doc.Cities, pts: make([]s2.LatLng, len(doc.Cities))}
	for i, c := range doc.Cities {
		if err := model.ValidateCoordinates(c.Lat, c.Lon); err != nil {
			return nil, eris.Wrapf(err, "geocode: seed %q", c.Name)
		}
		s.pts[i] = s2.LatLngFromDegrees(c.Lat, c.Lon)
	}
	return s, nil
}

// NewSeeds loads the embedded gazetteer.
func NewSeeds() *Seeds {
	s, err := LoadSeeds(bytes.NewReader(seedsYAML))
	if err != nil {
		panic(err)
	}
	return s
}

// All returns the seed entries.
func (s *Seeds) All() []Seed { return s.seeds }

// Name implements Adapter.
func (s *Seeds) Name() string { return SeedsSource }

// Available implements Adapter.
func (s *Seeds) Available() bool { return len(s.seeds) > 0 }

// matches returns seeds with a positive seed score for text, best first.
func (s *Seeds) matches(text string) []model.PlaceCandidate {
	var out []model.PlaceCandidate
	for _, seed := range s.seeds {
		c := seed.candidate()
		if b := Score(c, text); b.Total > 0 {
			c.Score = b.Total
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// ForwardSearch implements Adapter.
func (s *Seeds) ForwardSearch(_ context.Context, text string) Response {
	return Found(s.Name(), s.matches(text))
}

// Suggest implements Adapter. Every seed is a city, so cityOnly changes
// nothing.
func (s *Seeds) Suggest(_ context.Context, text string, _ bool) Response {
	return Found(s.Name(), s.matches(text))
}

// ReverseSearch implements Adapter: the nearest seed within
// SeedReverseRadiusKm, for zooms no finer than SeedReverseMaxZoom.
func (s *Seeds) ReverseSearch(_ context.Context, lat, lon float64, zoom int) Response {
	if zoom > SeedReverseMaxZoom {
		return Empty()
	}
	q := s2.LatLngFromDegrees(lat, lon)
	best, bestKm := -1, SeedReverseRadiusKm
	for i, p := range s.pts {
		if d := DistanceKm(q, p); d <= bestKm {
			best, bestKm = i, d
		}
	}
	if best < 0 {
		return Empty()
	}
	return Found(s.Name(), []model.PlaceCandidate{s.seeds[best].candidate()})
}

// DistanceKm is the great-circle distance between two points.
func DistanceKm(a, b s2.LatLng) float64 {
	return a.Distance(b).Radians() * EarthRadiusKm
}
