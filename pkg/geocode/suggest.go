package geocode

import (
	"context"
	"sort"
	"strings"

	"github.com/golang/geo/s2"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/geoassist/internal/model"
	"github.com/sells-group/geoassist/internal/textnorm"
)

// DefaultSuggestLimit is the number of suggestions returned.
const DefaultSuggestLimit = 12

// DuplicateRadiusKm collapses candidates with the same label closer than this.
const DuplicateRadiusKm = 1.0

// minPlaceFilterLen is the normalized query length from which non-place
// results are hidden when places exist.
const minPlaceFilterLen = 3

// SuggestIndex merges the suggestions of several adapters into one ranked
// list.
type SuggestIndex struct {
	adapters []Adapter
	limit    int
}

// SuggestOption configures a SuggestIndex.
type SuggestOption func(*SuggestIndex)

// WithSuggestLimit caps the number of results.
func WithSuggestLimit(n int) SuggestOption {
	return func(s *SuggestIndex) {
		if n > 0 {
			s.limit = n
		}
	}
}

// NewSuggestIndex queries adapters concurrently on every call.
func NewSuggestIndex(adapters []Adapter, opts ...SuggestOption) *SuggestIndex {
	s := &SuggestIndex{adapters: adapters, limit: DefaultSuggestLimit}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Suggest returns ranked suggestions for text. With cityOnly only settlement
// candidates survive. Unavailable is returned only when every adapter was;
// an answer missing some adapter is Partial.
func (s *SuggestIndex) Suggest(ctx context.Context, text string, cityOnly bool) Response {
	text = strings.TrimSpace(text)
	if textnorm.Normalize(text) == "" {
		return Empty()
	}

	var active []Adapter
	for _, a := range s.adapters {
		if a.Available() {
			active = append(active, a)
		}
	}
	responses := make([]Response, len(active))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range active {
		g.Go(func() error {
			responses[i] = a.Suggest(gctx, text, cityOnly)
			return nil
		})
	}
	_ = g.Wait()

	var (
		merged  []model.PlaceCandidate
		reasons []string
	)
	answered := false
	for _, r := range responses {
		if r.Status == StatusUnavailable {
			reasons = append(reasons, r.Reason)
			continue
		}
		answered = true
		merged = append(merged, r.Candidates...)
	}
	if !answered && len(active) > 0 {
		return Response{Status: StatusUnavailable, Reason: strings.Join(reasons, "; ")}
	}

	resp := Found("suggest", s.rank(merged, text, cityOnly))
	resp.Partial = len(reasons) > 0
	return resp
}

func (s *SuggestIndex) rank(cands []model.PlaceCandidate, text string, cityOnly bool) []model.PlaceCandidate {
	for i := range cands {
		cands[i].Score = Score(cands[i], text).Total
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Score > cands[j].Score })

	var places, cities []model.PlaceCandidate
	for _, c := range cands {
		if c.Classification.Class != "place" {
			continue
		}
		places = append(places, c)
		if c.Classification.IsCityLike() {
			cities = append(cities, c)
		}
	}

	filtered := cands
	switch {
	case cityOnly:
		filtered = cities
	case len([]rune(textnorm.Normalize(text))) >= minPlaceFilterLen && len(places) > 0:
		filtered = places
	}

	out := dedupe(filtered)
	if len(out) > s.limit {
		out = out[:s.limit]
	}
	return out
}

// dedupe keeps the first of any candidates sharing a normalized label within
// DuplicateRadiusKm of each other.
func dedupe(cands []model.PlaceCandidate) []model.PlaceCandidate {
	type kept struct {
		label string
		pt    s2.LatLng
	}
	var seen []kept
	out := make([]model.PlaceCandidate, 0, len(cands))
	for _, c := range cands {
		label := textnorm.Normalize(c.DisplayLabel)
		pt := s2.LatLngFromDegrees(c.Latitude, c.Longitude)
		dup := false
		for _, k := range seen {
			if k.label == label && DistanceKm(k.pt, pt) < DuplicateRadiusKm {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen = append(seen, kept{label: label, pt: pt})
		out = append(out, c)
	}
	return out
}
