package assist

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geoassist/internal/cache"
	"github.com/sells-group/geoassist/internal/model"
	"github.com/sells-group/geoassist/pkg/overpass"
)

// Shelter search limits.
const (
	MaxShelters      = 1200
	SheltersCacheTTL = 5 * time.Minute
	SheltersSource   = "OpenStreetMap (Overpass)"
)

// ShelterCategory groups shelters for display; lower sorts first.
type ShelterCategory string

// Categories in display order.
const (
	CategoryEmergency ShelterCategory = "emergency"
	CategoryAmenity   ShelterCategory = "amenity"
	CategoryBunker    ShelterCategory = "bunker"
)

var categoryOrder = map[ShelterCategory]int{
	CategoryEmergency: 0,
	CategoryAmenity:   1,
	CategoryBunker:    2,
}

// Shelter is one mapped shelter.
type Shelter struct {
	ID        string            `json:"id"`
	Lat       float64           `json:"lat"`
	Lon       float64           `json:"lon"`
	Category  ShelterCategory   `json:"category"`
	Name      *string           `json:"name"`
	TypeLabel *string           `json:"typeLabel"`
	Tags      map[string]string `json:"tags"`
}

// ShelterResult is the shelter search response. Count is the number found
// before truncation to MaxShelters.
type ShelterResult struct {
	Source string    `json:"source"`
	Count  int       `json:"count"`
	Items  []Shelter `json:"items"`
}

// ErrSheltersDisabled is returned when no Overpass client is configured.
var ErrSheltersDisabled = eris.New("assist: shelter search not configured")

// Shelters lists shelters inside bbox ("south,west,north,east").
func (e *Engine) Shelters(ctx context.Context, bbox string) (*ShelterResult, error) {
	b, err := overpass.ParseBBox(bbox)
	if err != nil {
		return nil, &model.InvalidInputError{Field: "bbox", Reason: err.Error()}
	}
	if e.shelters == nil {
		return nil, ErrSheltersDisabled
	}
	return cache.GetOrLoad(ctx, e.sheltersCache, "bbox:"+overpass.BBoxKey(b), func(ctx context.Context) (*ShelterResult, bool, error) {
		resp, err := e.shelters.Query(ctx, overpass.SheltersQuery(b))
		if err != nil {
			return nil, false, eris.Wrap(err, "assist: shelters")
		}
		return sheltersFrom(resp.Elements), true, nil
	})
}

func sheltersFrom(elements []overpass.Element) *ShelterResult {
	items := make([]Shelter, 0, len(elements))
	for _, el := range elements {
		lat, lon, ok := el.Position()
		if !ok {
			continue
		}
		tags := el.Tags
		if tags == nil {
			tags = map[string]string{}
		}
		items = append(items, Shelter{
			ID:        el.Type + "-" + strconv.FormatInt(el.ID, 10),
			Lat:       lat,
			Lon:       lon,
			Category:  categoryOf(tags),
			Name:      optional(tags["name"], tags["name:es"]),
			TypeLabel: optional(typeLabel(tags)),
			Tags:      tags,
		})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return categoryOrder[items[i].Category] < categoryOrder[items[j].Category]
	})
	res := &ShelterResult{Source: SheltersSource, Count: len(items), Items: items}
	if len(res.Items) > MaxShelters {
		res.Items = res.Items[:MaxShelters]
	}
	return res
}

func categoryOf(tags map[string]string) ShelterCategory {
	switch {
	case tags["emergency"] == "shelter":
		return CategoryEmergency
	case tags["military"] == "bunker":
		return CategoryBunker
	default:
		return CategoryAmenity
	}
}

func typeLabel(tags map[string]string) string {
	switch {
	case tags["emergency"] == "shelter":
		return "Emergency shelter"
	case tags["amenity"] == "shelter":
		return "Shelter"
	case tags["military"] == "bunker":
		return "Bunker"
	default:
		return ""
	}
}

func optional(vals ...string) *string {
	for _, v := range vals {
		if v != "" {
			return &v
		}
	}
	return nil
}
