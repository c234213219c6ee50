package geocode

import (
	"strings"

	"github.com/sells-group/geoassist/internal/model"
	"github.com/sells-group/geoassist/internal/textnorm"
)

// Suggestion ranking weights. A provider candidate starts from its own
// importance; seed entries use the seed weights instead.
const (
	WeightPlaceType          = 0.8
	WeightCityType           = 0.4
	WeightNamePrefix         = 0.4
	WeightLabelPrefix        = 0.2
	WeightPrimaryTokenPrefix = 0.3
	PenaltyScriptMismatch    = 0.6
	PenaltyAeroway           = 0.6

	SeedNamePrefix    = 2.0
	SeedLabelPrefix   = 1.5
	SeedLabelContains = 1.0
	SeedBonus         = 5.0
)

var placeBoostTypes = map[string]bool{
	"city":         true,
	"town":         true,
	"village":      true,
	"municipality": true,
	"capital":      true,
	"country":      true,
	"state":        true,
	"region":       true,
}

// ScoreBreakdown is the composite score of one candidate against a query.
type ScoreBreakdown struct {
	Importance         float64 `json:"importance"`
	PlaceType          float64 `json:"place_type"`
	CityType           float64 `json:"city_type"`
	NamePrefix         float64 `json:"name_prefix"`
	LabelPrefix        float64 `json:"label_prefix"`
	PrimaryTokenPrefix float64 `json:"primary_token_prefix"`
	ScriptMismatch     float64 `json:"script_mismatch"`
	Aeroway            float64 `json:"aeroway"`

	SeedNamePrefix    float64 `json:"seed_name_prefix"`
	SeedLabelPrefix   float64 `json:"seed_label_prefix"`
	SeedLabelContains float64 `json:"seed_label_contains"`
	SeedBonus         float64 `json:"seed_bonus"`

	Total float64 `json:"total"`
}

// Score ranks c against query. Seed candidates score zero unless the query
// matches them.
func Score(c model.PlaceCandidate, query string) ScoreBreakdown {
	q := textnorm.Normalize(query)
	if c.Source == SeedsSource {
		return seedScore(c, q)
	}

	name := textnorm.Normalize(c.Name)
	label := textnorm.Normalize(c.DisplayLabel)
	var b ScoreBreakdown
	b.Importance = c.Importance
	if c.Classification.Class == "place" && placeBoostTypes[c.Classification.Type] {
		b.PlaceType = WeightPlaceType
	}
	if c.Classification.IsCityLike() {
		b.CityType = WeightCityType
	}
	if strings.HasPrefix(name, q) {
		b.NamePrefix = WeightNamePrefix
	}
	if strings.HasPrefix(label, q) {
		b.LabelPrefix = WeightLabelPrefix
	}
	if strings.HasPrefix(textnorm.PrimaryToken(c.DisplayLabel), q) {
		b.PrimaryTokenPrefix = WeightPrimaryTokenPrefix
	}
	if textnorm.HasLatin(query) && !textnorm.HasLatin(c.DisplayLabel) {
		b.ScriptMismatch = -PenaltyScriptMismatch
	}
	if c.Classification.Class == "aeroway" {
		b.Aeroway = -PenaltyAeroway
	}
	b.Total = b.Importance + b.PlaceType + b.CityType + b.NamePrefix + b.LabelPrefix +
		b.PrimaryTokenPrefix + b.ScriptMismatch + b.Aeroway
	return b
}

func seedScore(c model.PlaceCandidate, q string) ScoreBreakdown {
	var b ScoreBreakdown
	if q == "" {
		return b
	}
	name := textnorm.Normalize(c.Name)
	label := textnorm.Normalize(c.DisplayLabel)
	if strings.HasPrefix(name, q) {
		b.SeedNamePrefix = SeedNamePrefix
	}
	if strings.HasPrefix(label, q) {
		b.SeedLabelPrefix = SeedLabelPrefix
	}
	if strings.Contains(label, q) {
		b.SeedLabelContains = SeedLabelContains
	}
	sum := b.SeedNamePrefix + b.SeedLabelPrefix + b.SeedLabelContains
	if sum > 0 {
		b.SeedBonus = SeedBonus
	}
	b.Total = sum + b.SeedBonus
	return b
}
