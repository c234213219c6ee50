package facts

import (
	"math"

	"github.com/sells-group/geoassist/internal/model"
	"github.com/sells-group/geoassist/pkg/wikidata"
)

// AreaHeuristicThreshold is the unit-less area above which a value is read
// as square metres. Large countries in km² are misread; known approximation.
const AreaHeuristicThreshold = 10_000

// Area unit entities and short codes with their factor to km².
var areaUnitsKm2 = map[string]float64{
	"Q712226": 1, // square kilometre
	"km2":     1,
	"Q25343":  1e-6, // square metre
	"m2":      1e-6,
	"Q35852":  0.01, // hectare
	"ha":      0.01,
	"Q232291": 2.58999,    // square mile
	"Q81292":  0.00404686, // acre
}

// AreaKm2 normalises one area observation. Unknown units are rejected;
// unit-less values go through the square-metre heuristic.
func AreaKm2(o wikidata.Observation) (float64, bool) {
	if math.IsNaN(o.Value) || math.IsInf(o.Value, 0) || o.Value <= 0 {
		return 0, false
	}
	if o.Unit == "" {
		if o.Value > AreaHeuristicThreshold {
			return o.Value / 1e6, true
		}
		return o.Value, true
	}
	f, ok := areaUnitsKm2[o.Unit]
	if !ok {
		return 0, false
	}
	return o.Value * f, true
}

// PickArea normalises every observation and keeps the largest.
func PickArea(obs []wikidata.Observation) *float64 {
	var (
		best  float64
		found bool
	)
	for _, o := range obs {
		v, ok := AreaKm2(o)
		if !ok {
			continue
		}
		if !found || v > best {
			best, found = v, true
		}
	}
	if !found {
		return nil
	}
	return &best
}

// PickLatest returns the observation with the most recent timestamp. A timed
// observation beats an untimed one; ties go to the larger value.
func PickLatest(obs []wikidata.Observation) (wikidata.Observation, bool) {
	var (
		best  wikidata.Observation
		found bool
	)
	for _, o := range obs {
		if math.IsNaN(o.Value) || math.IsInf(o.Value, 0) {
			continue
		}
		if !found || newer(o, best) {
			best, found = o, true
		}
	}
	return best, found
}

func newer(a, b wikidata.Observation) bool {
	switch {
	case a.Time != nil && b.Time == nil:
		return true
	case a.Time == nil && b.Time != nil:
		return false
	case a.Time != nil && b.Time != nil && !a.Time.Equal(*b.Time):
		return a.Time.After(*b.Time)
	default:
		return a.Value > b.Value
	}
}

// Density is round(population / area), present only when both are known and
// the area is positive.
func Density(population *int64, areaKm2 *float64) *int64 {
	if population == nil || areaKm2 == nil || *areaKm2 <= 0 {
		return nil
	}
	d := int64(math.Round(float64(*population) / *areaKm2))
	return &d
}

// SexRatioOf derives male and female shares from the latest observations,
// rounded to one decimal.
func SexRatioOf(male, female []wikidata.Observation) *model.SexRatio {
	m, okM := PickLatest(male)
	f, okF := PickLatest(female)
	if !okM || !okF || m.Value < 0 || f.Value < 0 || m.Value+f.Value <= 0 {
		return nil
	}
	total := m.Value + f.Value
	return &model.SexRatio{
		MalePct:   round1(m.Value / total * 100),
		FemalePct: round1(f.Value / total * 100),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// AQI band labels, best to worst.
const (
	AQIGood                  = "Good"
	AQIReasonablyGood        = "Reasonably good"
	AQIRegular               = "Regular"
	AQIUnfavourable          = "Unfavourable"
	AQIVeryUnfavourable      = "Very unfavourable"
	AQIExtremelyUnfavourable = "Extremely unfavourable"
)

// ClassifyAQI maps an index to its band label. Nil maps to nil.
func ClassifyAQI(aqi *float64) *string {
	if aqi == nil || math.IsNaN(*aqi) {
		return nil
	}
	var label string
	switch v := *aqi; {
	case v <= 25:
		label = AQIGood
	case v <= 50:
		label = AQIReasonablyGood
	case v <= 75:
		label = AQIRegular
	case v <= 100:
		label = AQIUnfavourable
	case v <= 150:
		label = AQIVeryUnfavourable
	default:
		label = AQIExtremelyUnfavourable
	}
	return &label
}

// Flood risk levels, lowest first.
var FloodLevels = []string{"Very low", "Low", "Medium", "High", "Very high"}

// ClassifyFloodRisk maps a relative hazard value to a level.
func ClassifyFloodRisk(v float64) string {
	switch {
	case v <= 0:
		return FloodLevels[0]
	case v <= 0.2:
		return FloodLevels[1]
	case v <= 0.5:
		return FloodLevels[2]
	case v <= 0.8:
		return FloodLevels[3]
	default:
		return FloodLevels[4]
	}
}

// FloodRank orders a flood level; unknown levels rank -1.
func FloodRank(level string) int {
	for i, l := range FloodLevels {
		if l == level {
			return i
		}
	}
	return -1
}

// ClassifyFWI maps a Fire Weather Index to a danger level.
func ClassifyFWI(fwi float64) string {
	switch {
	case fwi < 5:
		return "Low"
	case fwi < 12:
		return "Moderate"
	case fwi < 30:
		return "High"
	case fwi < 50:
		return "Very high"
	default:
		return "Extreme"
	}
}
