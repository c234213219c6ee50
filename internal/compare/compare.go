// Package compare turns two fact records into ordered, human-readable
// comparison statements.
package compare

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/geoassist/internal/facts"
	"github.com/sells-group/geoassist/internal/model"
)

// InsufficientData is the single statement returned when no dimension has
// data on both sides.
const InsufficientData = "Not enough data for a detailed comparison."

// dimension renders one statement, or "" when either side lacks the data.
type dimension func(p *message.Printer, a, b side) string

type side struct {
	name string
	rec  model.FactRecord
}

// Order is fixed regardless of which values are present.
var dimensions = []dimension{
	population,
	area,
	density,
	airQuality,
	floodRisk,
	urban,
}

// Compare builds the comparison of a and b. The statement list is never empty.
func Compare(a, b model.FactRecord) model.ComparisonResult {
	p := message.NewPrinter(language.English)
	sa := side{name: nameOr(a.Name, "City A"), rec: a}
	sb := side{name: nameOr(b.Name, "City B"), rec: b}

	var out []string
	for _, d := range dimensions {
		if s := d(p, sa, sb); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		out = []string{InsufficientData}
	}
	return model.ComparisonResult{CityA: a, CityB: b, Comparison: out}
}

func nameOr(name, fallback string) string {
	if name == "" {
		return fallback
	}
	return name
}

func population(p *message.Printer, a, b side) string {
	if a.rec.Population == nil || b.rec.Population == nil {
		return ""
	}
	va, vb := *a.rec.Population, *b.rec.Population
	switch {
	case va > vb:
		return p.Sprintf("%s has the larger population (%d vs %d).", a.name, va, vb)
	case vb > va:
		return p.Sprintf("%s has the larger population (%d vs %d).", b.name, vb, va)
	default:
		return p.Sprintf("Both cities have a similar population (%d).", va)
	}
}

func area(p *message.Printer, a, b side) string {
	if a.rec.AreaKm2 == nil || b.rec.AreaKm2 == nil {
		return ""
	}
	va, vb := *a.rec.AreaKm2, *b.rec.AreaKm2
	switch {
	case va > vb:
		return p.Sprintf("%s covers the larger area (%.1f km² vs %.1f km²).", a.name, va, vb)
	case vb > va:
		return p.Sprintf("%s covers the larger area (%.1f km² vs %.1f km²).", b.name, vb, va)
	default:
		return p.Sprintf("Both cities cover a similar area (%.1f km²).", va)
	}
}

func density(p *message.Printer, a, b side) string {
	if a.rec.Density == nil || b.rec.Density == nil {
		return ""
	}
	va, vb := *a.rec.Density, *b.rec.Density
	switch {
	case va > vb:
		return p.Sprintf("%s is more densely populated (%d vs %d inhabitants/km²).", a.name, va, vb)
	case vb > va:
		return p.Sprintf("%s is more densely populated (%d vs %d inhabitants/km²).", b.name, vb, va)
	default:
		return p.Sprintf("Both cities have a similar population density (%d inhabitants/km²).", va)
	}
}

// airQuality inverts the winner: the lower index is better.
func airQuality(p *message.Printer, a, b side) string {
	if a.rec.AQI == nil || b.rec.AQI == nil {
		return ""
	}
	va, vb := *a.rec.AQI, *b.rec.AQI
	switch {
	case va < vb:
		return p.Sprintf("%s shows better air quality (AQI %v vs %v).", a.name, va, vb)
	case vb < va:
		return p.Sprintf("%s shows better air quality (AQI %v vs %v).", b.name, vb, va)
	default:
		return p.Sprintf("Air quality is similar in both cities (AQI %v).", va)
	}
}

// floodRisk names the side in the lower risk band. Levels outside the known
// bands are only juxtaposed.
func floodRisk(p *message.Printer, a, b side) string {
	if a.rec.FloodRiskLevel == nil || b.rec.FloodRiskLevel == nil {
		return ""
	}
	la, lb := *a.rec.FloodRiskLevel, *b.rec.FloodRiskLevel
	ra, rb := facts.FloodRank(la), facts.FloodRank(lb)
	switch {
	case ra < 0 || rb < 0:
		return p.Sprintf("Flood risk: %s (%s) vs %s (%s).", a.name, la, b.name, lb)
	case ra < rb:
		return p.Sprintf("%s has the lower flood risk (%s vs %s).", a.name, la, lb)
	case rb < ra:
		return p.Sprintf("%s has the lower flood risk (%s vs %s).", b.name, lb, la)
	default:
		return p.Sprintf("Both cities have a similar flood risk (%s).", la)
	}
}

// urban names the side with more amenities nearby, or juxtaposes the two
// summaries when either count is missing.
func urban(p *message.Printer, a, b side) string {
	ua, ub := a.rec.Urban, b.rec.Urban
	if ua == nil || ub == nil {
		return ""
	}
	if ua.AmenityCount == nil || ub.AmenityCount == nil {
		return p.Sprintf("Urban context: %s (%s) vs %s (%s).", a.name, summaryOf(ua), b.name, summaryOf(ub))
	}
	ca, cb := *ua.AmenityCount, *ub.AmenityCount
	switch {
	case ca > cb:
		return p.Sprintf("%s has more amenities nearby (%d vs %d).", a.name, ca, cb)
	case cb > ca:
		return p.Sprintf("%s has more amenities nearby (%d vs %d).", b.name, cb, ca)
	default:
		return p.Sprintf("Both cities have a similar number of amenities nearby (%d).", ca)
	}
}

func summaryOf(u *model.UrbanContext) string {
	if u.Summary == "" {
		return "no summary"
	}
	return u.Summary
}
