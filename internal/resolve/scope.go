package resolve

import (
	"strings"

	"github.com/sells-group/geoassist/internal/model"
)

// DefaultZoom is assumed for coordinate queries sent without a map zoom.
const DefaultZoom = 18

// ScopeForZoom maps a map zoom to a selection scope.
func ScopeForZoom(zoom int) model.SelectionScope {
	switch {
	case zoom <= 5:
		return model.ScopeCountry
	case zoom <= 7:
		return model.ScopeRegion
	case zoom <= 10:
		return model.ScopeCity
	case zoom <= 12:
		return model.ScopeDistrict
	default:
		return model.ScopeStreet
	}
}

// PrecisionForScope is the reverse-geocoding zoom requested for a scope.
// Coarser scopes ask for coarser answers.
func PrecisionForScope(s model.SelectionScope) int {
	switch s {
	case model.ScopeCountry:
		return 3
	case model.ScopeRegion:
		return 5
	case model.ScopeCity:
		return 10
	case model.ScopeDistrict:
		return 14
	default:
		return 18
	}
}

// ScopeForClassification infers a scope from what a text query resolved to.
func ScopeForClassification(c model.Classification) model.SelectionScope {
	if c.Class == "place" {
		switch c.Type {
		case "country":
			return model.ScopeCountry
		case "state", "region", "province":
			return model.ScopeRegion
		case "city", "town", "village", "municipality", "capital":
			return model.ScopeCity
		case "suburb", "neighbourhood", "quarter", "borough", "hamlet", "city_block":
			return model.ScopeDistrict
		case "house":
			return model.ScopeStreet
		}
		return model.ScopeCity
	}
	switch c.Class {
	case "highway", "building", "amenity", "shop", "tourism":
		return model.ScopeStreet
	default:
		return model.ScopeCity
	}
}

// LabelForScope promotes the address components matching the scope into a
// display label. It returns "" when the address lacks the needed parts.
func LabelForScope(a model.Address, s model.SelectionScope) string {
	switch s {
	case model.ScopeCountry:
		return a.Country
	case model.ScopeRegion:
		return joinLabel(firstNonEmpty(a.Region, a.City), a.Country)
	case model.ScopeCity:
		return joinLabel(firstNonEmpty(a.City, a.District, a.Region), a.Country)
	case model.ScopeDistrict:
		if a.District == "" {
			return joinLabel(a.City, a.Country)
		}
		return joinLabel(a.District, a.City)
	default:
		street := strings.TrimSpace(a.Street + " " + a.HouseNumber)
		if a.Street == "" {
			street = ""
		}
		return joinLabel(street, firstNonEmpty(a.City, a.District, a.Region))
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func joinLabel(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}
