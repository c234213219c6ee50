package model

import "github.com/rotisserie/eris"

// SelectionScope is the granularity at which a location is labelled and
// reverse geocoded.
type SelectionScope int

const (
	ScopeCountry SelectionScope = iota
	ScopeRegion
	ScopeCity
	ScopeDistrict
	ScopeStreet
)

func (s SelectionScope) String() string {
	switch s {
	case ScopeCountry:
		return "country"
	case ScopeRegion:
		return "region"
	case ScopeCity:
		return "city"
	case ScopeDistrict:
		return "district"
	case ScopeStreet:
		return "street"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SelectionScope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SelectionScope) UnmarshalText(b []byte) error {
	switch string(b) {
	case "country":
		*s = ScopeCountry
	case "region":
		*s = ScopeRegion
	case "city":
		*s = ScopeCity
	case "district":
		*s = ScopeDistrict
	case "street":
		*s = ScopeStreet
	default:
		return eris.Errorf("model: unknown selection scope %q", string(b))
	}
	return nil
}
