// Package model holds the place, fact and error types shared by the resolver,
// the aggregators and the API.
package model

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
)

// MaxZoom is the deepest map zoom the UI sends.
const MaxZoom = 20

// PlaceQuery is one resolution request: free text or explicit coordinates.
// Zoom 0 means the caller did not send a map zoom.
type PlaceQuery struct {
	Text string   `json:"query,omitempty"`
	Lat  *float64 `json:"lat,omitempty"`
	Lon  *float64 `json:"lon,omitempty"`
	Zoom int      `json:"zoom,omitempty"`
}

// HasCoordinates reports whether the query carries both coordinates.
func (q PlaceQuery) HasCoordinates() bool {
	return q.Lat != nil && q.Lon != nil
}

// Validate rejects malformed queries before any network call.
func (q PlaceQuery) Validate() error {
	if q.Lat != nil || q.Lon != nil {
		if q.Lat == nil {
			return &InvalidInputError{Field: "lat", Reason: "is required when lon is given"}
		}
		if q.Lon == nil {
			return &InvalidInputError{Field: "lon", Reason: "is required when lat is given"}
		}
		return ValidateCoordinates(*q.Lat, *q.Lon)
	}
	if strings.TrimSpace(q.Text) == "" {
		return &InvalidInputError{Field: "query", Reason: "a place name or coordinates are required"}
	}
	return nil
}

// ValidateCoordinates checks that lat/lon are finite and within range.
func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsInf(lat, 0) || lat < -90 || lat > 90 {
		return &InvalidInputError{Field: "lat", Reason: "must be a finite number between -90 and 90"}
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) || lon < -180 || lon > 180 {
		return &InvalidInputError{Field: "lon", Reason: "must be a finite number between -180 and 180"}
	}
	return nil
}

// ClampZoom bounds a requested zoom to [0, MaxZoom].
func ClampZoom(z int) int {
	switch {
	case z < 0:
		return 0
	case z > MaxZoom:
		return MaxZoom
	default:
		return z
	}
}

// Address holds the normalized address components of a candidate. Any field
// may be empty.
type Address struct {
	City        string `json:"city"`
	Country     string `json:"country"`
	Region      string `json:"region"`
	District    string `json:"district"`
	Street      string `json:"street"`
	HouseNumber string `json:"house_number"`
	Postcode    string `json:"postcode"`
}

// Classification is the provider's class/type pair, e.g. place/city.
type Classification struct {
	Class string `json:"class"`
	Type  string `json:"type"`
}

var cityTypes = map[string]bool{
	"city":         true,
	"town":         true,
	"village":      true,
	"municipality": true,
}

// IsCityLike reports whether the classification is a settlement.
func (c Classification) IsCityLike() bool {
	return c.Class == "place" && cityTypes[c.Type]
}

// String renders the classification as "class/type".
func (c Classification) String() string {
	if c.Class == "" && c.Type == "" {
		return ""
	}
	return c.Class + "/" + c.Type
}

// PlaceCandidate is an unconfirmed match produced by a geocoding adapter.
type PlaceCandidate struct {
	Name           string         `json:"name"`
	DisplayLabel   string         `json:"display_name"`
	Latitude       float64        `json:"lat"`
	Longitude      float64        `json:"lon"`
	Address        Address        `json:"address"`
	Source         string         `json:"source"`
	Classification Classification `json:"classification"`
	Importance     float64        `json:"importance"`
	Score          float64        `json:"score"`
}

// Validate enforces the coordinate range invariant.
func (c PlaceCandidate) Validate() error {
	if err := ValidateCoordinates(c.Latitude, c.Longitude); err != nil {
		return eris.Wrapf(err, "candidate %q from %s", c.DisplayLabel, c.Source)
	}
	return nil
}

// CoordinateLabel renders the candidate position as "lat, lon".
func (c PlaceCandidate) CoordinateLabel() string {
	return fmt.Sprintf("%.5f, %.5f", c.Latitude, c.Longitude)
}

// ResolvedPlace is the single chosen candidate plus display-scope metadata.
// Label is empty when reverse geocoding produced nothing; Warning then says why.
type ResolvedPlace struct {
	Candidate PlaceCandidate `json:"candidate"`
	Scope     SelectionScope `json:"scope"`
	Label     string         `json:"label"`
	Query     string         `json:"query,omitempty"`
	Warning   string         `json:"warning,omitempty"`
}

// Labelled reports whether any provider supplied label data.
func (p ResolvedPlace) Labelled() bool {
	return p.Label != "" || p.Candidate.DisplayLabel != ""
}
