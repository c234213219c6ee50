package model

// FactRecord is the merged per-place record. Every nullable field is a
// pointer serialised without omitempty so consumers always see the key.
type FactRecord struct {
	Name             string        `json:"name"`
	Lat              float64       `json:"lat"`
	Lon              float64       `json:"lon"`
	Population       *int64        `json:"population"`
	AreaKm2          *float64      `json:"areaKm2"`
	Density          *int64        `json:"density"`
	Elevation        *float64      `json:"elevation"`
	SexRatio         *SexRatio     `json:"sexRatio"`
	FlagImageURL     *string       `json:"flagImageUrl"`
	AQI              *float64      `json:"aqi"`
	AQILabel         *string       `json:"aqiLabel"`
	FloodRiskLevel   *string       `json:"floodRiskLevel"`
	FloodRiskValue   *float64      `json:"floodRiskValue"`
	FireRiskLevel    *string       `json:"fireRiskLevel"`
	FireWeatherIndex *float64      `json:"fireWeatherIndex"`
	Urban            *UrbanContext `json:"urban"`
	EntityID         *string       `json:"entityId"`
}

// SexRatio holds male and female shares of the population in percent.
type SexRatio struct {
	MalePct   float64 `json:"malePct"`
	FemalePct float64 `json:"femalePct"`
}

// CountEntry is a tag value with its number of occurrences.
type CountEntry struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// UrbanContext summarises land use and amenities around a point. Counts are
// nil when the source does not report them.
type UrbanContext struct {
	Source        string         `json:"source"`
	Method        string         `json:"method"`
	Summary       string         `json:"summary"`
	RadiusM       *int           `json:"radius_m"`
	Landuse       []CountEntry   `json:"landuse"`
	Amenities     []CountEntry   `json:"amenities"`
	BuildingCount *int           `json:"building_count"`
	AmenityCount  *int           `json:"amenity_count"`
	Details       map[string]any `json:"details"`
}

// ComparisonResult pairs two fact records with ordered statements.
type ComparisonResult struct {
	CityA      FactRecord `json:"cityA"`
	CityB      FactRecord `json:"cityB"`
	Comparison []string   `json:"comparison"`
}
