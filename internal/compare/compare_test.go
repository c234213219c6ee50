package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geoassist/internal/facts"
	"github.com/sells-group/geoassist/internal/model"
)

func ptr[T any](v T) *T { return &v }

func record(name string, pop int64, area float64) model.FactRecord {
	rec := model.FactRecord{Name: name, Population: ptr(pop), AreaKm2: ptr(area)}
	rec.Density = facts.Density(rec.Population, rec.AreaKm2)
	return rec
}

func TestCompare_EqualDensityScenario(t *testing.T) {
	res := Compare(record("Alpha", 1_000_000, 100), record("Beta", 500_000, 50))

	require.Len(t, res.Comparison, 3)
	assert.Equal(t, "Alpha has the larger population (1,000,000 vs 500,000).", res.Comparison[0])
	assert.Equal(t, "Alpha covers the larger area (100.0 km² vs 50.0 km²).", res.Comparison[1])
	assert.Equal(t, "Both cities have a similar population density (10,000 inhabitants/km²).", res.Comparison[2])
	assert.Equal(t, "Alpha", res.CityA.Name)
	assert.Equal(t, "Beta", res.CityB.Name)
}

func TestCompare_PopulationTieIsNeutral(t *testing.T) {
	res := Compare(
		model.FactRecord{Name: "A", Population: ptr(int64(42))},
		model.FactRecord{Name: "B", Population: ptr(int64(42))},
	)
	require.Len(t, res.Comparison, 1)
	assert.Equal(t, "Both cities have a similar population (42).", res.Comparison[0])
	assert.NotContains(t, res.Comparison[0], "A ")
}

func TestCompare_FloorWhenNoData(t *testing.T) {
	res := Compare(model.FactRecord{}, model.FactRecord{})
	assert.Equal(t, []string{InsufficientData}, res.Comparison)

	res = Compare(record("A", 10, 1), model.FactRecord{Name: "B"})
	assert.Equal(t, []string{InsufficientData}, res.Comparison, "one-sided data is skipped")
}

func TestCompare_AirQualityLowerWins(t *testing.T) {
	res := Compare(
		model.FactRecord{Name: "Smog", AQI: ptr(120.0)},
		model.FactRecord{Name: "Fresh", AQI: ptr(20.0)},
	)
	assert.Equal(t, []string{"Fresh shows better air quality (AQI 20 vs 120)."}, res.Comparison)
}

func TestCompare_FloodRisk(t *testing.T) {
	res := Compare(
		model.FactRecord{Name: "A", FloodRiskLevel: ptr("High")},
		model.FactRecord{Name: "B", FloodRiskLevel: ptr("Low")},
	)
	assert.Equal(t, []string{"B has the lower flood risk (Low vs High)."}, res.Comparison)

	res = Compare(
		model.FactRecord{Name: "A", FloodRiskLevel: ptr("Medium")},
		model.FactRecord{Name: "B", FloodRiskLevel: ptr("Medium")},
	)
	assert.Equal(t, []string{"Both cities have a similar flood risk (Medium)."}, res.Comparison)
}

func TestCompare_Urban(t *testing.T) {
	res := Compare(
		model.FactRecord{Name: "A", Urban: &model.UrbanContext{AmenityCount: ptr(12)}},
		model.FactRecord{Name: "B", Urban: &model.UrbanContext{AmenityCount: ptr(30)}},
	)
	assert.Equal(t, []string{"B has more amenities nearby (30 vs 12)."}, res.Comparison)

	res = Compare(
		model.FactRecord{Name: "A", Urban: &model.UrbanContext{Summary: "Result from the IGN base map."}},
		model.FactRecord{Name: "B", Urban: &model.UrbanContext{AmenityCount: ptr(30)}},
	)
	assert.Equal(t, []string{"Urban context: A (Result from the IGN base map.) vs B (no summary)."}, res.Comparison)
}

func TestCompare_FixedOrder(t *testing.T) {
	a := record("A", 2_000, 10)
	a.AQI, a.FloodRiskLevel = ptr(10.0), ptr("Low")
	a.Urban = &model.UrbanContext{AmenityCount: ptr(1)}
	b := record("B", 1_000, 20)
	b.AQI, b.FloodRiskLevel = ptr(30.0), ptr("Low")
	b.Urban = &model.UrbanContext{AmenityCount: ptr(1)}

	res := Compare(a, b)
	require.Len(t, res.Comparison, 6)
	assert.Contains(t, res.Comparison[0], "population")
	assert.Contains(t, res.Comparison[1], "area")
	assert.Contains(t, res.Comparison[2], "densely")
	assert.Contains(t, res.Comparison[3], "air quality")
	assert.Contains(t, res.Comparison[4], "flood risk")
	assert.Contains(t, res.Comparison[5], "amenities")
}

func TestCompare_MissingNames(t *testing.T) {
	res := Compare(model.FactRecord{AQI: ptr(5.0)}, model.FactRecord{AQI: ptr(9.0)})
	assert.Equal(t, "City A shows better air quality (AQI 5 vs 9).", res.Comparison[0])
}
