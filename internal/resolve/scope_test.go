package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/geoassist/internal/model"
)

func TestScopeForZoom(t *testing.T) {
	tests := []struct {
		zoom int
		want model.SelectionScope
	}{
		{1, model.ScopeCountry},
		{5, model.ScopeCountry},
		{6, model.ScopeRegion},
		{7, model.ScopeRegion},
		{8, model.ScopeCity},
		{10, model.ScopeCity},
		{11, model.ScopeDistrict},
		{12, model.ScopeDistrict},
		{13, model.ScopeStreet},
		{20, model.ScopeStreet},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ScopeForZoom(tt.zoom), "zoom %d", tt.zoom)
	}
}

func TestPrecisionForScope_CoarserIsLower(t *testing.T) {
	prev := 0
	for _, s := range []model.SelectionScope{model.ScopeCountry, model.ScopeRegion, model.ScopeCity, model.ScopeDistrict, model.ScopeStreet} {
		p := PrecisionForScope(s)
		assert.Greater(t, p, prev)
		assert.Equal(t, s, ScopeForZoom(p), "precision stays inside its own zoom band")
		prev = p
	}
}

func TestScopeForClassification(t *testing.T) {
	assert.Equal(t, model.ScopeCountry, ScopeForClassification(model.Classification{Class: "place", Type: "country"}))
	assert.Equal(t, model.ScopeRegion, ScopeForClassification(model.Classification{Class: "place", Type: "state"}))
	assert.Equal(t, model.ScopeCity, ScopeForClassification(model.Classification{Class: "place", Type: "town"}))
	assert.Equal(t, model.ScopeDistrict, ScopeForClassification(model.Classification{Class: "place", Type: "suburb"}))
	assert.Equal(t, model.ScopeStreet, ScopeForClassification(model.Classification{Class: "highway", Type: "primary"}))
	assert.Equal(t, model.ScopeCity, ScopeForClassification(model.Classification{Class: "boundary", Type: "administrative"}))
}

func TestLabelForScope(t *testing.T) {
	a := model.Address{
		City: "Madrid", Country: "España", Region: "Comunidad de Madrid",
		District: "Centro", Street: "Calle Mayor", HouseNumber: "5",
	}
	assert.Equal(t, "España", LabelForScope(a, model.ScopeCountry))
	assert.Equal(t, "Comunidad de Madrid, España", LabelForScope(a, model.ScopeRegion))
	assert.Equal(t, "Madrid, España", LabelForScope(a, model.ScopeCity))
	assert.Equal(t, "Centro, Madrid", LabelForScope(a, model.ScopeDistrict))
	assert.Equal(t, "Calle Mayor 5, Madrid", LabelForScope(a, model.ScopeStreet))

	noStreet := model.Address{City: "Madrid", Country: "España"}
	assert.Equal(t, "Madrid", LabelForScope(noStreet, model.ScopeStreet))
	assert.Equal(t, "Madrid, España", LabelForScope(noStreet, model.ScopeDistrict))
	assert.Empty(t, LabelForScope(model.Address{}, model.ScopeCity))
}
