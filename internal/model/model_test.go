package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(v float64) *float64 { return &v }

func TestPlaceQuery_Validate(t *testing.T) {
	tests := []struct {
		name  string
		q     PlaceQuery
		field string
	}{
		{"text", PlaceQuery{Text: "Madrid"}, ""},
		{"coordinates", PlaceQuery{Lat: fp(0), Lon: fp(0)}, ""},
		{"empty", PlaceQuery{Text: "   "}, "query"},
		{"lat only", PlaceQuery{Lat: fp(40)}, "lon"},
		{"lon only", PlaceQuery{Lon: fp(-3)}, "lat"},
		{"lat range", PlaceQuery{Lat: fp(90.5), Lon: fp(0)}, "lat"},
		{"lon range", PlaceQuery{Lat: fp(0), Lon: fp(-181)}, "lon"},
		{"nan", PlaceQuery{Lat: fp(math.NaN()), Lon: fp(0)}, "lat"},
		{"inf", PlaceQuery{Lat: fp(0), Lon: fp(math.Inf(1))}, "lon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.q.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var ie *InvalidInputError
			require.ErrorAs(t, err, &ie)
			assert.Equal(t, tt.field, ie.Field)
		})
	}
}

func TestClampZoom(t *testing.T) {
	assert.Equal(t, 0, ClampZoom(-3))
	assert.Equal(t, 12, ClampZoom(12))
	assert.Equal(t, MaxZoom, ClampZoom(99))
}

func TestClassification(t *testing.T) {
	assert.True(t, Classification{Class: "place", Type: "town"}.IsCityLike())
	assert.False(t, Classification{Class: "boundary", Type: "administrative"}.IsCityLike())
	assert.False(t, Classification{Class: "place", Type: "suburb"}.IsCityLike())
	assert.Equal(t, "place/city", Classification{Class: "place", Type: "city"}.String())
	assert.Empty(t, Classification{}.String())
}

func TestPlaceCandidate(t *testing.T) {
	c := PlaceCandidate{Latitude: 40.41678, Longitude: -3.70379, Source: "seeds"}
	assert.NoError(t, c.Validate())
	assert.Equal(t, "40.41678, -3.70379", c.CoordinateLabel())

	c.Latitude = 120
	err := c.Validate()
	assert.True(t, IsInvalidInput(err), "wrapped error keeps its type")
}

func TestResolvedPlace_Labelled(t *testing.T) {
	assert.False(t, ResolvedPlace{}.Labelled())
	assert.True(t, ResolvedPlace{Label: "Madrid"}.Labelled())
	assert.True(t, ResolvedPlace{Candidate: PlaceCandidate{DisplayLabel: "Madrid, España"}}.Labelled())
}

func TestNotFound(t *testing.T) {
	err := eris.Wrap(&NotFoundError{Query: "Atlantis"}, "resolve")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, `could not resolve location "Atlantis"`, (&NotFoundError{Query: "Atlantis"}).Error())
	assert.False(t, IsNotFound(eris.New("timeout")))
	assert.False(t, IsInvalidInput(err))
}

func TestSelectionScope_Text(t *testing.T) {
	b, err := json.Marshal(map[string]SelectionScope{"scope": ScopeDistrict})
	require.NoError(t, err)
	assert.JSONEq(t, `{"scope":"district"}`, string(b))

	var s SelectionScope
	require.NoError(t, s.UnmarshalText([]byte("street")))
	assert.Equal(t, ScopeStreet, s)
	assert.Error(t, s.UnmarshalText([]byte("planet")))
	assert.Equal(t, "unknown", SelectionScope(42).String())
}
