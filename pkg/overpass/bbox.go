package overpass

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// ParseBBox reads "south,west,north,east" into lon/lat bounds. South must be
// below north and west left of east.
func ParseBBox(s string) (*geom.Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, eris.Errorf("bbox needs 4 comma-separated numbers, got %d", len(parts))
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, eris.Errorf("bbox value %q is not a finite number", strings.TrimSpace(p))
		}
		v[i] = f
	}
	south, west, north, east := v[0], v[1], v[2], v[3]
	if south < -90 || north > 90 || west < -180 || east > 180 {
		return nil, eris.New("bbox outside the valid coordinate range")
	}
	if south >= north || west >= east {
		return nil, eris.New("bbox must have south < north and west < east")
	}
	return geom.NewBounds(geom.XY).Set(west, south, east, north), nil
}

// BBoxKey renders bounds as "south,west,north,east" with three decimals.
func BBoxKey(b *geom.Bounds) string {
	return fmt.Sprintf("%.3f,%.3f,%.3f,%.3f", b.Min(1), b.Min(0), b.Max(1), b.Max(0))
}
