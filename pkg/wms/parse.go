package wms

import (
	"html"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

var numberPattern = regexp.MustCompile(`-?\d+(\.\d+)?`)

// FirstNumericProperty returns the first property of the first feature that
// holds a number or a numeric string, in document order. Plain-text bodies
// fall back to the first number in the text; markup bodies carry no value.
func FirstNumericProperty(body []byte) (float64, bool) {
	if !gjson.ValidBytes(body) {
		if NoData(body) || isMarkup(body) {
			return 0, false
		}
		m := numberPattern.Find(body)
		if m == nil {
			return 0, false
		}
		v, err := strconv.ParseFloat(string(m), 64)
		return v, err == nil
	}

	var (
		out   float64
		found bool
	)
	gjson.GetBytes(body, "features.0.properties").ForEach(func(_, value gjson.Result) bool {
		switch value.Type {
		case gjson.Number:
			out, found = value.Num, true
		case gjson.String:
			s := strings.TrimSpace(value.Str)
			if s == "" {
				return true
			}
			if v, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(v, 0) && !math.IsNaN(v) {
				out, found = v, true
			}
		}
		return !found
	})
	return out, found
}

func isMarkup(body []byte) bool {
	return strings.HasPrefix(strings.TrimSpace(string(body)), "<")
}

// FirstFeatureProperties returns the properties of the first feature of a
// GeoJSON FeatureCollection.
func FirstFeatureProperties(body []byte) (map[string]any, bool) {
	props := gjson.GetBytes(body, "features.0.properties")
	if !props.IsObject() {
		return nil, false
	}
	m, ok := props.Value().(map[string]any)
	return m, ok
}

var tableRowPattern = regexp.MustCompile(`(?i)<tr>\s*<td>([^<]+)</td>\s*<td>([^<]+)</td>\s*</tr>`)

// TableMetrics reads two-column label/value rows from an HTML feature info
// answer. The first occurrence of a label wins; non-numeric values are skipped.
func TableMetrics(body []byte) map[string]float64 {
	out := make(map[string]float64)
	for _, m := range tableRowPattern.FindAllSubmatch(body, -1) {
		label := strings.TrimSpace(html.UnescapeString(string(m[1])))
		v, err := strconv.ParseFloat(strings.TrimSpace(string(m[2])), 64)
		if label == "" || err != nil {
			continue
		}
		if _, seen := out[label]; !seen {
			out[label] = v
		}
	}
	return out
}

// NoData reports whether a feature info answer carries an exception or an
// explicit empty result instead of values.
func NoData(body []byte) bool {
	text := strings.TrimSpace(string(body))
	if text == "" {
		return true
	}
	return strings.Contains(text, "ServiceException") ||
		strings.Contains(strings.ToLower(text), "search returned no results")
}
