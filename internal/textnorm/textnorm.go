// Package textnorm canonicalizes place queries and display labels for matching.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes, drops nonspacing marks and recomposes ("España" -> "Espana").
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases s, strips diacritics and collapses every run of
// non-letter, non-number runes into a single space.
func Normalize(s string) string {
	folded, _, err := transform.String(stripMarks, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingSpace := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingSpace = true
	}
	return b.String()
}

// CityCountry is the result of SplitCityCountry.
type CityCountry struct {
	City    string
	Country string
}

// SplitCityCountry splits a comma-separated label. The first segment is the
// city; the last is the country when at least two segments exist.
func SplitCityCountry(label string) CityCountry {
	var parts []string
	for _, p := range strings.Split(label, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	switch len(parts) {
	case 0:
		return CityCountry{}
	case 1:
		return CityCountry{City: parts[0]}
	default:
		return CityCountry{City: parts[0], Country: parts[len(parts)-1]}
	}
}

// LabelMatches reports whether the normalized candidate label equals the
// normalized target or either one is a prefix of the other. Labels that
// normalize to nothing never match.
func LabelMatches(candidate, target string) bool {
	c, t := Normalize(candidate), Normalize(target)
	if c == "" || t == "" {
		return false
	}
	return strings.HasPrefix(c, t) || strings.HasPrefix(t, c)
}

// HasLatin reports whether s contains an ASCII letter.
func HasLatin(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}

// PrimaryToken returns the first word of the normalized form of s.
func PrimaryToken(s string) string {
	n := Normalize(s)
	if i := strings.IndexByte(n, ' '); i >= 0 {
		return n[:i]
	}
	return n
}
