package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// WatchAttributes is the bundle of fields the watch pipeline extracts from
// a summary/specifics pair in one pass.
type WatchAttributes struct {
	CaseMaterial string
	BandMaterial string
	Movement     string
	DialColour   string
	Year         int
	Brand        string
	Model        string
}

// Watch extracts the full watch attribute bundle, tolerating missing
// fields (a zero Year / empty string means "unknown", not an error).
func Watch(specifics []ItemSpecific, title, description string) WatchAttributes {
	haystack := strings.ToLower(title + " " + CleanDescription(description))

	var a WatchAttributes
	if v, ok := FindSpec(specifics, "case material", "metal"); ok {
		haystack2 := strings.ToLower(v)
		if m, ok := caseMetalFrom(haystack2); ok {
			a.CaseMaterial = m
		}
	}
	if a.CaseMaterial == "" {
		if m, ok := caseMetalFrom(haystack); ok {
			a.CaseMaterial = m
		}
	}

	if v, ok := FindSpec(specifics, "band material", "bracelet/strap material", "strap material"); ok {
		a.BandMaterial = v
	} else if m, ok := longestMatch(haystack, WatchBandMaterials); ok {
		a.BandMaterial = m
	} else if a.CaseMaterial != "" {
		a.BandMaterial = a.CaseMaterial // common case: bracelet matches case
	}

	for movement, keywords := range WatchMovements {
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				a.Movement = movement
				break
			}
		}
		if a.Movement != "" {
			break
		}
	}

	if v, ok := FindSpec(specifics, "dial color", "dial colour"); ok {
		a.DialColour = v
	} else if c, ok := longestMatch(haystack, ColoredStoneColors); ok {
		a.DialColour = c
	}

	if y, ok := yearFrom(specifics, haystack); ok {
		a.Year = y
	}

	if v, ok := FindSpec(specifics, "brand"); ok {
		a.Brand = v
	} else if b, ok := longestMatch(haystack, WatchBrands); ok {
		a.Brand = b
	}

	if v, ok := FindSpec(specifics, "model", "model number"); ok {
		a.Model = v
	}

	return a
}

func caseMetalFrom(s string) (string, bool) {
	for _, metal := range []string{"gold", "platinum", "palladium", "silver"} {
		for _, kw := range MetalKeywords[metal] {
			if strings.Contains(s, kw) {
				return metal, true
			}
		}
	}
	if strings.Contains(s, "stainless") || strings.Contains(s, "steel") {
		return "stainless steel", true
	}
	if strings.Contains(s, "titanium") {
		return "titanium", true
	}
	if strings.Contains(s, "ceramic") {
		return "ceramic", true
	}
	return "", false
}

var yearPattern = regexp.MustCompile(`\b(19[3-9]\d|20[0-3]\d)\b`)

func yearFrom(specifics []ItemSpecific, haystack string) (int, bool) {
	if v, ok := FindSpec(specifics, "year manufactured", "year"); ok {
		if y, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return y, true
		}
	}
	m := yearPattern.FindString(haystack)
	if m == "" {
		return 0, false
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return y, true
}
