package extract

import (
	"regexp"
	"strconv"
	"strings"
)

// StoneType returns the longest matching stone name from specs, then title,
// then description, preferring longer (more specific) keywords so "lab-grown
// diamond" doesn't match the generic "diamond" entry first.
func StoneType(specifics []ItemSpecific, title, description string) (string, bool) {
	haystack := strings.ToLower(title + " " + description)
	if v, ok := FindSpec(specifics, "gemstone", "stone", "main stone", "center stone"); ok {
		haystack = strings.ToLower(v) + " " + haystack
	}
	return longestMatch(haystack, StoneKeywords)
}

// HasAnyStone is a four-field stone-presence check: inspect the
// stone/gemstone/main-stone/center-stone specifics fields, any of which with a
// value other than empty or "none" means a stone; only if none of the four
// fields is present at all, fall back to the StoneKeywords title scan.
func HasAnyStone(specifics []ItemSpecific, title string) bool {
	fields := []string{"gemstone", "stone", "main stone", "center stone"}
	sawAny := false
	for _, f := range fields {
		if v, ok := FindSpec(specifics, f); ok {
			sawAny = true
			if strings.TrimSpace(v) != "" && !strings.EqualFold(v, "none") {
				return true
			}
		}
	}
	if sawAny {
		return false
	}
	_, found := longestMatch(strings.ToLower(title), StoneKeywords)
	return found
}

func longestMatch(haystack string, candidates []string) (string, bool) {
	best := ""
	for _, c := range candidates {
		if strings.Contains(haystack, c) && len(c) > len(best) {
			best = c
		}
	}
	return best, best != ""
}

// StoneShape returns the cut-shape keyword found in title/description.
func StoneShape(title, description string) (string, bool) {
	return longestMatch(strings.ToLower(title+" "+description), StoneShapes)
}

var (
	caratDecimalPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:ct|cts|carat|carats)\b`)
	caratPointPattern   = regexp.MustCompile(`(?i)(\d{2,3})\s*pts?\b`)
	caratFractionPattern = regexp.MustCompile(`(\d+)\s*/\s*(\d+)\s*(?:ct|carat)`)
	tcwPattern          = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(?:ct\.?\s*)?t\.?c\.?w\.?`)
)

// Carat parses the stone weight from specs then title, accepting decimal
// ("1.5ct"), point ("75pt" = 0.75ct), fraction ("1/2 ct"), and total-carat-
// weight ("1.00 tcw") notations.
func Carat(specifics []ItemSpecific, title string) (float64, bool) {
	if v, ok := FindSpec(specifics, "carat", "carat weight", "total carat weight"); ok {
		if c, ok := caratFrom(v); ok {
			return c, true
		}
	}
	return caratFrom(title)
}

func caratFrom(s string) (float64, bool) {
	if m := tcwPattern.FindStringSubmatch(s); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return roundTo2(v), true
		}
	}
	if m := caratFractionPattern.FindStringSubmatch(s); m != nil {
		num, errN := strconv.ParseFloat(m[1], 64)
		den, errD := strconv.ParseFloat(m[2], 64)
		if errN == nil && errD == nil && den != 0 {
			return roundTo2(num / den), true
		}
	}
	if m := caratPointPattern.FindStringSubmatch(s); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return roundTo2(v / 100), true
		}
	}
	if m := caratDecimalPattern.FindStringSubmatch(s); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			return roundTo2(v), true
		}
	}
	return 0, false
}

// Color returns the diamond letter grade if present, else a descriptive
// colored-stone color word.
func Color(specifics []ItemSpecific, title string) (string, bool) {
	if v, ok := FindSpec(specifics, "color", "colour", "diamond color"); ok {
		if g, ok := diamondGradeFrom(v); ok {
			return g, true
		}
		if c, ok := longestMatch(strings.ToLower(v), ColoredStoneColors); ok {
			return c, true
		}
	}
	if g, ok := diamondGradeFrom(title); ok {
		return g, true
	}
	return longestMatch(strings.ToLower(title), ColoredStoneColors)
}

var diamondGradePattern = regexp.MustCompile(`\bcolor\s*[:\-]?\s*([D-N])\b`)

func diamondGradeFrom(s string) (string, bool) {
	m := diamondGradePattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	for _, g := range DiamondColorGrades {
		if g == m[1] {
			return g, true
		}
	}
	return "", false
}

// Clarity returns a GIA clarity grade if present, else an eye-clean phrase.
func Clarity(specifics []ItemSpecific, title string) (string, bool) {
	haystack := strings.ToUpper(title)
	if v, ok := FindSpec(specifics, "clarity", "diamond clarity"); ok {
		haystack = strings.ToUpper(v) + " " + haystack
	}
	for _, g := range DiamondClarityGrades {
		if strings.Contains(haystack, g) {
			return g, true
		}
	}
	lower := strings.ToLower(title)
	return longestMatch(lower, EyeCleanClarityTerms)
}

// CutGrade returns the cut-quality term found in specs or title.
func CutGrade(specifics []ItemSpecific, title string) (string, bool) {
	if v, ok := FindSpec(specifics, "cut", "cut grade"); ok {
		if g, ok := longestMatch(strings.ToLower(v), CutGrades); ok {
			return g, true
		}
	}
	return longestMatch(strings.ToLower(title), CutGrades)
}

// CertLab returns the certification lab abbreviation found in title or
// specs, uppercased, and its tier (0 if not found/untiered).
func CertLab(specifics []ItemSpecific, title string) (string, int) {
	haystack := strings.ToLower(title)
	if v, ok := FindSpec(specifics, "certification", "certified by", "lab"); ok {
		haystack = strings.ToLower(v) + " " + haystack
	}
	for lab, tier := range CertLabTiers {
		if strings.Contains(haystack, lab) {
			return strings.ToUpper(lab), tier
		}
	}
	return "", 0
}

// Treatment returns the most severe treatment term mentioned, and its
// severity tier (0 if untreated/unmentioned).
func Treatment(title, description string) (string, int) {
	haystack := strings.ToLower(title + " " + CleanDescription(description))
	best, bestTier := "", 0
	for term, tier := range TreatmentTerms {
		if strings.Contains(haystack, term) && tier > bestTier {
			best, bestTier = term, tier
		}
	}
	return best, bestTier
}

var dimensionPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*x\s*(\d+(?:\.\d+)?)(?:\s*x\s*(\d+(?:\.\d+)?))?\s*mm`)
var singleDimensionPattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*mm\b`)

// Dimensions parses a 1-D, 2-D, or 3-D millimeter measurement ("6.5mm",
// "6.5x4.5mm", "6.5x6.5x4mm") from title or description. The "x"-joined
// form is tried first since a bare-number match would otherwise pick off
// just the leading number of a multi-dimension measurement.
func Dimensions(title, description string) (string, bool) {
	haystack := title + " " + description
	if m := dimensionPattern.FindString(haystack); m != "" {
		return strings.ToLower(strings.TrimSpace(m)), true
	}
	if m := singleDimensionPattern.FindString(haystack); m != "" {
		return strings.ToLower(strings.TrimSpace(m)), true
	}
	return "", false
}

// IsNatural reports false when synthetic/lab-grown language is present
// anywhere in specs, title, or description; true otherwise (absence of a
// disclosed treatment is not proof of naturalness, but the worker treats
// "not flagged synthetic" as the natural default per the data model).
func IsNatural(specifics []ItemSpecific, title, description string) bool {
	haystack := strings.ToLower(title + " " + CleanDescription(description))
	if v, ok := FindSpec(specifics, "type", "treatment", "enhancement"); ok {
		haystack = strings.ToLower(v) + " " + haystack
	}
	for _, term := range SyntheticHintTerms {
		if strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}
