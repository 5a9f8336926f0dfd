package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var karatPattern = regexp.MustCompile(`(?i)(\d{1,2})\s*-?\s*(k|kt|ct|carat)\b`)

// Karat returns the gold fineness (one of AcceptedKarats) found in the
// metal-purity item specific or, failing that, the title. British "ct" /
// "carat" notation is accepted alongside "k"/"kt".
func Karat(specifics []ItemSpecific, title string) (int, bool) {
	if v, ok := FindSpec(specifics, "metal purity", "purity", "karat", "gold purity"); ok {
		if k, ok := karatFrom(v); ok {
			return k, true
		}
	}
	return karatFrom(title)
}

func karatFrom(s string) (int, bool) {
	for _, m := range karatPattern.FindAllStringSubmatch(s, -1) {
		k, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if AcceptedKarats[k] {
			return k, true
		}
	}
	return 0, false
}

var purityPattern = regexp.MustCompile(`\b(999|950|925|900|850|800)\b`)

// SilverPurity returns the silver fineness found in specs or title, falling
// back to DefaultSilverPurity when the piece is silver but unmarked.
func SilverPurity(specifics []ItemSpecific, title string) int {
	if v, ok := FindSpec(specifics, "metal purity", "purity"); ok {
		if p, ok := purityFrom(v, SilverPurities); ok {
			return p
		}
	}
	if p, ok := purityFrom(title, SilverPurities); ok {
		return p
	}
	return DefaultSilverPurity
}

// PlatinumPurity returns the platinum fineness found in specs or title,
// falling back to DefaultPlatinumPurity when unmarked.
func PlatinumPurity(specifics []ItemSpecific, title string) int {
	if v, ok := FindSpec(specifics, "metal purity", "purity"); ok {
		if p, ok := purityFrom(v, PlatinumPurities); ok {
			return p
		}
	}
	if p, ok := purityFrom(title, PlatinumPurities); ok {
		return p
	}
	return DefaultPlatinumPurity
}

func purityFrom(s string, accepted map[int]bool) (int, bool) {
	for _, m := range purityPattern.FindAllString(s, -1) {
		p, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		if accepted[p] {
			return p, true
		}
	}
	return 0, false
}

// MetalType identifies {gold, silver, platinum, palladium} from specs and
// title, applying the plate/fill/tone guard: a keyword match is discarded
// when a plate-guard word appears nearby unless the text is actually one of
// the allowed multi-tone-solid-gold phrases.
func MetalType(specifics []ItemSpecific, title string) (string, bool) {
	haystacks := []string{title}
	if v, ok := FindSpec(specifics, "metal", "base metal", "metal purity"); ok {
		haystacks = append(haystacks, v)
	}
	combined := strings.ToLower(strings.Join(haystacks, " "))

	for _, metal := range []string{"gold", "platinum", "palladium", "silver"} {
		for _, kw := range MetalKeywords[metal] {
			if !strings.Contains(combined, kw) {
				continue
			}
			if isPlated(combined, kw) {
				continue
			}
			return metal, true
		}
	}
	return "", false
}

func isPlated(combined, keyword string) bool {
	for _, allow := range TwoToneAllowlist {
		if strings.Contains(combined, allow) {
			return false
		}
	}
	for _, guard := range PlateGuardKeywords {
		if strings.Contains(combined, keyword+" "+guard) || strings.Contains(combined, guard+" "+keyword) {
			return true
		}
	}
	return false
}

// weightUnitGrams converts one unit of each recognized weight unit to grams.
var weightUnitGrams = map[string]float64{
	"g": 1, "gr": 1, "gram": 1, "grams": 1,
	"oz": 28.3495, "ounce": 28.3495, "ounces": 28.3495,
	"dwt": 1.55517, "pennyweight": 1.55517, "pennyweights": 1.55517,
	"carat": 0.2, "carats": 0.2, "ct": 0.2,
	"kg": 1000,
	"lb": 453.592, "lbs": 453.592, "pound": 453.592, "pounds": 453.592,
}

var weightPattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*(grams?|gr|g|ounces?|oz|pennyweights?|dwt|carats?|ct|kg|lbs?|pounds?)\b`)

// WeightGrams searches, in priority order, the weight-bearing item
// specifics, the title, and the cleaned description, returning the first
// match converted to grams and rounded to 2 decimal places.
func WeightGrams(specifics []ItemSpecific, title, description string) (float64, bool) {
	if v, ok := FindSpec(specifics, WeightSpecFieldNames...); ok {
		if g, ok := weightFrom(v); ok {
			return g, true
		}
	}
	if g, ok := weightFrom(title); ok {
		return g, true
	}
	if g, ok := weightFrom(CleanDescription(description)); ok {
		return g, true
	}
	return 0, false
}

func weightFrom(s string) (float64, bool) {
	m := weightPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	unit := normalizeWeightUnit(m[2])
	factor, ok := weightUnitGrams[unit]
	if !ok {
		return 0, false
	}
	grams := value * factor
	return roundTo2(grams), true
}

func normalizeWeightUnit(u string) string {
	return strings.ToLower(strings.TrimSpace(u))
}

func roundTo2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}
