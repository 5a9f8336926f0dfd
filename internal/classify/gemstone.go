package classify

import (
	"fmt"
	"strings"

	"github.com/riguy5000/ebay-hunter-worker/internal/extract"
	"github.com/riguy5000/ebay-hunter-worker/internal/store"
)

// Classification is the LOOSE_STONE vs JEWELRY_WITH_STONE tag a gemstone
// candidate is sorted into before filtering.
type Classification string

const (
	LooseStone       Classification = "LOOSE_STONE"
	JewelryWithStone Classification = "JEWELRY_WITH_STONE"
)

// GemstoneAttributes bundles every field the gemstone pipeline extracts
// from one candidate in a single pass.
type GemstoneAttributes struct {
	StoneType      string
	Shape          string
	Carat          float64
	Color          string
	Clarity        string
	CutGrade       string
	CertLab        string
	CertTier       int
	Treatment      string
	TreatmentTier  int
	IsNatural      bool
	HasDimensions  bool
}

// ExtractGemstoneAttributes runs every gemstone extractor over one
// candidate's summary/specifics/description.
func ExtractGemstoneAttributes(specifics []extract.ItemSpecific, title, description string) GemstoneAttributes {
	stoneType, _ := extract.StoneType(specifics, title, description)
	shape, _ := extract.StoneShape(title, description)
	carat, _ := extract.Carat(specifics, title)
	color, _ := extract.Color(specifics, title)
	clarity, _ := extract.Clarity(specifics, title)
	cut, _ := extract.CutGrade(specifics, title)
	lab, tier := extract.CertLab(specifics, title)
	treatment, treatTier := extract.Treatment(title, description)
	_, hasDims := extract.Dimensions(title, description)

	return GemstoneAttributes{
		StoneType:     stoneType,
		Shape:         shape,
		Carat:         carat,
		Color:         color,
		Clarity:       clarity,
		CutGrade:      cut,
		CertLab:       lab,
		CertTier:      tier,
		Treatment:     treatment,
		TreatmentTier: treatTier,
		IsNatural:     extract.IsNatural(specifics, title, description),
		HasDimensions: hasDims,
	}
}

// PassesGemstoneBlacklist rejects known simulants and, when the task
// doesn't allow lab-grown stock, lab-created language.
func PassesGemstoneBlacklist(f *store.GemstoneFilters, title, description string) (bool, string) {
	haystack := strings.ToLower(title + " " + extract.CleanDescription(description))
	for _, sim := range []string{"cubic zirconia", "cz", "moissanite", "simulant"} {
		if strings.Contains(haystack, sim) {
			return false, fmt.Sprintf("blacklisted simulant term %q", sim)
		}
	}
	if f.NaturalOnly {
		for _, term := range []string{"lab grown", "lab-grown", "lab created", "synthetic"} {
			if strings.Contains(haystack, term) {
				return false, fmt.Sprintf("blacklisted lab-grown term %q", term)
			}
		}
	}
	return true, ""
}

// ClassifyGemstone decides LOOSE_STONE vs JEWELRY_WITH_STONE via category
// → specs → title heuristics, in that priority order.
func ClassifyGemstone(categoryIDs []string, specifics []extract.ItemSpecific, title string) Classification {
	for _, id := range categoryIDs {
		if id == "164329" || id == "262013" {
			return LooseStone
		}
	}
	if v, ok := extract.FindSpec(specifics, "setting", "mount"); ok && !strings.EqualFold(v, "none") && v != "" {
		return JewelryWithStone
	}
	lower := strings.ToLower(title)
	for _, word := range []string{"ring", "pendant", "necklace", "bracelet", "earring", "earrings"} {
		if strings.Contains(lower, word) {
			return JewelryWithStone
		}
	}
	return LooseStone
}

// PassesGemstoneFilters checks stone type/shape, carat range, color,
// clarity, certification, treatment, and natural-only against the task's
// filter record.
func PassesGemstoneFilters(f *store.GemstoneFilters, a GemstoneAttributes) (bool, string) {
	if len(f.StoneTypes) > 0 && !containsFold(f.StoneTypes, a.StoneType) {
		return false, "stone type not in selected set"
	}
	if len(f.Shapes) > 0 && !containsFold(f.Shapes, a.Shape) {
		return false, "shape not in selected set"
	}
	if f.CaratMin != nil && a.Carat < *f.CaratMin {
		return false, "carat below minimum"
	}
	if f.CaratMax != nil && a.Carat > *f.CaratMax {
		return false, "carat above maximum"
	}
	if len(f.Colors) > 0 && !containsFold(f.Colors, a.Color) {
		return false, "color not in selected set"
	}
	if len(f.Clarities) > 0 && !containsFold(f.Clarities, a.Clarity) {
		return false, "clarity not in selected set"
	}
	if len(f.Certifications) > 0 && !containsFold(f.Certifications, a.CertLab) {
		return false, "certification not in selected set"
	}
	if len(f.Treatments) > 0 && a.Treatment != "" && !containsFold(f.Treatments, a.Treatment) {
		return false, "treatment not in selected set"
	}
	if f.NaturalOnly && !a.IsNatural {
		return false, "natural-only task rejected non-natural stone"
	}
	return true, ""
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DealScore computes the 0-100 weighted deal-quality score (spec §4.5
// Phase 3): match quality, seller quality, buying format, cert tier,
// detail completeness, natural bonus, no-treatment bonus.
func DealScore(f *store.GemstoneFilters, a GemstoneAttributes, sellerFeedback int, buyFormat string) int {
	score := 0

	matchQuality := 0
	if len(f.StoneTypes) == 0 || containsFold(f.StoneTypes, a.StoneType) {
		matchQuality += 15
	}
	if f.CaratMin != nil && a.Carat >= *f.CaratMin {
		matchQuality += 10
	} else if f.CaratMin == nil {
		matchQuality += 10
	}
	score += clamp(matchQuality, 0, 25)

	sellerQuality := 0
	switch {
	case sellerFeedback >= 5000:
		sellerQuality = 15
	case sellerFeedback >= 500:
		sellerQuality = 10
	case sellerFeedback >= 50:
		sellerQuality = 5
	}
	score += sellerQuality

	format := 0
	switch strings.ToUpper(buyFormat) {
	case "BEST_OFFER":
		format = 10
	case "FIXED_PRICE":
		format = 6
	case "AUCTION":
		format = 3
	}
	score += format

	certBonus := 0
	switch a.CertTier {
	case 3:
		certBonus = 15
	case 2:
		certBonus = 10
	case 1:
		certBonus = 5
	}
	score += certBonus

	completeness := 0
	for _, present := range []bool{a.Shape != "", a.Color != "", a.Clarity != "", a.CutGrade != "", a.HasDimensions} {
		if present {
			completeness += 2
		}
	}
	score += clamp(completeness, 0, 10)

	if a.IsNatural {
		score += 5
	}
	if a.Treatment == "" {
		score += 5
	}

	return clamp(score, 0, 100)
}

// RiskScore computes the 0-100 risk score (spec §4.5 Phase 3): synthetic
// hint, no-returns, missing critical details, heavy treatment, low seller
// quality, vague language, price-too-low-per-carat.
func RiskScore(a GemstoneAttributes, title, description string, sellerFeedback int, hasReturns bool, pricePerCarat float64) int {
	score := 0
	haystack := strings.ToLower(title + " " + extract.CleanDescription(description))

	if !a.IsNatural {
		score += 30
	}
	if !hasReturns {
		score += 20
	}

	missing := 0
	for _, present := range []bool{a.Shape != "", a.Color != "", a.Clarity != "", a.CutGrade != "", a.HasDimensions} {
		if !present {
			missing++
		}
	}
	score += clamp(missing*5, 0, 20)

	if a.TreatmentTier >= 2 {
		score += 15
	}

	switch {
	case sellerFeedback < 10:
		score += 15
	case sellerFeedback < 50:
		score += 10
	case sellerFeedback < 200:
		score += 5
	}

	for _, term := range extract.VagueLanguageTerms {
		if strings.Contains(haystack, term) {
			score += 10
			break
		}
	}

	if pricePerCarat > 0 && pricePerCarat < 200 {
		score += 10
	}

	return clamp(score, 0, 100)
}

// Reasoning builds the human-readable ai_reasoning string stored alongside
// a gemstone match.
func Reasoning(a GemstoneAttributes, classification Classification, deal, risk int) string {
	natural := "natural"
	if !a.IsNatural {
		natural = "possibly treated/synthetic"
	}
	return fmt.Sprintf(
		"%s %s %.2fct %s, %s, %s clarity, deal=%d risk=%d (%s)",
		natural, a.StoneType, a.Carat, a.Shape, a.Color, a.Clarity, deal, risk, classification,
	)
}
