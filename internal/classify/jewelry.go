// Package classify implements the jewelry/watch/gemstone classifiers (C7's
// filtering and scoring half): given extracted attributes and a task's
// filter record, decide pass/reject and, for jewelry and gemstones, compute
// the economics the task processor persists.
package classify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/riguy5000/ebay-hunter-worker/internal/extract"
	"github.com/riguy5000/ebay-hunter-worker/internal/store"
)

// scrapPayoutFactor is the undocumented 0.97 multiplier from the original
// worker's profit gate (spec §9 Open Questions: preserved verbatim, origin
// unknown — possibly a refiner payout share).
const scrapPayoutFactor = 0.97

// JewelryVerdict is the result of PassesItemSpecificsFilter.
type JewelryVerdict struct {
	Pass   bool
	Reason string // populated iff !Pass; becomes the rejection record's reason
}

func reject(format string, args ...any) JewelryVerdict {
	return JewelryVerdict{Pass: false, Reason: fmt.Sprintf(format, args...)}
}

// PassesItemSpecificsFilter runs every jewelry post-enrichment check (on the
// fetched item detail) in this order: metal/plate guard, stone
// presence, purity, brand, color, era, setting style, features, weight
// range. The first failing check wins.
func PassesItemSpecificsFilter(f *store.JewelryFilters, specifics []extract.ItemSpecific, title, description string) JewelryVerdict {
	lowerTitle := strings.ToLower(title)

	metal, metalFound := extract.MetalType(specifics, title)
	if len(f.Metals) > 0 {
		if !metalFound {
			return reject("metal not identified or appears plated/filled")
		}
		if !containsFold(f.Metals, metal) {
			return reject("metal %q not in selected set", metal)
		}
	}

	if extract.HasAnyStone(specifics, title) {
		return reject("Has stone in specs or title")
	}

	if len(f.Purities) > 0 {
		k, ok := extract.Karat(specifics, title)
		matched := false
		if ok {
			for _, want := range f.Purities {
				if wantKarat, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSuffix(strings.ToLower(want), "k"), "t")); err == nil && wantKarat == k {
					matched = true
					break
				}
			}
		}
		if !matched {
			return reject("purity not in selected set")
		}
	}

	if len(f.Brands) > 0 {
		v, ok := extract.FindSpec(specifics, "brand")
		if !ok || !containsSubstringFold(v, f.Brands) {
			if !containsSubstringFold(title, f.Brands) {
				return reject("brand not matched")
			}
		}
	}

	if len(f.Colors) > 0 && !containsSubstringFold(lowerTitle, f.Colors) {
		return reject("color not matched")
	}

	if len(f.Eras) > 0 && !containsSubstringFold(lowerTitle, f.Eras) {
		return reject("era not matched")
	}

	if len(f.SettingStyles) > 0 && !containsSubstringFold(lowerTitle, f.SettingStyles) {
		return reject("setting style not matched")
	}

	if len(f.Features) > 0 && !containsSubstringFold(lowerTitle+" "+description, f.Features) {
		return reject("feature not matched")
	}

	if f.WeightMinG != nil || f.WeightMaxG != nil {
		g, ok := extract.WeightGrams(specifics, title, description)
		if !ok {
			return reject("weight not found")
		}
		if f.WeightMinG != nil && g < *f.WeightMinG {
			return reject("weight %.2fg below minimum", g)
		}
		if f.WeightMaxG != nil && g > *f.WeightMaxG {
			return reject("weight %.2fg above maximum", g)
		}
	}

	return JewelryVerdict{Pass: true}
}

func containsFold(list []string, want string) bool {
	for _, v := range list {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

func containsSubstringFold(haystack string, needles []string) bool {
	h := strings.ToLower(haystack)
	for _, n := range needles {
		if strings.Contains(h, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// MeltEconomics is the computed scrap-value verdict for a surviving
// jewelry candidate.
type MeltEconomics struct {
	MetalType   string
	Karat       int // 0 for non-gold metals
	WeightG     float64
	MeltValue   float64
	ProfitScrap float64
	BreakEven   bool // true = passes the profit gate (not rejected)
}

// PriceKeyFor returns the metal-price table's lookup key for a piece: the
// karat string ("14k") for gold, the purity string ("925") for the others.
func PriceKeyFor(metal string, karat, purity int) string {
	if metal == "gold" {
		return fmt.Sprintf("%dk", karat)
	}
	return strconv.Itoa(purity)
}

// ComputeMeltEconomics detects metal/karat-or-purity/weight, prices the
// melt value against the given per-metal snapshot, and evaluates the
// profit gate: reject if breakEven = meltValue*0.97 <= 0.5*totalCost.
func ComputeMeltEconomics(specifics []extract.ItemSpecific, title, description string, price, shipping float64, snapshot store.MetalPriceSnapshot) (MeltEconomics, bool) {
	metal, ok := extract.MetalType(specifics, title)
	if !ok {
		return MeltEconomics{}, false
	}

	var karat, purity int
	switch metal {
	case "gold":
		k, found := extract.Karat(specifics, title)
		if !found {
			return MeltEconomics{}, false
		}
		karat = k
	case "silver":
		purity = extract.SilverPurity(specifics, title)
	case "platinum":
		purity = extract.PlatinumPurity(specifics, title)
	case "palladium":
		purity = extract.PlatinumPurity(specifics, title) // palladium shares platinum's fineness scale
	}

	weight, ok := extract.WeightGrams(specifics, title, description)
	if !ok {
		return MeltEconomics{}, false
	}

	key := PriceKeyFor(metal, karat, purity)
	pricePerGram, ok := snapshot.PricePerGram[key]
	if !ok {
		return MeltEconomics{}, false
	}

	meltValue := round2(weight * pricePerGram)
	totalCost := price + shipping
	profit := round2(meltValue - totalCost)
	breakEven := meltValue*scrapPayoutFactor > 0.5*totalCost

	return MeltEconomics{
		MetalType:   metal,
		Karat:       karat,
		WeightG:     weight,
		MeltValue:   meltValue,
		ProfitScrap: profit,
		BreakEven:   breakEven,
	}, true
}

func round2(f float64) float64 {
	return float64(int(f*100+0.5)) / 100
}

// ScrapOfferSuggestion is the 0.87x-of-total-cost figure the notifier shows
// alongside a jewelry match (spec §4.5 post-processing).
func ScrapOfferSuggestion(totalCost float64) float64 {
	return round2(totalCost * 0.87)
}
