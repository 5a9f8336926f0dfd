package classify

import (
	"strings"
	"testing"

	"github.com/riguy5000/ebay-hunter-worker/internal/extract"
	"github.com/riguy5000/ebay-hunter-worker/internal/store"
)

func TestPassesItemSpecificsFilter_RejectsStone(t *testing.T) {
	f := &store.JewelryFilters{Metals: []string{"gold"}}
	specs := []extract.ItemSpecific{
		{Name: "Metal Purity", Value: "14k"},
		{Name: "Main Stone", Value: "Diamond"},
	}
	v := PassesItemSpecificsFilter(f, specs, "14K Yellow Gold Ring 5g", "")
	if v.Pass {
		t.Fatal("expected rejection for has-stone listing")
	}
	if !strings.HasPrefix(v.Reason, "Has stone in specs") {
		t.Fatalf("Reason = %q, want prefix %q", v.Reason, "Has stone in specs")
	}
}

func TestPassesItemSpecificsFilter_RejectsPlated(t *testing.T) {
	f := &store.JewelryFilters{Metals: []string{"gold"}}
	v := PassesItemSpecificsFilter(f, nil, "14K Gold Plated Chain", "")
	if v.Pass {
		t.Fatal("expected rejection for plated listing")
	}
}

func TestPassesItemSpecificsFilter_HappyPath(t *testing.T) {
	f := &store.JewelryFilters{Metals: []string{"gold"}, WeightMinG: ptr(5.0)}
	specs := []extract.ItemSpecific{{Name: "Metal Purity", Value: "14k"}, {Name: "Total Weight", Value: "10g"}}
	v := PassesItemSpecificsFilter(f, specs, "14K Yellow Gold Chain 10g", "")
	if !v.Pass {
		t.Fatalf("expected pass, got reject: %s", v.Reason)
	}
}

func TestComputeMeltEconomics_HappyPath(t *testing.T) {
	specs := []extract.ItemSpecific{{Name: "Metal Purity", Value: "14k"}, {Name: "Total Weight", Value: "10g"}}
	snapshot := store.MetalPriceSnapshot{PricePerGram: map[string]float64{"14k": 40}}

	econ, ok := ComputeMeltEconomics(specs, "14K Yellow Gold Chain 10g", "", 150, 10, snapshot)
	if !ok {
		t.Fatal("expected economics to resolve")
	}
	if econ.Karat != 14 || econ.WeightG != 10 || econ.MeltValue != 400 || econ.ProfitScrap != 240 {
		t.Fatalf("unexpected economics: %+v", econ)
	}
	if !econ.BreakEven {
		t.Fatal("expected breakEven=true (not rejected) per spec scenario 1")
	}
}

func TestComputeMeltEconomics_ProfitGateRejectsThinMargin(t *testing.T) {
	specs := []extract.ItemSpecific{{Name: "Metal Purity", Value: "14k"}, {Name: "Total Weight", Value: "1g"}}
	snapshot := store.MetalPriceSnapshot{PricePerGram: map[string]float64{"14k": 40}}

	econ, ok := ComputeMeltEconomics(specs, "14K Gold Ring 1g", "", 100, 0, snapshot)
	if !ok {
		t.Fatal("expected economics to resolve")
	}
	// meltValue=40, breakEven=40*0.97=38.8, 0.5*totalCost=50 -> 38.8 <= 50 -> reject
	if econ.BreakEven {
		t.Fatal("expected breakEven=false (rejected) for thin margin")
	}
}

func TestPassesWatchFilters_YearOutOfRangeRejected(t *testing.T) {
	f := &store.WatchFilters{YearMin: ptrInt(1990), YearMax: ptrInt(2000)}
	ok, _ := PassesWatchFilters(f, extract.WatchAttributes{Year: 1985})
	if ok {
		t.Fatal("expected rejection for out-of-range year")
	}
}

func TestPassesWatchFilters_UnknownYearTolerated(t *testing.T) {
	f := &store.WatchFilters{YearMin: ptrInt(1990)}
	ok, _ := PassesWatchFilters(f, extract.WatchAttributes{Year: 0})
	if !ok {
		t.Fatal("expected unknown year to be tolerated, not rejected")
	}
}

func TestDealAndRiskScore_GemstoneHappyPath(t *testing.T) {
	a := GemstoneAttributes{
		StoneType: "diamond", Shape: "round", Carat: 1.52, Color: "D", Clarity: "VS1",
		CutGrade: "excellent", CertLab: "GIA", CertTier: 3, IsNatural: true, HasDimensions: true,
	}
	f := &store.GemstoneFilters{StoneTypes: []string{"diamond"}, CaratMin: ptr(1.0)}

	deal := DealScore(f, a, 10000, "BEST_OFFER")
	risk := RiskScore(a, "GIA certified natural diamond", "", 10000, true, 1000)

	if deal < 80 {
		t.Fatalf("DealScore() = %d, want >= 80", deal)
	}
	if risk > 20 {
		t.Fatalf("RiskScore() = %d, want <= 20", risk)
	}
	if deal < 0 || deal > 100 {
		t.Fatalf("DealScore() out of range: %d", deal)
	}
	if risk < 0 || risk > 100 {
		t.Fatalf("RiskScore() out of range: %d", risk)
	}
}

func TestClassifyGemstone_LooseVsJewelry(t *testing.T) {
	if got := ClassifyGemstone([]string{"164329"}, nil, "1ct diamond"); got != LooseStone {
		t.Fatalf("ClassifyGemstone() = %v, want LooseStone", got)
	}
	if got := ClassifyGemstone(nil, nil, "Diamond Ring 14K"); got != JewelryWithStone {
		t.Fatalf("ClassifyGemstone() = %v, want JewelryWithStone", got)
	}
}

func ptr(f float64) *float64 { return &f }
func ptrInt(i int) *int      { return &i }
