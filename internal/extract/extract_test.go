package extract

import "testing"

func TestKarat_FromTitleAndSpecs(t *testing.T) {
	k, ok := Karat(nil, "14K Yellow Gold Chain 10g")
	if !ok || k != 14 {
		t.Fatalf("Karat() = %d, %v, want 14, true", k, ok)
	}

	specs := []ItemSpecific{{Name: "Metal Purity", Value: "18ct"}}
	k, ok = Karat(specs, "gold ring")
	if !ok || k != 18 {
		t.Fatalf("Karat(specs) = %d, %v, want 18, true", k, ok)
	}

	_, ok = Karat(nil, "20K something") // not in AcceptedKarats
	if ok {
		t.Fatal("Karat() accepted an unsupported karat value")
	}
}

func TestWeightGrams_UnitConversions(t *testing.T) {
	cases := map[string]float64{
		"10g chain":        10,
		"1oz bar":          28.35,
		"5 dwt ring":       7.78,
		"2 carat setting":  0.4,
		"1kg lot":          1000,
		"1 lb scrap lot":   453.59,
	}
	for title, want := range cases {
		got, ok := WeightGrams(nil, title, "")
		if !ok {
			t.Fatalf("WeightGrams(%q) not found", title)
		}
		if diff := got - want; diff > 0.5 || diff < -0.5 {
			t.Fatalf("WeightGrams(%q) = %v, want ~%v", title, got, want)
		}
	}
}

func TestWeightGrams_SpecsTakePriorityOverTitle(t *testing.T) {
	specs := []ItemSpecific{{Name: "Total Weight", Value: "12g"}}
	got, ok := WeightGrams(specs, "5g ring (photo shows scale)", "")
	if !ok || got != 12 {
		t.Fatalf("WeightGrams() = %v, %v, want 12, true", got, ok)
	}
}

func TestMetalType_PlateGuardRejectsFakes(t *testing.T) {
	if m, ok := MetalType(nil, "14K Gold Plated Chain"); ok {
		t.Fatalf("MetalType() = %q, want no match for plated item", m)
	}
	if m, ok := MetalType(nil, "14K Gold Filled Chain"); ok {
		t.Fatalf("MetalType() = %q, want no match for filled item", m)
	}
}

func TestMetalType_TwoToneAllowedThroughGuard(t *testing.T) {
	m, ok := MetalType(nil, "14K Two-Tone Gold Ring")
	if !ok || m != "gold" {
		t.Fatalf("MetalType() = %q, %v, want gold, true", m, ok)
	}
}

func TestMetalType_PlainGoldMatches(t *testing.T) {
	m, ok := MetalType(nil, "Solid 14K Gold Band")
	if !ok || m != "gold" {
		t.Fatalf("MetalType() = %q, %v, want gold, true", m, ok)
	}
}

func TestHasAnyStone_SpecsOverrideTitleFallback(t *testing.T) {
	specs := []ItemSpecific{{Name: "Stone", Value: "None"}}
	if HasAnyStone(specs, "diamond ring") {
		t.Fatal("HasAnyStone() should trust an explicit empty spec over title text")
	}
}

func TestHasAnyStone_TitleFallbackWhenSpecsEmpty(t *testing.T) {
	if !HasAnyStone(nil, "14K Gold Ring with Sapphire Accent") {
		t.Fatal("HasAnyStone() should fall back to title keyword scan")
	}
}

func TestCarat_FormatsAccepted(t *testing.T) {
	cases := map[string]float64{
		"1.50ct diamond ring":     1.5,
		"75pt solitaire":          0.75,
		"1/2 ct diamond":          0.5,
		"2.00 tcw diamond studs":  2.0,
	}
	for title, want := range cases {
		got, ok := Carat(nil, title)
		if !ok || got != want {
			t.Fatalf("Carat(%q) = %v, %v, want %v, true", title, got, ok, want)
		}
	}
}

func TestStoneType_LongestMatchFirst(t *testing.T) {
	st, ok := StoneType(nil, "Lab-Grown Diamond Ring", "")
	if !ok || st != "lab-grown diamond" {
		t.Fatalf("StoneType() = %q, %v, want lab-grown diamond, true", st, ok)
	}
}

func TestDimensions_1D2DAnd3DForms(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Round Diamond 6.5mm Loose Stone", "6.5mm"},
		{"Oval Sapphire 6.5x4.5mm", "6.5x4.5mm"},
		{"Emerald Cut 6.5x6.5x4mm", "6.5x6.5x4mm"},
	}
	for _, c := range cases {
		got, ok := Dimensions(c.title, "")
		if !ok || got != c.want {
			t.Errorf("Dimensions(%q) = %q, %v, want %q, true", c.title, got, ok, c.want)
		}
	}
}

func TestIsNatural_FlagsSyntheticLanguage(t *testing.T) {
	if IsNatural(nil, "Lab Grown Diamond Ring", "") {
		t.Fatal("IsNatural() should return false for lab-grown language")
	}
	if !IsNatural(nil, "Natural Sapphire Ring", "") {
		t.Fatal("IsNatural() should default true absent synthetic language")
	}
}

func TestWatch_ExtractsBundle(t *testing.T) {
	specs := []ItemSpecific{
		{Name: "Brand", Value: "Rolex"},
		{Name: "Case Material", Value: "Stainless Steel"},
	}
	a := Watch(specs, "Rolex Submariner 1985 Automatic Black Dial", "")
	if a.Brand != "Rolex" {
		t.Fatalf("Brand = %q, want Rolex", a.Brand)
	}
	if a.CaseMaterial != "stainless steel" {
		t.Fatalf("CaseMaterial = %q, want stainless steel", a.CaseMaterial)
	}
	if a.Movement != "automatic" {
		t.Fatalf("Movement = %q, want automatic", a.Movement)
	}
	if a.Year != 1985 {
		t.Fatalf("Year = %d, want 1985", a.Year)
	}
	if a.DialColour != "black" {
		t.Fatalf("DialColour = %q, want black", a.DialColour)
	}
}

func TestCleanDescription_StripsTagsAndDecodesEntities(t *testing.T) {
	got := CleanDescription("<p>10g &amp; 14K&nbsp;Gold</p>")
	want := "10g & 14K Gold"
	if got != want {
		t.Fatalf("CleanDescription() = %q, want %q", got, want)
	}
}
