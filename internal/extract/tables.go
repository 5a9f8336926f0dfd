package extract

// These catalogues are data, not logic (spec §4.6): lookups, synonym lists,
// and tiering tables that can grow without touching extractor code.

// KaratMarkers are the title substrings that count as an explicit karat
// stamp for the REQUIRE_KARAT_MARKERS gate.
var KaratMarkers = []string{
	"8k", "8kt", "9k", "9kt", "10k", "10kt", "14k", "14kt",
	"18k", "18kt", "22k", "22kt", "24k", "24kt",
	"8ct", "9ct", "10ct", "14ct", "18ct", "22ct", "24ct",
}

// AcceptedKarats is the full set of karat values the worker recognizes.
var AcceptedKarats = map[int]bool{8: true, 9: true, 10: true, 14: true, 18: true, 22: true, 24: true}

// MetalKeywords maps a canonical metal name to the title/spec substrings
// that identify it. Order within each list doesn't matter; the extractor
// tries every metal and returns the first whose keyword list matches.
var MetalKeywords = map[string][]string{
	"gold":      {"gold", "yellow gold", "white gold", "rose gold"},
	"silver":    {"silver", "sterling"},
	"platinum":  {"platinum", "plat."},
	"palladium": {"palladium"},
}

// PlateGuardKeywords disqualify a metal match: "gold plated" is not gold.
var PlateGuardKeywords = []string{"plated", "filled", "gf", "gp", "vermeil", "tone", "electroplate", "flashed"}

// TwoToneAllowlist describes multi-tone gold pieces that should NOT be
// caught by the "gold-tone" plate guard — they're solid multi-color gold,
// not base metal with a gold-colored finish.
var TwoToneAllowlist = []string{"two-tone", "two tone", "tri-tone", "tri tone", "three tone"}

// CostumeFashionKeywords are appended to a jewelry task's exclusion set
// unconditionally — junk-drawer costume pieces the worker never wants to
// detail-fetch regardless of task filters.
var CostumeFashionKeywords = []string{
	"costume jewelry", "fashion jewelry", "cosplay", "replica", "faux",
	"rhinestone", "cz only", "cubic zirconia only", "tool lot", "repair lot",
	"craft lot", "jewelry making supplies", "beading supplies",
}

// SilverPurities and PlatinumPurities enumerate the accepted fineness
// stamps; DefaultSilverPurity/DefaultPlatinumPurity apply when a piece is
// identified as that metal but no explicit purity mark is found.
var SilverPurities = map[int]bool{999: true, 925: true, 900: true, 800: true}
var PlatinumPurities = map[int]bool{950: true, 900: true, 850: true}

const DefaultSilverPurity = 925
const DefaultPlatinumPurity = 950

// WeightSpecFieldNames are the item-specifics field names, in priority
// order, consulted before falling back to title/description regex scans.
var WeightSpecFieldNames = []string{
	"total weight", "item weight", "weight", "metal weight", "gross weight",
}

// StoneKeywords is the longest-match-first catalogue of recognized stone
// types, consulted for both the gemstone extractor and the jewelry
// stone-presence title fallback.
var StoneKeywords = []string{
	"cubic zirconia", "lab-grown diamond", "lab created diamond",
	"moissanite", "diamond", "sapphire", "ruby", "emerald", "opal",
	"amethyst", "topaz", "garnet", "peridot", "citrine", "aquamarine",
	"tourmaline", "tanzanite", "morganite", "turquoise", "onyx",
	"pearl", "jade", "lapis", "zircon", "spinel", "alexandrite",
}

// StoneShapes is the recognized cut-shape catalogue.
var StoneShapes = []string{
	"round", "princess", "cushion", "emerald cut", "oval", "marquise",
	"pear", "radiant", "asscher", "heart", "baguette", "trillion",
}

// DiamondColorGrades is the GIA letter scale, high to low.
var DiamondColorGrades = []string{"D", "E", "F", "G", "H", "I", "J", "K", "L", "M", "N"}

// ColoredStoneColors are descriptive (non-letter-graded) color words.
var ColoredStoneColors = []string{
	"blue", "pink", "yellow", "green", "red", "purple", "orange",
	"black", "white", "brown", "champagne", "cognac",
}

// DiamondClarityGrades is the GIA clarity scale, high to low.
var DiamondClarityGrades = []string{"FL", "IF", "VVS1", "VVS2", "VS1", "VS2", "SI1", "SI2", "I1", "I2", "I3"}

// EyeCleanClarityTerms are colloquial, non-GIA clarity descriptions sellers use.
var EyeCleanClarityTerms = []string{"eye clean", "eye-clean", "loupe clean"}

// CutGrades is the recognized cut-quality catalogue.
var CutGrades = []string{"excellent", "very good", "good", "fair", "poor", "ideal"}

// CertLabTiers ranks certification labs: premium labs carry more weight in
// the deal score than budget ones.
var CertLabTiers = map[string]int{
	"gia": 3, "ags": 3,
	"igi": 2, "hrd": 2,
	"gsl": 1, "egl": 1, "gcal": 1,
}

// TreatmentTerms are treatment/enhancement disclosures, tiered by severity:
// heavy treatments weigh more against risk than minor/cosmetic ones.
var TreatmentTerms = map[string]int{
	"heated": 1, "heat treated": 1,
	"irradiated": 2, "diffusion": 3, "glass filled": 3, "hpht": 2, "clarity enhanced": 2,
}

// SyntheticHintTerms flag lab-grown/simulant language for the risk scorer
// and the gemstone blacklist.
var SyntheticHintTerms = []string{
	"lab grown", "lab-grown", "lab created", "synthetic", "simulant", "cz",
	"cubic zirconia", "moissanite",
}

// VagueLanguageTerms are seller hedge-words that correlate with misrepresented
// or unverifiable listings.
var VagueLanguageTerms = []string{"as is", "no returns", "untested", "unknown origin", "estate find"}

// GemstoneCategoryParents maps a loose-stone parent category ID to the
// child category IDs the gemstone task's category filter should also allow
// (spec §4.5 step 5: "gemstones expand known parent→child pairs").
var GemstoneCategoryParents = map[string][]string{
	"164329": {"164330", "164331", "164332"}, // loose diamonds -> shape subcategories
	"262013": {"262014", "262015"},           // loose colored gemstones -> subcategories
}

// WatchBrands and WatchMovements are small seed catalogues; case material
// and band material reuse MetalKeywords plus these leather/rubber terms.
var WatchBrands = []string{
	"rolex", "omega", "seiko", "citizen", "tag heuer", "breitling",
	"cartier", "tudor", "longines", "tissot", "hamilton", "bulova",
}

var WatchMovements = map[string][]string{
	"automatic": {"automatic", "self-winding", "self winding"},
	"quartz":    {"quartz", "battery"},
	"manual":    {"manual wind", "hand wind", "mechanical"},
}

var WatchBandMaterials = []string{"leather", "rubber", "silicone", "nylon", "nato"}
