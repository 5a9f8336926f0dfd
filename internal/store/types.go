// Package store is the backing-store gateway (C1): typed read/write
// operations over the logical collections the worker needs. The concrete
// implementation talks to a PostgREST-fronted Postgres instance (Supabase),
// but nothing outside this package knows that.
package store

import (
	"errors"
	"time"
)

// CredentialStatus is the lifecycle state of an upstream API credential.
type CredentialStatus string

const (
	CredentialOK          CredentialStatus = "ok"
	CredentialRateLimited CredentialStatus = "rate_limited"
	CredentialError       CredentialStatus = "error"
)

// Credential is one set of upstream API keys, unique by AppID.
type Credential struct {
	AppID          string           `json:"app_id"`
	DevID          string           `json:"dev_id"`
	CertID         string           `json:"cert_id"`
	Label          string           `json:"label"`
	Status         CredentialStatus `json:"status"`
	CallsToday     int              `json:"calls_today"`
	CallsResetDate time.Time        `json:"calls_reset_date"`
}

// KeySettings is the decoded value_json of the "ebay_keys" settings row.
type KeySettings struct {
	Keys []Credential `json:"keys"`
	// RotationStrategy is surfaced by the UI but decorative here: the worker
	// always rotates round-robin regardless of its value (see DESIGN.md).
	RotationStrategy string `json:"rotation_strategy"`
}

// TaskStatus is the lifecycle state of a search task.
type TaskStatus string

const (
	TaskActive  TaskStatus = "active"
	TaskPaused  TaskStatus = "paused"
	TaskStopped TaskStatus = "stopped"
)

// ItemType selects which kind-specific filter set and match table a task uses.
type ItemType string

const (
	ItemJewelry  ItemType = "jewelry"
	ItemWatch    ItemType = "watch"
	ItemGemstone ItemType = "gemstone"
)

// JewelryFilters is the jewelry-specific sub-record of a task.
type JewelryFilters struct {
	Metals        []string `json:"metals"`
	Purities      []string `json:"purities"`
	Brands        []string `json:"brands"`
	Colors        []string `json:"colors"`
	Eras          []string `json:"eras"`
	SettingStyles []string `json:"setting_styles"`
	Features      []string `json:"features"`
	WeightMinG    *float64 `json:"weight_min_g"`
	WeightMaxG    *float64 `json:"weight_max_g"`
}

// WatchFilters is the watch-specific sub-record of a task.
type WatchFilters struct {
	Brands        []string `json:"brands"`
	Models        []string `json:"models"`
	CaseMaterials []string `json:"case_materials"`
	YearMin       *int     `json:"year_min"`
	YearMax       *int     `json:"year_max"`
}

// GemstoneFilters is the gemstone-specific sub-record of a task.
type GemstoneFilters struct {
	StoneTypes      []string `json:"stone_types"`
	Shapes          []string `json:"shapes"`
	CaratMin        *float64 `json:"carat_min"`
	CaratMax        *float64 `json:"carat_max"`
	Colors          []string `json:"colors"`
	Clarities       []string `json:"clarities"`
	Certifications  []string `json:"certifications"`
	Treatments      []string `json:"treatments"`
	NaturalOnly     bool     `json:"natural_only"`
	IncludeJewelry  bool     `json:"include_jewelry"`
	MinDealScore    int      `json:"min_deal_score"`
	MaxRiskScore    int      `json:"max_risk_score"`
}

// FilterKind discriminates which of Task.Jewelry/Watch/Gemstone is populated.
type FilterKind int

const (
	FilterJewelry FilterKind = iota
	FilterWatch
	FilterGemstone
)

// ErrMalformedTaskFilters is returned by Task.Validate when the kind-specific
// filter invariant (exactly one of Jewelry/Watch/Gemstone populated, matching
// ItemType) doesn't hold.
var ErrMalformedTaskFilters = errors.New("store: task has zero or more than one populated filter set")

// Task is a user-defined search task.
type Task struct {
	ID                string
	UserID            string
	Name              string
	Status            TaskStatus
	ItemType          ItemType
	PollIntervalS     int
	LastRun           time.Time
	MinPrice          float64
	MaxPrice          float64
	ExcludeKeywords   []string
	MaxDetailFetches  int // 0 = unlimited

	Jewelry  *JewelryFilters
	Watch    *WatchFilters
	Gemstone *GemstoneFilters
}

// Validate enforces the "exactly one *_filters populated, matching ItemType"
// invariant from the data model.
func (t *Task) Validate() error {
	n := 0
	if t.Jewelry != nil {
		n++
	}
	if t.Watch != nil {
		n++
	}
	if t.Gemstone != nil {
		n++
	}
	if n != 1 {
		return ErrMalformedTaskFilters
	}
	switch t.ItemType {
	case ItemJewelry:
		if t.Jewelry == nil {
			return ErrMalformedTaskFilters
		}
	case ItemWatch:
		if t.Watch == nil {
			return ErrMalformedTaskFilters
		}
	case ItemGemstone:
		if t.Gemstone == nil {
			return ErrMalformedTaskFilters
		}
	default:
		return ErrMalformedTaskFilters
	}
	if t.PollIntervalS <= 0 {
		t.PollIntervalS = 60
	}
	return nil
}

// MatchStatus is the review lifecycle of a persisted match.
type MatchStatus string

const (
	MatchNew       MatchStatus = "new"
	MatchReviewed  MatchStatus = "reviewed"
	MatchOffered   MatchStatus = "offered"
	MatchPurchased MatchStatus = "purchased"
	MatchPassed    MatchStatus = "passed"
)

// MatchCommon holds the fields every kind-specific match table shares.
type MatchCommon struct {
	TaskID         string
	UserID         string
	EbayListingID  string
	EbayTitle      string
	EbayURL        string
	ListedPrice    float64
	ShippingCost   float64
	Currency       string
	BuyFormat      string
	SellerFeedback int
	FoundAt        time.Time
	Status         MatchStatus
}

// JewelryMatch is a persisted matches_jewelry row.
type JewelryMatch struct {
	MatchCommon
	MetalType    string
	Karat        int
	WeightG      float64
	MeltValue    float64
	ProfitScrap  float64
}

// WatchMatch is a persisted matches_watch row.
type WatchMatch struct {
	MatchCommon
	CaseMaterial     string
	BandMaterial     string
	Movement         string
	DialColour       string
	YearManufactured int
	Brand            string
	Model            string
}

// GemstoneMatch is a persisted matches_gemstone row.
type GemstoneMatch struct {
	MatchCommon
	StoneType      string
	Shape          string
	Carat          float64
	Colour         string
	Clarity        string
	CutGrade       string
	CertLab        string
	Treatment      string
	IsNatural      bool
	Classification string
	DealScore      int
	RiskScore      int
	AIScore        float64
	AIReasoning    string
}

// RejectionRecord stops the pipeline from re-paying detail-fetch cost for a
// listing that already failed a task's filters once.
type RejectionRecord struct {
	TaskID           string
	EbayListingID    string
	RejectionReason  string
	RejectedAt       time.Time
	ExpiresAt        time.Time
}

// ItemCacheEntry is a cached detail-fetch result.
type ItemCacheEntry struct {
	EbayItemID     string
	ItemSpecifics  []ItemSpecific
	Title          string
	Description    string
	FetchedAt      time.Time
	ExpiresAt      time.Time
}

// ItemSpecific is a single name/value pair from an upstream detail document.
type ItemSpecific struct {
	Name  string
	Value string
}

// MetalPriceSnapshot is a per-metal, per-karat/purity price row.
type MetalPriceSnapshot struct {
	Metal        string
	PricePerGram map[string]float64 // key: karat ("14k") or purity ("925")
	AsOf         time.Time
}

// APIUsageRecord is one append-only row in api_usage.
type APIUsageRecord struct {
	CredentialAppID string
	Endpoint        string
	StatusCode      int
	CalledAt        time.Time
}
