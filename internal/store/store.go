package store

import "context"

// Store is the full backing-store contract the worker consumes. It is
// deliberately small and collection-shaped: every method maps to one of the
// logical collections the worker persists (settings, tasks, matches_*,
// rejected_items, item_cache, metal_prices, api_usage). Grounded on the
// repository-interface pattern used across the example corpus (one
// interface per storage concern, context-first methods, domain types in and
// out — never raw rows).
type Store interface {
	// Settings (credentials live here as a JSON blob under the "ebay_keys"
	// key; any other opaque settings key round-trips as raw JSON).
	GetKeySettings(ctx context.Context) (KeySettings, error)
	PutKeySettings(ctx context.Context, s KeySettings) error
	GetSettingRaw(ctx context.Context, key string) (map[string]any, error)

	// Tasks.
	ListActiveTasks(ctx context.Context) ([]Task, error)
	TouchTaskLastRun(ctx context.Context, taskID string) error

	// Dedup lookups.
	ListMatchedListingIDs(ctx context.Context, taskID string, kind ItemType) (map[string]struct{}, error)
	ListActiveRejectedListingIDs(ctx context.Context, taskID string) (map[string]struct{}, error)

	// Inserts. Returns ErrDuplicateMatch on a unique-constraint violation on
	// (task_id, ebay_listing_id) — callers swallow this (§7 class 6).
	InsertJewelryMatch(ctx context.Context, m JewelryMatch) error
	InsertWatchMatch(ctx context.Context, m WatchMatch) error
	InsertGemstoneMatch(ctx context.Context, m GemstoneMatch) error
	UpsertRejection(ctx context.Context, r RejectionRecord) error

	// Item-detail cache.
	GetCachedItem(ctx context.Context, ebayItemID string) (ItemCacheEntry, bool, error)
	PutCachedItem(ctx context.Context, e ItemCacheEntry) error

	// Metal prices (read-only).
	GetMetalPrice(ctx context.Context, metal string) (MetalPriceSnapshot, error)

	// Observability.
	LogAPIUsage(ctx context.Context, rec APIUsageRecord) error

	// Maintenance.
	DeleteExpiredCacheRows(ctx context.Context) (itemsDeleted, rejectionsDeleted int64, err error)
}

// ErrDuplicateMatch signals a unique-constraint violation on match insert —
// the expected dedup path when the pre-fetched skip-set lagged behind a
// concurrent writer. Implementations map their driver's unique-violation
// code (Postgres 23505) onto this sentinel.
var ErrDuplicateMatch = dupErr{}

type dupErr struct{}

func (dupErr) Error() string { return "store: duplicate match (task_id, ebay_listing_id)" }
