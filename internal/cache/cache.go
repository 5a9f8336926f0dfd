// Package cache implements the item-detail and rejection caches (C6):
// TTL-backed lookups in the backing store that let the pipeline skip
// re-fetching and re-evaluating known items. Cleanup is periodic (scheduler
// maintenance tick), not required for correctness — expired rows are also
// ignored by the backing store's expires_at > now() read predicate.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/riguy5000/ebay-hunter-worker/internal/store"
)

const (
	itemDetailTTL = 24 * time.Hour
	rejectionTTL  = 48 * time.Hour
)

// Cache wraps the backing store's item-detail and rejection collections in
// their stored row shape (translation to and from upstream.ItemDetail is done
// by the caller), and tracks per-task hit/miss counters for observability.
type Cache struct {
	st store.Store

	mu    sync.Mutex
	stats map[string]*Stats // keyed by task ID
}

// Stats is the cache-hit/miss tally for one task's current run.
type Stats struct {
	Hits   int
	Misses int
}

// New builds a Cache over the given backing store.
func New(st store.Store) *Cache {
	return &Cache{st: st, stats: make(map[string]*Stats)}
}

// ResetStats clears the hit/miss counters for a task at the start of its
// run (spec §4.5 Phase 1 step 1: "reset per-task cache-stat counters").
func (c *Cache) ResetStats(taskID string) {
	c.mu.Lock()
	c.stats[taskID] = &Stats{}
	c.mu.Unlock()
}

// StatsFor returns a copy of the current hit/miss tally for a task.
func (c *Cache) StatsFor(taskID string) Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.stats[taskID]; ok {
		return *s
	}
	return Stats{}
}

func (c *Cache) record(taskID string, hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stats[taskID]
	if !ok {
		s = &Stats{}
		c.stats[taskID] = s
	}
	if hit {
		s.Hits++
	} else {
		s.Misses++
	}
}

// GetItem returns the cached row for ebayItemID iff a non-expired entry
// exists. Translation to the upstream wire shape is the caller's job
// (internal/upstream imports this package, not the other way around).
func (c *Cache) GetItem(ctx context.Context, taskID, ebayItemID string) (store.ItemCacheEntry, bool, error) {
	entry, ok, err := c.st.GetCachedItem(ctx, ebayItemID)
	if err != nil {
		return store.ItemCacheEntry{}, false, err
	}
	c.record(taskID, ok)
	return entry, ok, nil
}

// PutItem upserts a detail row with a 24h TTL.
func (c *Cache) PutItem(ctx context.Context, entry store.ItemCacheEntry) error {
	now := time.Now()
	entry.FetchedAt = now
	entry.ExpiresAt = now.Add(itemDetailTTL)
	return c.st.PutCachedItem(ctx, entry)
}

// Reject upserts a rejection record with a 48h TTL.
func (c *Cache) Reject(ctx context.Context, taskID, ebayListingID, reason string) error {
	now := time.Now()
	return c.st.UpsertRejection(ctx, store.RejectionRecord{
		TaskID:          taskID,
		EbayListingID:   ebayListingID,
		RejectionReason: reason,
		RejectedAt:      now,
		ExpiresAt:       now.Add(rejectionTTL),
	})
}

// ItemDetailTTL and RejectionTTL expose the constants for tests and the
// scheduler's maintenance-tick documentation.
func ItemDetailTTL() time.Duration { return itemDetailTTL }
func RejectionTTL() time.Duration  { return rejectionTTL }
