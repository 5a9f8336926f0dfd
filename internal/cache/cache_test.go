package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riguy5000/ebay-hunter-worker/internal/store"
)

// fakeStore is a minimal in-memory store.Store covering only what the cache
// package touches; every other method panics so an accidental new dependency
// surfaces immediately in a test failure rather than silently no-op-ing.
type fakeStore struct {
	store.Store
	items      map[string]store.ItemCacheEntry
	rejections []store.RejectionRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: map[string]store.ItemCacheEntry{}}
}

func (f *fakeStore) GetCachedItem(ctx context.Context, ebayItemID string) (store.ItemCacheEntry, bool, error) {
	e, ok := f.items[ebayItemID]
	if !ok || time.Now().After(e.ExpiresAt) {
		return store.ItemCacheEntry{}, false, nil
	}
	return e, true, nil
}

func (f *fakeStore) PutCachedItem(ctx context.Context, e store.ItemCacheEntry) error {
	f.items[e.EbayItemID] = e
	return nil
}

func (f *fakeStore) UpsertRejection(ctx context.Context, r store.RejectionRecord) error {
	f.rejections = append(f.rejections, r)
	return nil
}

func TestCache_MissThenHitAfterPut(t *testing.T) {
	fs := newFakeStore()
	c := New(fs)
	c.ResetStats("task-1")

	_, ok, err := c.GetItem(context.Background(), "task-1", "item-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.PutItem(context.Background(), store.ItemCacheEntry{EbayItemID: "item-1", Title: "14k gold ring"}))

	entry, ok, err := c.GetItem(context.Background(), "task-1", "item-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "14k gold ring", entry.Title)

	stats := c.StatsFor("task-1")
	assert.Equal(t, 1, stats.Hits)
	assert.Equal(t, 1, stats.Misses)
}

func TestCache_ExpiredRowTreatedAsMiss(t *testing.T) {
	fs := newFakeStore()
	fs.items["item-1"] = store.ItemCacheEntry{
		EbayItemID: "item-1",
		ExpiresAt:  time.Now().Add(-time.Minute),
	}
	c := New(fs)

	_, ok, err := c.GetItem(context.Background(), "task-1", "item-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_PutItemSetsTTL(t *testing.T) {
	fs := newFakeStore()
	c := New(fs)

	require.NoError(t, c.PutItem(context.Background(), store.ItemCacheEntry{EbayItemID: "item-1"}))

	got := fs.items["item-1"]
	assert.WithinDuration(t, got.FetchedAt.Add(itemDetailTTL), got.ExpiresAt, time.Second)
}

func TestCache_RejectUpsertsWithTTL(t *testing.T) {
	fs := newFakeStore()
	c := New(fs)

	require.NoError(t, c.Reject(context.Background(), "task-1", "listing-1", "costume jewelry"))

	require.Len(t, fs.rejections, 1)
	r := fs.rejections[0]
	assert.Equal(t, "listing-1", r.EbayListingID)
	assert.WithinDuration(t, r.RejectedAt.Add(rejectionTTL), r.ExpiresAt, time.Second)
}

func TestCache_ResetStatsClearsPriorRun(t *testing.T) {
	fs := newFakeStore()
	c := New(fs)
	c.record("task-1", true)
	c.record("task-1", false)

	c.ResetStats("task-1")

	assert.Equal(t, Stats{}, c.StatsFor("task-1"))
}
