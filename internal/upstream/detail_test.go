package upstream

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riguy5000/ebay-hunter-worker/internal/cache"
	"github.com/riguy5000/ebay-hunter-worker/internal/creds"
	"github.com/riguy5000/ebay-hunter-worker/internal/ratelimit"
	"github.com/riguy5000/ebay-hunter-worker/internal/store"
	"github.com/riguy5000/ebay-hunter-worker/internal/tokencache"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testDiscard{}, nil))
}

type testDiscard struct{}

func (testDiscard) Write(p []byte) (int, error) { return len(p), nil }

// fakeStore is a minimal in-memory store.Store: enough for the credential
// pool, token/usage bookkeeping, and the item cache, nothing else.
type fakeStore struct {
	store.Store
	keys  store.KeySettings
	items map[string]store.ItemCacheEntry
}

func newFakeStore(appID string) *fakeStore {
	return &fakeStore{
		keys:  store.KeySettings{Keys: []store.Credential{{AppID: appID, CertID: "secret", Status: store.CredentialOK}}},
		items: map[string]store.ItemCacheEntry{},
	}
}

func (f *fakeStore) GetKeySettings(ctx context.Context) (store.KeySettings, error) { return f.keys, nil }
func (f *fakeStore) PutKeySettings(ctx context.Context, s store.KeySettings) error  { f.keys = s; return nil }
func (f *fakeStore) LogAPIUsage(ctx context.Context, rec store.APIUsageRecord) error { return nil }
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

// newTestClient wires a Client whose OAuth and API calls both hit apiSrv,
// with a permissive pool/governor so tests exercise only the detail-fetch
// logic under test.
func newTestClient(t *testing.T, apiSrv *httptest.Server) (*Client, *fakeStore) {
	t.Helper()
	fs := newFakeStore("app-1")
	pool := creds.NewPool(fs, discardLogger(), fs.keys.Keys)
	gov := ratelimit.NewGovernor(1_000_000, time.Millisecond)
	cfg := Config{
		APIBaseURL:     apiSrv.URL,
		OAuthURL:       apiSrv.URL + "/oauth",
		SearchDeadline: 5 * time.Second,
		BulkDeadline:   5 * time.Second,
		TokenDeadline:  5 * time.Second,
	}
	cl := New(cfg, pool, tokencache.New(), gov, fs, discardLogger())
	return cl, fs
}

func oauthHandler(w http.ResponseWriter, r *http.Request) {
	_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok-1", "expires_in": 3600})
}

func TestFetchOne_CacheHitSkipsUpstream(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth" {
			oauthHandler(w, r)
			return
		}
		calls++
		t.Fatalf("unexpected upstream call: %s", r.URL.Path)
	}))
	defer srv.Close()

	cl, fs := newTestClient(t, srv)
	ch := cache.New(fs)
	fs.items["item-1"] = store.ItemCacheEntry{EbayItemID: "item-1", Title: "cached ring", ExpiresAt: time.Now().Add(time.Hour)}

	detail, err := cl.FetchOne(context.Background(), ch, "task-1", "item-1")
	require.NoError(t, err)
	assert.True(t, detail.FromCache)
	assert.Equal(t, "cached ring", detail.Title)
	assert.Equal(t, 0, calls)
}

func TestFetchOne_MissFetchesAndWritesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth" {
			oauthHandler(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(itemResponse{ItemID: "item-2", Title: "14k band"})
	}))
	defer srv.Close()

	cl, fs := newTestClient(t, srv)
	ch := cache.New(fs)

	detail, err := cl.FetchOne(context.Background(), ch, "task-1", "item-2")
	require.NoError(t, err)
	assert.False(t, detail.FromCache)
	assert.Equal(t, "14k band", detail.Title)

	cached, ok := fs.items["item-2"]
	require.True(t, ok)
	assert.Equal(t, "14k band", cached.Title)
}

func TestFetchMany_SplitsAndBatchesUncached(t *testing.T) {
	var gotIDs []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth" {
			oauthHandler(w, r)
			return
		}
		gotIDs = strings.Split(r.URL.Query().Get("item_ids"), ",")
		_ = json.NewEncoder(w).Encode(bulkResponse{Items: []itemResponse{
			{ItemID: "item-b", Title: "uncached watch"},
		}})
	}))
	defer srv.Close()

	cl, fs := newTestClient(t, srv)
	ch := cache.New(fs)
	fs.items["item-a"] = store.ItemCacheEntry{EbayItemID: "item-a", Title: "cached gem", ExpiresAt: time.Now().Add(time.Hour)}

	out, err := cl.FetchMany(context.Background(), ch, "task-1", []string{"item-a", "item-b"})
	require.NoError(t, err)
	require.Contains(t, out, "item-a")
	require.Contains(t, out, "item-b")
	assert.True(t, out["item-a"].FromCache)
	assert.False(t, out["item-b"].FromCache)
	assert.Equal(t, []string{"item-b"}, gotIDs)

	_, ok := fs.items["item-b"]
	assert.True(t, ok, "bulk result should be written back through the cache")
}

func TestFetchMany_BulkForbiddenFallsBackPerItem(t *testing.T) {
	perItemHits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/oauth":
			oauthHandler(w, r)
		case strings.Contains(r.URL.Path, "/item/"):
			perItemHits++
			id := strings.TrimPrefix(r.URL.Path, "/buy/browse/v1/item/")
			_ = json.NewEncoder(w).Encode(itemResponse{ItemID: id, Title: "fallback " + id})
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer srv.Close()

	cl, fs := newTestClient(t, srv)
	ch := cache.New(fs)

	out, err := cl.FetchMany(context.Background(), ch, "task-1", []string{"item-x", "item-y"})
	require.NoError(t, err)
	assert.Equal(t, 2, perItemHits)
	assert.Equal(t, "fallback item-x", out["item-x"].Title)
	assert.Equal(t, "fallback item-y", out["item-y"].Title)
}

func TestFetchMany_RateLimitStopsRemainingBatches(t *testing.T) {
	ids := make([]string, 0, 25)
	for i := 0; i < 25; i++ {
		ids = append(ids, "item-"+string(rune('a'+i)))
	}

	batchCalls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth" {
			oauthHandler(w, r)
			return
		}
		batchCalls++
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	cl, fs := newTestClient(t, srv)
	ch := cache.New(fs)

	_, err := cl.FetchMany(context.Background(), ch, "task-1", ids)
	require.Error(t, err)
	var rl *RateLimitError
	require.ErrorAs(t, err, &rl)
	assert.Equal(t, 1, batchCalls, "second batch must not be issued after the first 429")
}
