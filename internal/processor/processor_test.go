package processor

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/riguy5000/ebay-hunter-worker/internal/cache"
	"github.com/riguy5000/ebay-hunter-worker/internal/creds"
	"github.com/riguy5000/ebay-hunter-worker/internal/metrics"
	"github.com/riguy5000/ebay-hunter-worker/internal/notify"
	"github.com/riguy5000/ebay-hunter-worker/internal/ratelimit"
	"github.com/riguy5000/ebay-hunter-worker/internal/store"
	"github.com/riguy5000/ebay-hunter-worker/internal/tokencache"
	"github.com/riguy5000/ebay-hunter-worker/internal/upstream"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testDiscard{}, nil))
}

type testDiscard struct{}

func (testDiscard) Write(p []byte) (int, error) { return len(p), nil }

type fakeStore struct {
	store.Store
	keys          store.KeySettings
	items         map[string]store.ItemCacheEntry
	rejections    map[string]store.RejectionRecord
	jewelryMatches []store.JewelryMatch
	metalPrices   map[string]store.MetalPriceSnapshot
	lastRunTouched string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		keys:        store.KeySettings{Keys: []store.Credential{{AppID: "app-1", CertID: "secret", Status: store.CredentialOK}}},
		items:       map[string]store.ItemCacheEntry{},
		rejections:  map[string]store.RejectionRecord{},
		metalPrices: map[string]store.MetalPriceSnapshot{},
	}
}

func (f *fakeStore) GetKeySettings(ctx context.Context) (store.KeySettings, error) { return f.keys, nil }
func (f *fakeStore) PutKeySettings(ctx context.Context, s store.KeySettings) error  { f.keys = s; return nil }
func (f *fakeStore) LogAPIUsage(ctx context.Context, rec store.APIUsageRecord) error { return nil }
func (f *fakeStore) GetCachedItem(ctx context.Context, id string) (store.ItemCacheEntry, bool, error) {
	e, ok := f.items[id]
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
	f.rejections[r.EbayListingID] = r
	return nil
}
func (f *fakeStore) ListMatchedListingIDs(ctx context.Context, taskID string, kind store.ItemType) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}
func (f *fakeStore) ListActiveRejectedListingIDs(ctx context.Context, taskID string) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}
func (f *fakeStore) InsertJewelryMatch(ctx context.Context, m store.JewelryMatch) error {
	f.jewelryMatches = append(f.jewelryMatches, m)
	return nil
}
func (f *fakeStore) TouchTaskLastRun(ctx context.Context, taskID string) error {
	f.lastRunTouched = taskID
	return nil
}
func (f *fakeStore) GetMetalPrice(ctx context.Context, metal string) (store.MetalPriceSnapshot, error) {
	return f.metalPrices[metal], nil
}

func jewelryTask() store.Task {
	return store.Task{
		ID: "task-1", UserID: "user-1", Status: store.TaskActive, ItemType: store.ItemJewelry,
		MaxPrice: 500,
		Jewelry:  &store.JewelryFilters{Metals: []string{"gold"}, WeightMinG: ptr(5)},
	}
}

func ptr(f float64) *float64 { return &f }

func newTestProcessor(t *testing.T, fs *fakeStore, searchResp, detailResp string) *Processor {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/oauth":
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
		case r.URL.Path == "/buy/browse/v1/item_summary/search":
			_, _ = w.Write([]byte(searchResp))
		default:
			_, _ = w.Write([]byte(detailResp))
		}
	}))
	t.Cleanup(srv.Close)

	pool := creds.NewPool(fs, discardLogger(), fs.keys.Keys)
	gov := ratelimit.NewGovernor(1_000_000, time.Millisecond)
	cfg := upstream.Config{APIBaseURL: srv.URL, OAuthURL: srv.URL + "/oauth", SearchDeadline: 5 * time.Second, BulkDeadline: 5 * time.Second, TokenDeadline: 5 * time.Second}
	client := upstream.New(cfg, pool, tokencache.New(), gov, fs, discardLogger())
	ch := cache.New(fs)
	notifier := notify.New("", discardLogger())
	return New(fs, client, ch, notifier, discardLogger(), false, metrics.New("test_processor"))
}

func TestProcessor_JewelryHappyPath(t *testing.T) {
	fs := newFakeStore()
	fs.metalPrices["gold"] = store.MetalPriceSnapshot{PricePerGram: map[string]float64{"14k": 40}}

	searchResp := `{"itemSummaries":[{"itemId":"item-1","title":"14K Yellow Gold Chain 10g","price":{"value":"150","currency":"USD"},"shippingOptions":[{"shippingCost":{"value":"10","currency":"USD"}}],"categoryIds":["10968"]}]}`
	detailResp := `{"items":[{"itemId":"item-1","title":"14K Yellow Gold Chain 10g","localizedAspects":[{"name":"Metal Purity","value":"14k"},{"name":"Total Weight","value":"10g"}]}]}`

	p := newTestProcessor(t, fs, searchResp, detailResp)
	if err := p.Run(context.Background(), jewelryTask()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(fs.jewelryMatches) != 1 {
		t.Fatalf("expected 1 jewelry match, got %d", len(fs.jewelryMatches))
	}
	m := fs.jewelryMatches[0]
	if m.Karat != 14 || m.WeightG != 10 || m.MeltValue != 400 || m.ProfitScrap != 240 {
		t.Fatalf("unexpected match: %+v", m)
	}
	if len(fs.rejections) != 0 {
		t.Fatalf("expected no rejection rows, got %d", len(fs.rejections))
	}
	if fs.lastRunTouched != "task-1" {
		t.Fatal("expected task last_run to be touched")
	}
}

func TestProcessor_HasStoneRejection(t *testing.T) {
	fs := newFakeStore()
	fs.metalPrices["gold"] = store.MetalPriceSnapshot{PricePerGram: map[string]float64{"14k": 40}}

	searchResp := `{"itemSummaries":[{"itemId":"item-2","title":"14K Yellow Gold Ring 5g","price":{"value":"150","currency":"USD"},"categoryIds":["10968"]}]}`
	detailResp := `{"items":[{"itemId":"item-2","title":"14K Yellow Gold Ring 5g","localizedAspects":[{"name":"Metal Purity","value":"14k"},{"name":"Main Stone","value":"Diamond"},{"name":"Total Weight","value":"5g"}]}]}`

	p := newTestProcessor(t, fs, searchResp, detailResp)
	if err := p.Run(context.Background(), jewelryTask()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(fs.jewelryMatches) != 0 {
		t.Fatalf("expected no jewelry match, got %d", len(fs.jewelryMatches))
	}
	r, ok := fs.rejections["item-2"]
	if !ok {
		t.Fatal("expected a rejection row for item-2")
	}
	if got, want := r.RejectionReason[:len("Has stone in specs")], "Has stone in specs"; got != want {
		t.Fatalf("rejection reason = %q, want prefix %q", r.RejectionReason, want)
	}
}

func TestProcessor_CostumeExclusionSkipsBeforeDetailFetch(t *testing.T) {
	fs := newFakeStore()
	detailFetched := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/oauth":
			_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "tok", "expires_in": 3600})
		case r.URL.Path == "/buy/browse/v1/item_summary/search":
			_, _ = w.Write([]byte(`{"itemSummaries":[{"itemId":"item-3","title":"Gold Tone Snap Jewelry Rhinestone Set","price":{"value":"20","currency":"USD"},"categoryIds":["10968"]}]}`))
		default:
			detailFetched = true
		}
	}))
	defer srv.Close()

	pool := creds.NewPool(fs, discardLogger(), fs.keys.Keys)
	gov := ratelimit.NewGovernor(1_000_000, time.Millisecond)
	cfg := upstream.Config{APIBaseURL: srv.URL, OAuthURL: srv.URL + "/oauth", SearchDeadline: 5 * time.Second, BulkDeadline: 5 * time.Second, TokenDeadline: 5 * time.Second}
	client := upstream.New(cfg, pool, tokencache.New(), gov, fs, discardLogger())
	ch := cache.New(fs)
	p := New(fs, client, ch, notify.New("", discardLogger()), discardLogger(), false, metrics.New("test_processor_costume"))

	if err := p.Run(context.Background(), jewelryTask()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if detailFetched {
		t.Fatal("expected exclusion-keyword skip before any detail fetch")
	}
	if len(fs.jewelryMatches) != 0 {
		t.Fatal("expected no match for excluded listing")
	}
	if len(fs.rejections) != 0 {
		t.Fatal("exclusion is a skip, not a rejection — expected no rejection row")
	}
}
