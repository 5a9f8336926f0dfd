package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// SupabaseStore implements Store over a PostgREST-fronted Postgres instance
// (what Supabase exposes at SUPABASE_URL with the service-role key). Every
// logical collection in the contract is a PostgREST resource; uniqueness
// constraints on the underlying tables are what let InsertJewelryMatch et al.
// report ErrDuplicateMatch instead of silently overwriting.
type SupabaseStore struct {
	baseURL    string
	serviceKey string
	httpClient *retryablehttp.Client
	log        *slog.Logger
}

// NewSupabaseStore builds a Store backed by a PostgREST endpoint. The
// retryablehttp client uses the library's default policy: it retries
// connection errors, 429 and 5xx (other than 501) with backoff, and no other
// 4xx — those are business outcomes (duplicate key, not found) that callers
// must see immediately.
func NewSupabaseStore(baseURL, serviceKey string, log *slog.Logger) *SupabaseStore {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil // we log ourselves with structured fields below
	rc.CheckRetry = retryablehttp.DefaultRetryPolicy
	return &SupabaseStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: rc,
		log:        log,
	}
}

func (s *SupabaseStore) restURL(resource string, query url.Values) string {
	u := fmt.Sprintf("%s/rest/v1/%s", s.baseURL, resource)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (s *SupabaseStore) do(ctx context.Context, method, rawURL string, prefer string, body any) ([]byte, int, error) {
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("store: marshal request: %w", err)
		}
		buf = bytes.NewReader(b)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, rawURL, buf)
	if err != nil {
		return nil, 0, fmt.Errorf("store: build request: %w", err)
	}
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("store: request failed: %w", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("store: read response: %w", err)
	}
	return data, resp.StatusCode, nil
}

func isDuplicateKeyViolation(status int, body []byte) bool {
	if status != http.StatusConflict {
		return false
	}
	return bytes.Contains(body, []byte("23505"))
}

// --- settings ---

type settingsRow struct {
	Key       string          `json:"key"`
	ValueJSON json.RawMessage `json:"value_json"`
}

func (s *SupabaseStore) GetKeySettings(ctx context.Context) (KeySettings, error) {
	q := url.Values{"key": {"eq.ebay_keys"}, "select": {"value_json"}}
	data, status, err := s.do(ctx, http.MethodGet, s.restURL("settings", q), "", nil)
	if err != nil {
		return KeySettings{}, err
	}
	if status != http.StatusOK {
		return KeySettings{}, fmt.Errorf("store: get ebay_keys settings: status %d: %s", status, data)
	}
	var rows []settingsRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return KeySettings{}, fmt.Errorf("store: decode settings: %w", err)
	}
	if len(rows) == 0 {
		return KeySettings{}, fmt.Errorf("store: no ebay_keys settings row")
	}
	var ks KeySettings
	if err := json.Unmarshal(rows[0].ValueJSON, &ks); err != nil {
		return KeySettings{}, fmt.Errorf("store: decode ebay_keys value_json: %w", err)
	}
	return ks, nil
}

func (s *SupabaseStore) PutKeySettings(ctx context.Context, ks KeySettings) error {
	raw, err := json.Marshal(ks)
	if err != nil {
		return fmt.Errorf("store: marshal ebay_keys: %w", err)
	}
	row := settingsRow{Key: "ebay_keys", ValueJSON: raw}
	q := url.Values{"on_conflict": {"key"}}
	data, status, err := s.do(ctx, http.MethodPost, s.restURL("settings", q),
		"resolution=merge-duplicates,return=minimal", []settingsRow{row})
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("store: put ebay_keys settings: status %d: %s", status, data)
	}
	return nil
}

func (s *SupabaseStore) GetSettingRaw(ctx context.Context, key string) (map[string]any, error) {
	q := url.Values{"key": {"eq." + key}, "select": {"value_json"}}
	data, status, err := s.do(ctx, http.MethodGet, s.restURL("settings", q), "", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("store: get setting %q: status %d: %s", key, status, data)
	}
	var rows []settingsRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("store: decode setting %q: %w", key, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	var out map[string]any
	if err := json.Unmarshal(rows[0].ValueJSON, &out); err != nil {
		return nil, fmt.Errorf("store: decode setting %q value_json: %w", key, err)
	}
	return out, nil
}

// --- tasks ---

type taskRow struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	Name             string          `json:"name"`
	Status           string          `json:"status"`
	ItemType         string          `json:"item_type"`
	PollIntervalS    int             `json:"poll_interval_s"`
	LastRun          *time.Time      `json:"last_run"`
	MinPrice         float64         `json:"min_price"`
	MaxPrice         float64         `json:"max_price"`
	ExcludeKeywords  []string        `json:"exclude_keywords"`
	MaxDetailFetches int             `json:"max_detail_fetches"`
	JewelryFilters   json.RawMessage `json:"jewelry_filters"`
	WatchFilters     json.RawMessage `json:"watch_filters"`
	GemstoneFilters  json.RawMessage `json:"gemstone_filters"`
}

func (r taskRow) toTask() (Task, error) {
	t := Task{
		ID:               r.ID,
		UserID:           r.UserID,
		Name:             r.Name,
		Status:           TaskStatus(r.Status),
		ItemType:         ItemType(r.ItemType),
		PollIntervalS:    r.PollIntervalS,
		MinPrice:         r.MinPrice,
		MaxPrice:         r.MaxPrice,
		ExcludeKeywords:  r.ExcludeKeywords,
		MaxDetailFetches: r.MaxDetailFetches,
	}
	if r.LastRun != nil {
		t.LastRun = *r.LastRun
	}
	if len(r.JewelryFilters) > 0 && string(r.JewelryFilters) != "null" {
		var f JewelryFilters
		if err := json.Unmarshal(r.JewelryFilters, &f); err != nil {
			return Task{}, fmt.Errorf("task %s: decode jewelry_filters: %w", r.ID, err)
		}
		t.Jewelry = &f
	}
	if len(r.WatchFilters) > 0 && string(r.WatchFilters) != "null" {
		var f WatchFilters
		if err := json.Unmarshal(r.WatchFilters, &f); err != nil {
			return Task{}, fmt.Errorf("task %s: decode watch_filters: %w", r.ID, err)
		}
		t.Watch = &f
	}
	if len(r.GemstoneFilters) > 0 && string(r.GemstoneFilters) != "null" {
		var f GemstoneFilters
		if err := json.Unmarshal(r.GemstoneFilters, &f); err != nil {
			return Task{}, fmt.Errorf("task %s: decode gemstone_filters: %w", r.ID, err)
		}
		t.Gemstone = &f
	}
	return t, nil
}

func (s *SupabaseStore) ListActiveTasks(ctx context.Context) ([]Task, error) {
	q := url.Values{"status": {"eq.active"}}
	data, status, err := s.do(ctx, http.MethodGet, s.restURL("tasks", q), "", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("store: list active tasks: status %d: %s", status, data)
	}
	var rows []taskRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("store: decode tasks: %w", err)
	}
	tasks := make([]Task, 0, len(rows))
	for _, r := range rows {
		t, err := r.toTask()
		if err != nil {
			s.log.Warn("skipping malformed task row", "task_id", r.ID, "error", err)
			continue
		}
		if verr := t.Validate(); verr != nil {
			s.log.Warn("skipping task failing filter invariant", "task_id", r.ID, "error", verr)
			continue
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (s *SupabaseStore) TouchTaskLastRun(ctx context.Context, taskID string) error {
	q := url.Values{"id": {"eq." + taskID}}
	body := map[string]any{"last_run": time.Now().UTC().Format(time.RFC3339)}
	data, status, err := s.do(ctx, http.MethodPatch, s.restURL("tasks", q), "return=minimal", body)
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("store: touch last_run for %s: status %d: %s", taskID, status, data)
	}
	return nil
}

// --- dedup lookups ---

func matchTableFor(kind ItemType) (string, error) {
	switch kind {
	case ItemJewelry:
		return "matches_jewelry", nil
	case ItemWatch:
		return "matches_watch", nil
	case ItemGemstone:
		return "matches_gemstone", nil
	default:
		return "", fmt.Errorf("store: unknown item type %q", kind)
	}
}

func (s *SupabaseStore) ListMatchedListingIDs(ctx context.Context, taskID string, kind ItemType) (map[string]struct{}, error) {
	table, err := matchTableFor(kind)
	if err != nil {
		return nil, err
	}
	q := url.Values{"task_id": {"eq." + taskID}, "select": {"ebay_listing_id"}}
	data, status, err := s.do(ctx, http.MethodGet, s.restURL(table, q), "", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("store: list matched ids for %s/%s: status %d: %s", table, taskID, status, data)
	}
	var rows []struct {
		EbayListingID string `json:"ebay_listing_id"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("store: decode matched ids: %w", err)
	}
	out := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		out[r.EbayListingID] = struct{}{}
	}
	return out, nil
}

func (s *SupabaseStore) ListActiveRejectedListingIDs(ctx context.Context, taskID string) (map[string]struct{}, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	q := url.Values{
		"task_id":    {"eq." + taskID},
		"expires_at": {"gt." + now},
		"select":     {"ebay_listing_id"},
	}
	data, status, err := s.do(ctx, http.MethodGet, s.restURL("rejected_items", q), "", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("store: list rejected ids for %s: status %d: %s", taskID, status, data)
	}
	var rows []struct {
		EbayListingID string `json:"ebay_listing_id"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("store: decode rejected ids: %w", err)
	}
	out := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		out[r.EbayListingID] = struct{}{}
	}
	return out, nil
}

// --- inserts ---

func (s *SupabaseStore) insertMatch(ctx context.Context, table string, row any) error {
	data, status, err := s.do(ctx, http.MethodPost, s.restURL(table, nil), "return=minimal", []any{row})
	if err != nil {
		return err
	}
	if isDuplicateKeyViolation(status, data) {
		return ErrDuplicateMatch
	}
	if status >= 300 {
		return fmt.Errorf("store: insert into %s: status %d: %s", table, status, data)
	}
	return nil
}

func (s *SupabaseStore) InsertJewelryMatch(ctx context.Context, m JewelryMatch) error {
	return s.insertMatch(ctx, "matches_jewelry", jewelryMatchRow(m))
}

func (s *SupabaseStore) InsertWatchMatch(ctx context.Context, m WatchMatch) error {
	return s.insertMatch(ctx, "matches_watch", watchMatchRow(m))
}

func (s *SupabaseStore) InsertGemstoneMatch(ctx context.Context, m GemstoneMatch) error {
	return s.insertMatch(ctx, "matches_gemstone", gemstoneMatchRow(m))
}

func jewelryMatchRow(m JewelryMatch) map[string]any {
	row := commonMatchRow(m.MatchCommon)
	row["metal_type"] = m.MetalType
	row["karat"] = m.Karat
	row["weight_g"] = m.WeightG
	row["melt_value"] = m.MeltValue
	row["profit_scrap"] = m.ProfitScrap
	return row
}

func watchMatchRow(m WatchMatch) map[string]any {
	row := commonMatchRow(m.MatchCommon)
	row["case_material"] = m.CaseMaterial
	row["band_material"] = m.BandMaterial
	row["movement"] = m.Movement
	row["dial_colour"] = m.DialColour
	row["year_manufactured"] = m.YearManufactured
	row["brand"] = m.Brand
	row["model"] = m.Model
	return row
}

func gemstoneMatchRow(m GemstoneMatch) map[string]any {
	row := commonMatchRow(m.MatchCommon)
	row["stone_type"] = m.StoneType
	row["shape"] = m.Shape
	row["carat"] = m.Carat
	row["colour"] = m.Colour
	row["clarity"] = m.Clarity
	row["cut_grade"] = m.CutGrade
	row["cert_lab"] = m.CertLab
	row["treatment"] = m.Treatment
	row["is_natural"] = m.IsNatural
	row["classification"] = m.Classification
	row["deal_score"] = m.DealScore
	row["risk_score"] = m.RiskScore
	row["ai_score"] = m.AIScore
	row["ai_reasoning"] = m.AIReasoning
	return row
}

func commonMatchRow(c MatchCommon) map[string]any {
	return map[string]any{
		"task_id":         c.TaskID,
		"user_id":         c.UserID,
		"ebay_listing_id": c.EbayListingID,
		"ebay_title":      c.EbayTitle,
		"ebay_url":        c.EbayURL,
		"listed_price":    c.ListedPrice,
		"shipping_cost":   c.ShippingCost,
		"currency":        c.Currency,
		"buy_format":      c.BuyFormat,
		"seller_feedback": c.SellerFeedback,
		"found_at":        c.FoundAt.UTC().Format(time.RFC3339),
		"status":          string(c.Status),
	}
}

func (s *SupabaseStore) UpsertRejection(ctx context.Context, r RejectionRecord) error {
	row := map[string]any{
		"task_id":          r.TaskID,
		"ebay_listing_id":  r.EbayListingID,
		"rejection_reason": r.RejectionReason,
		"rejected_at":      r.RejectedAt.UTC().Format(time.RFC3339),
		"expires_at":       r.ExpiresAt.UTC().Format(time.RFC3339),
	}
	q := url.Values{"on_conflict": {"task_id,ebay_listing_id"}}
	data, status, err := s.do(ctx, http.MethodPost, s.restURL("rejected_items", q),
		"resolution=merge-duplicates,return=minimal", []any{row})
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("store: upsert rejection: status %d: %s", status, data)
	}
	return nil
}

// --- item-detail cache ---

type itemCacheRow struct {
	EbayItemID    string          `json:"ebay_item_id"`
	ItemSpecifics json.RawMessage `json:"item_specifics"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	FetchedAt     time.Time       `json:"fetched_at"`
	ExpiresAt     time.Time       `json:"expires_at"`
}

func (s *SupabaseStore) GetCachedItem(ctx context.Context, ebayItemID string) (ItemCacheEntry, bool, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	q := url.Values{
		"ebay_item_id": {"eq." + ebayItemID},
		"expires_at":   {"gt." + now},
	}
	data, status, err := s.do(ctx, http.MethodGet, s.restURL("ebay_item_cache", q), "", nil)
	if err != nil {
		return ItemCacheEntry{}, false, err
	}
	if status != http.StatusOK {
		return ItemCacheEntry{}, false, fmt.Errorf("store: get cached item %s: status %d: %s", ebayItemID, status, data)
	}
	var rows []itemCacheRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return ItemCacheEntry{}, false, fmt.Errorf("store: decode cached item: %w", err)
	}
	if len(rows) == 0 {
		return ItemCacheEntry{}, false, nil
	}
	var specs []ItemSpecific
	_ = json.Unmarshal(rows[0].ItemSpecifics, &specs)
	return ItemCacheEntry{
		EbayItemID:    rows[0].EbayItemID,
		ItemSpecifics: specs,
		Title:         rows[0].Title,
		Description:   rows[0].Description,
		FetchedAt:     rows[0].FetchedAt,
		ExpiresAt:     rows[0].ExpiresAt,
	}, true, nil
}

func (s *SupabaseStore) PutCachedItem(ctx context.Context, e ItemCacheEntry) error {
	specs, err := json.Marshal(e.ItemSpecifics)
	if err != nil {
		return fmt.Errorf("store: marshal item specifics: %w", err)
	}
	row := map[string]any{
		"ebay_item_id":   e.EbayItemID,
		"item_specifics": json.RawMessage(specs),
		"title":          e.Title,
		"description":    e.Description,
		"fetched_at":     e.FetchedAt.UTC().Format(time.RFC3339),
		"expires_at":     e.ExpiresAt.UTC().Format(time.RFC3339),
	}
	q := url.Values{"on_conflict": {"ebay_item_id"}}
	data, status, doErr := s.do(ctx, http.MethodPost, s.restURL("ebay_item_cache", q),
		"resolution=merge-duplicates,return=minimal", []any{row})
	if doErr != nil {
		return doErr
	}
	if status >= 300 {
		return fmt.Errorf("store: put cached item: status %d: %s", status, data)
	}
	return nil
}

// --- metal prices ---

type metalPriceRow struct {
	Metal        string             `json:"metal"`
	PricePerGram map[string]float64 `json:"price_per_gram"`
	AsOf         time.Time          `json:"as_of"`
}

func (s *SupabaseStore) GetMetalPrice(ctx context.Context, metal string) (MetalPriceSnapshot, error) {
	q := url.Values{"metal": {"eq." + strings.ToLower(metal)}}
	data, status, err := s.do(ctx, http.MethodGet, s.restURL("metal_prices", q), "", nil)
	if err != nil {
		return MetalPriceSnapshot{}, err
	}
	if status != http.StatusOK {
		return MetalPriceSnapshot{}, fmt.Errorf("store: get metal price %s: status %d: %s", metal, status, data)
	}
	var rows []metalPriceRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return MetalPriceSnapshot{}, fmt.Errorf("store: decode metal price: %w", err)
	}
	if len(rows) == 0 {
		return MetalPriceSnapshot{}, fmt.Errorf("store: no price row for metal %s", metal)
	}
	return MetalPriceSnapshot{
		Metal:        rows[0].Metal,
		PricePerGram: rows[0].PricePerGram,
		AsOf:         rows[0].AsOf,
	}, nil
}

// --- api usage ---

func (s *SupabaseStore) LogAPIUsage(ctx context.Context, rec APIUsageRecord) error {
	row := map[string]any{
		"credential_app_id": rec.CredentialAppID,
		"endpoint":          rec.Endpoint,
		"status_code":       rec.StatusCode,
		"called_at":         rec.CalledAt.UTC().Format(time.RFC3339),
	}
	data, status, err := s.do(ctx, http.MethodPost, s.restURL("api_usage", nil), "return=minimal", []any{row})
	if err != nil {
		return err
	}
	if status >= 300 {
		return fmt.Errorf("store: log api usage: status %d: %s", status, data)
	}
	return nil
}

// --- maintenance ---

func (s *SupabaseStore) DeleteExpiredCacheRows(ctx context.Context) (int64, int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)

	itemsDeleted, err := s.deleteWhereExpired(ctx, "ebay_item_cache", now)
	if err != nil {
		return 0, 0, fmt.Errorf("store: delete expired item cache rows: %w", err)
	}
	rejectionsDeleted, err := s.deleteWhereExpired(ctx, "rejected_items", now)
	if err != nil {
		return itemsDeleted, 0, fmt.Errorf("store: delete expired rejection rows: %w", err)
	}
	return itemsDeleted, rejectionsDeleted, nil
}

func (s *SupabaseStore) deleteWhereExpired(ctx context.Context, table, now string) (int64, error) {
	q := url.Values{"expires_at": {"lt." + now}}
	data, status, err := s.do(ctx, http.MethodDelete, s.restURL(table, q), "return=representation", nil)
	if err != nil {
		return 0, err
	}
	if status >= 300 {
		return 0, fmt.Errorf("status %d: %s", status, data)
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return 0, nil // best-effort count; deletion itself already succeeded
	}
	return int64(len(rows)), nil
}
