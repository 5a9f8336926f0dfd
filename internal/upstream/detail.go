package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/riguy5000/ebay-hunter-worker/internal/cache"
	"github.com/riguy5000/ebay-hunter-worker/internal/store"
)

func toItemDetail(entry store.ItemCacheEntry, fromCache bool) ItemDetail {
	aspects := make([]LocalizedAspect, 0, len(entry.ItemSpecifics))
	for _, s := range entry.ItemSpecifics {
		aspects = append(aspects, LocalizedAspect{Name: s.Name, Value: s.Value})
	}
	return ItemDetail{
		ItemID:           entry.EbayItemID,
		Title:            entry.Title,
		Description:      entry.Description,
		LocalizedAspects: aspects,
		FromCache:        fromCache,
	}
}

func toCacheEntry(d ItemDetail) store.ItemCacheEntry {
	specifics := make([]store.ItemSpecific, 0, len(d.LocalizedAspects))
	for _, a := range d.LocalizedAspects {
		specifics = append(specifics, store.ItemSpecific{Name: a.Name, Value: a.Value})
	}
	return store.ItemCacheEntry{
		EbayItemID:    d.ItemID,
		ItemSpecifics: specifics,
		Title:         d.Title,
		Description:   d.Description,
	}
}

// itemResponse is the decoded shape of the single-item detail endpoint.
type itemResponse struct {
	ItemID           string            `json:"itemId"`
	Title            string            `json:"title"`
	Description      string            `json:"description"`
	LocalizedAspects []LocalizedAspect `json:"localizedAspects"`
}

func (r itemResponse) toDetail() ItemDetail {
	return ItemDetail{
		ItemID:           r.ItemID,
		Title:            r.Title,
		Description:      r.Description,
		LocalizedAspects: r.LocalizedAspects,
	}
}

// FetchOne returns the detail document for a single item, preferring the
// cache. A cache hit never counts against the daily call budget. A miss
// fetches from the single-item endpoint and writes the result back through
// the cache before returning it.
func (c *Client) FetchOne(ctx context.Context, ch *cache.Cache, taskID, ebayItemID string) (ItemDetail, error) {
	if entry, ok, err := ch.GetItem(ctx, taskID, ebayItemID); err != nil {
		return ItemDetail{}, err
	} else if ok {
		return toItemDetail(entry, true), nil
	}

	body, _, err := c.doAuthed(ctx, "item_detail", func(token string) (*retryablehttp.Request, error) {
		u := fmt.Sprintf("%s/buy/browse/v1/item/%s", c.cfg.APIBaseURL, ebayItemID)
		return retryablehttp.NewRequestWithContext(ctx, "GET", u, nil)
	})
	if err != nil {
		return ItemDetail{}, err
	}
	if body == nil {
		return ItemDetail{}, nil // daily cap hit
	}

	var ir itemResponse
	if err := json.Unmarshal(body, &ir); err != nil {
		return ItemDetail{}, fmt.Errorf("upstream: decode item detail: %w", err)
	}
	detail := ir.toDetail()
	if err := ch.PutItem(ctx, toCacheEntry(detail)); err != nil {
		c.log.Warn("failed to write item-detail cache row", "item_id", ebayItemID, "error", err)
	}
	return detail, nil
}

type bulkResponse struct {
	Items []itemResponse `json:"items"`
}

// FetchMany resolves detail documents for every ID in ids, batching
// uncached IDs into groups of 20 against the bulk endpoint (spec §4.4).
// A batch that 403s falls back to per-item FetchOne calls for that batch
// only. A 429 on any batch stops issuing further batches and propagates
// the RateLimitError — callers treat this as task-aborting, same as a
// search failure. Every item actually fetched (bulk or per-item) is
// written back through the cache.
func (c *Client) FetchMany(ctx context.Context, ch *cache.Cache, taskID string, ids []string) (map[string]ItemDetail, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.BulkDeadline)
	defer cancel()

	out := make(map[string]ItemDetail, len(ids))
	var uncached []string
	for _, id := range ids {
		entry, ok, err := ch.GetItem(ctx, taskID, id)
		if err != nil {
			return nil, err
		}
		if ok {
			out[id] = toItemDetail(entry, true)
			continue
		}
		uncached = append(uncached, id)
	}

	for start := 0; start < len(uncached); start += bulkBatchSize {
		end := start + bulkBatchSize
		if end > len(uncached) {
			end = len(uncached)
		}
		batch := uncached[start:end]

		items, err := c.fetchBulkBatch(ctx, batch)
		var notAuthorized *BulkNotAuthorizedError
		switch {
		case errorsAsBulkNotAuthorized(err, &notAuthorized):
			for _, id := range batch {
				detail, ferr := c.FetchOne(ctx, ch, taskID, id)
				if ferr != nil {
					var rl *RateLimitError
					if errorsAsRateLimit(ferr, &rl) {
						return out, ferr
					}
					c.log.Warn("per-item fallback fetch failed", "item_id", id, "error", ferr)
					continue
				}
				if detail.ItemID != "" {
					out[id] = detail
				}
			}
		case err != nil:
			var rl *RateLimitError
			if errorsAsRateLimit(err, &rl) {
				return out, err
			}
			c.log.Warn("bulk detail batch failed", "error", err)
		default:
			for _, it := range items {
				detail := it.toDetail()
				out[detail.ItemID] = detail
				if perr := ch.PutItem(ctx, toCacheEntry(detail)); perr != nil {
					c.log.Warn("failed to write item-detail cache row", "item_id", detail.ItemID, "error", perr)
				}
			}
		}
	}

	return out, nil
}

func (c *Client) fetchBulkBatch(ctx context.Context, ids []string) ([]itemResponse, error) {
	body, _, err := c.doAuthed(ctx, "item_bulk", func(token string) (*retryablehttp.Request, error) {
		u := fmt.Sprintf("%s/buy/browse/v1/item?item_ids=%s", c.cfg.APIBaseURL, strings.Join(ids, ","))
		return retryablehttp.NewRequestWithContext(ctx, "GET", u, nil)
	})
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil // daily cap hit — treated as empty batch
	}
	var br bulkResponse
	if err := json.Unmarshal(body, &br); err != nil {
		return nil, fmt.Errorf("upstream: decode bulk item response: %w", err)
	}
	return br.Items, nil
}

func errorsAsBulkNotAuthorized(err error, target **BulkNotAuthorizedError) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*BulkNotAuthorizedError); ok {
		*target = e
		return true
	}
	return false
}

func errorsAsRateLimit(err error, target **RateLimitError) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*RateLimitError); ok {
		*target = e
		return true
	}
	return false
}
