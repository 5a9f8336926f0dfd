package upstream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/riguy5000/ebay-hunter-worker/internal/store"
)

type searchResponse struct {
	ItemSummaries []ItemSummary `json:"itemSummaries"`
}

// Search issues one search call. keywordOverride, when non-empty, replaces
// the keyword composition BuildSearch would otherwise derive from the task —
// this is how the task processor drives the jewelry multi-metal and gemstone
// multi-query branches (§4.5 Phase 1) without the client needing to know
// about those orchestration patterns itself.
func (c *Client) Search(ctx context.Context, task store.Task, keywordOverride string) ([]ItemSummary, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.SearchDeadline)
	defer cancel()

	sp := BuildSearch(task, "")
	if keywordOverride != "" {
		sp.Keywords = keywordOverride
	}
	query := sp.Encode()

	body, _, err := c.doAuthed(ctx, "search", func(token string) (*retryablehttp.Request, error) {
		u := fmt.Sprintf("%s/buy/browse/v1/item_summary/search?%s", c.cfg.APIBaseURL, query.Encode())
		return retryablehttp.NewRequestWithContext(ctx, "GET", u, nil)
	})
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil // daily cap hit — treated as empty result, not an error
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("upstream: decode search response: %w", err)
	}
	return sr.ItemSummaries, nil
}
