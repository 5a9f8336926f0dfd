package upstream

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/riguy5000/ebay-hunter-worker/internal/store"
)

// searchParams is the decoded shape of a single search call before it is
// encoded into the wire query string.
type searchParams struct {
	Keywords    string
	CategoryIDs []string
	Conditions  []string
	MaxPrice    float64
	AspectCategoryID string // anchor category for the aspect_filter, jewelry/watch only
	AspectFilters    map[string][]string
}

// defaultConditions mirrors the condition synonyms the worker accepts: new,
// used, and the certified-refurbished family, OR-joined into one query.
var defaultConditions = []string{"1000", "1500", "2000", "2500", "3000"}

// categoryIDsFor returns the allowed category IDs for a task's item type.
// These are data tables, not derived logic — kept as a simple lookup so the
// set can grow without touching query-building code.
func categoryIDsFor(itemType store.ItemType) []string {
	switch itemType {
	case store.ItemJewelry:
		return []string{"10968", "164329", "261993"} // fine jewelry, fashion jewelry, loose gemstones overlap
	case store.ItemWatch:
		return []string{"31387"} // wristwatches
	case store.ItemGemstone:
		return []string{"164329", "262013"} // loose diamonds, loose gemstones
	default:
		return nil
	}
}

// BuildSearch constructs the query params for a single search call. metal,
// when non-empty, overrides the keyword composition for the jewelry
// multi-metal branch (one search issued per selected metal).
func BuildSearch(task store.Task, metal string) searchParams {
	sp := searchParams{
		CategoryIDs: categoryIDsFor(task.ItemType),
		Conditions:  defaultConditions,
		MaxPrice:    task.MaxPrice,
	}

	switch task.ItemType {
	case store.ItemJewelry:
		if metal != "" {
			sp.Keywords = metal + " jewelry"
		} else {
			sp.Keywords = "jewelry"
		}
		if len(sp.CategoryIDs) > 0 {
			sp.AspectCategoryID = sp.CategoryIDs[0]
			if task.Jewelry != nil && len(task.Jewelry.Purities) > 0 {
				sp.AspectFilters = map[string][]string{"Metal Purity": task.Jewelry.Purities}
			}
		}
	case store.ItemWatch:
		parts := []string{}
		if task.Watch != nil {
			parts = append(parts, task.Watch.Brands...)
			parts = append(parts, task.Watch.Models...)
		}
		if len(parts) == 0 {
			parts = []string{"watch"}
		}
		sp.Keywords = strings.Join(parts, " ")
		if len(sp.CategoryIDs) > 0 {
			sp.AspectCategoryID = sp.CategoryIDs[0]
		}
	case store.ItemGemstone:
		if metal != "" {
			sp.Keywords = metal
		} else {
			sp.Keywords = "loose gemstone"
		}
	}

	return sp
}

// Encode turns searchParams into the wire query string for the search
// endpoint: q, limit, sort, filter, and (for jewelry/watch) aspect_filter.
func (sp searchParams) Encode() url.Values {
	v := url.Values{}
	v.Set("q", sp.Keywords)
	v.Set("limit", fmt.Sprintf("%d", searchLimit))
	v.Set("sort", "newlyListed")

	var filterParts []string
	if sp.MaxPrice > 0 {
		filterParts = append(filterParts, fmt.Sprintf("price:[..%.2f],priceCurrency:USD", sp.MaxPrice))
	}
	if len(sp.CategoryIDs) > 0 {
		filterParts = append(filterParts, fmt.Sprintf("categoryIds:{%s}", strings.Join(sp.CategoryIDs, "|")))
	}
	if len(sp.Conditions) > 0 {
		filterParts = append(filterParts, fmt.Sprintf("conditionIds:{%s}", strings.Join(sp.Conditions, "|")))
	}
	if len(filterParts) > 0 {
		v.Set("filter", strings.Join(filterParts, ","))
	}

	// Aspect filters apply per-category — the upstream only accepts a single
	// anchor category here, which is why this is restricted to one category
	// ID even when CategoryIDs has several (spec §4.4 note).
	if sp.AspectCategoryID != "" && len(sp.AspectFilters) > 0 {
		var aspectParts []string
		for name, values := range sp.AspectFilters {
			if len(values) == 0 {
				continue
			}
			aspectParts = append(aspectParts, fmt.Sprintf("%s:{%s}", name, strings.Join(values, "|")))
		}
		if len(aspectParts) > 0 {
			v.Set("aspect_filter", fmt.Sprintf("categoryId:%s,%s", sp.AspectCategoryID, strings.Join(aspectParts, ",")))
		}
	}

	return v
}
