package processor

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/riguy5000/ebay-hunter-worker/internal/extract"
	"github.com/riguy5000/ebay-hunter-worker/internal/store"
	"github.com/riguy5000/ebay-hunter-worker/internal/upstream"
)

// Candidate is a search-returned item that passed every pre-detail filter
// and is eligible for enrichment (spec glossary: "Candidate").
type Candidate struct {
	Summary upstream.ItemSummary
	Price   float64
}

// SkipCounts tallies why summaries were dropped before becoming candidates,
// for the per-task aggregate log line at the end of a run.
type SkipCounts struct {
	AlreadyMatched  int
	AlreadyRejected int
	CategoryMismatch int
	PriceOutOfRange int
	ExcludedKeyword int
	MissingKaratMarker int
}

// buildExclusionSet unions the task's explicit exclude_keywords with the
// jewelry-only costume/fashion catalogue and the dynamically-derived
// unselected-metal keywords (spec §4.5 step 2). The "silver" family is
// skipped from the dynamic list to avoid over-blocking mixed-metal pieces.
func buildExclusionSet(task store.Task) []string {
	excl := append([]string{}, task.ExcludeKeywords...)
	if task.ItemType != store.ItemJewelry || task.Jewelry == nil {
		return excl
	}
	excl = append(excl, CostumeFashionKeywords()...)

	selected := make(map[string]struct{}, len(task.Jewelry.Metals))
	for _, m := range task.Jewelry.Metals {
		selected[strings.ToLower(m)] = struct{}{}
	}
	for metal, keywords := range extract.MetalKeywords {
		if metal == "silver" {
			continue
		}
		if _, ok := selected[metal]; ok {
			continue
		}
		excl = append(excl, keywords...)
	}
	return excl
}

// CostumeFashionKeywords re-exports extract.CostumeFashionKeywords under a
// processor-local name so candidates.go reads self-contained against the
// spec step it implements.
func CostumeFashionKeywords() []string { return extract.CostumeFashionKeywords }

// search executes the kind-specific search strategy and unions results by
// ItemID (spec §4.5 step 3): one search per metal for multi-metal jewelry
// tasks, one to five sequential queries for gemstone tasks (only the
// "loose gemstone" query when the task has no stone types, no
// include_jewelry flag and no certifications), a single search otherwise.
func (p *Processor) search(ctx context.Context, task store.Task) ([]upstream.ItemSummary, error) {
	switch task.ItemType {
	case store.ItemJewelry:
		if task.Jewelry != nil && len(task.Jewelry.Metals) >= 2 {
			return p.searchUnion(ctx, task, task.Jewelry.Metals)
		}
	case store.ItemGemstone:
		return p.searchUnion(ctx, task, gemstoneQueries(task))
	}
	return p.client.Search(ctx, task, "")
}

func gemstoneQueries(task store.Task) []string {
	queries := []string{"loose gemstone"}
	if task.Gemstone != nil {
		for _, st := range task.Gemstone.StoneTypes {
			queries = append(queries, st)
			if len(queries) >= 4 {
				break
			}
		}
		if task.Gemstone.IncludeJewelry {
			queries = append(queries, "jewelry "+strings.Join(task.Gemstone.StoneTypes, " "))
		}
		if len(task.Gemstone.Certifications) > 0 {
			queries = append(queries, "certified "+strings.Join(task.Gemstone.Certifications, " "))
		}
	}
	if len(queries) > 5 {
		queries = queries[:5]
	}
	return queries
}

func (p *Processor) searchUnion(ctx context.Context, task store.Task, overrides []string) ([]upstream.ItemSummary, error) {
	byID := make(map[string]upstream.ItemSummary)
	var order []string
	for _, o := range overrides {
		summaries, err := p.client.Search(ctx, task, o)
		if err != nil {
			return nil, err
		}
		for _, s := range summaries {
			if _, seen := byID[s.ItemID]; !seen {
				order = append(order, s.ItemID)
			}
			byID[s.ItemID] = s
		}
	}
	out := make([]upstream.ItemSummary, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ItemCreationDate.After(out[j].ItemCreationDate)
	})
	return out, nil
}

// filterCandidates applies the ordered pre-detail filter chain (spec §4.5
// step 5), returning survivors and a tally of why the rest were dropped.
func (p *Processor) filterCandidates(task store.Task, summaries []upstream.ItemSummary, matched, rejected map[string]struct{}, exclusion []string, requireKaratMarkers bool) ([]Candidate, SkipCounts) {
	allowedCategories := allowedCategoriesFor(task)

	var candidates []Candidate
	var counts SkipCounts
	for _, s := range summaries {
		if _, ok := matched[s.ItemID]; ok {
			counts.AlreadyMatched++
			continue
		}
		if _, ok := rejected[s.ItemID]; ok {
			counts.AlreadyRejected++
			continue
		}
		if len(allowedCategories) > 0 && !anyCategoryAllowed(s.CategoryIDs, allowedCategories) {
			counts.CategoryMismatch++
			continue
		}
		price := parsePrice(s.Price.Value)
		if task.MinPrice > 0 && price < task.MinPrice {
			counts.PriceOutOfRange++
			continue
		}
		if task.MaxPrice > 0 && price > task.MaxPrice {
			counts.PriceOutOfRange++
			continue
		}
		if containsSubstringFold(s.Title, exclusion) {
			counts.ExcludedKeyword++
			continue
		}
		if task.ItemType == store.ItemJewelry && requireKaratMarkers && task.Jewelry != nil && containsFold(task.Jewelry.Metals, "gold") {
			if !containsSubstringFold(s.Title, extract.KaratMarkers) {
				counts.MissingKaratMarker++
				continue
			}
		}
		candidates = append(candidates, Candidate{Summary: s, Price: price})
	}
	return candidates, counts
}

// prioritySort re-sorts so any listing created within the last 10 minutes
// sorts before any older listing, newest-first within each tier (spec
// §4.5 "Priority re-sort").
func prioritySort(candidates []Candidate, now time.Time) {
	cutoff := now.Add(-10 * time.Minute)
	sort.SliceStable(candidates, func(i, j int) bool {
		iFresh := candidates[i].Summary.ItemCreationDate.After(cutoff)
		jFresh := candidates[j].Summary.ItemCreationDate.After(cutoff)
		if iFresh != jFresh {
			return iFresh
		}
		return candidates[i].Summary.ItemCreationDate.After(candidates[j].Summary.ItemCreationDate)
	})
}

func allowedCategoriesFor(task store.Task) map[string]struct{} {
	var ids []string
	switch task.ItemType {
	case store.ItemJewelry:
		ids = []string{"10968", "164329", "261993"}
	case store.ItemWatch:
		ids = []string{"31387"}
	case store.ItemGemstone:
		ids = []string{"164329", "262013"}
		for _, parent := range ids {
			ids = append(ids, extract.GemstoneCategoryParents[parent]...)
		}
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func anyCategoryAllowed(categoryIDs []string, allowed map[string]struct{}) bool {
	for _, id := range categoryIDs {
		if _, ok := allowed[id]; ok {
			return true
		}
	}
	return false
}

func containsSubstringFold(haystack string, needles []string) bool {
	h := strings.ToLower(haystack)
	for _, n := range needles {
		if n == "" {
			continue
		}
		if strings.Contains(h, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

func containsFold(list []string, want string) bool {
	for _, v := range list {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

func parsePrice(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
