package processor

import (
	"context"
	"errors"
	"time"

	"github.com/riguy5000/ebay-hunter-worker/internal/classify"
	"github.com/riguy5000/ebay-hunter-worker/internal/extract"
	"github.com/riguy5000/ebay-hunter-worker/internal/store"
	"github.com/riguy5000/ebay-hunter-worker/internal/upstream"
)

func toExtractSpecifics(aspects []upstream.LocalizedAspect) []extract.ItemSpecific {
	out := make([]extract.ItemSpecific, 0, len(aspects))
	for _, a := range aspects {
		out = append(out, extract.ItemSpecific{Name: a.Name, Value: a.Value})
	}
	return out
}

// processJewelry runs the filter, melt-value economics, and profit gate
// for one jewelry candidate, persisting a match or a rejection record.
// Returns (true, nil) on a saved match, (false, nil) on a clean reject.
func (p *Processor) processJewelry(ctx context.Context, task store.Task, c Candidate, detail upstream.ItemDetail) (bool, error) {
	specifics := toExtractSpecifics(detail.LocalizedAspects)
	title := c.Summary.Title
	description := detail.Description

	verdict := classify.PassesItemSpecificsFilter(task.Jewelry, specifics, title, description)
	if !verdict.Pass {
		return false, p.cache.Reject(ctx, task.ID, c.Summary.ItemID, verdict.Reason)
	}

	metal, ok := extract.MetalType(specifics, title)
	if !ok {
		return false, p.cache.Reject(ctx, task.ID, c.Summary.ItemID, "metal type could not be determined post-filter")
	}

	snapshot, err := p.st.GetMetalPrice(ctx, metal)
	if err != nil {
		return false, err
	}

	shipping := shippingCostOf(c.Summary)
	econ, ok := classify.ComputeMeltEconomics(specifics, title, description, c.Price, shipping, snapshot)
	if !ok {
		return false, p.cache.Reject(ctx, task.ID, c.Summary.ItemID, "could not compute melt economics (missing weight or price entry)")
	}
	if !econ.BreakEven {
		return false, p.cache.Reject(ctx, task.ID, c.Summary.ItemID, "profit gate: breakEven below 50% of total cost")
	}

	match := store.JewelryMatch{
		MatchCommon: commonFrom(task, c, BuyFormatOf(c.Summary)),
		MetalType:   econ.MetalType,
		Karat:       econ.Karat,
		WeightG:     econ.WeightG,
		MeltValue:   econ.MeltValue,
		ProfitScrap: econ.ProfitScrap,
	}
	if err := p.st.InsertJewelryMatch(ctx, match); err != nil {
		if errors.Is(err, store.ErrDuplicateMatch) {
			return false, nil
		}
		return false, err
	}

	totalCost := c.Price + shipping
	p.notifier.JewelryMatch(ctx, title, c.Summary.ItemWebURL, totalCost, econ.WeightG, classify.ScrapOfferSuggestion(totalCost), econ.ProfitScrap)
	return true, nil
}

func shippingCostOf(s upstream.ItemSummary) float64 {
	if len(s.ShippingOptions) == 0 {
		return 0
	}
	return parsePrice(s.ShippingOptions[0].ShippingCost.Value)
}

func BuyFormatOf(s upstream.ItemSummary) string {
	if len(s.BuyingOptions) == 0 {
		return ""
	}
	return s.BuyingOptions[0]
}

func commonFrom(task store.Task, c Candidate, buyFormat string) store.MatchCommon {
	return store.MatchCommon{
		TaskID:         task.ID,
		UserID:         task.UserID,
		EbayListingID:  c.Summary.ItemID,
		EbayTitle:      c.Summary.Title,
		EbayURL:        c.Summary.ItemWebURL,
		ListedPrice:    c.Price,
		ShippingCost:   shippingCostOf(c.Summary),
		Currency:       c.Summary.Price.Currency,
		BuyFormat:      buyFormat,
		SellerFeedback: c.Summary.SellerFeedback,
		FoundAt:        time.Now(),
		Status:         store.MatchNew,
	}
}
