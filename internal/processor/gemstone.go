package processor

import (
	"context"
	"errors"

	"github.com/riguy5000/ebay-hunter-worker/internal/classify"
	"github.com/riguy5000/ebay-hunter-worker/internal/store"
	"github.com/riguy5000/ebay-hunter-worker/internal/upstream"
)

// processGemstone runs the blacklist, classifier, filter, and scoring
// pipeline for one gemstone candidate, persisting a match or rejection.
func (p *Processor) processGemstone(ctx context.Context, task store.Task, c Candidate, detail upstream.ItemDetail) (bool, error) {
	specifics := toExtractSpecifics(detail.LocalizedAspects)
	title := c.Summary.Title
	description := detail.Description

	if ok, reason := classify.PassesGemstoneBlacklist(task.Gemstone, title, description); !ok {
		return false, p.cache.Reject(ctx, task.ID, c.Summary.ItemID, reason)
	}

	classification := classify.ClassifyGemstone(c.Summary.CategoryIDs, specifics, title)
	if classification == classify.JewelryWithStone && !task.Gemstone.IncludeJewelry {
		return false, p.cache.Reject(ctx, task.ID, c.Summary.ItemID, "classified JEWELRY_WITH_STONE, task excludes jewelry-mounted stones")
	}

	attrs := classify.ExtractGemstoneAttributes(specifics, title, description)
	if ok, reason := classify.PassesGemstoneFilters(task.Gemstone, attrs); !ok {
		return false, p.cache.Reject(ctx, task.ID, c.Summary.ItemID, reason)
	}

	shipping := shippingCostOf(c.Summary)
	pricePerCarat := 0.0
	if attrs.Carat > 0 {
		pricePerCarat = (c.Price + shipping) / attrs.Carat
	}
	hasReturns := hasReturnsPolicy(title, description)
	deal := classify.DealScore(task.Gemstone, attrs, c.Summary.SellerFeedback, BuyFormatOf(c.Summary))
	risk := classify.RiskScore(attrs, title, description, c.Summary.SellerFeedback, hasReturns, pricePerCarat)

	minDeal := task.Gemstone.MinDealScore
	maxRisk := task.Gemstone.MaxRiskScore
	if maxRisk == 0 {
		maxRisk = 100
	}
	if deal < minDeal {
		return false, p.cache.Reject(ctx, task.ID, c.Summary.ItemID, "deal score below task minimum")
	}
	if risk > maxRisk {
		return false, p.cache.Reject(ctx, task.ID, c.Summary.ItemID, "risk score above task maximum")
	}

	match := store.GemstoneMatch{
		MatchCommon:    commonFrom(task, c, BuyFormatOf(c.Summary)),
		StoneType:      attrs.StoneType,
		Shape:          attrs.Shape,
		Carat:          attrs.Carat,
		Colour:         attrs.Color,
		Clarity:        attrs.Clarity,
		CutGrade:       attrs.CutGrade,
		CertLab:        attrs.CertLab,
		Treatment:      attrs.Treatment,
		IsNatural:      attrs.IsNatural,
		Classification: string(classification),
		DealScore:      deal,
		RiskScore:      risk,
		AIScore:        float64(deal) / 100,
		AIReasoning:    classify.Reasoning(attrs, classification, deal, risk),
	}
	if err := p.st.InsertGemstoneMatch(ctx, match); err != nil {
		if errors.Is(err, store.ErrDuplicateMatch) {
			return false, nil
		}
		return false, err
	}

	p.notifier.GemstoneMatch(ctx, title, c.Summary.ItemWebURL, deal, risk, attrs.StoneType, attrs.Carat)
	return true, nil
}

// hasReturnsPolicy is a crude title/description scan for "no returns"
// language; the upstream API doesn't surface a structured returns field
// on the summary the worker consumes.
func hasReturnsPolicy(title, description string) bool {
	return !containsSubstringFold(title+" "+description, []string{"no returns", "as-is", "as is sale"})
}
