package processor

import (
	"context"
	"errors"

	"github.com/riguy5000/ebay-hunter-worker/internal/classify"
	"github.com/riguy5000/ebay-hunter-worker/internal/extract"
	"github.com/riguy5000/ebay-hunter-worker/internal/store"
)

// processWatch extracts watch attributes from the summary alone (watch
// candidates are enriched opportunistically, never via a forced detail
// fetch — spec §4.5 Phase 2), runs the year/case-material post-filters,
// and inserts a survivor. Returns (true, nil) on a saved match.
func (p *Processor) processWatch(ctx context.Context, task store.Task, c Candidate) (bool, error) {
	attrs := extract.Watch(nil, c.Summary.Title, "")

	if ok, _ := classify.PassesWatchFilters(task.Watch, attrs); !ok {
		return false, nil
	}

	match := store.WatchMatch{
		MatchCommon:      commonFrom(task, c, BuyFormatOf(c.Summary)),
		CaseMaterial:     attrs.CaseMaterial,
		BandMaterial:     attrs.BandMaterial,
		Movement:         attrs.Movement,
		DialColour:       attrs.DialColour,
		YearManufactured: attrs.Year,
		Brand:            attrs.Brand,
		Model:            attrs.Model,
	}
	if err := p.st.InsertWatchMatch(ctx, match); err != nil {
		if errors.Is(err, store.ErrDuplicateMatch) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
