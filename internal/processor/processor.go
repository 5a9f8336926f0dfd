// Package processor implements the task processor (C8): the three-phase
// pipeline — candidate collection, enrichment, classification & persistence
// — that turns one due task into zero or more backing-store writes.
package processor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/riguy5000/ebay-hunter-worker/internal/cache"
	"github.com/riguy5000/ebay-hunter-worker/internal/metrics"
	"github.com/riguy5000/ebay-hunter-worker/internal/notify"
	"github.com/riguy5000/ebay-hunter-worker/internal/store"
	"github.com/riguy5000/ebay-hunter-worker/internal/upstream"
)

// Processor runs one task invocation end to end. It holds no per-task
// state between calls to Run — everything task-scoped lives in the local
// variables of a single Run call — each task invocation is internally
// sequential, one unit of work.
type Processor struct {
	st       store.Store
	client   *upstream.Client
	cache    *cache.Cache
	notifier *notify.Notifier
	log      *slog.Logger
	metrics  *metrics.Metrics

	requireKaratMarkers bool
}

// New builds a Processor. m may be nil — metrics recording is then skipped.
func New(st store.Store, client *upstream.Client, ch *cache.Cache, notifier *notify.Notifier, log *slog.Logger, requireKaratMarkers bool, m *metrics.Metrics) *Processor {
	return &Processor{st: st, client: client, cache: ch, notifier: notifier, log: log, requireKaratMarkers: requireKaratMarkers, metrics: m}
}

// Run executes one invocation of task. A RateLimitError aborts and
// propagates (the upstream client has already cooled the credential; the
// task runs again on its next due tick); any
// other processing error is logged and absorbed — the task is retried on
// its next due tick regardless (spec §4.5 "Failure semantics").
func (p *Processor) Run(ctx context.Context, task store.Task) error {
	p.cache.ResetStats(task.ID)

	summaries, err := p.search(ctx, task)
	if err != nil {
		var rl *upstream.RateLimitError
		if errors.As(err, &rl) {
			return err
		}
		p.log.Error("search failed, aborting task invocation", "task_id", task.ID, "error", err)
		return nil
	}

	matched, err := p.st.ListMatchedListingIDs(ctx, task.ID, task.ItemType)
	if err != nil {
		p.log.Error("failed to load matched-listing skip set", "task_id", task.ID, "error", err)
		return nil
	}
	rejected, err := p.st.ListActiveRejectedListingIDs(ctx, task.ID)
	if err != nil {
		p.log.Error("failed to load rejected-listing skip set", "task_id", task.ID, "error", err)
		return nil
	}

	exclusion := buildExclusionSet(task)
	candidates, skips := p.filterCandidates(task, summaries, matched, rejected, exclusion, p.requireKaratMarkers)
	prioritySort(candidates, time.Now())

	if task.ItemType == store.ItemJewelry || task.ItemType == store.ItemGemstone {
		if task.MaxDetailFetches > 0 && len(candidates) > task.MaxDetailFetches {
			candidates = candidates[:task.MaxDetailFetches]
		}
	}

	var details map[string]upstream.ItemDetail
	if task.ItemType != store.ItemWatch && len(candidates) > 0 {
		ids := make([]string, len(candidates))
		for i, c := range candidates {
			ids[i] = c.Summary.ItemID
		}
		details, err = p.client.FetchMany(ctx, p.cache, task.ID, ids)
		if err != nil {
			var rl *upstream.RateLimitError
			if errors.As(err, &rl) {
				return err
			}
			p.log.Error("bulk enrichment failed, aborting task invocation", "task_id", task.ID, "error", err)
			return nil
		}
	}

	if p.metrics != nil {
		p.metrics.CandidatesFound.WithLabelValues(task.ID, string(task.ItemType)).Add(float64(len(candidates)))
	}

	savedJewelry, savedGemstone, savedWatch, rejectedCount := 0, 0, 0, 0
	for _, c := range candidates {
		detail := details[c.Summary.ItemID]
		switch task.ItemType {
		case store.ItemJewelry:
			saved, err := p.processJewelry(ctx, task, c, detail)
			if err != nil {
				p.log.Warn("jewelry candidate processing failed", "item_id", c.Summary.ItemID, "error", err)
				continue
			}
			if saved {
				savedJewelry++
				p.recordMatch(store.ItemJewelry)
			} else {
				rejectedCount++
				p.recordRejection(store.ItemJewelry)
			}
		case store.ItemWatch:
			saved, err := p.processWatch(ctx, task, c)
			if err != nil {
				p.log.Warn("watch candidate processing failed", "item_id", c.Summary.ItemID, "error", err)
				continue
			}
			if saved {
				savedWatch++
				p.recordMatch(store.ItemWatch)
			}
		case store.ItemGemstone:
			saved, err := p.processGemstone(ctx, task, c, detail)
			if err != nil {
				p.log.Warn("gemstone candidate processing failed", "item_id", c.Summary.ItemID, "error", err)
				continue
			}
			if saved {
				savedGemstone++
				p.recordMatch(store.ItemGemstone)
			} else {
				rejectedCount++
				p.recordRejection(store.ItemGemstone)
			}
		}
	}

	if err := p.st.TouchTaskLastRun(ctx, task.ID); err != nil {
		p.log.Warn("failed to update task last_run", "task_id", task.ID, "error", err)
	}

	stats := p.cache.StatsFor(task.ID)
	if p.metrics != nil {
		total := stats.Hits + stats.Misses
		if total > 0 {
			p.metrics.CacheHitRatio.WithLabelValues(task.ID).Set(float64(stats.Hits) / float64(total))
		}
	}
	p.log.Info("task invocation complete",
		"task_id", task.ID,
		"item_type", task.ItemType,
		"candidates", len(candidates),
		"saved_jewelry", savedJewelry,
		"saved_watch", savedWatch,
		"saved_gemstone", savedGemstone,
		"rejected", rejectedCount,
		"skip_already_matched", skips.AlreadyMatched,
		"skip_already_rejected", skips.AlreadyRejected,
		"skip_category", skips.CategoryMismatch,
		"skip_price", skips.PriceOutOfRange,
		"skip_keyword", skips.ExcludedKeyword,
		"skip_karat_marker", skips.MissingKaratMarker,
		"cache_hits", stats.Hits,
		"cache_misses", stats.Misses,
	)
	return nil
}

func (p *Processor) recordMatch(kind store.ItemType) {
	if p.metrics != nil {
		p.metrics.MatchesInserted.WithLabelValues(string(kind)).Inc()
	}
}

func (p *Processor) recordRejection(kind store.ItemType) {
	if p.metrics != nil {
		p.metrics.Rejections.WithLabelValues(string(kind), "filtered").Inc()
	}
}
