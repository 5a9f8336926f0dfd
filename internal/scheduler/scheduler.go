// Package scheduler implements the tick loop (C9): a single ticker drives
// bounded-concurrency waves of due tasks, with staggered per-task start
// offsets and periodic backing-store maintenance.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/riguy5000/ebay-hunter-worker/internal/creds"
	"github.com/riguy5000/ebay-hunter-worker/internal/obs"
	"github.com/riguy5000/ebay-hunter-worker/internal/store"
)

// TaskRunner executes one task invocation; satisfied by *processor.Processor.
type TaskRunner interface {
	Run(ctx context.Context, task store.Task) error
}

// Config controls tick cadence, wave size, and start staggering.
type Config struct {
	TickInterval       time.Duration
	MaxConcurrentTasks int
	StaggerDelay       time.Duration
	MaintenanceEvery   int // run store maintenance every Nth tick
}

// DefaultConfig returns the worker's documented defaults: 1s tick, 3
// concurrent tasks, 200ms stagger.
func DefaultConfig() Config {
	return Config{TickInterval: time.Second, MaxConcurrentTasks: 3, StaggerDelay: 200 * time.Millisecond, MaintenanceEvery: 60}
}

// Scheduler owns the tick loop and the running-task guard.
type Scheduler struct {
	cfg    Config
	st     store.Store
	runner TaskRunner
	pool   *creds.Pool
	log    *slog.Logger
	status *Status

	running sync.Map // task ID -> struct{}, guards re-entry across overlapping waves
	tickNum int
}

// New builds a Scheduler. pool's credential snapshot is refreshed from the
// backing store once per tick, since credentials are externally owned and
// edited through the web UI for the lifetime of a long-running process.
func New(cfg Config, st store.Store, runner TaskRunner, pool *creds.Pool, log *slog.Logger, status *Status) *Scheduler {
	return &Scheduler{cfg: cfg, st: st, runner: runner, pool: pool, log: log, status: status}
}

// Run drives the tick loop until ctx is cancelled. The scheduler never
// starts a new tick before the previous tick's final wave has completed
// (spec §5 "non-overlapping ticks").
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.status.SetStarting()
	for {
		select {
		case <-ctx.Done():
			s.status.SetShuttingDown()
			return nil
		case <-ticker.C:
			s.runTick(ctx)
		}
	}
}

func (s *Scheduler) runTick(ctx context.Context) {
	s.tickNum++
	tickID := obs.NewCorrelationID()
	ctx = obs.WithTickID(ctx, tickID)

	if s.cfg.MaintenanceEvery > 0 && s.tickNum%s.cfg.MaintenanceEvery == 0 {
		s.runMaintenance(ctx)
	}

	if err := s.pool.Refresh(ctx); err != nil {
		s.log.Warn("credential pool refresh failed, continuing with stale snapshot", "tick_id", tickID, "error", err)
	}

	tasks, err := s.st.ListActiveTasks(ctx)
	if err != nil {
		s.log.Error("failed to list active tasks", "tick_id", tickID, "error", err)
		s.status.RecordTickResult("error: " + err.Error())
		return
	}

	due := s.dueTasks(tasks)
	if len(due) == 0 {
		s.status.RecordTickResult("success")
		return
	}

	waveSize := s.cfg.MaxConcurrentTasks
	if waveSize < 1 {
		waveSize = 1
	}
	for start := 0; start < len(due); start += waveSize {
		end := start + waveSize
		if end > len(due) {
			end = len(due)
		}
		if err := s.runWave(ctx, due[start:end]); err != nil {
			s.status.RecordTickResult("error: " + err.Error())
			return
		}
	}
	s.status.RecordTickResult("success")
}

// runWave executes one wave of up to MaxConcurrentTasks tasks, staggering
// each task's start by its position within the wave, and returns only once
// every task in the wave has completed (or ctx is cancelled) — the next
// wave does not begin until this barrier is cleared.
func (s *Scheduler) runWave(ctx context.Context, wave []store.Task) error {
	g, gctx := errgroup.WithContext(ctx)

	for i, task := range wave {
		task := task
		offset := time.Duration(i) * s.cfg.StaggerDelay
		s.running.Store(task.ID, struct{}{})
		g.Go(func() error {
			defer s.running.Delete(task.ID)
			select {
			case <-time.After(offset):
			case <-gctx.Done():
				return nil
			}
			runCtx := obs.WithTaskRunID(gctx, obs.NewCorrelationID())
			if err := s.runner.Run(runCtx, task); err != nil {
				s.log.Error("task invocation returned error", "task_id", task.ID, "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// dueTasks returns active tasks whose poll interval has elapsed and which
// are not already mid-invocation in an overlapping wave.
func (s *Scheduler) dueTasks(tasks []store.Task) []store.Task {
	now := time.Now()
	var due []store.Task
	for _, t := range tasks {
		if t.Status != store.TaskActive {
			continue
		}
		if _, running := s.running.Load(t.ID); running {
			continue
		}
		interval := time.Duration(t.PollIntervalS) * time.Second
		if t.LastRun.IsZero() || now.Sub(t.LastRun) >= interval {
			due = append(due, t)
		}
	}
	return due
}

func (s *Scheduler) runMaintenance(ctx context.Context) {
	items, rejections, err := s.st.DeleteExpiredCacheRows(ctx)
	if err != nil {
		s.log.Warn("periodic maintenance failed", "error", err)
		return
	}
	s.log.Info("periodic maintenance complete", "expired_items_deleted", items, "expired_rejections_deleted", rejections)
}
