package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/riguy5000/ebay-hunter-worker/internal/creds"
	"github.com/riguy5000/ebay-hunter-worker/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(testDiscard{}, nil))
}

type testDiscard struct{}

func (testDiscard) Write(p []byte) (int, error) { return len(p), nil }

type fakeStore struct {
	store.Store
	mu              sync.Mutex
	tasks           []store.Task
	maintenanceCall int
	touched         []string
}

func (f *fakeStore) ListActiveTasks(ctx context.Context) ([]store.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]store.Task(nil), f.tasks...), nil
}

func (f *fakeStore) DeleteExpiredCacheRows(ctx context.Context) (int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.maintenanceCall++
	return 0, 0, nil
}

func (f *fakeStore) TouchTaskLastRun(ctx context.Context, taskID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touched = append(f.touched, taskID)
	return nil
}

func (f *fakeStore) GetKeySettings(ctx context.Context) (store.KeySettings, error) {
	return store.KeySettings{}, nil
}

func newTestPool(fs *fakeStore) *creds.Pool {
	return creds.NewPool(fs, discardLogger(), nil)
}

type recordingRunner struct {
	mu      sync.Mutex
	started []time.Time
	byID    map[string]time.Time
	delay   time.Duration
	calls   int32
}

func (r *recordingRunner) Run(ctx context.Context, task store.Task) error {
	atomic.AddInt32(&r.calls, 1)
	r.mu.Lock()
	now := time.Now()
	r.started = append(r.started, now)
	if r.byID == nil {
		r.byID = map[string]time.Time{}
	}
	r.byID[task.ID] = now
	r.mu.Unlock()
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	return nil
}

func dueNowTask(id string) store.Task {
	return store.Task{ID: id, Status: store.TaskActive, PollIntervalS: 1}
}

func TestScheduler_RunsDueTasks(t *testing.T) {
	fs := &fakeStore{tasks: []store.Task{dueNowTask("t1"), dueNowTask("t2")}}
	runner := &recordingRunner{}
	cfg := Config{TickInterval: 10 * time.Millisecond, MaxConcurrentTasks: 3, StaggerDelay: time.Millisecond, MaintenanceEvery: 60}
	s := New(cfg, fs, runner, newTestPool(fs), discardLogger(), NewStatus())

	s.runTick(context.Background())

	if atomic.LoadInt32(&runner.calls) != 2 {
		t.Fatalf("expected 2 task invocations, got %d", runner.calls)
	}
}

func TestScheduler_SkipsTaskNotYetDue(t *testing.T) {
	fresh := dueNowTask("t1")
	fresh.LastRun = time.Now()
	fresh.PollIntervalS = 3600
	fs := &fakeStore{tasks: []store.Task{fresh}}
	runner := &recordingRunner{}
	cfg := Config{TickInterval: 10 * time.Millisecond, MaxConcurrentTasks: 3, StaggerDelay: time.Millisecond, MaintenanceEvery: 60}
	s := New(cfg, fs, runner, newTestPool(fs), discardLogger(), NewStatus())

	s.runTick(context.Background())

	if runner.calls != 0 {
		t.Fatalf("expected no invocations for a not-yet-due task, got %d", runner.calls)
	}
}

func TestScheduler_StaggersStartOffsets(t *testing.T) {
	fs := &fakeStore{tasks: []store.Task{dueNowTask("t1"), dueNowTask("t2"), dueNowTask("t3")}}
	runner := &recordingRunner{}
	stagger := 30 * time.Millisecond
	cfg := Config{TickInterval: time.Second, MaxConcurrentTasks: 3, StaggerDelay: stagger, MaintenanceEvery: 60}
	s := New(cfg, fs, runner, newTestPool(fs), discardLogger(), NewStatus())

	start := time.Now()
	s.runTick(context.Background())
	_ = start

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.started) != 3 {
		t.Fatalf("expected 3 starts, got %d", len(runner.started))
	}
	gap := runner.started[len(runner.started)-1].Sub(runner.started[0])
	if gap < stagger {
		t.Fatalf("expected at least one stagger interval between first and last start, got %v", gap)
	}
}

func TestScheduler_MoreDueTasksThanWaveSizeRunSequentialWaves(t *testing.T) {
	fs := &fakeStore{tasks: []store.Task{
		dueNowTask("t1"), dueNowTask("t2"), dueNowTask("t3"),
		dueNowTask("t4"), dueNowTask("t5"),
	}}
	waveDelay := 50 * time.Millisecond
	runner := &recordingRunner{delay: waveDelay}
	stagger := 5 * time.Millisecond
	cfg := Config{TickInterval: time.Second, MaxConcurrentTasks: 3, StaggerDelay: stagger, MaintenanceEvery: 60}
	s := New(cfg, fs, runner, newTestPool(fs), discardLogger(), NewStatus())

	s.runTick(context.Background())

	runner.mu.Lock()
	defer runner.mu.Unlock()
	if len(runner.started) != 5 {
		t.Fatalf("expected 5 starts, got %d", len(runner.started))
	}
	// The second wave (tasks 4-5) must not start until the first wave's
	// three tasks have all returned — not merely until a slot frees up.
	firstWaveEnd := runner.started[2].Add(waveDelay)
	fourthStart := runner.started[3]
	if fourthStart.Before(firstWaveEnd) {
		t.Fatalf("wave 2 task started at %v before wave 1 barrier cleared at %v", fourthStart, firstWaveEnd)
	}
	// Stagger offsets must reset within the second wave rather than
	// continuing to climb from the first wave's global index.
	secondWaveGap := runner.started[4].Sub(runner.started[3])
	if secondWaveGap >= 2*stagger {
		t.Fatalf("expected wave 2's stagger offsets to reset to index 0, gap = %v", secondWaveGap)
	}
}

func TestScheduler_RunsMaintenanceOnNthTick(t *testing.T) {
	fs := &fakeStore{}
	runner := &recordingRunner{}
	cfg := Config{TickInterval: time.Second, MaxConcurrentTasks: 3, StaggerDelay: time.Millisecond, MaintenanceEvery: 2}
	s := New(cfg, fs, runner, newTestPool(fs), discardLogger(), NewStatus())

	s.runTick(context.Background())
	if fs.maintenanceCall != 0 {
		t.Fatalf("expected no maintenance on tick 1, got %d calls", fs.maintenanceCall)
	}
	s.runTick(context.Background())
	if fs.maintenanceCall != 1 {
		t.Fatalf("expected maintenance on tick 2, got %d calls", fs.maintenanceCall)
	}
}

func TestScheduler_ReentryGuardSkipsStillRunningTask(t *testing.T) {
	fs := &fakeStore{tasks: []store.Task{dueNowTask("t1")}}
	runner := &recordingRunner{delay: 100 * time.Millisecond}
	cfg := Config{TickInterval: time.Second, MaxConcurrentTasks: 3, StaggerDelay: time.Millisecond, MaintenanceEvery: 60}
	s := New(cfg, fs, runner, newTestPool(fs), discardLogger(), NewStatus())

	s.running.Store("t1", struct{}{})
	s.runTick(context.Background())

	if runner.calls != 0 {
		t.Fatalf("expected the in-flight task to be skipped by the re-entry guard, got %d calls", runner.calls)
	}
}

func TestStatus_SnapshotReflectsShutdown(t *testing.T) {
	s := NewStatus()
	if s.Snapshot().Status != "healthy" {
		t.Fatal("expected healthy before shutdown")
	}
	s.SetShuttingDown()
	if s.Snapshot().Status != "shutting_down" {
		t.Fatal("expected shutting_down after SetShuttingDown")
	}
}
