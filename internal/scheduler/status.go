package scheduler

import (
	"sync"
	"time"
)

// Status is a thread-safe snapshot of scheduler health, polled by the
// HTTP health handler. It intentionally holds no business logic.
type Status struct {
	mu             sync.RWMutex
	startedAt      time.Time
	shuttingDown   bool
	lastPoll       time.Time
	lastPollStatus string
}

// NewStatus creates a Status stamped with the current start time.
func NewStatus() *Status {
	return &Status{startedAt: time.Now(), lastPollStatus: "not yet run"}
}

// SetStarting marks the scheduler as having begun its tick loop.
func (s *Status) SetStarting() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startedAt = time.Now()
}

// SetShuttingDown marks the scheduler as draining toward shutdown.
func (s *Status) SetShuttingDown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shuttingDown = true
}

// RecordTickResult records the outcome of the most recently completed tick.
func (s *Status) RecordTickResult(result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastPoll = time.Now()
	s.lastPollStatus = result
}

// Snapshot is the point-in-time view exposed over the health endpoint.
type Snapshot struct {
	Status         string
	Uptime         time.Duration
	LastPoll       time.Time
	LastPollStatus string
}

// Snapshot returns the current status for rendering by the health handler.
func (s *Status) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status := "healthy"
	if s.shuttingDown {
		status = "shutting_down"
	}
	return Snapshot{
		Status:         status,
		Uptime:         time.Since(s.startedAt),
		LastPoll:       s.lastPoll,
		LastPollStatus: s.lastPollStatus,
	}
}
