// Package ratelimit implements the rate governor (C4): a process-wide daily
// call counter capped below the upstream's published daily quota, layered
// with a secondary smoothing limiter that prevents bursts within a tick even
// while the daily budget has headroom.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Governor gates upstream API calls. CanMakeCall must be checked before
// every call attempt; if it returns false the caller treats the call as an
// "empty result" rather than an error (spec §4.2).
type Governor struct {
	mu         sync.Mutex
	dailyLimit int
	count      int
	resetAt    time.Time

	smoothing *rate.Limiter
}

// NewGovernor builds a Governor with the given daily cap and minimum
// interval between admitted calls (the smoothing limiter).
func NewGovernor(dailyLimit int, minCallInterval time.Duration) *Governor {
	g := &Governor{
		dailyLimit: dailyLimit,
		resetAt:    nextMidnightUTC(time.Now()),
	}
	if minCallInterval <= 0 {
		minCallInterval = 150 * time.Millisecond
	}
	g.smoothing = rate.NewLimiter(rate.Every(minCallInterval), 1)
	return g
}

func nextMidnightUTC(from time.Time) time.Time {
	y, m, d := from.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

func (g *Governor) resetIfCrossedDay() {
	now := time.Now().UTC()
	if !now.Before(g.resetAt) {
		g.count = 0
		g.resetAt = nextMidnightUTC(now)
	}
}

// CanMakeCall reports whether the daily cap still has headroom. It does not
// consume a slot by itself — call RecordCall after a successful attempt.
func (g *Governor) CanMakeCall() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetIfCrossedDay()
	return g.count < g.dailyLimit
}

// RecordCall increments the daily counter. Call this once per upstream API
// call actually made (not once per logical operation — a bulk fallback that
// issues N per-item calls records N).
func (g *Governor) RecordCall() {
	g.mu.Lock()
	g.resetIfCrossedDay()
	g.count++
	g.mu.Unlock()
}

// Remaining reports how many calls are left in today's budget, for the
// health endpoint.
func (g *Governor) Remaining() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetIfCrossedDay()
	r := g.dailyLimit - g.count
	if r < 0 {
		return 0
	}
	return r
}

// CallsToday reports the current count, for the health endpoint.
func (g *Governor) CallsToday() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.resetIfCrossedDay()
	return g.count
}

// WaitSmoothing blocks until the secondary burst-smoothing limiter admits a
// call. This never interacts with the daily cap — it only spaces calls out
// in wall-clock time so a single tick's wave doesn't hammer the upstream.
func (g *Governor) WaitSmoothing() {
	r := g.smoothing.Reserve()
	if !r.OK() {
		return
	}
	time.Sleep(r.Delay())
}
