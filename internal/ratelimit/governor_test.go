package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGovernor_NeverExceedsDailyLimit(t *testing.T) {
	g := NewGovernor(5, time.Millisecond)

	admitted := 0
	for i := 0; i < 20; i++ {
		if g.CanMakeCall() {
			g.RecordCall()
			admitted++
		}
	}

	assert.Equal(t, 5, admitted)
	assert.Equal(t, 5, g.CallsToday())
	assert.Equal(t, 0, g.Remaining())
	assert.False(t, g.CanMakeCall())
}

func TestGovernor_ResetsAcrossDayBoundary(t *testing.T) {
	g := NewGovernor(2, time.Millisecond)
	g.RecordCall()
	g.RecordCall()
	assert.False(t, g.CanMakeCall())

	// Force the reset boundary into the past to simulate crossing midnight.
	g.mu.Lock()
	g.resetAt = time.Now().UTC().Add(-time.Second)
	g.mu.Unlock()

	assert.True(t, g.CanMakeCall())
	assert.Equal(t, 0, g.CallsToday())
}

func TestGovernor_SmoothingEnforcesMinInterval(t *testing.T) {
	g := NewGovernor(1000, 20*time.Millisecond)

	start := time.Now()
	g.WaitSmoothing()
	g.WaitSmoothing()
	g.WaitSmoothing()
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 30*time.Millisecond)
}
