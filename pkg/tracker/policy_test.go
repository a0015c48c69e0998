package tracker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/raykavin/signalrun/pkg/core"
)

func testSettings() core.TrackerSettings {
	s := core.DefaultTrackerSettings()
	s.MinUpdateInterval = 5 * time.Minute
	s.MinPctChange = 5
	return s
}

func TestPolicy_RateLimitWins(t *testing.T) {
	policy := NewUpdatePolicy(testSettings())
	now := time.Now()

	state := core.NewUpdateState()
	state.LastUpdateTime = now.Add(-time.Minute)

	// Even a stop hit is held back by the rate limit.
	status := Evaluate(buySignal(), 1.0700)
	require.True(t, status.StopHit)

	decision := policy.Assess(status, state, now)
	require.False(t, decision.Update)
	require.Zero(t, state.UpdatesSent)
}

func TestPolicy_IdempotentUnderRateLimit(t *testing.T) {
	policy := NewUpdatePolicy(testSettings())
	now := time.Now()

	state := core.NewUpdateState()
	status := Evaluate(buySignal(), 1.0775)

	first := policy.Assess(status, state, now)
	require.True(t, first.Update)

	// Unchanged price before the interval elapses: no update, twice.
	for i := 0; i < 2; i++ {
		decision := policy.Assess(status, state, now.Add(time.Minute))
		require.False(t, decision.Update)
	}
	require.Equal(t, 1, state.UpdatesSent)
}

func TestPolicy_FirstTargetHit(t *testing.T) {
	policy := NewUpdatePolicy(testSettings())
	now := time.Now()

	state := core.NewUpdateState()
	status := Evaluate(buySignal(), 1.0800)

	decision := policy.Assess(status, state, now)
	require.True(t, decision.Update)
	require.Equal(t, ReasonTargetHit, decision.Reason)
	require.Equal(t, []int{0}, decision.HitTargets)
	require.True(t, state.TargetCompleted(0))
	require.Equal(t, 1, state.UpdatesSent)
	require.Equal(t, now, state.LastUpdateTime)
}

func TestPolicy_TargetHitNotReannounced(t *testing.T) {
	policy := NewUpdatePolicy(testSettings())
	now := time.Now()

	state := core.NewUpdateState()
	status := Evaluate(buySignal(), 1.0800)

	require.True(t, policy.Assess(status, state, now).Update)

	// Past the rate limit, same target still hit, pct unchanged: silent.
	later := now.Add(10 * time.Minute)
	decision := policy.Assess(status, state, later)
	require.False(t, decision.Update)
	require.Equal(t, 1, state.UpdatesSent)
}

func TestPolicy_StopHit(t *testing.T) {
	policy := NewUpdatePolicy(testSettings())

	state := core.NewUpdateState()
	status := Evaluate(buySignal(), 1.0700)

	decision := policy.Assess(status, state, time.Now())
	require.True(t, decision.Update)
	require.Equal(t, ReasonStopHit, decision.Reason)
}

func TestPolicy_PctChangeThreshold(t *testing.T) {
	policy := NewUpdatePolicy(testSettings())
	now := time.Now()

	state := core.NewUpdateState()
	state.LastUpdateTime = now.Add(-time.Hour)
	state.LastUpdatePct = 10

	// 10 -> 12: below the 5 point threshold, no milestone crossed.
	status := Evaluate(buySignal(), 1.0756)
	require.InDelta(t, 12, status.PctToPrimary(), 0.5)
	require.False(t, policy.Assess(status, state, now).Update)

	// 10 -> 20: above the threshold.
	status = Evaluate(buySignal(), 1.0760)
	decision := policy.Assess(status, state, now)
	require.True(t, decision.Update)
	require.Equal(t, ReasonPctChange, decision.Reason)
	require.InDelta(t, 20, state.LastUpdatePct, 1e-9)
}

func TestPolicy_MilestoneCrossing(t *testing.T) {
	policy := NewUpdatePolicy(testSettings())
	now := time.Now()

	// SELL GBPUSD at 1.2475 sits at 50% toward TP1. Raw delta from 48 is
	// only 2 points, but the 50 milestone is crossed.
	state := core.NewUpdateState()
	state.LastUpdateTime = now.Add(-time.Hour)
	state.LastUpdatePct = 48

	status := Evaluate(sellSignal(), 1.2475)
	require.InDelta(t, 50, status.PctToPrimary(), 1e-9)

	decision := policy.Assess(status, state, now)
	require.True(t, decision.Update)
	require.Equal(t, ReasonMilestone, decision.Reason)
}

func TestPolicy_MilestoneCrossingDownward(t *testing.T) {
	policy := NewUpdatePolicy(testSettings())
	now := time.Now()

	state := core.NewUpdateState()
	state.LastUpdateTime = now.Add(-time.Hour)
	state.LastUpdatePct = 51

	// 51 -> 49 crosses the 50 boundary on the way down.
	status := Evaluate(sellSignal(), 1.24755)
	require.Less(t, status.PctToPrimary(), 50.0)

	decision := policy.Assess(status, state, now)
	require.True(t, decision.Update)
	require.Equal(t, ReasonMilestone, decision.Reason)
}

func TestCrossesMilestone(t *testing.T) {
	milestones := []float64{25, 50, 75, 90}

	require.True(t, crossesMilestone(20, 30, milestones))
	require.True(t, crossesMilestone(30, 20, milestones))
	require.True(t, crossesMilestone(49, 50, milestones))
	require.False(t, crossesMilestone(26, 30, milestones))
	require.False(t, crossesMilestone(50, 60, milestones))
	require.True(t, crossesMilestone(50, 49, milestones))
}
