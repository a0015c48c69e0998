package tracker

import (
	"fmt"
	"time"

	"github.com/raykavin/signalrun/pkg/core"
)

// Reason explains why an update fired.
type Reason string

const (
	ReasonTargetHit Reason = "target_hit"
	ReasonStopHit   Reason = "stop_hit"
	ReasonPctChange Reason = "pct_change"
	ReasonMilestone Reason = "milestone"
)

// Decision is the outcome of one policy assessment.
type Decision struct {
	Update     bool
	Reason     Reason
	HitTargets []int // newly hit take-profit indices, set for ReasonTargetHit
}

// UpdatePolicy decides whether a signal's status warrants a new notification
// and keeps the per-signal bookkeeping current.
type UpdatePolicy struct {
	minInterval  time.Duration
	minPctChange float64
	milestones   []float64
}

// NewUpdatePolicy builds a policy from tracker settings.
func NewUpdatePolicy(settings core.TrackerSettings) *UpdatePolicy {
	return &UpdatePolicy{
		minInterval:  settings.MinUpdateInterval,
		minPctChange: settings.MinPctChange,
		milestones:   settings.Milestones,
	}
}

// Assess applies the decision rules in order, first match wins:
//
//  1. minimum inter-update interval not elapsed: no update, hard rate limit
//  2. a take-profit level hit for the first time: update
//  3. stop-loss hit: update (terminal)
//  4. percent-to-TP1 moved at least minPctChange points: update
//  5. percent-to-TP1 crossed a milestone boundary in either direction: update
//
// On update the state is mutated (time, pct, counter, completed targets)
// before the caller renders or sends anything, so a downstream failure cannot
// cause a retry storm.
func (p *UpdatePolicy) Assess(status *core.Status, state *core.UpdateState, now time.Time) Decision {
	if now.Sub(state.LastUpdateTime) < p.minInterval {
		return Decision{}
	}

	if hit := newlyHitTargets(status, state); len(hit) > 0 {
		for _, i := range hit {
			state.MarkTargetCompleted(i)
		}
		p.commit(state, status, now)
		return Decision{Update: true, Reason: ReasonTargetHit, HitTargets: hit}
	}

	if status.StopHit {
		p.commit(state, status, now)
		return Decision{Update: true, Reason: ReasonStopHit}
	}

	pct := status.PctToPrimary()
	delta := pct - state.LastUpdatePct
	if delta < 0 {
		delta = -delta
	}
	if delta >= p.minPctChange {
		p.commit(state, status, now)
		return Decision{Update: true, Reason: ReasonPctChange}
	}

	if crossesMilestone(state.LastUpdatePct, pct, p.milestones) {
		p.commit(state, status, now)
		return Decision{Update: true, Reason: ReasonMilestone}
	}

	return Decision{}
}

func (p *UpdatePolicy) commit(state *core.UpdateState, status *core.Status, now time.Time) {
	state.LastUpdateTime = now
	state.LastUpdatePct = status.PctToPrimary()
	state.UpdatesSent++
}

func newlyHitTargets(status *core.Status, state *core.UpdateState) []int {
	var hit []int
	for i, ok := range status.TargetsHit {
		if ok && !state.TargetCompleted(i) {
			hit = append(hit, i)
		}
	}
	return hit
}

// crossesMilestone reports whether the progress value passed one of the
// fixed boundaries between the last recorded value and the current one,
// in either direction.
func crossesMilestone(last, current float64, milestones []float64) bool {
	for _, m := range milestones {
		if (last < m && current >= m) || (last >= m && current < m) {
			return true
		}
	}
	return false
}

func (d Decision) String() string {
	if !d.Update {
		return "no update"
	}
	return fmt.Sprintf("update (%s)", d.Reason)
}
