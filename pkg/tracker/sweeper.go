package tracker

import (
	"time"

	"github.com/raykavin/signalrun/pkg/core"
)

// Sweeper removes signals whose life is over: stop-loss hit, every
// take-profit reached, or expired by age. It runs after the update policy in
// the same tick, so a signal hitting its final target still gets its closing
// notification before removal.
type Sweeper struct {
	maxAge time.Duration
}

// NewSweeper builds a sweeper from tracker settings.
func NewSweeper(settings core.TrackerSettings) *Sweeper {
	return &Sweeper{maxAge: settings.MaxSignalAge}
}

// ShouldRemove reports whether the signal is resolved or expired, with a
// short reason for the log. The status is the one computed this tick; a
// signal with no fetchable price is never passed here, it stays untouched.
func (s *Sweeper) ShouldRemove(signal *core.Signal, status *core.Status, now time.Time) (bool, string) {
	if signal.Age(now) > s.maxAge {
		return true, "expired"
	}
	if status.StopHit {
		return true, "stop-loss hit"
	}
	if status.AllTargetsHit() {
		return true, "all targets hit"
	}
	return false, ""
}
