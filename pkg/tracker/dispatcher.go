package tracker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/raykavin/signalrun/pkg/core"
	"github.com/raykavin/signalrun/pkg/logger"
)

// Status represents the current state of the dispatcher.
type Status string

const (
	StatusRunning Status = "running"
	StatusStopped Status = "stopped"
)

// Dispatcher drives the tracking loop: every tick it enumerates active
// signals, evaluates them against live prices, applies the update policy,
// renders and sends notifications, and sweeps resolved signals.
type Dispatcher struct {
	storage  core.SignalStorage
	prices   core.PriceSource
	narrator core.Narrator
	notifier core.Notifier
	policy   *UpdatePolicy
	sweeper  *Sweeper
	log      logger.Logger

	interval time.Duration
	now      func() time.Time

	ticking atomic.Bool
	wg      sync.WaitGroup
	finish  chan struct{}
	status  Status
	mu      sync.Mutex
}

// NewDispatcher wires the tracking loop together.
func NewDispatcher(
	settings core.TrackerSettings,
	storage core.SignalStorage,
	prices core.PriceSource,
	narrator core.Narrator,
	notifier core.Notifier,
	log logger.Logger,
) *Dispatcher {
	return &Dispatcher{
		storage:  storage,
		prices:   prices,
		narrator: narrator,
		notifier: notifier,
		policy:   NewUpdatePolicy(settings),
		sweeper:  NewSweeper(settings),
		log:      log,
		interval: settings.TickInterval,
		now:      time.Now,
		status:   StatusStopped,
	}
}

// Status returns the current dispatcher status.
func (d *Dispatcher) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.status
}

// Start launches the tick loop. It returns immediately; the loop runs until
// Stop is called or the context is canceled. A stopped dispatcher can be
// started again.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.status == StatusRunning {
		d.mu.Unlock()
		return
	}
	d.status = StatusRunning
	d.finish = make(chan struct{})
	finish := d.finish
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				d.Tick(ctx)
			case <-ctx.Done():
				return
			case <-finish:
				return
			}
		}
	}()

	d.log.Infof("signal dispatcher started, tick every %s", d.interval)
}

// Stop halts the loop gracefully: the in-flight tick is allowed to finish so
// the store is never left half-persisted.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.status != StatusRunning {
		d.mu.Unlock()
		return
	}
	d.status = StatusStopped
	finish := d.finish
	d.mu.Unlock()

	close(finish)
	d.wg.Wait()
	d.log.Info("signal dispatcher stopped")
}

// Tick processes all active signals once. Ticks are single-flight: if a
// previous pass is still running the call is a no-op. Any single-signal
// failure is logged and skipped, it never aborts the remaining signals.
func (d *Dispatcher) Tick(ctx context.Context) {
	if !d.ticking.CompareAndSwap(false, true) {
		d.log.Warn("previous tick still running, skipping")
		return
	}
	defer d.ticking.Store(false)

	signals, err := d.storage.Signals()
	if err != nil {
		d.surface(err)
		return
	}

	removed := 0
	for _, signal := range signals {
		if ctx.Err() != nil {
			return
		}
		if d.processSignal(ctx, signal) {
			removed++
		}
	}

	if removed > 0 {
		d.log.Infof("tick complete: %d signal(s) retired", removed)
	}
}

// processSignal runs one signal through price fetch, evaluation, update
// policy, notification and sweep. Returns whether the signal was removed.
func (d *Dispatcher) processSignal(ctx context.Context, signal *core.Signal) bool {
	log := d.log.WithField("signal", signal.ID)

	price, err := d.prices.LastQuote(ctx, signal.Symbol)
	if err != nil {
		// One symbol's outage must not block the others. The signal is left
		// untouched, not swept.
		if errors.Is(err, core.ErrPriceUnavailable) {
			log.Warnf("no price for %s, skipping this tick", signal.Symbol)
		} else {
			log.WithError(err).Errorf("price fetch failed for %s", signal.Symbol)
		}
		return false
	}

	status := Evaluate(signal, price)

	state, err := d.storage.State(signal.ID)
	if err != nil {
		log.WithError(err).Error("missing update state")
		return false
	}

	now := d.now()
	decision := d.policy.Assess(status, state, now)
	if decision.Update {
		// Persist bookkeeping before rendering so a narrator failure cannot
		// cause a retry storm.
		if err := d.storage.SaveState(signal.ID, state); err != nil {
			d.surface(err)
			return false
		}
		d.send(ctx, signal, status, decision, log)
	}

	if remove, reason := d.sweeper.ShouldRemove(signal, status, now); remove {
		ok, err := d.storage.Remove(signal.ID)
		if err != nil {
			d.surface(err)
			return false
		}
		if ok {
			log.Infof("signal retired: %s", reason)
		}
		return ok
	}

	return false
}

func (d *Dispatcher) send(ctx context.Context, signal *core.Signal, status *core.Status, decision Decision, log logger.Logger) {
	text, err := d.narrator.Render(ctx, signal, status)
	if err != nil {
		// Bookkeeping already advanced; the update is dropped, which is
		// acceptable for a notification surface.
		log.WithError(err).Warn("narrative generation failed, update suppressed")
		return
	}

	log.Debugf("sending update: %s", decision)
	d.notifier.Notify(text)
}

// surface reports a persistence failure loudly. Silently losing persisted
// state risks duplicate notifications or lost signals after restart.
func (d *Dispatcher) surface(err error) {
	var pe *core.PersistenceError
	if errors.As(err, &pe) {
		d.log.WithError(err).Error("store persistence failure")
	} else {
		d.log.WithError(err).Error("store failure")
	}
	if d.notifier != nil {
		d.notifier.OnError(err)
	}
}
