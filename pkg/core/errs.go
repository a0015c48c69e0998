package core

import (
	"errors"
	"fmt"
)

var (
	// ErrPriceUnavailable marks a transient price source outage for a symbol.
	// Callers skip the affected signal for the current tick.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrRenderFailed marks a failed narrative generation. Bookkeeping has
	// already advanced when it surfaces, so the update is silently dropped.
	ErrRenderFailed = errors.New("narrative rendering failed")

	// ErrSignalNotFound is returned when a signal id is not in the store.
	ErrSignalNotFound = errors.New("signal not found")
)

// ValidationError rejects a malformed signal at ingestion, before it enters
// the store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid signal: %s: %s", e.Field, e.Reason)
}

// PersistenceError wraps a failed store write. Losing persisted state risks
// duplicate notifications or lost signals after restart, so it must never be
// swallowed.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
