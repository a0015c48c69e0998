package core

import (
	"context"
)

// PriceSource supplies the latest quote for a symbol. Implementations return
// ErrPriceUnavailable (possibly wrapped) when no real price can be served;
// they never substitute synthetic data.
type PriceSource interface {
	LastQuote(ctx context.Context, symbol string) (float64, error)
}

// CandleFeeder serves recent candles for signal generation.
type CandleFeeder interface {
	CandlesByLimit(ctx context.Context, symbol, period string, limit int) ([]Candle, error)
}

// Narrator turns a signal and its current status into a short human-readable
// update message.
type Narrator interface {
	Render(ctx context.Context, signal *Signal, status *Status) (string, error)
}

// Notifier is the outbound notification sink.
type Notifier interface {
	Notify(text string)
	OnSignal(signal *Signal)
	OnError(err error)
}

// NotifierWithStart is a notifier that runs its own receive loop.
type NotifierWithStart interface {
	Notifier
	Start()
}

// SignalStorage is the durable collection of active signals and their
// notification bookkeeping. Every mutating call persists before returning,
// so a crash loses at most the in-flight call. Implementations serialize
// all mutations internally.
type SignalStorage interface {
	// Add validates the signal, assigns an id if absent, initializes a
	// fresh UpdateState and persists. Returns the signal id.
	Add(signal *Signal) (string, error)

	// Remove deletes a signal and its state. Idempotent; reports whether
	// the signal was present.
	Remove(id string) (bool, error)

	// Signals enumerates active signals in stable insertion order.
	Signals() ([]*Signal, error)

	// State returns the bookkeeping record for a signal id.
	State(id string) (*UpdateState, error)

	// SaveState persists an updated bookkeeping record.
	SaveState(id string, state *UpdateState) error

	Close() error
}
