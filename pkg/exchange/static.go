package exchange

import (
	"context"
	"fmt"
	"sync"

	"github.com/raykavin/signalrun/pkg/core"
)

// Static is a fixed in-memory price source, used by tests and dry runs.
// Symbols without a set price report core.ErrPriceUnavailable.
type Static struct {
	mu     sync.RWMutex
	prices map[string]float64
}

// NewStatic creates a static price source, optionally seeded.
func NewStatic(prices map[string]float64) *Static {
	if prices == nil {
		prices = make(map[string]float64)
	}
	return &Static{prices: prices}
}

// Set updates the price for a symbol.
func (s *Static) Set(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price
}

// Unset removes a symbol, simulating a price outage.
func (s *Static) Unset(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.prices, symbol)
}

// LastQuote implements core.PriceSource.
func (s *Static) LastQuote(_ context.Context, symbol string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	price, ok := s.prices[symbol]
	if !ok {
		return 0, fmt.Errorf("%w: %s", core.ErrPriceUnavailable, symbol)
	}
	return price, nil
}
