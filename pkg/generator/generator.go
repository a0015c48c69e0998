// Package generator produces trade signals from technical analysis of
// recent candles. The tracker consumes its output as opaque signal records.
package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/samber/lo"

	"github.com/raykavin/signalrun/pkg/core"
	"github.com/raykavin/signalrun/pkg/logger"
)

// Config holds the indicator parameters.
type Config struct {
	Period       string    // candle timeframe, e.g. "1h"
	Lookback     int       // candles fetched per scan
	FastEMA      int       // fast EMA length
	SlowEMA      int       // slow EMA length
	RSIPeriod    int       // RSI length
	RSIOverbought float64
	RSIOversold   float64
	ATRPeriod    int       // ATR length for stop/target sizing
	StopATR      float64   // stop distance in ATR multiples
	TargetATRs   []float64 // target distances in ATR multiples, 1 to 3 levels
}

// DefaultConfig returns conservative defaults.
func DefaultConfig() Config {
	return Config{
		Period:        "1h",
		Lookback:      200,
		FastEMA:       9,
		SlowEMA:       21,
		RSIPeriod:     14,
		RSIOverbought: 70,
		RSIOversold:   30,
		ATRPeriod:     14,
		StopATR:       1.5,
		TargetATRs:    []float64{1, 2, 3},
	}
}

// Generator scans symbols and emits at most one signal per symbol per run.
type Generator struct {
	feeder core.CandleFeeder
	cfg    Config
	log    logger.Logger
}

// New creates a generator.
func New(feeder core.CandleFeeder, cfg Config, log logger.Logger) *Generator {
	return &Generator{feeder: feeder, cfg: cfg, log: log}
}

// Scan evaluates every symbol and returns the signals found. A symbol whose
// candles cannot be fetched is skipped, it never aborts the scan.
func (g *Generator) Scan(ctx context.Context, symbols []string) []*core.Signal {
	var signals []*core.Signal
	for _, symbol := range symbols {
		candles, err := g.feeder.CandlesByLimit(ctx, symbol, g.cfg.Period, g.cfg.Lookback)
		if err != nil {
			g.log.WithError(err).Warnf("candle fetch failed for %s, skipping", symbol)
			continue
		}

		signal, err := g.Analyze(symbol, candles)
		if err != nil {
			g.log.WithError(err).Debugf("no signal for %s", symbol)
			continue
		}
		if signal != nil {
			signals = append(signals, signal)
		}
	}
	return signals
}

// Analyze inspects one symbol's candles. It returns nil when no entry
// condition is met.
func (g *Generator) Analyze(symbol string, candles []core.Candle) (*core.Signal, error) {
	need := g.cfg.SlowEMA
	if g.cfg.RSIPeriod > need {
		need = g.cfg.RSIPeriod
	}
	if g.cfg.ATRPeriod > need {
		need = g.cfg.ATRPeriod
	}
	if len(candles) < need+2 {
		return nil, fmt.Errorf("not enough candles for %s: have %d, need %d", symbol, len(candles), need+2)
	}

	closes := lo.Map(candles, func(c core.Candle, _ int) float64 { return c.Close })
	highs := lo.Map(candles, func(c core.Candle, _ int) float64 { return c.High })
	lows := lo.Map(candles, func(c core.Candle, _ int) float64 { return c.Low })

	fast := talib.Ema(closes, g.cfg.FastEMA)
	slow := talib.Ema(closes, g.cfg.SlowEMA)
	rsi := talib.Rsi(closes, g.cfg.RSIPeriod)
	atr := talib.Atr(highs, lows, closes, g.cfg.ATRPeriod)

	last := len(closes) - 1
	prev := last - 1

	crossedUp := fast[prev] <= slow[prev] && fast[last] > slow[last]
	crossedDown := fast[prev] >= slow[prev] && fast[last] < slow[last]

	var direction core.Direction
	switch {
	case crossedUp && rsi[last] < g.cfg.RSIOverbought:
		direction = core.DirectionBuy
	case crossedDown && rsi[last] > g.cfg.RSIOversold:
		direction = core.DirectionSell
	default:
		return nil, nil
	}

	entry := closes[last]
	risk := atr[last]
	if risk <= 0 {
		return nil, fmt.Errorf("degenerate ATR for %s", symbol)
	}

	signal := g.buildSignal(symbol, direction, entry, risk)
	if err := signal.Validate(); err != nil {
		return nil, err
	}

	g.log.Infof("generated signal: %s", signal)
	return signal, nil
}

// buildSignal lays out stop and targets around the entry in ATR multiples.
func (g *Generator) buildSignal(symbol string, direction core.Direction, entry, risk float64) *core.Signal {
	signal := &core.Signal{
		Symbol:     symbol,
		Direction:  direction,
		EntryPrice: entry,
		CreatedAt:  time.Now().UTC(),
	}

	if direction == core.DirectionBuy {
		signal.StopLoss = entry - risk*g.cfg.StopATR
		for _, mult := range g.cfg.TargetATRs {
			signal.TakeProfits = append(signal.TakeProfits, entry+risk*mult)
		}
	} else {
		signal.StopLoss = entry + risk*g.cfg.StopATR
		for _, mult := range g.cfg.TargetATRs {
			signal.TakeProfits = append(signal.TakeProfits, entry-risk*mult)
		}
	}

	return signal
}
