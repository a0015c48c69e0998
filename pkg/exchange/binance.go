// Package exchange provides price and candle sources for the tracker.
package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/jpillora/backoff"

	"github.com/raykavin/signalrun/pkg/core"
	"github.com/raykavin/signalrun/pkg/logger"
)

const maxQuoteRetries = 3

// Binance implements core.PriceSource and core.CandleFeeder on the Binance
// spot API. Transient API failures are retried with backoff; a persistent
// failure surfaces as core.ErrPriceUnavailable, never as synthetic data.
type Binance struct {
	client *binance.Client
	log    logger.Logger
}

// NewBinance creates a Binance-backed price source. Credentials may be empty
// for public market data.
func NewBinance(settings core.BinanceSettings, log logger.Logger) *Binance {
	binance.UseTestnet = settings.Testnet
	return &Binance{
		client: binance.NewClient(settings.APIKey, settings.SecretKey),
		log:    log,
	}
}

// LastQuote returns the latest trade price for a symbol.
func (b *Binance) LastQuote(ctx context.Context, symbol string) (float64, error) {
	boff := &backoff.Backoff{
		Min: 100 * time.Millisecond,
		Max: 1 * time.Second,
	}

	value, err := quoteWithRetry(ctx, maxQuoteRetries, boff, func() (float64, error) {
		prices, err := b.client.NewListPricesService().Symbol(symbol).Do(ctx)
		if err != nil {
			return 0, err
		}
		if len(prices) == 0 {
			return 0, fmt.Errorf("empty price list for %s", symbol)
		}
		v, err := strconv.ParseFloat(prices[0].Price, 64)
		if err != nil || v <= 0 {
			return 0, fmt.Errorf("bad price %q for %s", prices[0].Price, symbol)
		}
		return v, nil
	})
	if err != nil {
		b.log.WithError(err).Warnf("quote lookup failed for %s", symbol)
		return 0, fmt.Errorf("%w: %s: %v", core.ErrPriceUnavailable, symbol, err)
	}
	return value, nil
}

// quoteWithRetry runs fetch up to attempts times, backing off between
// attempts. The final failure returns immediately, no trailing sleep.
func quoteWithRetry(ctx context.Context, attempts int, boff *backoff.Backoff, fetch func() (float64, error)) (float64, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		value, err := fetch()
		if err == nil {
			return value, nil
		}
		lastErr = err

		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(boff.Duration()):
		}
	}
	return 0, lastErr
}

// CandlesByLimit returns the most recent candles for a symbol.
func (b *Binance) CandlesByLimit(ctx context.Context, symbol, period string, limit int) ([]core.Candle, error) {
	klines, err := b.client.NewKlinesService().
		Symbol(symbol).
		Interval(period).
		Limit(limit + 1).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candles for %s: %w", symbol, err)
	}

	candles := make([]core.Candle, 0, len(klines))
	for _, k := range klines {
		candles = append(candles, klineToCandle(symbol, k))
	}

	// The last kline is still forming; drop it so indicators only see
	// complete bars.
	if len(candles) > 0 {
		candles = candles[:len(candles)-1]
	}
	return candles, nil
}

func klineToCandle(symbol string, k *binance.Kline) core.Candle {
	parse := func(s string) float64 {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	return core.Candle{
		Symbol:   symbol,
		Time:     time.Unix(0, k.OpenTime*int64(time.Millisecond)),
		Open:     parse(k.Open),
		High:     parse(k.High),
		Low:      parse(k.Low),
		Close:    parse(k.Close),
		Volume:   parse(k.Volume),
		Complete: true,
	}
}
