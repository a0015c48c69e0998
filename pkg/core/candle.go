package core

import "time"

// Candle is an OHLCV bar served by a CandleFeeder.
type Candle struct {
	Symbol   string
	Time     time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
	Complete bool
}
