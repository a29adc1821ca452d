package market

import "time"

// Tick is a single reference-price event for a symbol. The engine keeps only
// the most recent tick per symbol; there is no depth.
type Tick struct {
	Symbol string
	Time   time.Time
	Price  float64
}

// Bar is one OHLCV candle.
type Bar struct {
	Symbol string
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}
