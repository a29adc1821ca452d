// Package journal persists the engine's audit trail: one record per fill and
// one capital snapshot per committed change. Sinks are append-only.
package journal

import "time"

type FillRecord struct {
	FillID     string
	OrderID    string
	AccountID  string
	Symbol     string
	Side       string
	Quantity   float64
	Price      float64
	Commission float64
	Time       time.Time
}

type EquitySnapshot struct {
	Time      time.Time
	AccountID string
	Total     float64
	Available float64
	Frozen    float64
	// Portfolio is capital plus holdings marked at the latest prices.
	Portfolio float64
}

type Journal interface {
	RecordFill(FillRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards everything. Useful default for tests and bare runs.
type Nop struct{}

func (Nop) RecordFill(FillRecord) error       { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }
