package market

import "sync"

// PriceStore holds the latest tick per symbol.
type PriceStore struct {
	mu    sync.RWMutex
	ticks map[string]Tick
}

func NewPriceStore() *PriceStore {
	return &PriceStore{ticks: make(map[string]Tick)}
}

func (ps *PriceStore) Set(t Tick) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.ticks[t.Symbol] = t
}

func (ps *PriceStore) Get(symbol string) (Tick, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	t, ok := ps.ticks[symbol]
	return t, ok
}

// Last returns the latest price for symbol, or 0 and false when no tick has
// been recorded yet.
func (ps *PriceStore) Last(symbol string) (float64, bool) {
	t, ok := ps.Get(symbol)
	return t.Price, ok
}

// Snapshot copies the current symbol -> price map.
func (ps *PriceStore) Snapshot() map[string]float64 {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	out := make(map[string]float64, len(ps.ticks))
	for sym, t := range ps.ticks {
		out[sym] = t.Price
	}
	return out
}
