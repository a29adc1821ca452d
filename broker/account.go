package broker

// Position is a long-only holding in one symbol, carried at volume-weighted
// average cost. AvgPrice is meaningless (held at 0) while Quantity is 0.
type Position struct {
	Symbol   string
	Quantity float64
	// FrozenQuantity is the slice of Quantity committed to live sell orders.
	// It cannot be sold again until those orders resolve.
	FrozenQuantity float64
	AvgPrice       float64
	RealizedPnL    float64

	// Derived, recomputed from the latest reference price.
	MarketValue   float64
	UnrealizedPnL float64
}

// Account is the bookkeeping state for one trading account.
//
// Invariant: AvailableCapital + FrozenCapital <= TotalCapital, all >= 0.
// TotalCapital moves only on realized P&L and fee deduction, never on order
// placement alone.
type Account struct {
	ID               string
	InitialCapital   float64
	TotalCapital     float64
	AvailableCapital float64
	FrozenCapital    float64
	Positions        map[string]*Position
	Orders           map[string]*Order
	Fills            []Fill
}

func NewAccount(id string, initialCapital float64) *Account {
	return &Account{
		ID:               id,
		InitialCapital:   initialCapital,
		TotalCapital:     initialCapital,
		AvailableCapital: initialCapital,
		Positions:        make(map[string]*Position),
		Orders:           make(map[string]*Order),
	}
}

// Position returns the holding for symbol, or nil.
func (a *Account) Position(symbol string) *Position {
	return a.Positions[symbol]
}
