package sim

import (
	"sort"

	"github.com/marketlab/stocksim/broker"
)

// restingBook holds admitted limit orders waiting for a marketable price,
// grouped per symbol.
type restingBook struct {
	bySymbol map[string]map[string]*broker.Order
}

func newRestingBook() *restingBook {
	return &restingBook{bySymbol: make(map[string]map[string]*broker.Order)}
}

func (b *restingBook) add(o *broker.Order) {
	set := b.bySymbol[o.Symbol]
	if set == nil {
		set = make(map[string]*broker.Order)
		b.bySymbol[o.Symbol] = set
	}
	set[o.ID] = o
}

func (b *restingBook) remove(o *broker.Order) {
	set := b.bySymbol[o.Symbol]
	delete(set, o.ID)
	if len(set) == 0 {
		delete(b.bySymbol, o.Symbol)
	}
}

// eligible returns the resting orders for symbol that are marketable at
// price, first-in-first-served. Order IDs are ULIDs, so sorting by ID sorts
// by submission time.
func (b *restingBook) eligible(symbol string, price float64) []*broker.Order {
	var out []*broker.Order
	for _, o := range b.bySymbol[symbol] {
		if marketable(o, price) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// marketable reports whether a limit order can trade against price: buys at
// or below the limit, sells at or above it.
func marketable(o *broker.Order, price float64) bool {
	if o.Side == broker.Buy {
		return price <= o.LimitPrice
	}
	return price >= o.LimitPrice
}
