// Package ledger owns account capital and position quantities. It is pure
// bookkeeping: no I/O, no matching, no risk decisions. Every mutation is
// atomic with respect to a single account.
package ledger

import (
	"fmt"
	"sync"

	"github.com/marketlab/stocksim/broker"
)

type entry struct {
	mu   sync.Mutex
	acct *broker.Account
}

// Ledger is the account store. Operations on different accounts may run in
// parallel; operations on one account are serialized by a per-account lock.
type Ledger struct {
	mu       sync.RWMutex
	accounts map[string]*entry
}

func New() *Ledger {
	return &Ledger{accounts: make(map[string]*entry)}
}

// CreateAccount registers a new account seeded with initialCapital. Creating
// an account that already exists is an error.
func (l *Ledger) CreateAccount(id string, initialCapital float64) (broker.Account, error) {
	if initialCapital < 0 {
		return broker.Account{}, fmt.Errorf("create account %q: negative initial capital", id)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.accounts[id]; ok {
		return broker.Account{}, fmt.Errorf("create account: %q already exists", id)
	}

	acct := broker.NewAccount(id, initialCapital)
	l.accounts[id] = &entry{acct: acct}
	return snapshot(acct), nil
}

func (l *Ledger) lookup(accountID string) (*entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("account %q: %w", accountID, broker.ErrNotFound)
	}
	return e, nil
}

// with runs fn under the account's lock.
func (l *Ledger) with(accountID string, fn func(a *broker.Account) error) error {
	e, err := l.lookup(accountID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.acct)
}

// Reserve moves amount from available to frozen capital ahead of a buy order.
func (l *Ledger) Reserve(accountID string, amount float64) error {
	return l.with(accountID, func(a *broker.Account) error {
		if a.AvailableCapital < amount {
			return fmt.Errorf("reserve %.2f for %q: %w", amount, accountID, broker.ErrInsufficientFunds)
		}
		a.AvailableCapital -= amount
		a.FrozenCapital += amount
		return nil
	})
}

// Release reverses a reservation, moving amount from frozen back to available.
func (l *Ledger) Release(accountID string, amount float64) error {
	return l.with(accountID, func(a *broker.Account) error {
		if a.FrozenCapital < amount {
			return fmt.Errorf("release %.2f for %q exceeds frozen %.2f: %w",
				amount, accountID, a.FrozenCapital, broker.ErrInsufficientFunds)
		}
		a.FrozenCapital -= amount
		a.AvailableCapital += amount
		return nil
	})
}

// ReserveQuantity commits qty of an existing holding to a live sell order so
// the same shares cannot back two orders at once. It is the sell-side mirror
// of Reserve.
func (l *Ledger) ReserveQuantity(accountID, symbol string, qty float64) error {
	return l.with(accountID, func(a *broker.Account) error {
		pos := a.Positions[symbol]
		if pos == nil || pos.Quantity-pos.FrozenQuantity < qty {
			sellable := 0.0
			if pos != nil {
				sellable = pos.Quantity - pos.FrozenQuantity
			}
			return fmt.Errorf("commit %.0f %s with %.0f uncommitted: %w",
				qty, symbol, sellable, broker.ErrInsufficientPosition)
		}
		pos.FrozenQuantity += qty
		return nil
	})
}

// ReleaseQuantity reverses a sell-side commitment.
func (l *Ledger) ReleaseQuantity(accountID, symbol string, qty float64) error {
	return l.with(accountID, func(a *broker.Account) error {
		pos := a.Positions[symbol]
		if pos == nil || pos.FrozenQuantity < qty {
			return fmt.Errorf("release %.0f %s exceeds committed quantity: %w",
				qty, symbol, broker.ErrInsufficientPosition)
		}
		pos.FrozenQuantity -= qty
		return nil
	})
}

// ApplyFill books one execution into the account using weighted-average-cost
// accounting and appends it to the fill history. Commission is not applied
// here; see DeductFee.
func (l *Ledger) ApplyFill(fill broker.Fill) error {
	return l.with(fill.AccountID, func(a *broker.Account) error {
		pos := a.Positions[fill.Symbol]
		if pos == nil {
			pos = &broker.Position{Symbol: fill.Symbol}
			a.Positions[fill.Symbol] = pos
		}

		switch fill.Side {
		case broker.Buy:
			totalCost := pos.Quantity*pos.AvgPrice + fill.Quantity*fill.Price
			pos.Quantity += fill.Quantity
			if pos.Quantity > 0 {
				pos.AvgPrice = totalCost / pos.Quantity
			}
			a.AvailableCapital -= fill.Notional()

		case broker.Sell:
			if pos.Quantity < fill.Quantity {
				return fmt.Errorf("sell %.0f %s with %.0f held: %w",
					fill.Quantity, fill.Symbol, pos.Quantity, broker.ErrInsufficientPosition)
			}
			realized := (fill.Price - pos.AvgPrice) * fill.Quantity
			pos.RealizedPnL += realized
			a.TotalCapital += realized
			pos.Quantity -= fill.Quantity
			pos.FrozenQuantity -= fill.Quantity
			if pos.FrozenQuantity < 0 {
				pos.FrozenQuantity = 0
			}
			a.AvailableCapital += fill.Notional()
			if pos.Quantity == 0 {
				pos.AvgPrice = 0
				pos.MarketValue = 0
				pos.UnrealizedPnL = 0
			}
		}

		a.Fills = append(a.Fills, fill)
		return nil
	})
}

// DeductFee charges a commission: both available and total capital drop,
// independent of P&L.
func (l *Ledger) DeductFee(accountID string, amount float64) error {
	return l.with(accountID, func(a *broker.Account) error {
		a.AvailableCapital -= amount
		a.TotalCapital -= amount
		return nil
	})
}

// AttachOrder links an order into its account's order map.
func (l *Ledger) AttachOrder(accountID string, o *broker.Order) error {
	return l.with(accountID, func(a *broker.Account) error {
		a.Orders[o.ID] = o
		return nil
	})
}

// MarkToMarket recomputes derived position fields (market value, unrealized
// P&L) from the given prices and returns the portfolio value: capital plus
// the marked value of all holdings. TotalCapital itself is untouched; it only
// moves on realized P&L and fees.
func (l *Ledger) MarkToMarket(accountID string, prices map[string]float64) (float64, error) {
	var value float64
	err := l.with(accountID, func(a *broker.Account) error {
		value = a.AvailableCapital + a.FrozenCapital
		for sym, pos := range a.Positions {
			if pos.Quantity <= 0 {
				continue
			}
			price, ok := prices[sym]
			if !ok {
				continue
			}
			pos.MarketValue = pos.Quantity * price
			pos.UnrealizedPnL = pos.MarketValue - pos.Quantity*pos.AvgPrice
			value += pos.MarketValue
		}
		return nil
	})
	return value, err
}

// Snapshot returns a deep copy of the account for read-only inspection.
func (l *Ledger) Snapshot(accountID string) (broker.Account, error) {
	var out broker.Account
	err := l.with(accountID, func(a *broker.Account) error {
		out = snapshot(a)
		return nil
	})
	return out, err
}

// AccountIDs lists the registered accounts.
func (l *Ledger) AccountIDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ids := make([]string, 0, len(l.accounts))
	for id := range l.accounts {
		ids = append(ids, id)
	}
	return ids
}

func snapshot(a *broker.Account) broker.Account {
	out := *a
	out.Positions = make(map[string]*broker.Position, len(a.Positions))
	for sym, pos := range a.Positions {
		p := *pos
		out.Positions[sym] = &p
	}
	out.Orders = make(map[string]*broker.Order, len(a.Orders))
	for oid, o := range a.Orders {
		c := *o
		out.Orders[oid] = &c
	}
	out.Fills = append([]broker.Fill(nil), a.Fills...)
	return out
}
