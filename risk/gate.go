// Package risk is the stateless gate consulted before an order is admitted.
// Checks run over a read-only account snapshot; a failure is terminal for
// that order and is never retried by the engine.
package risk

import (
	"fmt"

	"github.com/marketlab/stocksim/broker"
)

// CheckBuyingPower verifies the account can fund a buy of qty at price plus
// the estimated fee, and that the order's notional stays under the
// single-position concentration cap.
func CheckBuyingPower(acct broker.Account, symbol string, qty, price, fee float64, p Policy) error {
	required := qty*price + fee

	if acct.AvailableCapital < required {
		return fmt.Errorf("buy %s: need %.2f, available %.2f: %w",
			symbol, required, acct.AvailableCapital, broker.ErrInsufficientFunds)
	}

	if acct.TotalCapital > 0 && p.MaxPositionRatio > 0 {
		ratio := qty * price / acct.TotalCapital
		if ratio > p.MaxPositionRatio {
			return fmt.Errorf("buy %s: notional ratio %.3f exceeds %.3f: %w",
				symbol, ratio, p.MaxPositionRatio, broker.ErrRejected)
		}
	}

	return nil
}

// CheckSellable verifies the account holds at least qty of symbol beyond what
// is already committed to other live sell orders.
func CheckSellable(acct broker.Account, symbol string, qty float64) error {
	pos := acct.Position(symbol)
	sellable := 0.0
	if pos != nil {
		sellable = pos.Quantity - pos.FrozenQuantity
	}
	if sellable < qty {
		return fmt.Errorf("sell %.0f %s with %.0f sellable: %w",
			qty, symbol, sellable, broker.ErrInsufficientPosition)
	}
	return nil
}
