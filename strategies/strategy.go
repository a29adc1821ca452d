// Package strategies holds the policy layer: pluggable hosts that react to
// market and order events and issue requests back into the broker. The
// matching core does not depend on this package.
package strategies

import (
	"github.com/marketlab/stocksim/broker"
	"github.com/marketlab/stocksim/market"
)

// Strategy is the full host contract. It matches what the engine fans out
// plus start/stop lifecycle hooks.
type Strategy interface {
	Name() string
	OnStart()
	OnStop()
	OnBar(market.Bar)
	OnTick(market.Tick)
	OnOrderUpdate(broker.Order)
	OnFill(broker.Fill)
}

// Base is a no-op Strategy for embedding; concrete strategies override what
// they care about.
type Base struct{}

func (Base) OnStart()                   {}
func (Base) OnStop()                    {}
func (Base) OnBar(market.Bar)           {}
func (Base) OnTick(market.Tick)         {}
func (Base) OnOrderUpdate(broker.Order) {}
func (Base) OnFill(broker.Fill)         {}

// Trader binds a strategy to one account on one broker and wraps the order
// API in intent-shaped helpers.
type Trader struct {
	AccountID string
	Broker    broker.Broker
}

func (t Trader) Buy(symbol string, qty float64) (string, error) {
	return t.Broker.SubmitOrder(broker.OrderRequest{
		AccountID: t.AccountID,
		Symbol:    symbol,
		Side:      broker.Buy,
		Type:      broker.Market,
		Quantity:  qty,
	})
}

func (t Trader) Sell(symbol string, qty float64) (string, error) {
	return t.Broker.SubmitOrder(broker.OrderRequest{
		AccountID: t.AccountID,
		Symbol:    symbol,
		Side:      broker.Sell,
		Type:      broker.Market,
		Quantity:  qty,
	})
}

func (t Trader) BuyLimit(symbol string, qty, limit float64) (string, error) {
	return t.Broker.SubmitOrder(broker.OrderRequest{
		AccountID:  t.AccountID,
		Symbol:     symbol,
		Side:       broker.Buy,
		Type:       broker.Limit,
		Quantity:   qty,
		LimitPrice: limit,
	})
}

func (t Trader) SellLimit(symbol string, qty, limit float64) (string, error) {
	return t.Broker.SubmitOrder(broker.OrderRequest{
		AccountID:  t.AccountID,
		Symbol:     symbol,
		Side:       broker.Sell,
		Type:       broker.Limit,
		Quantity:   qty,
		LimitPrice: limit,
	})
}

func (t Trader) Cancel(orderID string) error {
	return t.Broker.CancelOrder(orderID)
}
