package strategies

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/marketlab/stocksim/broker"
	"github.com/marketlab/stocksim/market"
)

type GridConfig struct {
	Symbol   string
	Quantity float64
	// ProfitTarget is the fractional gain the resting sell asks for, e.g.
	// 0.003 for 0.3%.
	ProfitTarget float64
	// SellTimeout, when positive, bails out of a resting sell that has not
	// filled within the window: cancel and liquidate at market. Measured in
	// event time (tick timestamps), never wall-clock sleeps.
	SellTimeout time.Duration
}

// Grid is a one-rung grid: buy at market when flat, park a limit sell one
// profit-target above the buy fill, re-enter once it fills.
type Grid struct {
	Base

	cfg    GridConfig
	trader Trader
	log    *zap.Logger

	mu           sync.Mutex
	pendingBuy   bool
	holding      bool
	restingSell  string
	sellPlacedAt time.Time
}

func NewGrid(cfg GridConfig, trader Trader, log *zap.Logger) *Grid {
	if log == nil {
		log = zap.NewNop()
	}
	return &Grid{
		cfg:    cfg,
		trader: trader,
		log:    log.Named("grid"),
	}
}

func (g *Grid) Name() string { return "grid" }

// OnTick decides under the lock and acts after releasing it: the broker
// notifies re-entrantly on the submitting goroutine, so calling it with the
// lock held would self-deadlock.
func (g *Grid) OnTick(t market.Tick) {
	if t.Symbol != g.cfg.Symbol {
		return
	}

	g.mu.Lock()
	var action func()
	switch {
	case !g.holding && !g.pendingBuy && g.restingSell == "":
		g.pendingBuy = true
		action = g.enter
	case g.restingSell != "" && g.cfg.SellTimeout > 0 &&
		!g.sellPlacedAt.IsZero() && t.Time.Sub(g.sellPlacedAt) > g.cfg.SellTimeout:
		stale := g.restingSell
		action = func() { g.bailOut(stale) }
	}
	g.mu.Unlock()

	if action != nil {
		action()
	}
}

func (g *Grid) OnFill(f broker.Fill) {
	if f.Symbol != g.cfg.Symbol {
		return
	}

	switch f.Side {
	case broker.Buy:
		g.mu.Lock()
		g.pendingBuy = false
		g.holding = true
		g.mu.Unlock()
		g.placeSell(f)

	case broker.Sell:
		g.mu.Lock()
		g.holding = false
		g.restingSell = ""
		g.sellPlacedAt = time.Time{}
		g.mu.Unlock()
		g.log.Info("rung closed",
			zap.Float64("price", f.Price),
			zap.Float64("quantity", f.Quantity))
	}
}

func (g *Grid) enter() {
	_, err := g.trader.Buy(g.cfg.Symbol, g.cfg.Quantity)
	if err != nil {
		g.log.Warn("grid entry rejected", zap.Error(err))
		g.mu.Lock()
		g.pendingBuy = false
		g.mu.Unlock()
	}
}

func (g *Grid) placeSell(buyFill broker.Fill) {
	target := buyFill.Price * (1 + g.cfg.ProfitTarget)
	oid, err := g.trader.SellLimit(g.cfg.Symbol, buyFill.Quantity, target)
	if err != nil {
		g.log.Warn("grid sell rejected", zap.Error(err))
		return
	}

	// The sell may have been marketable and filled during the call; only
	// track it as resting while it is still live.
	o, err := g.trader.Broker.GetOrder(oid)
	if err != nil || o.Status.Terminal() {
		return
	}
	g.mu.Lock()
	g.restingSell = oid
	g.sellPlacedAt = buyFill.Time
	g.mu.Unlock()
}

// bailOut cancels a stale resting sell and liquidates at market.
func (g *Grid) bailOut(orderID string) {
	o, err := g.trader.Broker.GetOrder(orderID)
	if err != nil || o.Status.Terminal() {
		return
	}
	if err := g.trader.Cancel(orderID); err != nil {
		return
	}

	g.mu.Lock()
	g.restingSell = ""
	g.sellPlacedAt = time.Time{}
	g.mu.Unlock()

	g.log.Info("stale sell cancelled, liquidating", zap.String("order_id", orderID))
	if _, err := g.trader.Sell(g.cfg.Symbol, o.Remaining()); err != nil {
		g.log.Warn("grid liquidation rejected", zap.Error(err))
	}
}
