package strategies

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/marketlab/stocksim/broker"
	"github.com/marketlab/stocksim/indicators"
	"github.com/marketlab/stocksim/market"
)

type MACrossConfig struct {
	Symbol     string
	Quantity   float64
	FastPeriod int
	SlowPeriod int
}

// MACross buys when the fast EMA crosses above the slow EMA and liquidates
// on the cross down. It signals only on the cross transition, not on every
// tick while the EMAs remain crossed.
type MACross struct {
	Base

	cfg    MACrossConfig
	trader Trader
	log    *zap.Logger

	fast *indicators.EMA
	slow *indicators.EMA

	mu sync.Mutex
	// prevRel: -1 fast below slow, 0 unknown/warming, +1 fast above slow.
	prevRel int
	holding float64
}

func NewMACross(cfg MACrossConfig, trader Trader, log *zap.Logger) *MACross {
	if cfg.FastPeriod <= 0 || cfg.SlowPeriod <= 0 {
		panic("MACross periods must be > 0")
	}
	if cfg.FastPeriod >= cfg.SlowPeriod {
		panic("MACross requires FastPeriod < SlowPeriod")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &MACross{
		cfg:    cfg,
		trader: trader,
		log:    log.Named("macross"),
		fast:   indicators.NewEMA(cfg.FastPeriod),
		slow:   indicators.NewEMA(cfg.SlowPeriod),
	}
}

func (x *MACross) Name() string {
	return fmt.Sprintf("MA_CROSS(%d,%d)", x.cfg.FastPeriod, x.cfg.SlowPeriod)
}

func (x *MACross) OnTick(t market.Tick) {
	if t.Symbol != x.cfg.Symbol {
		return
	}

	x.mu.Lock()
	fv, fok := x.fast.Update(t.Price)
	sv, sok := x.slow.Update(t.Price)
	if !fok || !sok {
		x.mu.Unlock()
		return
	}

	rel := 0
	if fv > sv {
		rel = +1
	} else if fv < sv {
		rel = -1
	}

	var action func()
	switch {
	case x.prevRel == 0:
		// First time both EMAs are ready: set the baseline, don't trade.
	case x.prevRel == -1 && rel == +1 && x.holding == 0:
		action = x.enter
	case x.prevRel == +1 && rel == -1 && x.holding > 0:
		qty := x.holding
		action = func() { x.exit(qty) }
	}
	if rel != 0 {
		x.prevRel = rel
	}
	x.mu.Unlock()

	// Acting outside the lock: the broker notifies re-entrantly.
	if action != nil {
		action()
	}
}

func (x *MACross) OnFill(f broker.Fill) {
	if f.Symbol != x.cfg.Symbol {
		return
	}
	x.mu.Lock()
	if f.Side == broker.Buy {
		x.holding += f.Quantity
	} else {
		x.holding -= f.Quantity
	}
	x.mu.Unlock()
}

func (x *MACross) enter() {
	if _, err := x.trader.Buy(x.cfg.Symbol, x.cfg.Quantity); err != nil {
		x.log.Warn("entry rejected", zap.Error(err))
	}
}

func (x *MACross) exit(qty float64) {
	if _, err := x.trader.Sell(x.cfg.Symbol, qty); err != nil {
		x.log.Warn("exit rejected", zap.Error(err))
	}
}
