// Package sim is the simulated broker: a single coordination point that
// turns price updates and order requests into fills, capital movements and
// strategy notifications.
package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/marketlab/stocksim/broker"
	"github.com/marketlab/stocksim/internal/id"
	"github.com/marketlab/stocksim/journal"
	"github.com/marketlab/stocksim/ledger"
	"github.com/marketlab/stocksim/market"
	"github.com/marketlab/stocksim/metrics"
	"github.com/marketlab/stocksim/risk"
)

// StrategyHost receives engine events. Callbacks run outside the engine's
// critical section; a panicking callback is recovered and logged, and never
// rolls back committed state.
type StrategyHost interface {
	Name() string
	OnBar(market.Bar)
	OnTick(market.Tick)
	OnOrderUpdate(broker.Order)
	OnFill(broker.Fill)
}

// event is one pending notification. Exactly one field is set.
type event struct {
	order *broker.Order
	fill  *broker.Fill
	bar   *market.Bar
	tick  *market.Tick
}

func orderEvent(o *broker.Order) event {
	c := *o
	return event{order: &c}
}

// Engine drives risk gate -> matching -> ledger -> registry for every order,
// and sweeps resting limit orders on every price update. One mutex serializes
// admission, cancellation and sweeps; the ledger adds per-account locking
// underneath.
type Engine struct {
	mu        sync.Mutex
	log       *zap.Logger
	ledger    *ledger.Ledger
	policy    risk.Policy
	fees      FeeModel
	journal   journal.Journal
	prices    *market.PriceStore
	orders    *registry
	resting   *restingBook
	reserved  map[string]float64 // buy order id -> per-unit reserved price
	subs      []StrategyHost
	connected bool
	now       func() time.Time
	// clock is the latest event time seen from the feed. Orders submitted
	// while replaying are stamped with it so simulated time stays coherent.
	clock time.Time
}

var _ broker.Broker = (*Engine)(nil)

func NewEngine(l *ledger.Ledger, policy risk.Policy, fees FeeModel, j journal.Journal, log *zap.Logger) *Engine {
	if j == nil {
		j = journal.Nop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		log:      log.Named("sim"),
		ledger:   l,
		policy:   policy,
		fees:     fees,
		journal:  j,
		prices:   market.NewPriceStore(),
		orders:   newRegistry(),
		resting:  newRestingBook(),
		reserved: make(map[string]float64),
		now:      time.Now,
	}
}

// Ledger exposes the account store for read-mostly collaborators (CLI, feed).
func (e *Engine) Ledger() *ledger.Ledger { return e.ledger }

func (e *Engine) Connect() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connected = true
	e.log.Info("connected")
	return nil
}

func (e *Engine) Disconnect() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.connected = false
	e.log.Info("disconnected")
}

// Subscribe registers a strategy host for bar/tick/order/fill fan-out.
func (e *Engine) Subscribe(s StrategyHost) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.subs = append(e.subs, s)
}

func (e *Engine) CreateAccount(accountID string, initialCapital float64) (broker.Account, error) {
	acct, err := e.ledger.CreateAccount(accountID, initialCapital)
	if err != nil {
		return broker.Account{}, err
	}
	e.log.Info("account created",
		zap.String("account_id", accountID),
		zap.Float64("initial_capital", initialCapital))
	return acct, nil
}

func (e *Engine) GetAccount(accountID string) (broker.Account, error) {
	return e.ledger.Snapshot(accountID)
}

func (e *Engine) GetOrder(orderID string) (broker.Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.orders.get(orderID)
	if !ok {
		return broker.Order{}, fmt.Errorf("order %q: %w", orderID, broker.ErrNotFound)
	}
	return *o, nil
}

// SubmitOrder admits, risk-checks and (when possible) matches an order. The
// returned id identifies the order even when it was rejected; a rejection is
// reported as an error wrapping broker.ErrRejected, with the machine-readable
// reason on the order itself.
func (e *Engine) SubmitOrder(req broker.OrderRequest) (string, error) {
	if req.Quantity <= 0 {
		return "", fmt.Errorf("submit order: quantity must be positive")
	}
	if req.Type == broker.Limit && req.LimitPrice <= 0 {
		return "", fmt.Errorf("submit order: limit price must be positive")
	}

	e.mu.Lock()
	oid, events, err := e.submitLocked(req)
	e.mu.Unlock()
	e.notify(events)
	return oid, err
}

// nowLocked returns the simulated clock once a feed has advanced it, wall
// time before that.
func (e *Engine) nowLocked() time.Time {
	if !e.clock.IsZero() {
		return e.clock
	}
	return e.now()
}

func (e *Engine) submitLocked(req broker.OrderRequest) (string, []event, error) {
	now := e.nowLocked()
	o := &broker.Order{
		ID:         id.New(),
		AccountID:  req.AccountID,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Type:       req.Type,
		Quantity:   req.Quantity,
		LimitPrice: req.LimitPrice,
		Status:     broker.Pending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	reject := func(reason broker.RejectReason) (string, []event, error) {
		e.orders.reject(o, reason, now)
		_ = e.ledger.AttachOrder(o.AccountID, o)
		metrics.IncOrdersRejected()
		e.log.Warn("order rejected",
			zap.String("order_id", o.ID),
			zap.String("symbol", o.Symbol),
			zap.String("reason", string(reason)))
		return o.ID, []event{orderEvent(o)},
			fmt.Errorf("submit %s %s %s: %s: %w", o.Side, o.Type, o.Symbol, reason, broker.ErrRejected)
	}

	if !e.connected {
		return reject(broker.ReasonDisconnected)
	}

	acct, err := e.ledger.Snapshot(req.AccountID)
	if err != nil {
		return "", nil, fmt.Errorf("submit order: %w", err)
	}

	ref, hasRef := e.prices.Last(req.Symbol)
	if req.Type == broker.Market && !hasRef {
		return reject(broker.ReasonNoPrice)
	}

	// Buys are risk-checked and reserved at the price the fill will actually
	// cost: the slipped reference price for market orders, the limit price
	// for limit orders. Sells commit the quantity so the same shares cannot
	// back two live orders.
	checkPrice := ref
	if req.Type == broker.Limit {
		checkPrice = req.LimitPrice
	} else if req.Side == broker.Buy {
		checkPrice = e.fees.Slipped(ref, true)
	}

	if req.Side == broker.Buy {
		fee := e.fees.Commission(req.Quantity, checkPrice)
		if err := risk.CheckBuyingPower(acct, req.Symbol, req.Quantity, checkPrice, fee, e.policy); err != nil {
			if errors.Is(err, broker.ErrInsufficientFunds) {
				return reject(broker.ReasonBuyingPower)
			}
			return reject(broker.ReasonConcentration)
		}
		if err := e.ledger.Reserve(req.AccountID, req.Quantity*checkPrice); err != nil {
			return reject(broker.ReasonBuyingPower)
		}
		e.reserved[o.ID] = checkPrice
	} else {
		if err := risk.CheckSellable(acct, req.Symbol, req.Quantity); err != nil {
			return reject(broker.ReasonPosition)
		}
		if err := e.ledger.ReserveQuantity(req.AccountID, req.Symbol, req.Quantity); err != nil {
			return reject(broker.ReasonPosition)
		}
	}

	e.orders.submit(o, now)
	_ = e.ledger.AttachOrder(o.AccountID, o)
	metrics.IncOrdersSubmitted()
	e.log.Info("order submitted",
		zap.String("order_id", o.ID),
		zap.String("account_id", o.AccountID),
		zap.String("symbol", o.Symbol),
		zap.Stringer("side", o.Side),
		zap.Stringer("type", o.Type),
		zap.Float64("quantity", o.Quantity))
	events := []event{orderEvent(o)}

	switch o.Type {
	case broker.Market:
		evs, err := e.fillLocked(o, e.fees.Slipped(ref, o.Side == broker.Buy), o.Remaining(), now)
		if err != nil {
			return o.ID, events, err
		}
		events = append(events, evs...)

	case broker.Limit:
		if hasRef && marketable(o, ref) {
			evs, err := e.fillLocked(o, ref, o.Remaining(), now)
			if err != nil {
				return o.ID, events, err
			}
			events = append(events, evs...)
		} else {
			e.resting.add(o)
		}
	}

	return o.ID, events, nil
}

// CancelOrder is a best-effort synchronous transition. Terminal orders fail
// with broker.ErrInvalidTransition and nothing changes.
func (e *Engine) CancelOrder(orderID string) error {
	e.mu.Lock()
	events, err := e.cancelLocked(orderID)
	e.mu.Unlock()
	e.notify(events)
	return err
}

func (e *Engine) cancelLocked(orderID string) ([]event, error) {
	o, ok := e.orders.get(orderID)
	if !ok {
		return nil, fmt.Errorf("cancel order %q: %w", orderID, broker.ErrNotFound)
	}

	now := e.nowLocked()
	remaining := o.Remaining()
	if err := e.orders.cancel(o, now); err != nil {
		return nil, err
	}

	e.releaseLocked(o, remaining)
	if o.Type == broker.Limit {
		e.resting.remove(o)
	}

	metrics.IncOrdersCancelled()
	e.log.Info("order cancelled", zap.String("order_id", o.ID))
	return []event{orderEvent(o)}, nil
}

// releaseLocked gives back whatever the unfilled remainder still holds:
// frozen capital for buys, committed quantity for sells.
func (e *Engine) releaseLocked(o *broker.Order, remaining float64) {
	if o.Side == broker.Buy {
		if unit, ok := e.reserved[o.ID]; ok {
			if err := e.ledger.Release(o.AccountID, remaining*unit); err != nil {
				e.log.Error("release frozen capital", zap.String("order_id", o.ID), zap.Error(err))
			}
			delete(e.reserved, o.ID)
		}
		return
	}
	if err := e.ledger.ReleaseQuantity(o.AccountID, o.Symbol, remaining); err != nil {
		e.log.Error("release committed quantity", zap.String("order_id", o.ID), zap.Error(err))
	}
}

// UpdateMarketData records a new reference price and sweeps resting limit
// orders for the symbol.
func (e *Engine) UpdateMarketData(symbol string, price float64) error {
	return e.PushTick(market.Tick{Symbol: symbol, Time: e.now(), Price: price})
}

// PushTick is UpdateMarketData with an explicit event time.
func (e *Engine) PushTick(t market.Tick) error {
	e.mu.Lock()
	events := e.tickLocked(t)
	events = append(events, event{tick: &t})
	e.mu.Unlock()
	e.notify(events)
	return nil
}

// PushBar forwards an OHLCV bar to subscribers; its close is treated as the
// symbol's new reference price.
func (e *Engine) PushBar(b market.Bar) error {
	t := market.Tick{Symbol: b.Symbol, Time: b.Time, Price: b.Close}
	e.mu.Lock()
	events := e.tickLocked(t)
	events = append(events, event{bar: &b}, event{tick: &t})
	e.mu.Unlock()
	e.notify(events)
	return nil
}

func (e *Engine) tickLocked(t market.Tick) []event {
	if t.Time.IsZero() {
		t.Time = e.now()
	}
	if t.Time.After(e.clock) {
		e.clock = t.Time
	}
	e.prices.Set(t)

	var events []event
	for _, o := range e.resting.eligible(t.Symbol, t.Price) {
		// Resting orders trade at the update price, not their limit.
		evs, err := e.fillLocked(o, t.Price, o.Remaining(), t.Time)
		if err != nil {
			// One order that cannot commit must not stall the sweep: evict
			// it and keep going through the remaining eligible orders.
			events = append(events, e.evictLocked(o, err, t.Time)...)
			continue
		}
		if o.Status.Terminal() {
			e.resting.remove(o)
		}
		events = append(events, evs...)
	}

	prices := e.prices.Snapshot()
	for _, accountID := range e.ledger.AccountIDs() {
		if _, err := e.ledger.MarkToMarket(accountID, prices); err != nil {
			e.log.Warn("mark to market", zap.String("account_id", accountID), zap.Error(err))
		}
	}

	return events
}

// evictLocked force-cancels a resting order whose fill could not commit,
// returning its remaining reservations so the account stays consistent.
func (e *Engine) evictLocked(o *broker.Order, cause error, now time.Time) []event {
	remaining := o.Remaining()
	e.resting.remove(o)
	if err := e.orders.cancel(o, now); err != nil {
		e.log.Error("evict resting order", zap.String("order_id", o.ID), zap.Error(err))
		return nil
	}
	e.releaseLocked(o, remaining)

	metrics.IncOrdersCancelled()
	e.log.Error("resting order evicted",
		zap.String("order_id", o.ID),
		zap.String("symbol", o.Symbol),
		zap.Error(cause))
	return []event{orderEvent(o)}
}

// fillLocked commits one fill: release frozen capital (buys), book the fill,
// charge commission, advance the order, journal. The returned events carry
// the order update before the fill.
func (e *Engine) fillLocked(o *broker.Order, price, qty float64, now time.Time) ([]event, error) {
	commission := e.fees.Commission(qty, price)
	fill := broker.Fill{
		ID:         uuid.NewString(),
		OrderID:    o.ID,
		AccountID:  o.AccountID,
		Symbol:     o.Symbol,
		Side:       o.Side,
		Quantity:   qty,
		Price:      price,
		Commission: commission,
		Time:       now,
	}

	if o.Side == broker.Buy {
		if unit, ok := e.reserved[o.ID]; ok {
			if err := e.ledger.Release(o.AccountID, qty*unit); err != nil {
				return nil, fmt.Errorf("fill order %s: %w", o.ID, err)
			}
		}
	}

	if err := e.ledger.ApplyFill(fill); err != nil {
		return nil, fmt.Errorf("fill order %s: %w", o.ID, err)
	}
	if err := e.ledger.DeductFee(o.AccountID, commission); err != nil {
		return nil, fmt.Errorf("fill order %s: %w", o.ID, err)
	}
	if err := e.orders.applyFill(o, qty, now); err != nil {
		return nil, err
	}
	if o.Status.Terminal() {
		delete(e.reserved, o.ID)
	}

	metrics.IncFills()
	if o.Status == broker.Filled {
		metrics.IncOrdersFilled()
	}

	e.recordLocked(fill)
	e.log.Info("order filled",
		zap.String("order_id", o.ID),
		zap.String("fill_id", fill.ID),
		zap.String("symbol", fill.Symbol),
		zap.Stringer("side", fill.Side),
		zap.Float64("quantity", qty),
		zap.Float64("price", price),
		zap.Float64("commission", commission))

	return []event{orderEvent(o), {fill: &fill}}, nil
}

// recordLocked journals the fill and an equity snapshot. Journal failures are
// logged, never rolled back: the state change is already committed.
func (e *Engine) recordLocked(fill broker.Fill) {
	rec := journal.FillRecord{
		FillID:     fill.ID,
		OrderID:    fill.OrderID,
		AccountID:  fill.AccountID,
		Symbol:     fill.Symbol,
		Side:       fill.Side.String(),
		Quantity:   fill.Quantity,
		Price:      fill.Price,
		Commission: fill.Commission,
		Time:       fill.Time,
	}
	if err := e.journal.RecordFill(rec); err != nil {
		e.log.Warn("journal fill", zap.Error(err))
	}

	value, err := e.ledger.MarkToMarket(fill.AccountID, e.prices.Snapshot())
	if err != nil {
		return
	}
	acct, err := e.ledger.Snapshot(fill.AccountID)
	if err != nil {
		return
	}
	snap := journal.EquitySnapshot{
		Time:      fill.Time,
		AccountID: fill.AccountID,
		Total:     acct.TotalCapital,
		Available: acct.AvailableCapital,
		Frozen:    acct.FrozenCapital,
		Portfolio: value,
	}
	if err := e.journal.RecordEquity(snap); err != nil {
		e.log.Warn("journal equity", zap.Error(err))
	}
}

// notify fans events out to subscribers outside the critical section. The
// per-event sequence already encodes order-update-before-fill.
func (e *Engine) notify(events []event) {
	if len(events) == 0 {
		return
	}
	e.mu.Lock()
	subs := append([]StrategyHost(nil), e.subs...)
	e.mu.Unlock()

	for _, ev := range events {
		for _, s := range subs {
			e.dispatch(s, ev)
		}
	}
}

func (e *Engine) dispatch(s StrategyHost, ev event) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("strategy callback panicked",
				zap.String("strategy", s.Name()),
				zap.Any("panic", r))
		}
	}()

	switch {
	case ev.order != nil:
		s.OnOrderUpdate(*ev.order)
	case ev.fill != nil:
		s.OnFill(*ev.fill)
	case ev.bar != nil:
		s.OnBar(*ev.bar)
	case ev.tick != nil:
		s.OnTick(*ev.tick)
	}
}
