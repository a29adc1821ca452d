package strategies

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketlab/stocksim/broker"
)

func TestMACrossTradesOnCrossTransitions(t *testing.T) {
	t.Parallel()

	e := newBroker(t, 100000)
	x := NewMACross(MACrossConfig{
		Symbol:     "600000",
		Quantity:   100,
		FastPeriod: 2,
		SlowPeriod: 3,
	}, Trader{AccountID: "A1", Broker: e}, nil)
	e.Subscribe(x)

	t0 := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	push := func(i int, price float64) {
		require.NoError(t, e.PushTick(tick("600000", price, t0.Add(time.Duration(i)*time.Minute))))
	}

	// Warmup plus a flat baseline: no trades while the EMAs agree.
	push(0, 10)
	push(1, 10)
	push(2, 10)
	// Fast EMA dips below slow: establishes the baseline, still no trade.
	push(3, 9)

	a, err := e.GetAccount("A1")
	require.NoError(t, err)
	assert.Empty(t, a.Fills, "no trade before a cross transition")

	// Cross up: enter long.
	push(4, 12)
	a, _ = e.GetAccount("A1")
	require.Len(t, a.Fills, 1)
	assert.Equal(t, broker.Buy, a.Fills[0].Side)
	assert.InDelta(t, 100, a.Position("600000").Quantity, 1e-9)

	// Still above: no pyramiding on repeat ticks.
	push(5, 13)
	a, _ = e.GetAccount("A1")
	assert.Len(t, a.Fills, 1)

	// Cross down: liquidate.
	push(6, 7)
	a, _ = e.GetAccount("A1")
	require.Len(t, a.Fills, 2)
	assert.Equal(t, broker.Sell, a.Fills[1].Side)
	assert.Zero(t, a.Position("600000").Quantity)
}

func TestMACrossRejectsBadPeriods(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		NewMACross(MACrossConfig{Symbol: "600000", FastPeriod: 5, SlowPeriod: 3}, Trader{}, nil)
	})
	assert.Panics(t, func() {
		NewMACross(MACrossConfig{Symbol: "600000", FastPeriod: 0, SlowPeriod: 3}, Trader{}, nil)
	})
}
