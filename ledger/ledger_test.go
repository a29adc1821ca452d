package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketlab/stocksim/broker"
)

func newFill(acct, symbol string, side broker.Side, qty, price float64) broker.Fill {
	return broker.Fill{
		ID:        "F1",
		OrderID:   "O1",
		AccountID: acct,
		Symbol:    symbol,
		Side:      side,
		Quantity:  qty,
		Price:     price,
		Time:      time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestCreateAccount(t *testing.T) {
	t.Parallel()

	l := New()
	acct, err := l.CreateAccount("A1", 100000)
	require.NoError(t, err)
	assert.InDelta(t, 100000, acct.TotalCapital, 1e-9)
	assert.InDelta(t, 100000, acct.AvailableCapital, 1e-9)
	assert.Zero(t, acct.FrozenCapital)

	_, err = l.CreateAccount("A1", 5000)
	assert.Error(t, err, "duplicate account id must fail")

	_, err = l.Snapshot("missing")
	assert.ErrorIs(t, err, broker.ErrNotFound)
}

func TestReserveRelease(t *testing.T) {
	t.Parallel()

	l := New()
	_, err := l.CreateAccount("A1", 1000)
	require.NoError(t, err)

	require.NoError(t, l.Reserve("A1", 600))

	a, _ := l.Snapshot("A1")
	assert.InDelta(t, 400, a.AvailableCapital, 1e-9)
	assert.InDelta(t, 600, a.FrozenCapital, 1e-9)
	assert.InDelta(t, 1000, a.TotalCapital, 1e-9)

	err = l.Reserve("A1", 500)
	assert.ErrorIs(t, err, broker.ErrInsufficientFunds)

	require.NoError(t, l.Release("A1", 600))
	a, _ = l.Snapshot("A1")
	assert.InDelta(t, 1000, a.AvailableCapital, 1e-9)
	assert.Zero(t, a.FrozenCapital)

	err = l.Release("A1", 1)
	assert.ErrorIs(t, err, broker.ErrInsufficientFunds)
}

func TestReserveReleaseQuantity(t *testing.T) {
	t.Parallel()

	l := New()
	_, err := l.CreateAccount("A1", 100000)
	require.NoError(t, err)
	require.NoError(t, l.ApplyFill(newFill("A1", "600000", broker.Buy, 100, 10)))

	require.NoError(t, l.ReserveQuantity("A1", "600000", 60))
	require.NoError(t, l.ReserveQuantity("A1", "600000", 40))

	// Everything is committed now; not one more share can be.
	err = l.ReserveQuantity("A1", "600000", 1)
	assert.ErrorIs(t, err, broker.ErrInsufficientPosition)

	a, _ := l.Snapshot("A1")
	assert.InDelta(t, 100, a.Position("600000").FrozenQuantity, 1e-9)

	require.NoError(t, l.ReleaseQuantity("A1", "600000", 100))
	a, _ = l.Snapshot("A1")
	assert.Zero(t, a.Position("600000").FrozenQuantity)

	err = l.ReleaseQuantity("A1", "600000", 1)
	assert.ErrorIs(t, err, broker.ErrInsufficientPosition)

	// No holding at all means nothing to commit.
	err = l.ReserveQuantity("A1", "000001", 1)
	assert.ErrorIs(t, err, broker.ErrInsufficientPosition)
}

func TestSellFillConsumesCommittedQuantity(t *testing.T) {
	t.Parallel()

	l := New()
	_, err := l.CreateAccount("A1", 100000)
	require.NoError(t, err)
	require.NoError(t, l.ApplyFill(newFill("A1", "600000", broker.Buy, 100, 10)))
	require.NoError(t, l.ReserveQuantity("A1", "600000", 100))

	require.NoError(t, l.ApplyFill(newFill("A1", "600000", broker.Sell, 100, 11)))

	a, _ := l.Snapshot("A1")
	pos := a.Position("600000")
	assert.Zero(t, pos.Quantity)
	assert.Zero(t, pos.FrozenQuantity, "the fill consumes its commitment")
}

func TestApplyFillWeightedAverage(t *testing.T) {
	t.Parallel()

	l := New()
	_, err := l.CreateAccount("A1", 100000)
	require.NoError(t, err)

	require.NoError(t, l.ApplyFill(newFill("A1", "600000", broker.Buy, 100, 10)))
	require.NoError(t, l.ApplyFill(newFill("A1", "600000", broker.Buy, 100, 12)))

	a, _ := l.Snapshot("A1")
	pos := a.Position("600000")
	require.NotNil(t, pos)
	assert.InDelta(t, 200, pos.Quantity, 1e-9)
	assert.InDelta(t, 11, pos.AvgPrice, 1e-9)
	assert.InDelta(t, 100000-100*10-100*12, a.AvailableCapital, 1e-9)
	assert.InDelta(t, 100000, a.TotalCapital, 1e-9, "buys alone never move total capital")
	assert.Len(t, a.Fills, 2)
}

func TestApplyFillSellRealizesPnL(t *testing.T) {
	t.Parallel()

	l := New()
	_, err := l.CreateAccount("A1", 100000)
	require.NoError(t, err)

	require.NoError(t, l.ApplyFill(newFill("A1", "600000", broker.Buy, 100, 10.01)))
	require.NoError(t, l.ApplyFill(newFill("A1", "600000", broker.Sell, 100, 10.06)))

	a, _ := l.Snapshot("A1")
	pos := a.Position("600000")
	require.NotNil(t, pos)
	assert.Zero(t, pos.Quantity)
	assert.Zero(t, pos.AvgPrice, "avg price resets when flat")
	assert.InDelta(t, 5.0, pos.RealizedPnL, 1e-9)
	assert.InDelta(t, 100005, a.TotalCapital, 1e-9)
	assert.InDelta(t, 100005, a.AvailableCapital, 1e-9)
}

func TestApplyFillSellTooMuch(t *testing.T) {
	t.Parallel()

	l := New()
	_, err := l.CreateAccount("A1", 100000)
	require.NoError(t, err)

	require.NoError(t, l.ApplyFill(newFill("A1", "600000", broker.Buy, 50, 10)))

	err = l.ApplyFill(newFill("A1", "600000", broker.Sell, 100, 10))
	assert.ErrorIs(t, err, broker.ErrInsufficientPosition)

	// Failed sell must leave the account untouched.
	a, _ := l.Snapshot("A1")
	assert.InDelta(t, 50, a.Position("600000").Quantity, 1e-9)
	assert.Len(t, a.Fills, 1)
}

func TestDeductFee(t *testing.T) {
	t.Parallel()

	l := New()
	_, err := l.CreateAccount("A1", 1000)
	require.NoError(t, err)

	require.NoError(t, l.DeductFee("A1", 5))

	a, _ := l.Snapshot("A1")
	assert.InDelta(t, 995, a.AvailableCapital, 1e-9)
	assert.InDelta(t, 995, a.TotalCapital, 1e-9)
}

func TestMarkToMarket(t *testing.T) {
	t.Parallel()

	l := New()
	_, err := l.CreateAccount("A1", 100000)
	require.NoError(t, err)

	require.NoError(t, l.ApplyFill(newFill("A1", "600000", broker.Buy, 100, 10)))

	value, err := l.MarkToMarket("A1", map[string]float64{"600000": 11})
	require.NoError(t, err)
	assert.InDelta(t, 99000+1100, value, 1e-9)

	a, _ := l.Snapshot("A1")
	pos := a.Position("600000")
	assert.InDelta(t, 1100, pos.MarketValue, 1e-9)
	assert.InDelta(t, 100, pos.UnrealizedPnL, 1e-9)
	assert.InDelta(t, 100000, a.TotalCapital, 1e-9, "mark-to-market never moves total capital")
}

func TestSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	l := New()
	_, err := l.CreateAccount("A1", 1000)
	require.NoError(t, err)
	require.NoError(t, l.ApplyFill(newFill("A1", "600000", broker.Buy, 10, 10)))

	a, _ := l.Snapshot("A1")
	a.Position("600000").Quantity = 999
	a.AvailableCapital = 0

	b, _ := l.Snapshot("A1")
	assert.InDelta(t, 10, b.Position("600000").Quantity, 1e-9)
	assert.InDelta(t, 900, b.AvailableCapital, 1e-9)
}

func TestCapitalInvariant(t *testing.T) {
	t.Parallel()

	l := New()
	_, err := l.CreateAccount("A1", 10000)
	require.NoError(t, err)

	check := func() {
		a, snapErr := l.Snapshot("A1")
		require.NoError(t, snapErr)
		assert.GreaterOrEqual(t, a.AvailableCapital, 0.0)
		assert.GreaterOrEqual(t, a.FrozenCapital, 0.0)
		assert.LessOrEqual(t, a.AvailableCapital+a.FrozenCapital, a.TotalCapital+1e-9)
	}

	require.NoError(t, l.Reserve("A1", 1000))
	check()
	require.NoError(t, l.Release("A1", 1000))
	check()
	require.NoError(t, l.ApplyFill(newFill("A1", "600000", broker.Buy, 100, 10)))
	check()
	require.NoError(t, l.DeductFee("A1", 5))
	check()
	require.NoError(t, l.ApplyFill(newFill("A1", "600000", broker.Sell, 100, 11)))
	check()
}
