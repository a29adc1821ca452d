package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLite(t *testing.T) *SQLiteJournal {
	t.Helper()
	j, err := NewSQLite(filepath.Join(t.TempDir(), "sim.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestSQLiteJournalRoundTripsFills(t *testing.T) {
	j := newSQLite(t)

	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	want := []FillRecord{
		{FillID: "f-1", OrderID: "o-1", AccountID: "A1", Symbol: "600000",
			Side: "buy", Quantity: 60, Price: 10.01, Commission: 5, Time: at},
		{FillID: "f-2", OrderID: "o-1", AccountID: "A1", Symbol: "600000",
			Side: "buy", Quantity: 40, Price: 10.02, Commission: 5, Time: at.Add(time.Second)},
		{FillID: "f-3", OrderID: "o-2", AccountID: "A1", Symbol: "600000",
			Side: "sell", Quantity: 100, Price: 10.06, Commission: 5, Time: at.Add(2 * time.Second)},
	}
	for _, f := range want {
		require.NoError(t, j.RecordFill(f))
	}

	got, err := j.ListFillsByOrder("o-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "f-1", got[0].FillID)
	assert.Equal(t, "f-2", got[1].FillID)
	assert.InDelta(t, 10.02, got[1].Price, 1e-9)
	assert.True(t, got[1].Time.Equal(at.Add(time.Second)))
}

func TestSQLiteJournalUnknownOrderIsEmpty(t *testing.T) {
	j := newSQLite(t)

	got, err := j.ListFillsByOrder("nope")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSQLiteJournalRecordsEquity(t *testing.T) {
	j := newSQLite(t)

	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, j.RecordEquity(EquitySnapshot{
		Time:      at,
		AccountID: "A1",
		Total:     99995,
		Available: 98994,
		Frozen:    0,
		Portfolio: 100001,
	}))

	var total, portfolio float64
	row := j.db.QueryRow(`SELECT total, portfolio FROM equity WHERE account_id = ?`, "A1")
	require.NoError(t, row.Scan(&total, &portfolio))
	assert.InDelta(t, 99995, total, 1e-9)
	assert.InDelta(t, 100001, portfolio, 1e-9)
}
