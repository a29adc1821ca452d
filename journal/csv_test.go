package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournalWritesFillsAndEquity(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	fillsPath := filepath.Join(tmp, "fills.csv")
	equityPath := filepath.Join(tmp, "equity.csv")

	j, err := NewCSV(fillsPath, equityPath)
	require.NoError(t, err)

	at := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, j.RecordFill(FillRecord{
		FillID:     "f-1",
		OrderID:    "o-1",
		AccountID:  "A1",
		Symbol:     "600000",
		Side:       "buy",
		Quantity:   100,
		Price:      10.01,
		Commission: 5,
		Time:       at,
	}))
	require.NoError(t, j.RecordEquity(EquitySnapshot{
		Time:      at,
		AccountID: "A1",
		Total:     99995,
		Available: 98994,
		Frozen:    0,
		Portfolio: 99995,
	}))
	require.NoError(t, j.Close())

	fills := readAll(t, fillsPath)
	require.Len(t, fills, 2)
	assert.Equal(t, []string{"fill_id", "order_id", "account_id", "symbol", "side", "quantity", "price", "commission", "time"}, fills[0])
	assert.Equal(t, "f-1", fills[1][0])
	assert.Equal(t, "buy", fills[1][4])
	assert.Equal(t, "10.010000", fills[1][6])
	assert.Equal(t, "2024-03-01T09:30:00Z", fills[1][8])

	equity := readAll(t, equityPath)
	require.Len(t, equity, 2)
	assert.Equal(t, "A1", equity[1][1])
	assert.Equal(t, "98994.000000", equity[1][3])
}

func TestCSVJournalFlushesPerRecord(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	fillsPath := filepath.Join(tmp, "fills.csv")

	j, err := NewCSV(fillsPath, filepath.Join(tmp, "equity.csv"))
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.RecordFill(FillRecord{FillID: "f-1", OrderID: "o-1", Time: time.Now()}))

	// Visible on disk before Close.
	rows := readAll(t, fillsPath)
	assert.Len(t, rows, 2)
}
