package feed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketlab/stocksim/config"
	"github.com/marketlab/stocksim/market"
)

type recordingSink struct {
	ticks []market.Tick
	bars  []market.Bar
}

func (s *recordingSink) PushTick(t market.Tick) error {
	s.ticks = append(s.ticks, t)
	return nil
}

func (s *recordingSink) PushBar(b market.Bar) error {
	s.bars = append(s.bars, b)
	return nil
}

func TestStepsAdvanceSimulatedClock(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	base := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	steps := []config.PriceStep{
		{Symbol: "600000", Price: 10.00},
		{Symbol: "600000", Price: 10.02, Delay: "1s"},
		{Symbol: "000001", Price: 5.00, Delay: "30s"},
	}

	require.NoError(t, Steps(context.Background(), sink, steps, base))

	require.Len(t, sink.ticks, 3)
	assert.Equal(t, base, sink.ticks[0].Time)
	assert.Equal(t, base.Add(time.Second), sink.ticks[1].Time)
	assert.Equal(t, base.Add(31*time.Second), sink.ticks[2].Time)
	assert.Equal(t, "000001", sink.ticks[2].Symbol)
}

func TestStepsStopOnCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sink := &recordingSink{}
	err := Steps(ctx, sink, []config.PriceStep{{Symbol: "600000", Price: 10}}, time.Now())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.ticks)
}

func TestCSVReplaysTicks(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ticks.csv")
	data := `time,symbol,price
2024-03-01T09:30:00Z,600000,10.00
2024-03-01T09:30:01Z,600000,10.02
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	sink := &recordingSink{}
	require.NoError(t, CSV(context.Background(), path, sink))

	require.Len(t, sink.ticks, 2)
	assert.Equal(t, "600000", sink.ticks[0].Symbol)
	assert.InDelta(t, 10.00, sink.ticks[0].Price, 1e-9)
	assert.InDelta(t, 10.02, sink.ticks[1].Price, 1e-9)
}

func TestCSVReplaysBarsAndHeaderlessRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bars.csv")
	data := `2024-03-01T09:31:00Z,600000,10.00,10.10,9.95,10.05,12000
2024-03-01T09:32:00Z,600000,10.05,10.20,10.00,10.18,9000
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	sink := &recordingSink{}
	require.NoError(t, CSV(context.Background(), path, sink))

	require.Len(t, sink.bars, 2)
	assert.InDelta(t, 10.05, sink.bars[0].Close, 1e-9)
	assert.InDelta(t, 12000, sink.bars[0].Volume, 1e-9)
	assert.Empty(t, sink.ticks)
}

func TestCSVRejectsMalformedRows(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("2024-03-01T09:30:00Z,600000,not-a-price\n"), 0o644))

	err := CSV(context.Background(), path, &recordingSink{})
	assert.Error(t, err)
}
