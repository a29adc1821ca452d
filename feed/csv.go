package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/marketlab/stocksim/market"
)

// CSV replays ticks or bars from a CSV file into the sink.
//
// Formats supported:
//
//  1. Ticks:
//     time,symbol,price
//
//  2. Bars:
//     time,symbol,open,high,low,close,volume
//
// A header row is detected by a leading "time" cell and skipped. Rows are
// replayed in file order; timestamps are RFC 3339.
func CSV(ctx context.Context, path string, sink Sink) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	firstRow, err := r.Read()
	if err != nil {
		return err
	}

	hasHeader := len(firstRow) > 0 && strings.EqualFold(strings.TrimSpace(firstRow[0]), "time")
	if !hasHeader {
		if err := replayRow(sink, firstRow); err != nil {
			return err
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}
		if err := replayRow(sink, row); err != nil {
			return err
		}
	}
}

func replayRow(sink Sink, row []string) error {
	if len(row) < 3 {
		return fmt.Errorf("bad row (need at least time,symbol,price): %v", row)
	}

	t, err := time.Parse(time.RFC3339, strings.TrimSpace(row[0]))
	if err != nil {
		return fmt.Errorf("bad time %q: %w", row[0], err)
	}
	symbol := strings.TrimSpace(row[1])

	if len(row) >= 7 {
		var v [5]float64
		for i := 0; i < 5; i++ {
			v[i], err = strconv.ParseFloat(strings.TrimSpace(row[2+i]), 64)
			if err != nil {
				return fmt.Errorf("bad bar field %q: %w", row[2+i], err)
			}
		}
		return sink.PushBar(market.Bar{
			Symbol: symbol,
			Time:   t,
			Open:   v[0],
			High:   v[1],
			Low:    v[2],
			Close:  v[3],
			Volume: v[4],
		})
	}

	price, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
	if err != nil {
		return fmt.Errorf("bad price %q: %w", row[2], err)
	}
	return sink.PushTick(market.Tick{Symbol: symbol, Time: t, Price: price})
}
