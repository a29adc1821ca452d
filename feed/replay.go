// Package feed drives the engine with scripted or recorded market data.
package feed

import (
	"context"
	"time"

	"github.com/marketlab/stocksim/config"
	"github.com/marketlab/stocksim/market"
)

// Sink is the slice of the broker the feed needs: something that accepts
// price updates.
type Sink interface {
	PushTick(market.Tick) error
	PushBar(market.Bar) error
}

// Steps replays scripted price steps into the sink. Delays advance the
// simulated clock; nothing sleeps. The first step fires at base.
func Steps(ctx context.Context, sink Sink, steps []config.PriceStep, base time.Time) error {
	now := base
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		d, err := s.ParseDuration()
		if err != nil {
			return err
		}
		now = now.Add(d)
		if err := sink.PushTick(market.Tick{
			Symbol: s.Symbol,
			Time:   now,
			Price:  s.Price,
		}); err != nil {
			return err
		}
	}
	return nil
}
