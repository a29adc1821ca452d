package sim

// FeeModel is the execution-cost model: proportional commission with a floor,
// and a fixed slippage rate applied to market-order fills only. Resting limit
// orders trade at the triggering reference price as-is.
type FeeModel struct {
	CommissionRate float64
	MinCommission  float64
	SlippageRate   float64
}

// DefaultFees matches the conventional A-share simulation settings: 3bps
// commission with a 5 yuan floor, 10bps slippage.
func DefaultFees() FeeModel {
	return FeeModel{
		CommissionRate: 0.0003,
		MinCommission:  5.0,
		SlippageRate:   0.001,
	}
}

func (f FeeModel) Commission(qty, price float64) float64 {
	c := qty * price * f.CommissionRate
	if c < f.MinCommission {
		return f.MinCommission
	}
	return c
}

// Slipped shifts the reference price against the taker: up for buys, down
// for sells.
func (f FeeModel) Slipped(price float64, buy bool) float64 {
	if buy {
		return price * (1 + f.SlippageRate)
	}
	return price * (1 - f.SlippageRate)
}
