package risk

// Policy holds the static limits consulted before an order is admitted.
type Policy struct {
	// MaxPositionRatio caps a single order's notional as a fraction of total
	// capital.
	MaxPositionRatio float64
}

// DefaultPolicy mirrors the limits the simulated broker shipped with.
func DefaultPolicy() Policy {
	return Policy{MaxPositionRatio: 0.3}
}
