package sim

import (
	"fmt"
	"time"

	"github.com/marketlab/stocksim/broker"
)

// registry tracks every order the engine has ever seen, keyed by id. All
// status transitions funnel through it so terminal states stay immutable.
type registry struct {
	orders map[string]*broker.Order
}

func newRegistry() *registry {
	return &registry{orders: make(map[string]*broker.Order)}
}

func (r *registry) add(o *broker.Order) {
	r.orders[o.ID] = o
}

func (r *registry) get(id string) (*broker.Order, bool) {
	o, ok := r.orders[id]
	return o, ok
}

// submit moves a freshly built order from Pending to Submitted.
func (r *registry) submit(o *broker.Order, now time.Time) {
	o.Status = broker.Submitted
	o.UpdatedAt = now
	r.add(o)
}

// reject is terminal and only reachable from Pending.
func (r *registry) reject(o *broker.Order, reason broker.RejectReason, now time.Time) {
	o.Status = broker.Rejected
	o.Reason = reason
	o.UpdatedAt = now
	r.add(o)
}

// applyFill advances FilledQty and resolves the Partial/Filled status.
func (r *registry) applyFill(o *broker.Order, qty float64, now time.Time) error {
	if o.Status.Terminal() {
		return fmt.Errorf("fill %s order %s: %w", o.Status, o.ID, broker.ErrInvalidTransition)
	}
	o.FilledQty += qty
	if o.FilledQty >= o.Quantity {
		o.FilledQty = o.Quantity
		o.Status = broker.Filled
	} else {
		o.Status = broker.Partial
	}
	o.UpdatedAt = now
	return nil
}

// cancel is only legal from Submitted or Partial.
func (r *registry) cancel(o *broker.Order, now time.Time) error {
	if o.Status != broker.Submitted && o.Status != broker.Partial {
		return fmt.Errorf("cancel %s order %s: %w", o.Status, o.ID, broker.ErrInvalidTransition)
	}
	o.Status = broker.Cancelled
	o.UpdatedAt = now
	return nil
}
