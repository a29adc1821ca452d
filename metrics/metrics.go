// Package metrics holds small process-level counters incremented by the
// engine. Intentionally minimal; no export surface beyond getters.
package metrics

import "sync/atomic"

var (
	ordersSubmitted int64
	ordersFilled    int64
	ordersCancelled int64
	ordersRejected  int64
	fills           int64
)

func IncOrdersSubmitted() { atomic.AddInt64(&ordersSubmitted, 1) }
func IncOrdersFilled()    { atomic.AddInt64(&ordersFilled, 1) }
func IncOrdersCancelled() { atomic.AddInt64(&ordersCancelled, 1) }
func IncOrdersRejected()  { atomic.AddInt64(&ordersRejected, 1) }
func IncFills()           { atomic.AddInt64(&fills, 1) }

func OrdersSubmitted() int64 { return atomic.LoadInt64(&ordersSubmitted) }
func OrdersFilled() int64    { return atomic.LoadInt64(&ordersFilled) }
func OrdersCancelled() int64 { return atomic.LoadInt64(&ordersCancelled) }
func OrdersRejected() int64  { return atomic.LoadInt64(&ordersRejected) }
func Fills() int64           { return atomic.LoadInt64(&fills) }

// Reset zeroes every counter. Test helper.
func Reset() {
	atomic.StoreInt64(&ordersSubmitted, 0)
	atomic.StoreInt64(&ordersFilled, 0)
	atomic.StoreInt64(&ordersCancelled, 0)
	atomic.StoreInt64(&ordersRejected, 0)
	atomic.StoreInt64(&fills, 0)
}
