package broker

import "time"

type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

type OrderType int

const (
	Market OrderType = iota
	Limit
)

func (t OrderType) String() string {
	if t == Limit {
		return "LIMIT"
	}
	return "MARKET"
}

// Status is the order lifecycle state. Transitions are driven only by the
// engine: Pending -> Submitted -> {Partial -> Filled | Filled | Cancelled},
// with Rejected reachable straight from Pending. Terminal states never change.
type Status int

const (
	Pending Status = iota
	Submitted
	Partial
	Filled
	Cancelled
	Rejected
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "PENDING"
	case Submitted:
		return "SUBMITTED"
	case Partial:
		return "PARTIAL"
	case Filled:
		return "FILLED"
	case Cancelled:
		return "CANCELLED"
	case Rejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

func (s Status) Terminal() bool {
	return s == Filled || s == Cancelled || s == Rejected
}

// Order is a single buy/sell request owned by exactly one account. FilledQty
// only grows; once Status is terminal the order is immutable.
type Order struct {
	ID        string
	AccountID string
	Symbol    string
	Side      Side
	Type      OrderType
	Quantity  float64
	// LimitPrice is meaningful for Limit orders only.
	LimitPrice float64
	FilledQty  float64
	Status     Status
	// Reason is set when Status is Rejected.
	Reason    RejectReason
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (o *Order) Remaining() float64 {
	return o.Quantity - o.FilledQty
}

// Fill is one execution against an order. Fills are append-only and never
// mutated after creation.
type Fill struct {
	ID         string
	OrderID    string
	AccountID  string
	Symbol     string
	Side       Side
	Quantity   float64
	Price      float64
	Commission float64
	Time       time.Time
}

func (f Fill) Notional() float64 {
	return f.Quantity * f.Price
}
