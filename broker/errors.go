package broker

import "errors"

// Engine failure kinds. Every mutating operation returns one of these
// (wrapped) rather than panicking or silently dropping the request.
var (
	// ErrRejected marks an order turned away before admission: risk gate
	// failure, disconnected broker, or a market order with no reference price.
	ErrRejected = errors.New("order rejected")

	// ErrInvalidTransition marks an attempt to move an order out of a
	// terminal state, e.g. cancelling a filled order.
	ErrInvalidTransition = errors.New("invalid order transition")

	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientPosition = errors.New("insufficient position")

	ErrNotFound = errors.New("not found")
)

// RejectReason is the machine-readable code attached to a rejected order.
type RejectReason string

const (
	ReasonNone          RejectReason = ""
	ReasonNoPrice       RejectReason = "no price"
	ReasonBuyingPower   RejectReason = "insufficient buying power"
	ReasonConcentration RejectReason = "position concentration limit"
	ReasonPosition      RejectReason = "insufficient position"
	ReasonDisconnected  RejectReason = "broker disconnected"
)
