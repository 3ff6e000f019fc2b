package order

import "errors"

var (
	// ErrOrderNotFound is returned when an order doesn't exist.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidTransition is returned for disallowed status transitions.
	ErrInvalidTransition = errors.New("invalid order transition")
	// ErrAlreadySettled is returned when completing or failing an order
	// that already left the pending state. Callers treat it as "nothing
	// to do": the settlement happened before.
	ErrAlreadySettled = errors.New("order already settled")
	// ErrEmptyOrder is returned when an order has no items.
	ErrEmptyOrder = errors.New("order has no items")
	// ErrAmountMismatch is returned when the order amount doesn't equal
	// the sum of its items.
	ErrAmountMismatch = errors.New("order amount does not match items")
)
