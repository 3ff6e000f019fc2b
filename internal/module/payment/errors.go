package payment

import "errors"

var (
	// ErrUnsupportedMethod is returned for payment methods without a provider.
	ErrUnsupportedMethod = errors.New("unsupported payment method")
	// ErrAmountMismatch is returned when the gateway settled a different
	// amount than the order total.
	ErrAmountMismatch = errors.New("settled amount does not match order")
)
