package provider

import "context"

// InitiateRequest carries everything a gateway needs to start a payment.
// Amounts are in paisa; providers format them for their own wire schema.
type InitiateRequest struct {
	ReferenceID string // correlation key, echoed back in callbacks
	OrderNumber string
	AmountPaisa int64
	SuccessURL  string
	FailureURL  string
}

// InitiateResult is what the client needs to reach the gateway.
// Either FormFields (hosted form POST) or PaymentURL (redirect) is set.
type InitiateResult struct {
	FormFields  map[string]string `json:"form_fields,omitempty"`
	FormURL     string            `json:"form_url,omitempty"`
	PaymentURL  string            `json:"payment_url,omitempty"`
	ProviderRef string            `json:"provider_ref,omitempty"` // e.g. Khalti pidx
}

// VerifyRequest carries the callback parameters to corroborate
// server-to-server. Params holds provider-specific keys (pidx, data, ...).
type VerifyRequest struct {
	ReferenceID string
	AmountPaisa int64
	Params      map[string]string
}

// VerifyResult is the gateway's authoritative word on a transaction.
// Settled and Pending are mutually exclusive: Pending means the gateway
// has not reached a terminal status yet, so the order must not be
// finalized either way.
type VerifyResult struct {
	Settled         bool
	Pending         bool
	TransactionCode string // gateway-assigned code, empty unless settled
	AmountPaisa     int64
	RawStatus       string
}

// Provider is a payment gateway integration.
type Provider interface {
	Name() string
	Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResult, error)
	Verify(ctx context.Context, req *VerifyRequest) (*VerifyResult, error)
}
