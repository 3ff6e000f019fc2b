package provider

import (
	"context"
	"errors"
	"net/http"

	"github.com/soundcraft/server/internal/shared/config"
)

// Khalti ePayment transaction statuses from the lookup API. Pending and
// Initiated are transient and must not finalize an order; Refunded and
// Expired are terminal failures.
const (
	khaltiStatusCompleted = "Completed"
	khaltiStatusPending   = "Pending"
	khaltiStatusInitiated = "Initiated"
	khaltiStatusRefunded  = "Refunded"
	khaltiStatusExpired   = "Expired"
)

// ErrMissingPidx is returned when a Khalti callback lacks the pidx param.
var ErrMissingPidx = errors.New("missing pidx")

// Khalti integrates the Khalti ePayment (KPG-2) flow: initiate returns a
// redirect URL and pidx, verification is a server-to-server lookup.
type Khalti struct {
	config *config.KhaltiConfig
	client *Client
}

// NewKhalti creates the Khalti provider.
func NewKhalti(cfg *config.KhaltiConfig, client *Client) *Khalti {
	return &Khalti{config: cfg, client: client}
}

// Name returns the provider name.
func (k *Khalti) Name() string {
	return "khalti"
}

type khaltiInitiateRequest struct {
	ReturnURL         string `json:"return_url"`
	WebsiteURL        string `json:"website_url"`
	Amount            int64  `json:"amount"` // paisa
	PurchaseOrderID   string `json:"purchase_order_id"`
	PurchaseOrderName string `json:"purchase_order_name"`
}

type khaltiInitiateResponse struct {
	Pidx       string `json:"pidx"`
	PaymentURL string `json:"payment_url"`
	ExpiresAt  string `json:"expires_at"`
}

// Initiate opens a Khalti payment session for a pending order.
func (k *Khalti) Initiate(ctx context.Context, req *InitiateRequest) (*InitiateResult, error) {
	body := khaltiInitiateRequest{
		ReturnURL:         req.SuccessURL,
		WebsiteURL:        req.SuccessURL,
		Amount:            req.AmountPaisa,
		PurchaseOrderID:   req.ReferenceID,
		PurchaseOrderName: req.OrderNumber,
	}

	var resp khaltiInitiateResponse
	err := k.client.DoJSON(ctx, "initiate", http.MethodPost,
		k.config.BaseURL+"/epayment/initiate/", k.authHeader(), body, &resp)
	if err != nil {
		return nil, err
	}

	return &InitiateResult{
		PaymentURL:  resp.PaymentURL,
		ProviderRef: resp.Pidx,
	}, nil
}

type khaltiLookupRequest struct {
	Pidx string `json:"pidx"`
}

type khaltiLookupResponse struct {
	Pidx          string `json:"pidx"`
	TotalAmount   int64  `json:"total_amount"` // paisa
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
	Refunded      bool   `json:"refunded"`
}

// Verify corroborates a callback via the lookup API. Only status
// "Completed" counts as settled; "Pending" and "Initiated" stay open.
func (k *Khalti) Verify(ctx context.Context, req *VerifyRequest) (*VerifyResult, error) {
	pidx := req.Params["pidx"]
	if pidx == "" {
		return nil, ErrMissingPidx
	}

	var resp khaltiLookupResponse
	err := k.client.DoJSON(ctx, "lookup", http.MethodPost,
		k.config.BaseURL+"/epayment/lookup/", k.authHeader(), khaltiLookupRequest{Pidx: pidx}, &resp)
	if err != nil {
		return nil, err
	}

	result := &VerifyResult{
		TransactionCode: resp.TransactionID,
		AmountPaisa:     resp.TotalAmount,
		RawStatus:       resp.Status,
	}
	switch resp.Status {
	case khaltiStatusCompleted:
		result.Settled = !resp.Refunded
	case khaltiStatusPending, khaltiStatusInitiated:
		result.Pending = true
	case khaltiStatusRefunded, khaltiStatusExpired:
		// terminal, not settled
	}
	return result, nil
}

func (k *Khalti) authHeader() map[string]string {
	return map[string]string{"Authorization": "Key " + k.config.SecretKey}
}
