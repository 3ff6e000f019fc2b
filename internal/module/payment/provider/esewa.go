package provider

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/soundcraft/server/internal/shared/config"
)

// eSewa transaction statuses from the status-check API. PENDING and
// AMBIGUOUS are transient and must not finalize an order.
const (
	esewaStatusComplete  = "COMPLETE"
	esewaStatusPending   = "PENDING"
	esewaStatusAmbiguous = "AMBIGUOUS"
)

// EsewaSign computes the hosted-form signature over the signed fields:
// base64(HMAC-SHA256("total_amount=T,transaction_uuid=U,product_code=P")).
// Deterministic for fixed inputs.
func EsewaSign(secret, totalAmount, transactionUUID, productCode string) string {
	message := fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s",
		totalAmount, transactionUUID, productCode)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Esewa integrates the eSewa ePay hosted form flow.
//
// Initiation returns the signed field set the frontend posts to the
// hosted form. Verification never trusts the redirect payload: it asks
// eSewa's status-check API whether the transaction really settled.
type Esewa struct {
	config *config.EsewaConfig
	client *Client
}

// NewEsewa creates the eSewa provider.
func NewEsewa(cfg *config.EsewaConfig, client *Client) *Esewa {
	return &Esewa{config: cfg, client: client}
}

// Name returns the provider name.
func (e *Esewa) Name() string {
	return "esewa"
}

// Initiate builds the hosted-form field set for a pending order.
func (e *Esewa) Initiate(_ context.Context, req *InitiateRequest) (*InitiateResult, error) {
	total := formatAmount(req.AmountPaisa)
	signature := EsewaSign(e.config.SecretKey, total, req.ReferenceID, e.config.ProductCode)

	fields := map[string]string{
		"amount":                  total,
		"tax_amount":              "0",
		"total_amount":            total,
		"transaction_uuid":        req.ReferenceID,
		"product_code":            e.config.ProductCode,
		"product_service_charge":  "0",
		"product_delivery_charge": "0",
		"success_url":             req.SuccessURL,
		"failure_url":             req.FailureURL,
		"signed_field_names":      "total_amount,transaction_uuid,product_code",
		"signature":               signature,
	}

	return &InitiateResult{
		FormFields: fields,
		FormURL:    e.config.FormURL,
	}, nil
}

type esewaStatusResponse struct {
	ProductCode     string `json:"product_code"`
	TransactionUUID string `json:"transaction_uuid"`
	TotalAmount     any    `json:"total_amount"` // eSewa returns number or string depending on endpoint
	Status          string `json:"status"`
	RefID           string `json:"ref_id"`
}

// Verify corroborates a callback via the status-check API.
func (e *Esewa) Verify(ctx context.Context, req *VerifyRequest) (*VerifyResult, error) {
	query := url.Values{}
	query.Set("product_code", e.config.ProductCode)
	query.Set("total_amount", formatAmount(req.AmountPaisa))
	query.Set("transaction_uuid", req.ReferenceID)

	var status esewaStatusResponse
	err := e.client.DoJSON(ctx, "status_check", http.MethodGet,
		e.config.StatusURL+"?"+query.Encode(), nil, nil, &status)
	if err != nil {
		return nil, err
	}

	// The API reports the settled amount; without it the caller has
	// nothing independent to compare against, so fall back to the
	// order amount.
	amount := req.AmountPaisa
	if paisa, ok := esewaAmountPaisa(status.TotalAmount); ok {
		amount = paisa
	}

	return &VerifyResult{
		Settled:         status.Status == esewaStatusComplete,
		Pending:         status.Status == esewaStatusPending || status.Status == esewaStatusAmbiguous,
		TransactionCode: status.RefID,
		AmountPaisa:     amount,
		RawStatus:       status.Status,
	}, nil
}

// formatAmount renders paisa as rupees with two decimals, e.g. 12500 → "125.00".
func formatAmount(paisa int64) string {
	return fmt.Sprintf("%d.%02d", paisa/100, paisa%100)
}

// esewaAmountPaisa converts the status API's total_amount, which arrives
// as a JSON number or a grouped string like "1,000.0", into paisa.
func esewaAmountPaisa(v any) (int64, bool) {
	switch t := v.(type) {
	case float64:
		return int64(math.Round(t * 100)), true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(t, ",", ""), 64)
		if err != nil {
			return 0, false
		}
		return int64(math.Round(f * 100)), true
	default:
		return 0, false
	}
}
