package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/soundcraft/server/internal/shared/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEsewaSign(t *testing.T) {
	// eSewa UAT credentials; the expected value was produced with
	// openssl dgst -sha256 -hmac over the same message.
	const secret = "8gBm/:&EnhH.1/q("

	t.Run("known vector", func(t *testing.T) {
		got := EsewaSign(secret, "100.00", "abc-123", "EPAYTEST")
		assert.Equal(t, "witYrmAm/nZxarcxTTQT/jALuOHY2wYrHCmAYfN0lsk=", got)
	})

	t.Run("deterministic", func(t *testing.T) {
		a := EsewaSign(secret, "125.00", "ref-1", "EPAYTEST")
		b := EsewaSign(secret, "125.00", "ref-1", "EPAYTEST")
		assert.Equal(t, a, b)
	})

	t.Run("any input change alters the signature", func(t *testing.T) {
		base := EsewaSign(secret, "125.00", "ref-1", "EPAYTEST")
		assert.NotEqual(t, base, EsewaSign(secret, "125.01", "ref-1", "EPAYTEST"))
		assert.NotEqual(t, base, EsewaSign(secret, "125.00", "ref-2", "EPAYTEST"))
		assert.NotEqual(t, base, EsewaSign(secret, "125.00", "ref-1", "OTHER"))
		assert.NotEqual(t, base, EsewaSign("other-secret", "125.00", "ref-1", "EPAYTEST"))
	})
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		paisa int64
		want  string
	}{
		{0, "0.00"},
		{5, "0.05"},
		{100, "1.00"},
		{12500, "125.00"},
		{12550, "125.50"},
		{99999, "999.99"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, formatAmount(tc.paisa))
	}
}

func TestEsewaAmountPaisa(t *testing.T) {
	// The status endpoint reports total_amount as a JSON number or a
	// comma-grouped string depending on the environment.
	cases := []struct {
		in   any
		want int64
		ok   bool
	}{
		{float64(100), 10000, true},
		{float64(125.5), 12550, true},
		{"100.00", 10000, true},
		{"1,000.50", 100050, true},
		{"garbage", 0, false},
		{nil, 0, false},
		{true, 0, false},
	}
	for _, tc := range cases {
		got, ok := esewaAmountPaisa(tc.in)
		assert.Equal(t, tc.ok, ok, "input %v", tc.in)
		assert.Equal(t, tc.want, got, "input %v", tc.in)
	}
}

func TestEsewaVerify(t *testing.T) {
	cases := []struct {
		status      string
		wantSettled bool
		wantPending bool
	}{
		{"COMPLETE", true, false},
		{"PENDING", false, true},
		{"AMBIGUOUS", false, true},
		{"CANCELED", false, false},
		{"NOT_FOUND", false, false},
		{"FULL_REFUND", false, false},
	}

	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "EPAYTEST", r.URL.Query().Get("product_code"))
				assert.Equal(t, "125.00", r.URL.Query().Get("total_amount"))
				assert.Equal(t, "ref-42", r.URL.Query().Get("transaction_uuid"))

				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(`{"product_code":"EPAYTEST","transaction_uuid":"ref-42","total_amount":125.0,"status":"` + tc.status + `","ref_id":"0001ABC"}`))
			}))
			defer gateway.Close()

			cfg := &config.EsewaConfig{
				ProductCode: "EPAYTEST",
				SecretKey:   "8gBm/:&EnhH.1/q(",
				StatusURL:   gateway.URL,
			}
			esewa := NewEsewa(cfg, NewClient("esewa", 5*time.Second, providerTestMetrics))

			result, err := esewa.Verify(context.Background(), &VerifyRequest{
				ReferenceID: "ref-42",
				AmountPaisa: 12500,
			})
			require.NoError(t, err)

			assert.Equal(t, tc.wantSettled, result.Settled)
			assert.Equal(t, tc.wantPending, result.Pending)
			assert.Equal(t, tc.status, result.RawStatus)
			assert.Equal(t, int64(12500), result.AmountPaisa, "amount must come from the status response")
			if tc.wantSettled {
				assert.Equal(t, "0001ABC", result.TransactionCode)
			}
		})
	}
}

func TestEsewaInitiate(t *testing.T) {
	cfg := &config.EsewaConfig{
		ProductCode: "EPAYTEST",
		SecretKey:   "8gBm/:&EnhH.1/q(",
		FormURL:     "https://rc-epay.esewa.com.np/api/epay/main/v2/form",
		StatusURL:   "https://rc.esewa.com.np/api/epay/transaction/status/",
	}
	esewa := NewEsewa(cfg, nil)

	result, err := esewa.Initiate(context.Background(), &InitiateRequest{
		ReferenceID: "ref-42",
		OrderNumber: "SC-TEST",
		AmountPaisa: 12500,
		SuccessURL:  "https://shop.example.com/api/v1/payments/esewa/verify",
		FailureURL:  "https://shop.example.com/api/v1/payments/esewa/verify",
	})
	require.NoError(t, err)

	assert.Equal(t, cfg.FormURL, result.FormURL)
	assert.Equal(t, "125.00", result.FormFields["total_amount"])
	assert.Equal(t, "125.00", result.FormFields["amount"])
	assert.Equal(t, "0", result.FormFields["tax_amount"])
	assert.Equal(t, "ref-42", result.FormFields["transaction_uuid"])
	assert.Equal(t, "EPAYTEST", result.FormFields["product_code"])
	assert.Equal(t, "total_amount,transaction_uuid,product_code", result.FormFields["signed_field_names"])

	// The embedded signature must match a recomputation over the
	// signed fields, or the hosted form will reject the post.
	want := EsewaSign(cfg.SecretKey, "125.00", "ref-42", "EPAYTEST")
	assert.Equal(t, want, result.FormFields["signature"])
}
