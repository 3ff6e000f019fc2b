package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/soundcraft/server/internal/shared/config"
	"github.com/soundcraft/server/internal/shared/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Prometheus collectors register globally, so the package shares one set.
var providerTestMetrics = metrics.New("payment_provider_test")

func newKhaltiAgainst(serverURL string) *Khalti {
	cfg := &config.KhaltiConfig{
		SecretKey: "test-secret",
		BaseURL:   serverURL,
	}
	return NewKhalti(cfg, NewClient("khalti", 5*time.Second, providerTestMetrics))
}

func TestKhaltiVerify(t *testing.T) {
	cases := []struct {
		status      string
		refunded    bool
		wantSettled bool
		wantPending bool
	}{
		{"Completed", false, true, false},
		{"Completed", true, false, false},
		{"Pending", false, false, true},
		{"Initiated", false, false, true},
		{"Refunded", false, false, false},
		{"Expired", false, false, false},
		{"User canceled", false, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.status, func(t *testing.T) {
			gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/epayment/lookup/", r.URL.Path)
				assert.Equal(t, "Key test-secret", r.Header.Get("Authorization"))

				var body khaltiLookupRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, "pidx-1", body.Pidx)

				json.NewEncoder(w).Encode(khaltiLookupResponse{
					Pidx:          body.Pidx,
					TotalAmount:   12500,
					Status:        tc.status,
					TransactionID: "TXN-1",
					Refunded:      tc.refunded,
				})
			}))
			defer gateway.Close()

			khalti := newKhaltiAgainst(gateway.URL)
			result, err := khalti.Verify(context.Background(), &VerifyRequest{
				ReferenceID: "ref-1",
				AmountPaisa: 12500,
				Params:      map[string]string{"pidx": "pidx-1"},
			})
			require.NoError(t, err)

			assert.Equal(t, tc.wantSettled, result.Settled)
			assert.Equal(t, tc.wantPending, result.Pending)
			assert.Equal(t, tc.status, result.RawStatus)
			assert.Equal(t, int64(12500), result.AmountPaisa)
			if tc.wantSettled {
				assert.Equal(t, "TXN-1", result.TransactionCode)
			}
		})
	}

	t.Run("missing pidx", func(t *testing.T) {
		khalti := newKhaltiAgainst("http://127.0.0.1:0")
		_, err := khalti.Verify(context.Background(), &VerifyRequest{Params: map[string]string{}})
		assert.ErrorIs(t, err, ErrMissingPidx)
	})
}
