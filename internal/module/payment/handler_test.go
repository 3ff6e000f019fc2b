package payment

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/soundcraft/server/internal/module/catalog"
	"github.com/soundcraft/server/internal/module/order"
	"github.com/soundcraft/server/internal/module/payment/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// newTestRouter mounts the handler the way the app does: callback
// routes on the open group, initiation behind auth. A non-nil userID
// stands in for the auth middleware.
func newTestRouter(env *testEnv, userID uuid.UUID) *gin.Engine {
	router := gin.New()
	handler := NewHandler(env.svc)

	api := router.Group("/api/v1")
	handler.RegisterCallbackRoutes(api)

	authed := api.Group("")
	if userID != uuid.Nil {
		authed.Use(func(c *gin.Context) { c.Set("user_id", userID) })
	}
	handler.RegisterRoutes(authed)
	return router
}

func TestHandler_Initiate(t *testing.T) {
	guitar := &catalog.Product{ID: uuid.New(), Name: "Guitar", PricePaisa: 5000, Stock: 10}

	t.Run("creates a payment and returns the gateway URL", func(t *testing.T) {
		env := newTestEnv(t, guitar)
		router := newTestRouter(env, uuid.New())

		body := `{"items":[{"product_id":"` + guitar.ID.String() + `","quantity":2}]}`
		req := httptest.NewRequest("POST", "/api/v1/payments/khalti", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusCreated, w.Code)
		var resp InitiateResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "pending", string(resp.Order.Status))
		assert.Equal(t, "https://gateway.example.com/pay", resp.Payment.PaymentURL)
	})

	t.Run("rejects unauthenticated requests", func(t *testing.T) {
		env := newTestEnv(t, guitar)
		router := newTestRouter(env, uuid.Nil)

		body := `{"items":[{"product_id":"` + guitar.ID.String() + `","quantity":1}]}`
		req := httptest.NewRequest("POST", "/api/v1/payments/esewa", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("rejects an empty item list", func(t *testing.T) {
		env := newTestEnv(t, guitar)
		router := newTestRouter(env, uuid.New())

		req := httptest.NewRequest("POST", "/api/v1/payments/esewa", strings.NewReader(`{"items":[]}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandler_VerifyEsewa(t *testing.T) {
	guitar := &catalog.Product{ID: uuid.New(), Name: "Guitar", PricePaisa: 5000, Stock: 10}

	t.Run("settled callback redirects to the success page", func(t *testing.T) {
		env := newTestEnv(t, guitar)
		o := env.pendingOrder(t, order.ItemRequest{ProductID: guitar.ID, Quantity: 1})
		env.esewa.verifyResult = &provider.VerifyResult{Settled: true, TransactionCode: "0001ABC", RawStatus: "COMPLETE"}
		router := newTestRouter(env, uuid.Nil)

		data := esewaCallbackData(t, o.PaymentReferenceID, "COMPLETE")
		req := httptest.NewRequest("GET", "/api/v1/payments/esewa/verify?data="+data, nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusFound, w.Code)
		assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "https://soundcraft.example.com/payment/success?"))
	})

	t.Run("cancelled callback without data redirects to the failure page", func(t *testing.T) {
		// eSewa sends the browser back with no data parameter when the
		// customer cancels on the hosted form.
		env := newTestEnv(t, guitar)
		router := newTestRouter(env, uuid.Nil)

		req := httptest.NewRequest("GET", "/api/v1/payments/esewa/verify", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusFound, w.Code, "the browser must get a redirect, not an error body")
		assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "https://soundcraft.example.com/payment/failure?"))
	})

	t.Run("undecodable data redirects to the failure page", func(t *testing.T) {
		env := newTestEnv(t, guitar)
		router := newTestRouter(env, uuid.Nil)

		req := httptest.NewRequest("GET", "/api/v1/payments/esewa/verify?data=not-base64", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusFound, w.Code)
		assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "https://soundcraft.example.com/payment/failure?"))
	})
}

func TestHandler_VerifyKhalti(t *testing.T) {
	guitar := &catalog.Product{ID: uuid.New(), Name: "Guitar", PricePaisa: 5000, Stock: 10}

	t.Run("completed callback redirects to the success page", func(t *testing.T) {
		env := newTestEnv(t, guitar)
		o := env.pendingOrder(t, order.ItemRequest{ProductID: guitar.ID, Quantity: 1})
		env.khalti.verifyResult = &provider.VerifyResult{Settled: true, TransactionCode: "TXN-K1", RawStatus: "Completed"}
		router := newTestRouter(env, uuid.Nil)

		req := httptest.NewRequest("GET", "/api/v1/payments/khalti/verify?pidx=p-1&purchase_order_id="+o.PaymentReferenceID, nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusFound, w.Code)
		assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "https://soundcraft.example.com/payment/success?"))
	})

	t.Run("missing pidx redirects to the failure page", func(t *testing.T) {
		env := newTestEnv(t, guitar)
		router := newTestRouter(env, uuid.Nil)

		req := httptest.NewRequest("GET", "/api/v1/payments/khalti/verify?purchase_order_id=ref-1", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusFound, w.Code)
		assert.True(t, strings.HasPrefix(w.Header().Get("Location"), "https://soundcraft.example.com/payment/failure?"))
	})
}
