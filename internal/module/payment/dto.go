package payment

import (
	"github.com/soundcraft/server/internal/module/order"
	"github.com/soundcraft/server/internal/module/payment/provider"
)

// InitiateRequest is the payload to start a payment.
type InitiateRequest struct {
	Items []order.ItemRequest `json:"items" binding:"required,min=1,dive"`
}

// InitiateResponse pairs the pending order with what the client needs
// to reach the gateway.
type InitiateResponse struct {
	Order   *order.Response          `json:"order"`
	Payment *provider.InitiateResult `json:"payment"`
}
