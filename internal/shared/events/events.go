package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Order lifecycle event types.
const (
	EventOrderCreated   = "OrderCreated"
	EventOrderCompleted = "OrderCompleted"
	EventOrderFailed    = "OrderFailed"
)

// Envelope wraps a domain event for publishing.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // usually the order ID
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope builds an envelope around the given payload.
func NewEnvelope(eventType, correlationID string, payload any) (*Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      "soundcraft-api",
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// OrderItemPayload is a line item inside an order event.
type OrderItemPayload struct {
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	PricePaisa int64  `json:"price_paisa"`
}

// OrderCreatedPayload is published when a pending order is created.
type OrderCreatedPayload struct {
	OrderID       string             `json:"order_id"`
	UserID        string             `json:"user_id"`
	PaymentMethod string             `json:"payment_method"`
	Items         []OrderItemPayload `json:"items"`
	TotalPaisa    int64              `json:"total_paisa"`
}

// OrderCompletedPayload is published when verification completes an order.
type OrderCompletedPayload struct {
	OrderID            string `json:"order_id"`
	PaymentMethod      string `json:"payment_method"`
	PaymentReferenceID string `json:"payment_reference_id"`
	TotalPaisa         int64  `json:"total_paisa"`
}

// OrderFailedPayload is published when verification fails an order.
type OrderFailedPayload struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}
