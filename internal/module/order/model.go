package order

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

// Order statuses. Orders start pending and settle exactly once.
const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
)

// IsTerminal reports whether the status permits no further transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusFailed
}

// PaymentMethod identifies the gateway an order was initiated with.
type PaymentMethod string

// Supported payment methods.
const (
	PaymentMethodEsewa  PaymentMethod = "esewa"
	PaymentMethodKhalti PaymentMethod = "khalti"
	PaymentMethodOther  PaymentMethod = "other"
)

// IsValid checks if the payment method is supported.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodEsewa, PaymentMethodKhalti, PaymentMethodOther:
		return true
	default:
		return false
	}
}

// Order is a purchase awaiting or past payment settlement.
// AmountPaisa is the order total and always equals the sum of its items.
// PaymentReferenceID correlates gateway callbacks with the order.
type Order struct {
	ID                 uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderNumber        string        `json:"order_number" gorm:"uniqueIndex;not null"`
	UserID             uuid.UUID     `json:"user_id" gorm:"type:uuid;not null;index"`
	PaymentMethod      PaymentMethod `json:"payment_method" gorm:"not null"`
	AmountPaisa        int64         `json:"amount_paisa" gorm:"not null;check:amount_paisa >= 0"`
	Status             OrderStatus   `json:"status" gorm:"not null;default:'pending';index"`
	PaymentReferenceID string        `json:"payment_reference_id" gorm:"uniqueIndex;not null"`
	TransactionCode    string        `json:"transaction_code,omitempty"` // gateway-assigned code on completion
	Items              []OrderItem   `json:"items" gorm:"foreignKey:OrderID"`
	CreatedAt          time.Time     `json:"created_at" gorm:"index"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// TableName returns the database table name.
func (Order) TableName() string {
	return "orders"
}

// OrderItem is a line item on an order. UnitPricePaisa is captured at
// initiation so later catalog price changes don't affect the order.
type OrderItem struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderID        uuid.UUID `json:"order_id" gorm:"type:uuid;not null;index"`
	ProductID      uuid.UUID `json:"product_id" gorm:"type:uuid;not null"`
	ProductName    string    `json:"product_name" gorm:"not null"`
	Quantity       int       `json:"quantity" gorm:"not null;check:quantity >= 1"`
	UnitPricePaisa int64     `json:"unit_price_paisa" gorm:"not null;check:unit_price_paisa >= 0"`
	AmountPaisa    int64     `json:"amount_paisa" gorm:"not null"`
	CreatedAt      time.Time `json:"created_at"`
}

// TableName returns the database table name.
func (OrderItem) TableName() string {
	return "order_items"
}

// Total sums the line item amounts.
func Total(items []OrderItem) int64 {
	var total int64
	for _, item := range items {
		total += item.AmountPaisa
	}
	return total
}
