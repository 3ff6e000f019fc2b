package order

import (
	"time"

	"github.com/google/uuid"
	"github.com/soundcraft/server/internal/module/catalog"
)

// ItemRequest is a requested line item: the client sends only product
// and quantity, prices are resolved server-side.
type ItemRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,gte=1"`
}

// ItemResponse is a line item on an order response.
type ItemResponse struct {
	ProductID      uuid.UUID `json:"product_id"`
	ProductName    string    `json:"product_name"`
	Quantity       int       `json:"quantity"`
	UnitPricePaisa int64     `json:"unit_price_paisa"`
	UnitPrice      string    `json:"unit_price"`
	AmountPaisa    int64     `json:"amount_paisa"`
	Amount         string    `json:"amount"`
}

// Response is the public order representation.
type Response struct {
	ID                 uuid.UUID      `json:"id"`
	OrderNumber        string         `json:"order_number"`
	PaymentMethod      PaymentMethod  `json:"payment_method"`
	AmountPaisa        int64          `json:"amount_paisa"`
	Amount             string         `json:"amount"` // rupees
	Status             OrderStatus    `json:"status"`
	PaymentReferenceID string         `json:"payment_reference_id"`
	TransactionCode    string         `json:"transaction_code,omitempty"`
	Items              []ItemResponse `json:"items"`
	CreatedAt          time.Time      `json:"created_at"`
}

// ListResponse is a page of orders.
type ListResponse struct {
	Orders []*Response `json:"orders"`
	Total  int64       `json:"total"`
}

// ToResponse converts an order to its public representation.
func ToResponse(o *Order) *Response {
	items := make([]ItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = ItemResponse{
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			Quantity:       item.Quantity,
			UnitPricePaisa: item.UnitPricePaisa,
			UnitPrice:      catalog.FormatRupees(item.UnitPricePaisa),
			AmountPaisa:    item.AmountPaisa,
			Amount:         catalog.FormatRupees(item.AmountPaisa),
		}
	}
	return &Response{
		ID:                 o.ID,
		OrderNumber:        o.OrderNumber,
		PaymentMethod:      o.PaymentMethod,
		AmountPaisa:        o.AmountPaisa,
		Amount:             catalog.FormatRupees(o.AmountPaisa),
		Status:             o.Status,
		PaymentReferenceID: o.PaymentReferenceID,
		TransactionCode:    o.TransactionCode,
		Items:              items,
		CreatedAt:          o.CreatedAt,
	}
}
