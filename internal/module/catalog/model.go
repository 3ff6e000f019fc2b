package catalog

import (
	"time"

	"github.com/google/uuid"
)

// Category groups products, e.g. guitars, keyboards, drums.
type Category struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name        string    `json:"name" gorm:"uniqueIndex;not null"`
	Slug        string    `json:"slug" gorm:"uniqueIndex;not null"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Category) TableName() string {
	return "categories"
}

// Product is a musical instrument or accessory for sale.
// Price is stored in paisa (1 rupee = 100 paisa).
type Product struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name        string    `json:"name" gorm:"not null;index"`
	Model       string    `json:"model,omitempty"`
	SKU         string    `json:"sku" gorm:"uniqueIndex;not null"`
	Description string    `json:"description,omitempty"`
	PricePaisa  int64     `json:"price_paisa" gorm:"not null;check:price_paisa >= 0"`
	Stock       int       `json:"stock" gorm:"not null;default:0;check:stock >= 0"`
	ImageURL    string    `json:"image_url,omitempty"`
	CategoryID  uuid.UUID `json:"category_id" gorm:"type:uuid;not null;index"`
	Category    *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Product) TableName() string {
	return "products"
}

// InStock reports whether the requested quantity is available.
func (p *Product) InStock(qty int) bool {
	return p.Stock >= qty
}
