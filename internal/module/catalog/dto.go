package catalog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateProductRequest is the payload to create a product.
type CreateProductRequest struct {
	Name        string    `json:"name" binding:"required"`
	Model       string    `json:"model"`
	SKU         string    `json:"sku" binding:"required"`
	Description string    `json:"description"`
	PricePaisa  int64     `json:"price_paisa" binding:"required,gte=0"`
	Stock       int       `json:"stock" binding:"gte=0"`
	CategoryID  uuid.UUID `json:"category_id" binding:"required"`
}

// UpdateProductRequest is the payload to update a product.
// Nil fields are left unchanged.
type UpdateProductRequest struct {
	Name        *string    `json:"name"`
	Model       *string    `json:"model"`
	Description *string    `json:"description"`
	PricePaisa  *int64     `json:"price_paisa" binding:"omitempty,gte=0"`
	Stock       *int       `json:"stock" binding:"omitempty,gte=0"`
	CategoryID  *uuid.UUID `json:"category_id"`
}

// CreateCategoryRequest is the payload to create or update a category.
type CreateCategoryRequest struct {
	Name        string `json:"name" binding:"required"`
	Slug        string `json:"slug" binding:"required"`
	Description string `json:"description"`
}

// ProductResponse is the public product representation.
type ProductResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Model       string    `json:"model,omitempty"`
	SKU         string    `json:"sku"`
	Description string    `json:"description,omitempty"`
	PricePaisa  int64     `json:"price_paisa"`
	Price       string    `json:"price"` // rupees, e.g. "125.00"
	Stock       int       `json:"stock"`
	ImageURL    string    `json:"image_url,omitempty"`
	CategoryID  uuid.UUID `json:"category_id"`
	Category    *Category `json:"category,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProductListResponse is a page of products.
type ProductListResponse struct {
	Products []*ProductResponse `json:"products"`
	Total    int64              `json:"total"`
}

// ToProductResponse converts a product to its public representation.
func ToProductResponse(p *Product) *ProductResponse {
	return &ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Model:       p.Model,
		SKU:         p.SKU,
		Description: p.Description,
		PricePaisa:  p.PricePaisa,
		Price:       FormatRupees(p.PricePaisa),
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
		CategoryID:  p.CategoryID,
		Category:    p.Category,
		CreatedAt:   p.CreatedAt,
	}
}

// FormatRupees renders a paisa amount as a rupee string with two decimals.
func FormatRupees(paisa int64) string {
	return fmt.Sprintf("%d.%02d", paisa/100, paisa%100)
}

// cacheKey builds a stable Redis key suffix for the filter.
func (f *ProductFilter) cacheKey() string {
	category := ""
	if f.CategoryID != nil {
		category = f.CategoryID.String()
	}
	minPrice, maxPrice := int64(-1), int64(-1)
	if f.MinPrice != nil {
		minPrice = *f.MinPrice
	}
	if f.MaxPrice != nil {
		maxPrice = *f.MaxPrice
	}
	return fmt.Sprintf("%s:%s:%d:%d:%t:%d:%d",
		category, f.Search, minPrice, maxPrice, f.InStock, f.Offset, f.Limit)
}
