package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestFormatRupees(t *testing.T) {
	tests := []struct {
		name  string
		paisa int64
		want  string
	}{
		{"zero", 0, "0.00"},
		{"whole rupees", 12500, "125.00"},
		{"with paisa", 12550, "125.50"},
		{"single paisa", 5, "0.05"},
		{"large amount", 999999999, "9999999.99"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatRupees(tt.paisa))
		})
	}
}

func TestProduct_InStock(t *testing.T) {
	p := &Product{Stock: 3}
	assert.True(t, p.InStock(1))
	assert.True(t, p.InStock(3))
	assert.False(t, p.InStock(4))
}

func TestProductFilter_CacheKey(t *testing.T) {
	categoryID := uuid.New()
	minPrice := int64(1000)

	a := &ProductFilter{CategoryID: &categoryID, Search: "guitar", MinPrice: &minPrice, Limit: 20}
	b := &ProductFilter{CategoryID: &categoryID, Search: "guitar", MinPrice: &minPrice, Limit: 20}
	c := &ProductFilter{Search: "guitar", Limit: 20}

	assert.Equal(t, a.cacheKey(), b.cacheKey())
	assert.NotEqual(t, a.cacheKey(), c.cacheKey())
}

func TestToProductResponse(t *testing.T) {
	p := &Product{
		ID:         uuid.New(),
		Name:       "Fender Stratocaster",
		SKU:        "GTR-001",
		PricePaisa: 12500,
		Stock:      2,
	}

	resp := ToProductResponse(p)
	assert.Equal(t, p.ID, resp.ID)
	assert.Equal(t, int64(12500), resp.PricePaisa)
	assert.Equal(t, "125.00", resp.Price)
}
