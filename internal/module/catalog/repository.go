package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductFilter narrows product listings.
type ProductFilter struct {
	CategoryID *uuid.UUID
	Search     string // matches name, model or sku
	MinPrice   *int64 // paisa
	MaxPrice   *int64 // paisa
	InStock    bool
	Offset     int
	Limit      int
}

// Repository defines catalog data access.
type Repository interface {
	CreateProduct(ctx context.Context, p *Product) error
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	ListProducts(ctx context.Context, filter *ProductFilter) ([]*Product, int64, error)
	UpdateProduct(ctx context.Context, p *Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	SetStock(ctx context.Context, id uuid.UUID, stock int) error
	LowStock(ctx context.Context, threshold int, limit int) ([]*Product, error)

	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	ListCategories(ctx context.Context) ([]*Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new catalog repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// --- Products ---

func (r *repository) CreateProduct(ctx context.Context, p *Product) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrSKUAlreadyExists
		}
		return fmt.Errorf("create product: %w", err)
	}
	return nil
}

func (r *repository) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	var p Product
	err := r.db.WithContext(ctx).Preload("Category").First(&p, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

func (r *repository) ListProducts(ctx context.Context, filter *ProductFilter) ([]*Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&Product{})

	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.Search != "" {
		pattern := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"LOWER(name) LIKE ? OR LOWER(model) LIKE ? OR LOWER(sku) LIKE ?",
			pattern, pattern, pattern,
		)
	}
	if filter.MinPrice != nil {
		query = query.Where("price_paisa >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price_paisa <= ?", *filter.MaxPrice)
	}
	if filter.InStock {
		query = query.Where("stock > 0")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	var products []*Product
	err := query.Preload("Category").
		Order("created_at DESC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	return products, total, nil
}

func (r *repository) UpdateProduct(ctx context.Context, p *Product) error {
	if err := r.db.WithContext(ctx).Save(p).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrSKUAlreadyExists
		}
		return fmt.Errorf("update product: %w", err)
	}
	return nil
}

func (r *repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&Product{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *repository) SetStock(ctx context.Context, id uuid.UUID, stock int) error {
	result := r.db.WithContext(ctx).Model(&Product{}).
		Where("id = ?", id).
		Update("stock", stock)
	if result.Error != nil {
		return fmt.Errorf("set stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *repository) LowStock(ctx context.Context, threshold int, limit int) ([]*Product, error) {
	var products []*Product
	err := r.db.WithContext(ctx).
		Where("stock <= ?", threshold).
		Order("stock ASC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("low stock: %w", err)
	}
	return products, nil
}

// --- Categories ---

func (r *repository) CreateCategory(ctx context.Context, c *Category) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

func (r *repository) GetCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	var c Category
	err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &c, nil
}

func (r *repository) ListCategories(ctx context.Context) ([]*Category, error) {
	var categories []*Category
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (r *repository) UpdateCategory(ctx context.Context, c *Category) error {
	if err := r.db.WithContext(ctx).Save(c).Error; err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return nil
}

func (r *repository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	var count int64
	if err := r.db.WithContext(ctx).Model(&Product{}).
		Where("category_id = ?", id).
		Count(&count).Error; err != nil {
		return fmt.Errorf("count category products: %w", err)
	}
	if count > 0 {
		return ErrCategoryInUse
	}

	result := r.db.WithContext(ctx).Delete(&Category{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete category: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

// isUniqueViolation reports whether the error is a Postgres unique
// constraint violation.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate key value")
}
