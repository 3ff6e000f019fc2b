package wishlist

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrItemNotFound is returned when a wishlist entry doesn't exist.
var ErrItemNotFound = errors.New("wishlist item not found")

// Repository defines wishlist data access.
type Repository interface {
	Add(ctx context.Context, item *Item) error
	Remove(ctx context.Context, userID, productID uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Item, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new wishlist repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// Add inserts the entry. Adding an already wishlisted product is a no-op.
func (r *repository) Add(ctx context.Context, item *Item) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoNothing: true,
	}).Create(item).Error
	if err != nil {
		return fmt.Errorf("add wishlist item: %w", err)
	}
	return nil
}

func (r *repository) Remove(ctx context.Context, userID, productID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&Item{}, "user_id = ? AND product_id = ?", userID, productID)
	if result.Error != nil {
		return fmt.Errorf("remove wishlist item: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Item, error) {
	var items []*Item
	err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("list wishlist: %w", err)
	}
	return items, nil
}
