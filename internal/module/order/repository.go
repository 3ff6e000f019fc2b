package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/soundcraft/server/internal/module/catalog"
	"gorm.io/gorm"
)

// Repository defines order data access.
//
// Complete and Fail enforce the pending-only transition with a
// conditional UPDATE, so a repeated gateway callback affects zero rows
// and surfaces as ErrAlreadySettled instead of double-applying effects.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByReferenceID(ctx context.Context, referenceID string) (*Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*Order, int64, error)
	List(ctx context.Context, status OrderStatus, offset, limit int) ([]*Order, int64, error)
	Complete(ctx context.Context, id uuid.UUID, transactionCode string) (*Order, error)
	Fail(ctx context.Context, id uuid.UUID) (*Order, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository creates a new order repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, order *Order) error {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	var order Order
	err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return &order, nil
}

func (r *repository) GetByReferenceID(ctx context.Context, referenceID string) (*Order, error) {
	var order Order
	err := r.db.WithContext(ctx).Preload("Items").
		First(&order, "payment_reference_id = ?", referenceID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order by reference: %w", err)
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, offset, limit int) ([]*Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&Order{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	var orders []*Order
	err := query.Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

func (r *repository) List(ctx context.Context, status OrderStatus, offset, limit int) ([]*Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&Order{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	var orders []*Order
	err := query.Preload("Items").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// Complete settles a pending order as paid and applies its stock effects,
// all inside one transaction:
//
//   - the status flips pending→completed only if it is still pending
//     (conditional UPDATE, so concurrent or repeated callbacks settle
//     exactly once);
//   - every line item decrements product stock, clamped at zero.
//
// If the order already left pending, nothing is written and
// ErrAlreadySettled is returned.
func (r *repository) Complete(ctx context.Context, id uuid.UUID, transactionCode string) (*Order, error) {
	var order Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&Order{}).
			Where("id = ? AND status = ?", id, OrderStatusPending).
			Updates(map[string]any{
				"status":           OrderStatusCompleted,
				"transaction_code": transactionCode,
			})
		if result.Error != nil {
			return fmt.Errorf("complete order: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			if err := tx.First(&Order{}, "id = ?", id).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrOrderNotFound
				}
				return fmt.Errorf("check order: %w", err)
			}
			return ErrAlreadySettled
		}

		if err := tx.Preload("Items").First(&order, "id = ?", id).Error; err != nil {
			return fmt.Errorf("load order: %w", err)
		}

		for _, item := range order.Items {
			err := tx.Model(&catalog.Product{}).
				Where("id = ?", item.ProductID).
				Update("stock", gorm.Expr("GREATEST(stock - ?, 0)", item.Quantity)).Error
			if err != nil {
				return fmt.Errorf("decrement stock: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Fail settles a pending order as failed. Stock is untouched.
func (r *repository) Fail(ctx context.Context, id uuid.UUID) (*Order, error) {
	result := r.db.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND status = ?", id, OrderStatusPending).
		Update("status", OrderStatusFailed)
	if result.Error != nil {
		return nil, fmt.Errorf("fail order: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrAlreadySettled
	}
	return r.GetByID(ctx, id)
}
