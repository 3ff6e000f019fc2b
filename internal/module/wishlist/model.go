package wishlist

import (
	"time"

	"github.com/google/uuid"
	"github.com/soundcraft/server/internal/module/catalog"
)

// Item is a wishlist entry, unique per user and product.
type Item struct {
	ID        uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserID    uuid.UUID        `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:idx_wishlist_user_product"`
	ProductID uuid.UUID        `json:"product_id" gorm:"type:uuid;not null;uniqueIndex:idx_wishlist_user_product"`
	Product   *catalog.Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	CreatedAt time.Time        `json:"created_at"`
}

// TableName returns the database table name.
func (Item) TableName() string {
	return "wishlist_items"
}
