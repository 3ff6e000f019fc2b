package catalog

import "errors"

var (
	// ErrProductNotFound is returned when a product doesn't exist.
	ErrProductNotFound = errors.New("product not found")
	// ErrCategoryNotFound is returned when a category doesn't exist.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrSKUAlreadyExists is returned on a duplicate SKU.
	ErrSKUAlreadyExists = errors.New("sku already exists")
	// ErrCategoryInUse is returned when deleting a category that still has products.
	ErrCategoryInUse = errors.New("category has products")
	// ErrInsufficientStock is returned when stock can't cover a request.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrStorageUnavailable is returned when object storage is not configured.
	ErrStorageUnavailable = errors.New("image storage not configured")
)
