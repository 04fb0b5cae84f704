package domain

import (
	"time"

	"github.com/google/uuid"
)

// InventoryItem tracks physical and reserved stock per product.
// Available stock is always derived, never stored.
type InventoryItem struct {
	ID        uuid.UUID `db:"id"`
	ProductID string    `db:"product_id"`
	InStock   int       `db:"in_stock"`
	Reserved  int       `db:"reserved"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func NewInventoryItem(productID string, inStock int) (*InventoryItem, error) {
	if productID == "" {
		return nil, ErrEmptyProduct
	}
	if inStock < 0 {
		return nil, ErrNegativeStock
	}

	now := time.Now().UTC()
	return &InventoryItem{
		ID:        uuid.New(),
		ProductID: productID,
		InStock:   inStock,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (i *InventoryItem) Available() int {
	return i.InStock - i.Reserved
}

func (i *InventoryItem) Reserve(quantity int) error {
	if quantity <= 0 {
		return ErrBadQuantity
	}
	if i.Available() < quantity {
		return &InsufficientStockError{
			ProductID: i.ProductID,
			Requested: quantity,
			Available: i.Available(),
		}
	}

	i.Reserved += quantity
	i.UpdatedAt = time.Now().UTC()

	return nil
}

func (i *InventoryItem) Release(quantity int) error {
	if quantity <= 0 {
		return ErrBadQuantity
	}
	if i.Reserved < quantity {
		return ErrReleaseExceedsReserved
	}

	i.Reserved -= quantity
	i.UpdatedAt = time.Now().UTC()

	return nil
}

// AdjustStock changes physical stock by delta, e.g. after receiving
// goods. Stock can never drop below what is already reserved.
func (i *InventoryItem) AdjustStock(delta int) error {
	if i.InStock+delta < i.Reserved {
		return ErrStockBelowReserved
	}

	i.InStock += delta
	i.UpdatedAt = time.Now().UTC()

	return nil
}
