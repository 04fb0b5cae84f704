package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyProduct           = errors.New("product id must not be empty")
	ErrNegativeStock          = errors.New("stock quantity cannot be negative")
	ErrBadQuantity            = errors.New("quantity must be positive")
	ErrReleaseExceedsReserved = errors.New("cannot release more than is reserved")
	ErrStockBelowReserved     = errors.New("cannot reduce stock below reserved quantity")
)

type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}
