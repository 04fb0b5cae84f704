package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sakashimaa/order-fulfillment/internal/inventory/domain"
)

var (
	ErrItemNotFound        = errors.New("inventory item not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrDuplicateProduct    = errors.New("inventory item already exists for product")

	// ErrDuplicateReservation signals a lost race on the one-per-order
	// rule; the caller re-reads and returns the winner's reservation.
	ErrDuplicateReservation = errors.New("reservation already exists for order")

	// ErrStockConflict means a guarded stock mutation found less
	// availability than the caller observed.
	ErrStockConflict = errors.New("stock changed concurrently")
)

// InventoryRepository persists stock levels and reservations. The
// reserve guard lives in storage: SaveReservation only commits when
// every line still fits into the available quantity, all lines or none.
type InventoryRepository interface {
	AddItem(ctx context.Context, item *domain.InventoryItem) error
	AdjustStock(ctx context.Context, productID string, delta int) error
	GetByProductID(ctx context.Context, productID string) (*domain.InventoryItem, error)
	GetByProductIDs(ctx context.Context, productIDs []string) ([]*domain.InventoryItem, error)

	GetReservationByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Reservation, error)
	SaveReservation(ctx context.Context, reservation *domain.Reservation) error
	ReleaseReservation(ctx context.Context, reservation *domain.Reservation) error
}
