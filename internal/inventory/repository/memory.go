package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sakashimaa/order-fulfillment/internal/inventory/domain"
)

type memoryRepo struct {
	mu           sync.Mutex
	items        map[string]domain.InventoryItem
	reservations map[uuid.UUID]domain.Reservation
}

func NewMemoryRepository() InventoryRepository {
	return &memoryRepo{
		items:        make(map[string]domain.InventoryItem),
		reservations: make(map[uuid.UUID]domain.Reservation),
	}
}

func (r *memoryRepo) AddItem(ctx context.Context, item *domain.InventoryItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[item.ProductID]; ok {
		return ErrDuplicateProduct
	}

	r.items[item.ProductID] = *item
	return nil
}

func (r *memoryRepo) AdjustStock(ctx context.Context, productID string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[productID]
	if !ok {
		return ErrItemNotFound
	}

	if err := item.AdjustStock(delta); err != nil {
		return ErrStockConflict
	}

	r.items[productID] = item
	return nil
}

func (r *memoryRepo) GetByProductID(ctx context.Context, productID string) (*domain.InventoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.items[productID]
	if !ok {
		return nil, ErrItemNotFound
	}

	return &item, nil
}

func (r *memoryRepo) GetByProductIDs(ctx context.Context, productIDs []string) ([]*domain.InventoryItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var items []*domain.InventoryItem
	for _, productID := range productIDs {
		if item, ok := r.items[productID]; ok {
			copied := item
			items = append(items, &copied)
		}
	}

	return items, nil
}

func (r *memoryRepo) GetReservationByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reservation, ok := r.reservations[orderID]
	if !ok {
		return nil, ErrReservationNotFound
	}

	return &reservation, nil
}

// SaveReservation applies the same all-or-nothing guard as the
// postgres variant, under one lock instead of one transaction.
func (r *memoryRepo) SaveReservation(ctx context.Context, reservation *domain.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.reservations[reservation.OrderID]; ok {
		return ErrDuplicateReservation
	}

	updated := make(map[string]domain.InventoryItem, len(reservation.Lines))
	for _, line := range reservation.Lines {
		item, ok := r.items[line.ProductID]
		if !ok {
			return ErrStockConflict
		}

		if err := item.Reserve(line.Quantity); err != nil {
			return ErrStockConflict
		}

		updated[line.ProductID] = item
	}

	for productID, item := range updated {
		r.items[productID] = item
	}
	r.reservations[reservation.OrderID] = *reservation

	return nil
}

func (r *memoryRepo) ReleaseReservation(ctx context.Context, reservation *domain.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.reservations[reservation.OrderID]
	if !ok {
		return ErrReservationNotFound
	}

	updated := make(map[string]domain.InventoryItem, len(stored.Lines))
	for _, line := range stored.Lines {
		item, ok := r.items[line.ProductID]
		if !ok {
			return ErrStockConflict
		}

		if err := item.Release(line.Quantity); err != nil {
			return ErrStockConflict
		}

		updated[line.ProductID] = item
	}

	for productID, item := range updated {
		r.items[productID] = item
	}
	delete(r.reservations, reservation.OrderID)

	return nil
}
