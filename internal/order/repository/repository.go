package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sakashimaa/order-fulfillment/internal/order/domain"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderRepository persists orders and dispatches the domain events an
// aggregate accumulated, atomically with the save. For the postgres
// implementation dispatch means staging outbox rows in the same
// transaction; for the in-memory implementation it means publishing on
// the in-process bus right after the save.
type OrderRepository interface {
	Add(ctx context.Context, order *domain.Order) error
	Update(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	List(ctx context.Context) ([]*domain.Order, error)
}
