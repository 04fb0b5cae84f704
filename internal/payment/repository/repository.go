package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sakashimaa/order-fulfillment/internal/payment/domain"
)

var ErrPaymentNotFound = errors.New("payment not found")

// PaymentRepository persists payments and dispatches drained domain
// events atomically with the save, same contract as the order side.
type PaymentRepository interface {
	Add(ctx context.Context, payment *domain.Payment) error
	Update(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error)
}
