package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/sakashimaa/order-fulfillment/internal/payment/domain"
	"github.com/sakashimaa/order-fulfillment/pkg/eventbus"
	"github.com/sakashimaa/order-fulfillment/pkg/events"
)

type memoryRepo struct {
	mu       sync.RWMutex
	payments map[uuid.UUID]domain.Payment
	byOrder  map[uuid.UUID]uuid.UUID
	bus      eventbus.Bus
}

func NewMemoryRepository(bus eventbus.Bus) PaymentRepository {
	return &memoryRepo{
		payments: make(map[uuid.UUID]domain.Payment),
		byOrder:  make(map[uuid.UUID]uuid.UUID),
		bus:      bus,
	}
}

func (r *memoryRepo) Add(ctx context.Context, payment *domain.Payment) error {
	drained := toIntegrationEvents(payment, payment.PullEvents())

	r.mu.Lock()
	r.payments[payment.ID] = *payment
	r.byOrder[payment.OrderID] = payment.ID
	r.mu.Unlock()

	return r.publish(ctx, drained)
}

func (r *memoryRepo) Update(ctx context.Context, payment *domain.Payment) error {
	drained := toIntegrationEvents(payment, payment.PullEvents())

	r.mu.Lock()
	if _, ok := r.payments[payment.ID]; !ok {
		r.mu.Unlock()
		return ErrPaymentNotFound
	}
	r.payments[payment.ID] = *payment
	r.mu.Unlock()

	return r.publish(ctx, drained)
}

func (r *memoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, ok := r.payments[id]
	if !ok {
		return nil, ErrPaymentNotFound
	}

	return &payment, nil
}

func (r *memoryRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byOrder[orderID]
	if !ok {
		return nil, ErrPaymentNotFound
	}

	payment := r.payments[id]
	return &payment, nil
}

func (r *memoryRepo) publish(ctx context.Context, drained []events.IntegrationEvent) error {
	for _, ev := range drained {
		if err := r.bus.Publish(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}
