package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sakashimaa/order-fulfillment/internal/order/domain"
	"github.com/sakashimaa/order-fulfillment/pkg/eventbus"
	"github.com/sakashimaa/order-fulfillment/pkg/events"
)

// memoryRepo is the in-process variant used by the standalone binary
// and the choreography tests. Saves publish the drained events directly
// on the bus, so the whole saga runs without postgres or kafka.
type memoryRepo struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]domain.Order
	bus    eventbus.Bus
}

func NewMemoryRepository(bus eventbus.Bus) OrderRepository {
	return &memoryRepo{
		orders: make(map[uuid.UUID]domain.Order),
		bus:    bus,
	}
}

func (r *memoryRepo) Add(ctx context.Context, order *domain.Order) error {
	drained := toIntegrationEvents(order, order.PullEvents())

	r.mu.Lock()
	r.orders[order.ID] = *order
	r.mu.Unlock()

	return r.publish(ctx, drained)
}

func (r *memoryRepo) Update(ctx context.Context, order *domain.Order) error {
	drained := toIntegrationEvents(order, order.PullEvents())

	r.mu.Lock()
	if _, ok := r.orders[order.ID]; !ok {
		r.mu.Unlock()
		return ErrOrderNotFound
	}
	r.orders[order.ID] = *order
	r.mu.Unlock()

	return r.publish(ctx, drained)
}

func (r *memoryRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}

	return &order, nil
}

func (r *memoryRepo) List(ctx context.Context) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]*domain.Order, 0, len(r.orders))
	for id := range r.orders {
		order := r.orders[id]
		orders = append(orders, &order)
	}

	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})

	return orders, nil
}

func (r *memoryRepo) publish(ctx context.Context, drained []events.IntegrationEvent) error {
	for _, ev := range drained {
		if err := r.bus.Publish(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}
