package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sakashimaa/order-fulfillment/pkg/events"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func createdEvent() events.OrderCreated {
	return events.OrderCreated{
		Base:       events.NewBase(),
		OrderID:    uuid.New(),
		CustomerID: "customer-1",
		CreatedAt:  time.Now().UTC(),
	}
}

func TestInMemoryBusFansOutToAllHandlers(t *testing.T) {
	bus := NewInMemoryBus(zap.NewNop())

	var first, second int
	bus.Subscribe(events.NameOrderCreated, func(ctx context.Context, ev events.IntegrationEvent) error {
		first++
		return nil
	})
	bus.Subscribe(events.NameOrderCreated, func(ctx context.Context, ev events.IntegrationEvent) error {
		second++
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), createdEvent()))
	require.Equal(t, 1, first)
	require.Equal(t, 1, second)
}

func TestInMemoryBusRunsLaterHandlersAfterFailure(t *testing.T) {
	bus := NewInMemoryBus(zap.NewNop())

	boom := errors.New("handler boom")
	var reached bool
	bus.Subscribe(events.NameOrderCreated, func(ctx context.Context, ev events.IntegrationEvent) error {
		return boom
	})
	bus.Subscribe(events.NameOrderCreated, func(ctx context.Context, ev events.IntegrationEvent) error {
		reached = true
		return nil
	})

	err := bus.Publish(context.Background(), createdEvent())
	require.ErrorIs(t, err, boom)
	require.True(t, reached)
}

func TestInMemoryBusIgnoresUnsubscribedEvents(t *testing.T) {
	bus := NewInMemoryBus(zap.NewNop())

	var called bool
	bus.Subscribe(events.NamePaymentFailed, func(ctx context.Context, ev events.IntegrationEvent) error {
		called = true
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), createdEvent()))
	require.False(t, called)
}

func TestTypedHandlerRejectsWrongConcreteType(t *testing.T) {
	handler := Typed(func(ctx context.Context, ev events.PaymentFailed) error {
		return nil
	})

	err := handler(context.Background(), createdEvent())
	require.Error(t, err)
}
