package app

import (
	"context"
	"testing"

	"github.com/google/uuid"
	orderDomain "github.com/sakashimaa/order-fulfillment/internal/order/domain"
	orderRepo "github.com/sakashimaa/order-fulfillment/internal/order/repository"
	orderService "github.com/sakashimaa/order-fulfillment/internal/order/service"
	orderTransport "github.com/sakashimaa/order-fulfillment/internal/order/transport"
	paymentDomain "github.com/sakashimaa/order-fulfillment/internal/payment/domain"
	"github.com/sakashimaa/order-fulfillment/internal/payment/gateway"
	paymentRepo "github.com/sakashimaa/order-fulfillment/internal/payment/repository"
	paymentService "github.com/sakashimaa/order-fulfillment/internal/payment/service"
	paymentTransport "github.com/sakashimaa/order-fulfillment/internal/payment/transport"
	"github.com/sakashimaa/order-fulfillment/pkg/eventbus"
	"github.com/sakashimaa/order-fulfillment/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fixedGateway makes the saga outcome deterministic per test.
type fixedGateway struct {
	approve bool
}

func (g fixedGateway) Charge(_ context.Context, _ uuid.UUID, _ int64) (gateway.ChargeResult, error) {
	if g.approve {
		return gateway.ChargeResult{Approved: true}, nil
	}
	return gateway.ChargeResult{Approved: false, DeclineReason: "insufficient funds"}, nil
}

func (g fixedGateway) Refund(_ context.Context, _ uuid.UUID, _ int64) error {
	return nil
}

func seedStock(t *testing.T, s *Standalone, productID string, quantity int) {
	t.Helper()

	_, err := s.Inventory.CreateItem(context.Background(), productID, quantity)
	require.NoError(t, err)
}

func orderItems() []orderDomain.OrderItem {
	return []orderDomain.OrderItem{
		{ProductID: "sku-1", Quantity: 2, Price: 1500},
		{ProductID: "sku-2", Quantity: 1, Price: 500},
	}
}

// The happy path runs the whole chain synchronously on the in-process
// bus: OrderCreated, PaymentSucceeded, OrderInventoryRequested,
// InventoryReserved, OrderCompleted.
func TestSagaHappyPath(t *testing.T) {
	s := NewStandalone(fixedGateway{approve: true}, zap.NewNop())
	ctx := context.Background()
	seedStock(t, s, "sku-1", 10)
	seedStock(t, s, "sku-2", 5)

	order, err := s.Orders.CreateOrder(ctx, "customer-1", orderItems())
	require.NoError(t, err)

	stored, err := s.Orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderDomain.OrderStatusCompleted, stored.Status)

	payment, err := s.Payments.GetPaymentByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentDomain.PaymentStatusSucceeded, payment.Status)
	assert.Equal(t, int64(3500), payment.Amount)

	item, err := s.Inventory.GetAvailability(ctx, "sku-1")
	require.NoError(t, err)
	assert.Equal(t, 2, item.Reserved)
	assert.Equal(t, 8, item.Available())

	item, err = s.Inventory.GetAvailability(ctx, "sku-2")
	require.NoError(t, err)
	assert.Equal(t, 1, item.Reserved)
}

func TestSagaPaymentFailure(t *testing.T) {
	s := NewStandalone(fixedGateway{approve: false}, zap.NewNop())
	ctx := context.Background()
	seedStock(t, s, "sku-1", 10)
	seedStock(t, s, "sku-2", 5)

	order, err := s.Orders.CreateOrder(ctx, "customer-1", orderItems())
	require.NoError(t, err)

	stored, err := s.Orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderDomain.OrderStatusCancelled, stored.Status)

	payment, err := s.Payments.GetPaymentByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentDomain.PaymentStatusFailed, payment.Status)

	// nothing was ever reserved
	item, err := s.Inventory.GetAvailability(ctx, "sku-1")
	require.NoError(t, err)
	assert.Equal(t, 0, item.Reserved)
}

// Compensation: payment succeeds, the reservation fails, the refund
// runs and the order ends up cancelled with all stock untouched.
func TestSagaInventoryFailureCompensation(t *testing.T) {
	s := NewStandalone(fixedGateway{approve: true}, zap.NewNop())
	ctx := context.Background()
	seedStock(t, s, "sku-1", 1)
	seedStock(t, s, "sku-2", 5)

	order, err := s.Orders.CreateOrder(ctx, "customer-1", orderItems())
	require.NoError(t, err)

	stored, err := s.Orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderDomain.OrderStatusCancelled, stored.Status)

	payment, err := s.Payments.GetPaymentByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentDomain.PaymentStatusRefunded, payment.Status)

	for _, productID := range []string{"sku-1", "sku-2"} {
		item, err := s.Inventory.GetAvailability(ctx, productID)
		require.NoError(t, err)
		assert.Equal(t, 0, item.Reserved, "product %s must not stay reserved", productID)
	}
}

func TestSagaMissingProductCompensation(t *testing.T) {
	s := NewStandalone(fixedGateway{approve: true}, zap.NewNop())
	ctx := context.Background()
	// sku-2 never created

	seedStock(t, s, "sku-1", 10)

	order, err := s.Orders.CreateOrder(ctx, "customer-1", orderItems())
	require.NoError(t, err)

	stored, err := s.Orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderDomain.OrderStatusCancelled, stored.Status)

	payment, err := s.Payments.GetPaymentByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentDomain.PaymentStatusRefunded, payment.Status)
}

// A late inventory failure must still refund an order the customer
// already cancelled. Only order and payment are wired here so the
// inventory reply can arrive after the cancellation.
func TestSagaCancelDuringReservationStillRefunds(t *testing.T) {
	logger := zap.NewNop()
	bus := eventbus.NewInMemoryBus(logger)

	orders := orderService.NewOrderService(orderRepo.NewMemoryRepository(bus), bus, logger)
	payments := paymentService.NewPaymentService(paymentRepo.NewMemoryRepository(bus), fixedGateway{approve: true}, logger)

	orderTransport.RegisterEventHandlers(bus, orders)
	paymentTransport.RegisterEventHandlers(bus, payments)

	ctx := context.Background()
	order, err := orders.CreateOrder(ctx, "customer-1", orderItems())
	require.NoError(t, err)

	stored, err := orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, orderDomain.OrderStatusPaid, stored.Status)

	require.NoError(t, orders.CancelOrder(ctx, order.ID, "changed my mind"))

	// the inventory reply lands after the cancellation
	require.NoError(t, bus.Publish(ctx, events.InventoryFailed{
		Base:          events.NewBase(),
		OrderID:       order.ID,
		FailureReason: "insufficient stock",
	}))

	payment, err := payments.GetPaymentByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, paymentDomain.PaymentStatusRefunded, payment.Status)

	stored, err = orders.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, orderDomain.OrderStatusCancelled, stored.Status)
}

// Cancelling a completed order is refused, its reservation stays.
func TestCancelAfterCompletionIsRejected(t *testing.T) {
	s := NewStandalone(fixedGateway{approve: true}, zap.NewNop())
	ctx := context.Background()
	seedStock(t, s, "sku-1", 10)
	seedStock(t, s, "sku-2", 5)

	order, err := s.Orders.CreateOrder(ctx, "customer-1", orderItems())
	require.NoError(t, err)

	err = s.Orders.CancelOrder(ctx, order.ID, "too late")
	assert.True(t, orderDomain.IsInvalidTransition(err))

	item, err := s.Inventory.GetAvailability(ctx, "sku-1")
	require.NoError(t, err)
	assert.Equal(t, 2, item.Reserved)
}
