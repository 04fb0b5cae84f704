package app

import (
	inventoryRepo "github.com/sakashimaa/order-fulfillment/internal/inventory/repository"
	inventoryService "github.com/sakashimaa/order-fulfillment/internal/inventory/service"
	inventoryTransport "github.com/sakashimaa/order-fulfillment/internal/inventory/transport"
	orderRepo "github.com/sakashimaa/order-fulfillment/internal/order/repository"
	orderService "github.com/sakashimaa/order-fulfillment/internal/order/service"
	orderTransport "github.com/sakashimaa/order-fulfillment/internal/order/transport"
	"github.com/sakashimaa/order-fulfillment/internal/payment/gateway"
	paymentRepo "github.com/sakashimaa/order-fulfillment/internal/payment/repository"
	paymentService "github.com/sakashimaa/order-fulfillment/internal/payment/service"
	paymentTransport "github.com/sakashimaa/order-fulfillment/internal/payment/transport"
	"github.com/sakashimaa/order-fulfillment/pkg/eventbus"
	"go.uber.org/zap"
)

// Standalone runs the whole saga in one process: every service on
// in-memory storage, every event on the synchronous in-process bus.
// No postgres, kafka or redis required.
type Standalone struct {
	Bus       *eventbus.InMemoryBus
	Orders    orderService.OrderService
	Payments  paymentService.PaymentService
	Inventory inventoryService.InventoryService
}

func NewStandalone(gw gateway.Gateway, logger *zap.Logger) *Standalone {
	bus := eventbus.NewInMemoryBus(logger)

	orders := orderService.NewOrderService(orderRepo.NewMemoryRepository(bus), bus, logger)
	payments := paymentService.NewPaymentService(paymentRepo.NewMemoryRepository(bus), gw, logger)
	inventory := inventoryService.NewInventoryService(inventoryRepo.NewMemoryRepository(), bus, logger)

	orderTransport.RegisterEventHandlers(bus, orders)
	paymentTransport.RegisterEventHandlers(bus, payments)
	inventoryTransport.RegisterEventHandlers(bus, inventory)

	return &Standalone{
		Bus:       bus,
		Orders:    orders,
		Payments:  payments,
		Inventory: inventory,
	}
}
