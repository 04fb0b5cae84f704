package transport

import (
	"github.com/sakashimaa/order-fulfillment/internal/order/service"
	"github.com/sakashimaa/order-fulfillment/pkg/eventbus"
	"github.com/sakashimaa/order-fulfillment/pkg/events"
)

// RegisterEventHandlers wires the order-side saga reactions. The same
// table drives both the in-process bus and the kafka consumer.
func RegisterEventHandlers(bus eventbus.Bus, svc service.OrderService) {
	bus.Subscribe(events.NamePaymentSucceeded, eventbus.Typed(svc.HandlePaymentSucceeded))
	bus.Subscribe(events.NamePaymentFailed, eventbus.Typed(svc.HandlePaymentFailed))
	bus.Subscribe(events.NameInventoryReserved, eventbus.Typed(svc.HandleInventoryReserved))
	bus.Subscribe(events.NameInventoryFailed, eventbus.Typed(svc.HandleInventoryFailed))
	bus.Subscribe(events.NamePaymentRefunded, eventbus.Typed(svc.HandlePaymentRefunded))
}
