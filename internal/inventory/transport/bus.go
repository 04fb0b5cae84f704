package transport

import (
	"github.com/sakashimaa/order-fulfillment/internal/inventory/service"
	"github.com/sakashimaa/order-fulfillment/pkg/eventbus"
	"github.com/sakashimaa/order-fulfillment/pkg/events"
)

func RegisterEventHandlers(bus eventbus.Bus, svc service.InventoryService) {
	bus.Subscribe(events.NameOrderInventoryRequested, eventbus.Typed(svc.HandleOrderInventoryRequested))
	bus.Subscribe(events.NameOrderCancelled, eventbus.Typed(svc.HandleOrderCancelled))
}
