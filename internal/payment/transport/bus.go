package transport

import (
	"github.com/sakashimaa/order-fulfillment/internal/payment/service"
	"github.com/sakashimaa/order-fulfillment/pkg/eventbus"
	"github.com/sakashimaa/order-fulfillment/pkg/events"
)

func RegisterEventHandlers(bus eventbus.Bus, svc service.PaymentService) {
	bus.Subscribe(events.NameOrderCreated, eventbus.Typed(svc.HandleOrderCreated))
	bus.Subscribe(events.NameRefundRequested, eventbus.Typed(svc.HandleRefundRequested))
}
