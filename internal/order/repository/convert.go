package repository

import (
	"github.com/sakashimaa/order-fulfillment/internal/order/domain"
	"github.com/sakashimaa/order-fulfillment/pkg/events"
)

// toIntegrationEvent maps a drained domain event onto its integration
// contract. A nil result means the event stays internal to the service:
// order.paid has no contract of its own, the paid step of the saga is
// driven by OrderInventoryRequested instead.
func toIntegrationEvent(order *domain.Order, event domain.Event) events.IntegrationEvent {
	switch event.Kind {
	case domain.EventOrderCreated:
		items := make([]events.OrderItem, 0, len(order.Items))
		for _, item := range order.Items {
			items = append(items, events.OrderItem{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				Price:     item.Price,
			})
		}

		return events.OrderCreated{
			Base:        events.NewBase(),
			OrderID:     order.ID,
			CustomerID:  order.CustomerID,
			TotalAmount: order.TotalAmount,
			Items:       items,
			CreatedAt:   event.At,
		}
	case domain.EventOrderCompleted:
		return events.OrderCompleted{
			Base:        events.NewBase(),
			OrderID:     order.ID,
			CompletedAt: event.At,
		}
	case domain.EventOrderCancelled:
		return events.OrderCancelled{
			Base:        events.NewBase(),
			OrderID:     order.ID,
			Reason:      event.Reason,
			CancelledAt: event.At,
		}
	default:
		return nil
	}
}

func toIntegrationEvents(order *domain.Order, drained []domain.Event) []events.IntegrationEvent {
	var out []events.IntegrationEvent
	for _, event := range drained {
		if converted := toIntegrationEvent(order, event); converted != nil {
			out = append(out, converted)
		}
	}
	return out
}
