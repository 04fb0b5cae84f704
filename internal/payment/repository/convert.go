package repository

import (
	"github.com/google/uuid"
	"github.com/sakashimaa/order-fulfillment/internal/payment/domain"
	"github.com/sakashimaa/order-fulfillment/pkg/events"
)

func toIntegrationEvent(payment *domain.Payment, event domain.Event) events.IntegrationEvent {
	switch event.Kind {
	case domain.EventPaymentSucceeded:
		return events.PaymentSucceeded{
			Base:        events.NewBase(),
			PaymentID:   payment.ID,
			OrderID:     payment.OrderID,
			Amount:      payment.Amount,
			ProcessedAt: event.At,
		}
	case domain.EventPaymentFailed:
		return events.PaymentFailed{
			Base:          events.NewBase(),
			PaymentID:     payment.ID,
			OrderID:       payment.OrderID,
			Amount:        payment.Amount,
			FailureReason: event.Reason,
			FailedAt:      event.At,
		}
	case domain.EventPaymentRefunded:
		// the refund itself has no aggregate, a fresh id names it
		return events.PaymentRefunded{
			Base:       events.NewBase(),
			RefundID:   uuid.New(),
			PaymentID:  payment.ID,
			OrderID:    payment.OrderID,
			Amount:     payment.Amount,
			RefundedAt: event.At,
		}
	default:
		return nil
	}
}

func toIntegrationEvents(payment *domain.Payment, drained []domain.Event) []events.IntegrationEvent {
	var out []events.IntegrationEvent
	for _, event := range drained {
		if converted := toIntegrationEvent(payment, event); converted != nil {
			out = append(out, converted)
		}
	}
	return out
}
