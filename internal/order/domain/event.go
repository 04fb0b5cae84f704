package domain

import "time"

type EventKind string

const (
	EventOrderCreated   EventKind = "order.created"
	EventOrderPaid      EventKind = "order.paid"
	EventOrderCompleted EventKind = "order.completed"
	EventOrderCancelled EventKind = "order.cancelled"
)

// Event is a domain event raised by the Order aggregate. Conversion into
// integration events happens in the repository layer, keyed on Kind.
type Event struct {
	Kind   EventKind
	Reason string
	At     time.Time
}
