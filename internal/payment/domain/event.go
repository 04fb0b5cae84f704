package domain

import "time"

type EventKind string

const (
	EventPaymentSucceeded EventKind = "payment.succeeded"
	EventPaymentFailed    EventKind = "payment.failed"
	EventPaymentRefunded  EventKind = "payment.refunded"
)

type Event struct {
	Kind   EventKind
	Reason string
	At     time.Time
}
