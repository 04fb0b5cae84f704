package domain

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type Payment struct {
	ID            uuid.UUID     `db:"id"`
	OrderID       uuid.UUID     `db:"order_id"`
	CustomerID    string        `db:"customer_id"`
	Amount        int64         `db:"amount"`
	Status        PaymentStatus `db:"status"`
	FailureReason string        `db:"failure_reason"`

	CreatedAt time.Time `db:"created_at"`
	// ProcessedAt is set once, when the attempt first reaches a
	// terminal outcome.
	ProcessedAt *time.Time `db:"processed_at"`

	pending []Event
}

// NewPayment starts a pending payment attempt for an order. No event is
// raised yet, the outcome transitions raise them.
func NewPayment(orderID uuid.UUID, customerID string, amount int64) (*Payment, error) {
	if orderID == uuid.Nil {
		return nil, ErrEmptyOrder
	}
	if amount <= 0 {
		return nil, ErrBadAmount
	}

	return &Payment{
		ID:         uuid.New(),
		OrderID:    orderID,
		CustomerID: customerID,
		Amount:     amount,
		Status:     PaymentStatusPending,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

func (p *Payment) MarkAsSucceeded() error {
	if p.Status == PaymentStatusSucceeded {
		return nil
	}
	if p.Status != PaymentStatusPending {
		return &InvalidTransitionError{From: p.Status, To: PaymentStatusSucceeded}
	}

	now := time.Now().UTC()
	p.Status = PaymentStatusSucceeded
	p.ProcessedAt = &now
	p.raise(Event{Kind: EventPaymentSucceeded, At: now})

	return nil
}

func (p *Payment) MarkAsFailed(reason string) error {
	if p.Status == PaymentStatusFailed {
		return nil
	}
	if p.Status != PaymentStatusPending {
		return &InvalidTransitionError{From: p.Status, To: PaymentStatusFailed}
	}

	now := time.Now().UTC()
	p.Status = PaymentStatusFailed
	p.FailureReason = reason
	p.ProcessedAt = &now
	p.raise(Event{Kind: EventPaymentFailed, Reason: reason, At: now})

	return nil
}

// Refund is idempotent: refunding a refunded payment is a no-op. Only a
// succeeded payment holds money to give back.
func (p *Payment) Refund() error {
	if p.Status == PaymentStatusRefunded {
		return nil
	}
	if p.Status != PaymentStatusSucceeded {
		return &InvalidTransitionError{From: p.Status, To: PaymentStatusRefunded}
	}

	p.Status = PaymentStatusRefunded
	p.raise(Event{Kind: EventPaymentRefunded, At: time.Now().UTC()})

	return nil
}

func (p *Payment) raise(event Event) {
	p.pending = append(p.pending, event)
}

func (p *Payment) PullEvents() []Event {
	events := p.pending
	p.pending = nil
	return events
}
