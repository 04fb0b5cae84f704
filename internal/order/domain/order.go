package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type OrderItem struct {
	ProductID string `db:"product_id"`
	Quantity  int    `db:"quantity"`
	Price     int64  `db:"price"`
}

func (i OrderItem) LineTotal() int64 {
	return i.Price * int64(i.Quantity)
}

type Order struct {
	ID          uuid.UUID   `db:"id"`
	CustomerID  string      `db:"customer_id"`
	Status      OrderStatus `db:"status"`
	Items       []OrderItem `db:"items"`
	TotalAmount int64       `db:"total_amount"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	pending []Event
}

// NewOrder creates a pending order and raises OrderCreated.
// The total is always derived from the items, never accepted from outside.
func NewOrder(customerID string, items []OrderItem) (*Order, error) {
	if customerID == "" {
		return nil, ErrEmptyCustomer
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	for _, item := range items {
		if item.ProductID == "" || item.Quantity <= 0 || item.Price < 0 {
			return nil, ErrBadItem
		}
	}

	var total int64
	for _, item := range items {
		total += item.LineTotal()
	}

	now := time.Now().UTC()
	order := &Order{
		ID:          uuid.New(),
		CustomerID:  customerID,
		Status:      OrderStatusPending,
		Items:       items,
		TotalAmount: total,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	order.raise(Event{Kind: EventOrderCreated, At: now})

	return order, nil
}

func (o *Order) MarkAsPaid() error {
	if o.Status != OrderStatusPending {
		return &InvalidTransitionError{From: o.Status, To: OrderStatusPaid}
	}

	now := time.Now().UTC()
	o.Status = OrderStatusPaid
	o.UpdatedAt = now
	o.raise(Event{Kind: EventOrderPaid, At: now})

	return nil
}

func (o *Order) MarkAsCompleted() error {
	if o.Status != OrderStatusPaid {
		return &InvalidTransitionError{From: o.Status, To: OrderStatusCompleted}
	}

	now := time.Now().UTC()
	o.Status = OrderStatusCompleted
	o.UpdatedAt = now
	o.raise(Event{Kind: EventOrderCompleted, At: now})

	return nil
}

// Cancel is idempotent: cancelling a cancelled order is a no-op and raises
// nothing. Only a completed order refuses to cancel.
func (o *Order) Cancel(reason string) error {
	if o.Status == OrderStatusCompleted {
		return &InvalidTransitionError{From: o.Status, To: OrderStatusCancelled}
	}
	if o.Status == OrderStatusCancelled {
		return nil
	}

	now := time.Now().UTC()
	o.Status = OrderStatusCancelled
	o.UpdatedAt = now
	o.raise(Event{Kind: EventOrderCancelled, Reason: reason, At: now})

	return nil
}

func (o *Order) raise(event Event) {
	o.pending = append(o.pending, event)
}

// PullEvents drains the pending domain events. The caller (the repository
// save path) is responsible for dispatching them exactly once.
func (o *Order) PullEvents() []Event {
	events := o.pending
	o.pending = nil
	return events
}
