package events

import (
	"time"

	"github.com/google/uuid"
)

// IntegrationEvent is a fact that crosses service boundaries. Each event
// carries its own identity and occurrence time so the transport can move
// them as metadata, separate from the payload body.
type IntegrationEvent interface {
	EventID() uuid.UUID
	EventName() string
	OccurredAt() time.Time
}

// Keyed is implemented by events that belong to a single saga instance.
// The durable transport uses the key to keep one order's events on one
// partition.
type Keyed interface {
	CorrelationID() uuid.UUID
}

// Base carries the envelope identity shared by every integration event.
type Base struct {
	ID       uuid.UUID `json:"event_id"`
	Occurred time.Time `json:"occurred_at"`
}

func NewBase() Base {
	return Base{ID: uuid.New(), Occurred: time.Now().UTC()}
}

func (b Base) EventID() uuid.UUID    { return b.ID }
func (b Base) OccurredAt() time.Time { return b.Occurred }

// Event names double as the registry discriminators and the routing keys
// of the durable binding.
const (
	NameOrderCreated            = "OrderCreated"
	NameOrderCompleted          = "OrderCompleted"
	NameOrderCancelled          = "OrderCancelled"
	NameOrderInventoryRequested = "OrderInventoryRequested"
	NamePaymentSucceeded        = "PaymentSucceeded"
	NamePaymentFailed           = "PaymentFailed"
	NamePaymentRefunded         = "PaymentRefunded"
	NameRefundRequested         = "RefundRequested"
	NameInventoryReserved       = "InventoryReserved"
	NameInventoryFailed         = "InventoryFailed"
)

type OrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

type RequestedItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type ReservedItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type FailedItem struct {
	ProductID         string `json:"product_id"`
	RequestedQuantity int    `json:"requested_quantity"`
	AvailableQuantity int    `json:"available_quantity"`
}

// OrderCreated is published by the order service when a new order is
// accepted. The payment service reacts by processing payment.
type OrderCreated struct {
	Base
	OrderID     uuid.UUID   `json:"order_id"`
	CustomerID  string      `json:"customer_id"`
	TotalAmount int64       `json:"total_amount"`
	Items       []OrderItem `json:"items"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (e OrderCreated) EventName() string        { return NameOrderCreated }
func (e OrderCreated) CorrelationID() uuid.UUID { return e.OrderID }

// OrderCompleted is published when an order reached its happy terminal
// state (paid and inventory reserved).
type OrderCompleted struct {
	Base
	OrderID     uuid.UUID `json:"order_id"`
	CompletedAt time.Time `json:"completed_at"`
}

func (e OrderCompleted) EventName() string        { return NameOrderCompleted }
func (e OrderCompleted) CorrelationID() uuid.UUID { return e.OrderID }

// OrderCancelled is published after a payment failure or a completed
// compensation.
type OrderCancelled struct {
	Base
	OrderID     uuid.UUID `json:"order_id"`
	Reason      string    `json:"reason"`
	CancelledAt time.Time `json:"cancelled_at"`
}

func (e OrderCancelled) EventName() string        { return NameOrderCancelled }
func (e OrderCancelled) CorrelationID() uuid.UUID { return e.OrderID }

// OrderInventoryRequested asks the inventory service to reserve stock
// for a paid order.
type OrderInventoryRequested struct {
	Base
	OrderID     uuid.UUID       `json:"order_id"`
	Items       []RequestedItem `json:"items"`
	RequestedAt time.Time       `json:"requested_at"`
}

func (e OrderInventoryRequested) EventName() string        { return NameOrderInventoryRequested }
func (e OrderInventoryRequested) CorrelationID() uuid.UUID { return e.OrderID }

type PaymentSucceeded struct {
	Base
	PaymentID   uuid.UUID `json:"payment_id"`
	OrderID     uuid.UUID `json:"order_id"`
	Amount      int64     `json:"amount"`
	ProcessedAt time.Time `json:"processed_at"`
}

func (e PaymentSucceeded) EventName() string        { return NamePaymentSucceeded }
func (e PaymentSucceeded) CorrelationID() uuid.UUID { return e.OrderID }

type PaymentFailed struct {
	Base
	PaymentID     uuid.UUID `json:"payment_id"`
	OrderID       uuid.UUID `json:"order_id"`
	Amount        int64     `json:"amount"`
	FailureReason string    `json:"failure_reason"`
	FailedAt      time.Time `json:"failed_at"`
}

func (e PaymentFailed) EventName() string        { return NamePaymentFailed }
func (e PaymentFailed) CorrelationID() uuid.UUID { return e.OrderID }

type PaymentRefunded struct {
	Base
	RefundID   uuid.UUID `json:"refund_id"`
	PaymentID  uuid.UUID `json:"payment_id"`
	OrderID    uuid.UUID `json:"order_id"`
	Amount     int64     `json:"amount"`
	RefundedAt time.Time `json:"refunded_at"`
}

func (e PaymentRefunded) EventName() string        { return NamePaymentRefunded }
func (e PaymentRefunded) CorrelationID() uuid.UUID { return e.OrderID }

// RefundRequested is the compensation trigger the order service emits
// after an inventory failure.
type RefundRequested struct {
	Base
	OrderID     uuid.UUID `json:"order_id"`
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

func (e RefundRequested) EventName() string        { return NameRefundRequested }
func (e RefundRequested) CorrelationID() uuid.UUID { return e.OrderID }

type InventoryReserved struct {
	Base
	ReservationID uuid.UUID      `json:"reservation_id"`
	OrderID       uuid.UUID      `json:"order_id"`
	Items         []ReservedItem `json:"items"`
	ReservedAt    time.Time      `json:"reserved_at"`
}

func (e InventoryReserved) EventName() string        { return NameInventoryReserved }
func (e InventoryReserved) CorrelationID() uuid.UUID { return e.OrderID }

type InventoryFailed struct {
	Base
	OrderID       uuid.UUID    `json:"order_id"`
	FailureReason string       `json:"failure_reason"`
	FailedItems   []FailedItem `json:"failed_items"`
	FailedAt      time.Time    `json:"failed_at"`
}

func (e InventoryFailed) EventName() string        { return NameInventoryFailed }
func (e InventoryFailed) CorrelationID() uuid.UUID { return e.OrderID }
