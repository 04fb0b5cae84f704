package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReservationLine struct {
	ProductID string `db:"product_id"`
	Quantity  int    `db:"quantity"`
}

// Reservation records which quantities were put aside for an order.
// At most one reservation exists per order, that uniqueness is what
// makes the reserve step idempotent.
type Reservation struct {
	ID         uuid.UUID         `db:"id"`
	OrderID    uuid.UUID         `db:"order_id"`
	Lines      []ReservationLine `db:"lines"`
	ReservedAt time.Time         `db:"reserved_at"`
}

func NewReservation(orderID uuid.UUID, lines []ReservationLine) *Reservation {
	return &Reservation{
		ID:         uuid.New(),
		OrderID:    orderID,
		Lines:      lines,
		ReservedAt: time.Now().UTC(),
	}
}
