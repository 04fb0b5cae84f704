package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/sakashimaa/order-fulfillment/internal/inventory/domain"
)

// ReserveResult is either a ReserveSuccess or a ReserveFailure. An
// order failing to reserve is a business outcome, not an error: errors
// are reserved for storage and transport problems.
type ReserveResult interface {
	reserveResult()
}

type ReserveSuccess struct {
	ReservationID uuid.UUID
	Items         []domain.ReservationLine
	ReservedAt    time.Time
}

type FailedItem struct {
	ProductID string
	Requested int
	Available int
}

// ReserveFailure lists every short line, not just the first one, so
// the caller sees the full picture in one round trip.
type ReserveFailure struct {
	Reason      string
	FailedItems []FailedItem
}

func (ReserveSuccess) reserveResult() {}
func (ReserveFailure) reserveResult() {}
