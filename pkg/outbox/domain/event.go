package domain

import (
	"encoding/json"
	"time"
)

// OutboxEvent is one integration event staged in the service's own
// database, in the same transaction that mutated the aggregate. A
// background worker delivers staged rows to the broker after commit.
type OutboxEvent struct {
	Id            int64           `db:"id"`
	AggregateType string          `db:"aggregate_type"`
	AggregateID   string          `db:"aggregate_id"`
	EventType     string          `db:"event_type"`
	Payload       json.RawMessage `db:"payload"`
	CreatedAt     time.Time       `db:"created_at"`
	PublishedAt   *time.Time      `db:"published_at"`
	Attempts      int64           `db:"attempts"`
	LastError     *string         `db:"last_error"`
}
