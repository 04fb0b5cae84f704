package events

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire format of the durable binding. The payload keeps
// the event-specific fields; event identity travels alongside so
// consumers can route and deduplicate without decoding the body.
type Envelope struct {
	EventID    uuid.UUID       `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Wrap serializes an integration event into its envelope. The metadata
// timestamp is truncated to seconds, matching what brokers carry.
func Wrap(ev IntegrationEvent) (Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", ev.EventName(), err)
	}

	return Envelope{
		EventID:    ev.EventID(),
		EventType:  ev.EventName(),
		OccurredAt: ev.OccurredAt().Truncate(time.Second),
		Payload:    payload,
	}, nil
}

// TopicFor derives the durable routing key from an event name:
// lowercased, with every non-alphanumeric run collapsed to '-'.
func TopicFor(eventName string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(eventName) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		default:
			if !dash && b.Len() > 0 {
				b.WriteByte('-')
				dash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// QueueFor names the consumer group a service uses for the events it
// subscribes to.
func QueueFor(service string) string {
	return TopicFor(service) + ".events"
}
