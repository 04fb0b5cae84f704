package events

import (
	"encoding/json"
	"fmt"
)

// The registry maps the envelope's event_type discriminator to a
// concrete payload type. Dispatch is by string tag, never by runtime
// reflection over the payload.
var registry = map[string]func(json.RawMessage) (IntegrationEvent, error){
	NameOrderCreated:            decodeAs[OrderCreated],
	NameOrderCompleted:          decodeAs[OrderCompleted],
	NameOrderCancelled:          decodeAs[OrderCancelled],
	NameOrderInventoryRequested: decodeAs[OrderInventoryRequested],
	NamePaymentSucceeded:        decodeAs[PaymentSucceeded],
	NamePaymentFailed:           decodeAs[PaymentFailed],
	NamePaymentRefunded:         decodeAs[PaymentRefunded],
	NameRefundRequested:         decodeAs[RefundRequested],
	NameInventoryReserved:       decodeAs[InventoryReserved],
	NameInventoryFailed:         decodeAs[InventoryFailed],
}

// decodeAs returns the event by value so handlers see the same concrete
// type whether an event arrived in-process or off the wire.
func decodeAs[T IntegrationEvent](payload json.RawMessage) (IntegrationEvent, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}

// Decode reconstructs the concrete event from an envelope.
func Decode(env Envelope) (IntegrationEvent, error) {
	decode, ok := registry[env.EventType]
	if !ok {
		return nil, fmt.Errorf("unknown event type %q", env.EventType)
	}

	ev, err := decode(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.EventType, err)
	}
	return ev, nil
}

// DecodeBytes parses a raw envelope body and decodes its payload.
func DecodeBytes(body []byte) (IntegrationEvent, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	return Decode(env)
}
