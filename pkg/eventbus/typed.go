package eventbus

import (
	"context"
	"fmt"

	"github.com/sakashimaa/order-fulfillment/pkg/events"
)

// Typed adapts a handler of one concrete event type to a HandlerFunc.
// Both bindings deliver registry-decoded value types, so a mismatch
// here is a wiring bug and is surfaced as an error rather than dropped.
func Typed[T events.IntegrationEvent](h func(context.Context, T) error) HandlerFunc {
	return func(ctx context.Context, ev events.IntegrationEvent) error {
		typed, ok := ev.(T)
		if !ok {
			return fmt.Errorf("unexpected concrete type %T for event %s", ev, ev.EventName())
		}

		return h(ctx, typed)
	}
}
