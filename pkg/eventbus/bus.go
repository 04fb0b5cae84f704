package eventbus

import (
	"context"

	"github.com/sakashimaa/order-fulfillment/pkg/events"
)

// HandlerFunc processes one delivered integration event. Delivery is
// at-least-once; handlers must be idempotent.
type HandlerFunc func(ctx context.Context, ev events.IntegrationEvent) error

// Bus is the publish/subscribe contract between the services. Handlers
// are keyed by the event's runtime name, so a publish call holding an
// interface-typed value still reaches only the handlers registered for
// the concrete event.
type Bus interface {
	Publish(ctx context.Context, ev events.IntegrationEvent) error
	Subscribe(eventName string, h HandlerFunc)
}
