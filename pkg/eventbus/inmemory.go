package eventbus

import (
	"context"
	"sync"

	"github.com/sakashimaa/order-fulfillment/pkg/events"
	"github.com/sakashimaa/order-fulfillment/pkg/mylogger"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// InMemoryBus fans events out to subscribed handlers within the same
// process. Handlers run synchronously relative to Publish; every handler
// runs even when earlier ones fail, and all failures come back combined.
type InMemoryBus struct {
	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
	logger   *zap.Logger
}

func NewInMemoryBus(logger *zap.Logger) *InMemoryBus {
	return &InMemoryBus{
		handlers: make(map[string][]HandlerFunc),
		logger:   logger,
	}
}

func (b *InMemoryBus) Subscribe(eventName string, h HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventName] = append(b.handlers[eventName], h)
}

func (b *InMemoryBus) Publish(ctx context.Context, ev events.IntegrationEvent) error {
	// Dispatch on the runtime event name, not on whatever static type
	// the caller held.
	name := ev.EventName()

	b.mu.RLock()
	registered := b.handlers[name]
	handlers := make([]HandlerFunc, len(registered))
	copy(handlers, registered)
	b.mu.RUnlock()

	if len(handlers) == 0 {
		mylogger.Debug(ctx, b.logger, "no handlers for event", zap.String("event", name))
		return nil
	}

	var errs error
	for _, h := range handlers {
		if err := h(ctx, ev); err != nil {
			mylogger.Error(
				ctx,
				b.logger,
				"event handler failed",
				zap.String("event", name),
				zap.String("event_id", ev.EventID().String()),
				zap.Error(err),
			)
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
