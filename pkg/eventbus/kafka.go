package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"
	"github.com/sakashimaa/order-fulfillment/pkg/events"
	"github.com/sakashimaa/order-fulfillment/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	headerMessageID  = "message_id"
	headerEventType  = "event_type"
	headerOccurredAt = "occurred_at"

	// Attempts before a delivery is handed back to the broker for
	// redelivery. Bounded so a poisoned handler does not hot-loop.
	maxHandlerAttempts = 3
	initialRetryDelay  = 250 * time.Millisecond
)

// KafkaBus is the durable binding of the Bus contract. Events go to one
// topic per event type; each service consumes its subscribed topics in
// its own consumer group, acknowledging a message only after all
// handlers for it succeeded. An unacknowledged message is redelivered,
// so the transport is at-least-once end to end.
type KafkaBus struct {
	brokers  []string
	group    string
	producer sarama.SyncProducer
	logger   *zap.Logger

	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
	topics   []string
}

func NewKafkaBus(brokers []string, service string, logger *zap.Logger) (*KafkaBus, error) {
	config := sarama.NewConfig()
	config.Version = sarama.V3_0_0_0
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return &KafkaBus{
		brokers:  brokers,
		group:    events.QueueFor(service),
		producer: producer,
		logger:   logger,
		handlers: make(map[string][]HandlerFunc),
	}, nil
}

func (b *KafkaBus) Subscribe(eventName string, h HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, seen := b.handlers[eventName]; !seen {
		b.topics = append(b.topics, events.TopicFor(eventName))
	}
	b.handlers[eventName] = append(b.handlers[eventName], h)
}

func (b *KafkaBus) Publish(ctx context.Context, ev events.IntegrationEvent) error {
	env, err := events.Wrap(ev)
	if err != nil {
		return err
	}

	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	headers := []sarama.RecordHeader{
		{Key: []byte(headerMessageID), Value: []byte(env.EventID.String())},
		{Key: []byte(headerEventType), Value: []byte(env.EventType)},
		{Key: []byte(headerOccurredAt), Value: []byte(strconv.FormatInt(env.OccurredAt.Unix(), 10))},
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		headers = append(headers, sarama.RecordHeader{Key: []byte(k), Value: []byte(v)})
	}

	msg := &sarama.ProducerMessage{
		Topic:   events.TopicFor(ev.EventName()),
		Value:   sarama.ByteEncoder(body),
		Headers: headers,
	}
	if keyed, ok := ev.(events.Keyed); ok {
		msg.Key = sarama.StringEncoder(keyed.CorrelationID().String())
	}

	partition, offset, err := b.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.EventName(), err)
	}

	mylogger.Debug(
		ctx,
		b.logger,
		"event published",
		zap.String("event", ev.EventName()),
		zap.String("event_id", env.EventID.String()),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)

	return nil
}

// Run consumes the subscribed topics until ctx is cancelled. Call after
// every Subscribe; subscriptions made later are not picked up.
func (b *KafkaBus) Run(ctx context.Context) error {
	b.mu.RLock()
	topics := make([]string, len(b.topics))
	copy(topics, b.topics)
	b.mu.RUnlock()

	if len(topics) == 0 {
		<-ctx.Done()
		return nil
	}

	config := sarama.NewConfig()
	config.Version = sarama.V3_0_0_0
	config.Consumer.Return.Errors = true
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.BalanceStrategyRoundRobin}

	group, err := sarama.NewConsumerGroup(b.brokers, b.group, config)
	if err != nil {
		return fmt.Errorf("create consumer group %s: %w", b.group, err)
	}
	defer func() {
		if err := group.Close(); err != nil {
			mylogger.Error(ctx, b.logger, "error closing consumer group", zap.Error(err))
		}
	}()

	consumer := &groupHandler{bus: b}
	for {
		if err := group.Consume(ctx, topics, consumer); err != nil {
			mylogger.Error(ctx, b.logger, "consumer group error", zap.Error(err))
		}
		if ctx.Err() != nil {
			mylogger.Info(ctx, b.logger, "context cancelled, shutting down consumer")
			return nil
		}
	}
}

func (b *KafkaBus) Close() error {
	return b.producer.Close()
}

func (b *KafkaBus) handlersFor(eventName string) []HandlerFunc {
	b.mu.RLock()
	defer b.mu.RUnlock()

	registered := b.handlers[eventName]
	handlers := make([]HandlerFunc, len(registered))
	copy(handlers, registered)
	return handlers
}

type groupHandler struct {
	bus *KafkaBus
}

func (h *groupHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim handles one message at a time per partition claim. A
// message is marked (acknowledged) only after every handler succeeded.
// On exhausted retries the error is returned so the session restarts
// and consumption resumes from the last committed offset; continuing
// past the message would let a later mark commit the offset beyond it
// and drop it for good.
func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		ctx, span := h.extractTracing(session.Context(), msg)

		err := h.process(ctx, msg)
		span.End()
		if err != nil {
			mylogger.Error(
				ctx,
				h.bus.logger,
				"failed to process message, restarting session for redelivery",
				zap.String("topic", msg.Topic),
				zap.Int32("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err),
			)
			return err
		}

		session.MarkMessage(msg, "")
	}

	return nil
}

func (h *groupHandler) process(ctx context.Context, msg *sarama.ConsumerMessage) error {
	ev, err := events.DecodeBytes(msg.Value)
	if err != nil {
		// A malformed body never becomes valid; ack it so the queue
		// does not wedge on it.
		mylogger.Warn(ctx, h.bus.logger, "dropping undecodable message",
			zap.String("topic", msg.Topic), zap.Error(err))
		return nil
	}

	handlers := h.bus.handlersFor(ev.EventName())
	if len(handlers) == 0 {
		mylogger.Warn(ctx, h.bus.logger, "ignored event type", zap.String("event", ev.EventName()))
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(
		backoff.NewExponentialBackOff(backoff.WithInitialInterval(initialRetryDelay)),
		maxHandlerAttempts-1,
	), ctx)

	return backoff.Retry(func() error {
		for _, handler := range handlers {
			if err := handler(ctx, ev); err != nil {
				return fmt.Errorf("handle %s: %w", ev.EventName(), err)
			}
		}
		return nil
	}, policy)
}

func (h *groupHandler) extractTracing(ctx context.Context, msg *sarama.ConsumerMessage) (context.Context, trace.Span) {
	carrier := propagation.MapCarrier{}
	for _, header := range msg.Headers {
		carrier[string(header.Key)] = string(header.Value)
	}

	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)

	tracer := otel.Tracer("pkg/eventbus")
	return tracer.Start(ctx, "event_process",
		trace.WithSpanKind(trace.SpanKindConsumer),
	)
}
