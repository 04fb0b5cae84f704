package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/order-fulfillment/pkg/events"
	"github.com/sakashimaa/order-fulfillment/pkg/outbox/domain"
	"github.com/sakashimaa/order-fulfillment/pkg/outbox/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type outboxRepo struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewOutboxRepository(pool *pgxpool.Pool, logger *zap.Logger) worker.OutboxRepository {
	return &outboxRepo{
		pool:   pool,
		tracer: otel.Tracer("outbox_repository"),
		logger: logger,
	}
}

// Stage wraps an integration event into an envelope and builds the
// outbox row for it.
func Stage(aggregateType, aggregateID string, ev events.IntegrationEvent) (*domain.OutboxEvent, error) {
	env, err := events.Wrap(ev)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}

	return &domain.OutboxEvent{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     env.EventType,
		Payload:       payload,
	}, nil
}

func (r *outboxRepo) SaveOutboxEvent(ctx context.Context, tx pgx.Tx, event *domain.OutboxEvent) error {
	ctx, span := r.tracer.Start(ctx, "OutboxRepository.SaveOutboxEvent")
	defer span.End()

	span.SetAttributes(
		attribute.String("aggregate_id", event.AggregateID),
		attribute.String("aggregate_type", event.AggregateType),
		attribute.String("event_type", event.EventType),
	)

	query := `
		INSERT INTO outbox (aggregate_type, aggregate_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
	`

	_, err := tx.Exec(
		ctx,
		query,
		event.AggregateType,
		event.AggregateID,
		event.EventType,
		event.Payload,
	)

	if err != nil {
		span.RecordError(err)
	}

	return err
}

func (r *outboxRepo) GetUnpublishedEvents(ctx context.Context, tx pgx.Tx, batchSize int) ([]*domain.OutboxEvent, error) {
	ctx, span := r.tracer.Start(ctx, "OutboxRepository.GetUnpublishedEvents")
	defer span.End()

	query := `
		SELECT id, aggregate_type, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE published_at IS NULL AND attempts < 10
		ORDER BY created_at ASC
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`

	rows, err := tx.Query(ctx, query, batchSize)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query unpublished events: %w", err)
	}
	defer rows.Close()

	var result []*domain.OutboxEvent
	for rows.Next() {
		var e domain.OutboxEvent
		if err := rows.Scan(
			&e.Id,
			&e.AggregateType,
			&e.AggregateID,
			&e.EventType,
			&e.Payload,
			&e.CreatedAt,
		); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("error scanning event: %w", err)
		}

		result = append(result, &e)
	}

	span.SetAttributes(attribute.Int("result_count", len(result)))

	return result, rows.Err()
}

func (r *outboxRepo) MarkEventPublished(ctx context.Context, tx pgx.Tx, eventID int64) error {
	ctx, span := r.tracer.Start(ctx, "OutboxRepository.MarkEventPublished")
	defer span.End()

	span.SetAttributes(attribute.Int64("event_id", eventID))

	query := `
		UPDATE outbox
		SET published_at = NOW(), last_error = NULL
		WHERE id = $1;
	`

	_, err := tx.Exec(ctx, query, eventID)
	if err != nil {
		span.RecordError(err)
	}

	return err
}

func (r *outboxRepo) MarkEventFailed(ctx context.Context, tx pgx.Tx, eventID int64, errMsg string) error {
	ctx, span := r.tracer.Start(ctx, "OutboxRepository.MarkEventFailed")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("event_id", eventID),
		attribute.String("outbox.error_message", errMsg),
	)

	query := `
		UPDATE outbox
		SET published_at = NULL,
			last_error = $1,
			attempts = attempts + 1
		WHERE id = $2;
	`

	_, err := tx.Exec(ctx, query, errMsg, eventID)
	if err != nil {
		span.RecordError(err)
	}

	return err
}
