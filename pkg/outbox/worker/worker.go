package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/order-fulfillment/pkg/eventbus"
	"github.com/sakashimaa/order-fulfillment/pkg/events"
	"github.com/sakashimaa/order-fulfillment/pkg/mylogger"
	"github.com/sakashimaa/order-fulfillment/pkg/outbox/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OutboxRepository interface {
	SaveOutboxEvent(ctx context.Context, tx pgx.Tx, event *domain.OutboxEvent) error
	GetUnpublishedEvents(ctx context.Context, tx pgx.Tx, batchSize int) ([]*domain.OutboxEvent, error)
	MarkEventPublished(ctx context.Context, tx pgx.Tx, eventID int64) error
	MarkEventFailed(ctx context.Context, tx pgx.Tx, eventID int64, errMsg string) error
}

// OutboxProcessor drains committed outbox rows and publishes them on
// the bus. Rows are only marked published after the bus accepted them,
// so a crash between commit and publish means redelivery, never loss.
type OutboxProcessor struct {
	pool      *pgxpool.Pool
	repo      OutboxRepository
	bus       eventbus.Bus
	logger    *zap.Logger
	batchSize int
	interval  time.Duration
	tracer    trace.Tracer
}

func NewOutboxProcessor(
	pool *pgxpool.Pool,
	repo OutboxRepository,
	bus eventbus.Bus,
	logger *zap.Logger,
) *OutboxProcessor {
	return &OutboxProcessor{
		pool:      pool,
		repo:      repo,
		bus:       bus,
		logger:    logger,
		batchSize: 50,
		interval:  500 * time.Millisecond,
		tracer:    otel.Tracer("outbox-worker"),
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	mylogger.Info(ctx, p.logger, "starting outbox processor")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mylogger.Info(ctx, p.logger, "outbox processor stopping")
			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				mylogger.Error(ctx, p.logger, "error processing outbox batch", zap.Error(err))
			}
		}
	}
}

func (p *OutboxProcessor) processBatch(ctx context.Context) error {
	ctx, span := p.tracer.Start(ctx, "OutboxProcessor.processBatch")
	defer span.End()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Error(
				cleanupCtx,
				p.logger,
				"outbox worker failed to rollback transaction",
				zap.Error(err),
			)
		}
	}()

	rows, err := p.repo.GetUnpublishedEvents(ctx, tx, p.batchSize)
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		return nil
	}

	mylogger.Debug(ctx, p.logger, "processing outbox events", zap.Int("count", len(rows)))

	for _, row := range rows {
		ev, err := events.DecodeBytes(row.Payload)
		if err != nil {
			mylogger.Error(
				ctx,
				p.logger,
				"outbox worker failed to decode event payload",
				zap.Int64("id", row.Id),
				zap.Error(err),
			)

			if dbErr := p.repo.MarkEventFailed(ctx, tx, row.Id, err.Error()); dbErr != nil {
				return dbErr
			}
			continue
		}

		if err := p.bus.Publish(ctx, ev); err != nil {
			mylogger.Error(
				ctx,
				p.logger,
				"outbox worker failed to publish event",
				zap.Int64("id", row.Id),
				zap.String("event", row.EventType),
				zap.Error(err),
			)

			if dbErr := p.repo.MarkEventFailed(ctx, tx, row.Id, err.Error()); dbErr != nil {
				return dbErr
			}
			continue
		}

		if err := p.repo.MarkEventPublished(ctx, tx, row.Id); err != nil {
			return err
		}

		mylogger.Debug(
			ctx,
			p.logger,
			"outbox event published",
			zap.Int64("id", row.Id),
			zap.String("event", row.EventType),
		)
	}

	return tx.Commit(ctx)
}
