package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/order-fulfillment/internal/payment/domain"
	"github.com/sakashimaa/order-fulfillment/pkg/mylogger"
	outboxRepo "github.com/sakashimaa/order-fulfillment/pkg/outbox/repository"
	"github.com/sakashimaa/order-fulfillment/pkg/outbox/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const aggregateTypePayment = "payment"

type pgRepo struct {
	pool   *pgxpool.Pool
	outbox worker.OutboxRepository
	logger *zap.Logger
	tracer trace.Tracer
}

func NewPostgresRepository(pool *pgxpool.Pool, outbox worker.OutboxRepository, logger *zap.Logger) PaymentRepository {
	return &pgRepo{
		pool:   pool,
		outbox: outbox,
		logger: logger,
		tracer: otel.Tracer("payment_repository"),
	}
}

func (r *pgRepo) Add(ctx context.Context, payment *domain.Payment) error {
	ctx, span := r.tracer.Start(ctx, "PaymentRepository.Add")
	defer span.End()

	span.SetAttributes(
		attribute.String("payment_id", payment.ID.String()),
		attribute.String("order_id", payment.OrderID.String()),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		mylogger.Warn(ctx, r.logger, "Failed to begin transaction", zap.Error(err))
		return err
	}
	defer func() {
		shutdownCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(shutdownCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(shutdownCtx, r.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	query := `
		INSERT INTO payments (id, order_id, customer_id, amount, status, failure_reason, created_at, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	if _, err := tx.Exec(
		ctx,
		query,
		payment.ID,
		payment.OrderID,
		payment.CustomerID,
		payment.Amount,
		string(payment.Status),
		payment.FailureReason,
		payment.CreatedAt,
		payment.ProcessedAt,
	); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to insert payment",
			zap.Error(err),
		)

		return fmt.Errorf("failed to insert payment: %w", err)
	}

	if err := r.stageEvents(ctx, tx, payment); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, r.logger, "Failed to commit transaction", zap.Error(err))
		return err
	}

	return nil
}

func (r *pgRepo) Update(ctx context.Context, payment *domain.Payment) error {
	ctx, span := r.tracer.Start(ctx, "PaymentRepository.Update")
	defer span.End()

	span.SetAttributes(
		attribute.String("payment_id", payment.ID.String()),
		attribute.String("status", string(payment.Status)),
	)

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		mylogger.Warn(ctx, r.logger, "Failed to begin transaction", zap.Error(err))
		return err
	}
	defer func() {
		shutdownCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(shutdownCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(shutdownCtx, r.logger, "Failed to rollback transaction", zap.Error(err))
		}
	}()

	query := `
		UPDATE payments
		SET status = $1, failure_reason = $2, processed_at = $3
		WHERE id = $4
	`

	commandTag, err := tx.Exec(
		ctx,
		query,
		string(payment.Status),
		payment.FailureReason,
		payment.ProcessedAt,
		payment.ID,
	)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to update payment",
			zap.Error(err),
		)

		return fmt.Errorf("failed to update payment: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}

	if err := r.stageEvents(ctx, tx, payment); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, r.logger, "Failed to commit transaction", zap.Error(err))
		return err
	}

	return nil
}

func (r *pgRepo) stageEvents(ctx context.Context, tx pgx.Tx, payment *domain.Payment) error {
	for _, ev := range toIntegrationEvents(payment, payment.PullEvents()) {
		row, err := outboxRepo.Stage(aggregateTypePayment, payment.ID.String(), ev)
		if err != nil {
			return fmt.Errorf("failed to stage outbox event: %w", err)
		}

		if err := r.outbox.SaveOutboxEvent(ctx, tx, row); err != nil {
			return fmt.Errorf("failed to save outbox event: %w", err)
		}
	}

	return nil
}

func (r *pgRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	ctx, span := r.tracer.Start(ctx, "PaymentRepository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.String("payment_id", id.String()))

	query := `
		SELECT id, order_id, customer_id, amount, status, failure_reason, created_at, processed_at
		FROM payments
		WHERE id = $1
	`

	return r.scanOne(ctx, query, id)
}

func (r *pgRepo) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error) {
	ctx, span := r.tracer.Start(ctx, "PaymentRepository.GetByOrderID")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID.String()))

	query := `
		SELECT id, order_id, customer_id, amount, status, failure_reason, created_at, processed_at
		FROM payments
		WHERE order_id = $1
	`

	return r.scanOne(ctx, query, orderID)
}

func (r *pgRepo) scanOne(ctx context.Context, query string, arg any) (*domain.Payment, error) {
	var payment domain.Payment
	var status string
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.CustomerID,
		&payment.Amount,
		&status,
		&payment.FailureReason,
		&payment.CreatedAt,
		&payment.ProcessedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query payment",
			zap.Error(err),
		)

		return nil, err
	}
	payment.Status = domain.PaymentStatus(status)

	return &payment, nil
}
