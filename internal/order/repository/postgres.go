package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/order-fulfillment/internal/order/domain"
	"github.com/sakashimaa/order-fulfillment/pkg/mylogger"
	outboxRepo "github.com/sakashimaa/order-fulfillment/pkg/outbox/repository"
	"github.com/sakashimaa/order-fulfillment/pkg/outbox/worker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const aggregateTypeOrder = "order"

type pgRepo struct {
	pool   *pgxpool.Pool
	outbox worker.OutboxRepository
	logger *zap.Logger
	tracer trace.Tracer
}

func NewPostgresRepository(pool *pgxpool.Pool, outbox worker.OutboxRepository, logger *zap.Logger) OrderRepository {
	return &pgRepo{
		pool:   pool,
		outbox: outbox,
		logger: logger,
		tracer: otel.Tracer("order_repository"),
	}
}

func (r *pgRepo) Add(ctx context.Context, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Add")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", order.ID.String()),
		attribute.Int("items_count", len(order.Items)),
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

	queryOrder := `
		INSERT INTO orders (id, customer_id, status, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if _, err := tx.Exec(
		ctx,
		queryOrder,
		order.ID,
		order.CustomerID,
		string(order.Status),
		order.TotalAmount,
		order.CreatedAt,
		order.UpdatedAt,
	); err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to insert order",
			zap.Error(err),
		)

		return fmt.Errorf("failed to insert order: %w", err)
	}

	queryItem := `
		INSERT INTO order_items (order_id, product_id, quantity, price)
		VALUES ($1, $2, $3, $4)
	`

	for _, item := range order.Items {
		if _, err := tx.Exec(
			ctx,
			queryItem,
			order.ID,
			item.ProductID,
			item.Quantity,
			item.Price,
		); err != nil {
			span.RecordError(err)

			mylogger.Error(
				ctx,
				r.logger,
				"Failed to insert order item",
				zap.Error(err),
			)

			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := r.stageEvents(ctx, tx, order); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, r.logger, "Failed to commit transaction", zap.Error(err))
		return err
	}

	return nil
}

func (r *pgRepo) Update(ctx context.Context, order *domain.Order) error {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.Update")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", order.ID.String()),
		attribute.String("status", string(order.Status)),
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
		UPDATE orders
		SET status = $1, updated_at = $2
		WHERE id = $3
	`

	commandTag, err := tx.Exec(ctx, query, string(order.Status), order.UpdatedAt, order.ID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to update order",
			zap.Error(err),
		)

		return fmt.Errorf("failed to update order: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	if err := r.stageEvents(ctx, tx, order); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, r.logger, "Failed to commit transaction", zap.Error(err))
		return err
	}

	return nil
}

// stageEvents drains the aggregate and writes one outbox row per
// integration event inside the caller's transaction. The worker picks
// the rows up after commit.
func (r *pgRepo) stageEvents(ctx context.Context, tx pgx.Tx, order *domain.Order) error {
	for _, ev := range toIntegrationEvents(order, order.PullEvents()) {
		row, err := outboxRepo.Stage(aggregateTypeOrder, order.ID.String(), ev)
		if err != nil {
			return fmt.Errorf("failed to stage outbox event: %w", err)
		}

		if err := r.outbox.SaveOutboxEvent(ctx, tx, row); err != nil {
			return fmt.Errorf("failed to save outbox event: %w", err)
		}
	}

	return nil
}

func (r *pgRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.GetByID")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", id.String()))

	query := `
		SELECT id, customer_id, status, total_amount, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	var order domain.Order
	var status string
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&order.ID,
		&order.CustomerID,
		&status,
		&order.TotalAmount,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query order",
			zap.Error(err),
		)

		return nil, err
	}
	order.Status = domain.OrderStatus(status)

	items, err := r.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	return &order, nil
}

func (r *pgRepo) List(ctx context.Context) ([]*domain.Order, error) {
	ctx, span := r.tracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	query := `
		SELECT id, customer_id, status, total_amount, created_at, updated_at
		FROM orders
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query orders",
			zap.Error(err),
		)

		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var order domain.Order
		var status string
		if err := rows.Scan(
			&order.ID,
			&order.CustomerID,
			&status,
			&order.TotalAmount,
			&order.CreatedAt,
			&order.UpdatedAt,
		); err != nil {
			span.RecordError(err)
			return nil, err
		}
		order.Status = domain.OrderStatus(status)

		orders = append(orders, &order)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, order := range orders {
		items, err := r.loadItems(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
	}

	return orders, nil
}

func (r *pgRepo) loadItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	query := `
		SELECT product_id, quantity, price
		FROM order_items
		WHERE order_id = $1
	`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query order items",
			zap.Error(err),
		)

		return nil, err
	}
	defer rows.Close()

	var items []domain.OrderItem
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.Price); err != nil {
			return nil, err
		}

		items = append(items, item)
	}

	return items, rows.Err()
}
