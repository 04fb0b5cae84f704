package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sakashimaa/order-fulfillment/internal/inventory/domain"
	"github.com/sakashimaa/order-fulfillment/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

type pgRepo struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
	tracer trace.Tracer
}

func NewPostgresRepository(pool *pgxpool.Pool, logger *zap.Logger) InventoryRepository {
	return &pgRepo{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("inventory_repository"),
	}
}

func (r *pgRepo) AddItem(ctx context.Context, item *domain.InventoryItem) error {
	ctx, span := r.tracer.Start(ctx, "InventoryRepository.AddItem")
	defer span.End()

	span.SetAttributes(
		attribute.String("product_id", item.ProductID),
		attribute.Int("in_stock", item.InStock),
	)

	query := `
		INSERT INTO inventory_items (id, product_id, in_stock, reserved, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(
		ctx,
		query,
		item.ID,
		item.ProductID,
		item.InStock,
		item.Reserved,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == uniqueViolation {
			return ErrDuplicateProduct
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to insert inventory item",
			zap.String("product_id", item.ProductID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to insert inventory item: %w", err)
	}

	return nil
}

// AdjustStock applies the delta with the reserved floor enforced in
// SQL, so concurrent reservations cannot be stranded by a restock.
func (r *pgRepo) AdjustStock(ctx context.Context, productID string, delta int) error {
	ctx, span := r.tracer.Start(ctx, "InventoryRepository.AdjustStock")
	defer span.End()

	span.SetAttributes(
		attribute.String("product_id", productID),
		attribute.Int("delta", delta),
	)

	query := `
		UPDATE inventory_items
		SET in_stock = in_stock + $1, updated_at = NOW()
		WHERE product_id = $2 AND in_stock + $1 >= reserved
	`

	commandTag, err := r.pool.Exec(ctx, query, delta, productID)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to adjust stock",
			zap.String("product_id", productID),
			zap.Error(err),
		)

		return fmt.Errorf("failed to adjust stock: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		return ErrStockConflict
	}

	return nil
}

func (r *pgRepo) GetByProductID(ctx context.Context, productID string) (*domain.InventoryItem, error) {
	ctx, span := r.tracer.Start(ctx, "InventoryRepository.GetByProductID")
	defer span.End()

	span.SetAttributes(attribute.String("product_id", productID))

	query := `
		SELECT id, product_id, in_stock, reserved, created_at, updated_at
		FROM inventory_items
		WHERE product_id = $1
	`

	var item domain.InventoryItem
	if err := r.pool.QueryRow(ctx, query, productID).Scan(
		&item.ID,
		&item.ProductID,
		&item.InStock,
		&item.Reserved,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query inventory item",
			zap.String("product_id", productID),
			zap.Error(err),
		)

		return nil, err
	}

	return &item, nil
}

func (r *pgRepo) GetByProductIDs(ctx context.Context, productIDs []string) ([]*domain.InventoryItem, error) {
	ctx, span := r.tracer.Start(ctx, "InventoryRepository.GetByProductIDs")
	defer span.End()

	span.SetAttributes(attribute.Int("products_count", len(productIDs)))

	query := `
		SELECT id, product_id, in_stock, reserved, created_at, updated_at
		FROM inventory_items
		WHERE product_id = ANY($1)
	`

	rows, err := r.pool.Query(ctx, query, productIDs)
	if err != nil {
		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query inventory items",
			zap.Error(err),
		)

		return nil, err
	}
	defer rows.Close()

	var items []*domain.InventoryItem
	for rows.Next() {
		var item domain.InventoryItem
		if err := rows.Scan(
			&item.ID,
			&item.ProductID,
			&item.InStock,
			&item.Reserved,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			span.RecordError(err)
			return nil, err
		}

		items = append(items, &item)
	}

	return items, rows.Err()
}

func (r *pgRepo) GetReservationByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Reservation, error) {
	ctx, span := r.tracer.Start(ctx, "InventoryRepository.GetReservationByOrderID")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID.String()))

	query := `
		SELECT id, order_id, reserved_at
		FROM reservations
		WHERE order_id = $1
	`

	var reservation domain.Reservation
	if err := r.pool.QueryRow(ctx, query, orderID).Scan(
		&reservation.ID,
		&reservation.OrderID,
		&reservation.ReservedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to query reservation",
			zap.String("order_id", orderID.String()),
			zap.Error(err),
		)

		return nil, err
	}

	linesQuery := `
		SELECT product_id, quantity
		FROM reservation_lines
		WHERE reservation_id = $1
	`

	rows, err := r.pool.Query(ctx, linesQuery, reservation.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.ReservationLine
		if err := rows.Scan(&line.ProductID, &line.Quantity); err != nil {
			return nil, err
		}

		reservation.Lines = append(reservation.Lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &reservation, nil
}

// SaveReservation commits the reservation and the stock movements in
// one transaction. Each line is applied with an availability guard in
// the UPDATE itself; any short line rolls the whole reservation back.
func (r *pgRepo) SaveReservation(ctx context.Context, reservation *domain.Reservation) error {
	ctx, span := r.tracer.Start(ctx, "InventoryRepository.SaveReservation")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", reservation.OrderID.String()),
		attribute.Int("lines_count", len(reservation.Lines)),
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

	reserveQuery := `
		UPDATE inventory_items
		SET reserved = reserved + $1, updated_at = NOW()
		WHERE product_id = $2 AND in_stock - reserved >= $1
	`

	for _, line := range reservation.Lines {
		commandTag, err := tx.Exec(ctx, reserveQuery, line.Quantity, line.ProductID)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to reserve stock: %w", err)
		}

		if commandTag.RowsAffected() == 0 {
			mylogger.Warn(
				ctx,
				r.logger,
				"Reservation lost a stock race",
				zap.String("order_id", reservation.OrderID.String()),
				zap.String("product_id", line.ProductID),
			)

			return ErrStockConflict
		}
	}

	reservationQuery := `
		INSERT INTO reservations (id, order_id, reserved_at)
		VALUES ($1, $2, $3)
	`

	if _, err := tx.Exec(
		ctx,
		reservationQuery,
		reservation.ID,
		reservation.OrderID,
		reservation.ReservedAt,
	); err != nil {
		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == uniqueViolation {
			return ErrDuplicateReservation
		}

		span.RecordError(err)
		return fmt.Errorf("failed to insert reservation: %w", err)
	}

	lineQuery := `
		INSERT INTO reservation_lines (reservation_id, product_id, quantity)
		VALUES ($1, $2, $3)
	`

	for _, line := range reservation.Lines {
		if _, err := tx.Exec(ctx, lineQuery, reservation.ID, line.ProductID, line.Quantity); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to insert reservation line: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, r.logger, "Failed to commit transaction", zap.Error(err))
		return err
	}

	return nil
}

// ReleaseReservation gives the reserved quantities back and removes the
// reservation, again atomically.
func (r *pgRepo) ReleaseReservation(ctx context.Context, reservation *domain.Reservation) error {
	ctx, span := r.tracer.Start(ctx, "InventoryRepository.ReleaseReservation")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", reservation.OrderID.String()))

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

	releaseQuery := `
		UPDATE inventory_items
		SET reserved = reserved - $1, updated_at = NOW()
		WHERE product_id = $2 AND reserved >= $1
	`

	for _, line := range reservation.Lines {
		commandTag, err := tx.Exec(ctx, releaseQuery, line.Quantity, line.ProductID)
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to release stock: %w", err)
		}

		if commandTag.RowsAffected() == 0 {
			return ErrStockConflict
		}
	}

	deleteQuery := `
		DELETE FROM reservations
		WHERE id = $1
	`

	commandTag, err := tx.Exec(ctx, deleteQuery, reservation.ID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete reservation: %w", err)
	}

	if commandTag.RowsAffected() == 0 {
		// someone else released it first, nothing to undo
		return ErrReservationNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		mylogger.Error(ctx, r.logger, "Failed to commit transaction", zap.Error(err))
		return err
	}

	return nil
}
