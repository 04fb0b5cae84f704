package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sakashimaa/order-fulfillment/internal/inventory/domain"
	"github.com/sakashimaa/order-fulfillment/internal/inventory/repository"
	"github.com/sakashimaa/order-fulfillment/pkg/eventbus"
	"github.com/sakashimaa/order-fulfillment/pkg/events"
	"github.com/sakashimaa/order-fulfillment/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const maxReserveAttempts = 3

type InventoryService interface {
	CreateItem(ctx context.Context, productID string, quantity int) (*domain.InventoryItem, error)
	Restock(ctx context.Context, productID string, delta int) (*domain.InventoryItem, error)
	GetAvailability(ctx context.Context, productID string) (*domain.InventoryItem, error)
	ReserveInventory(ctx context.Context, orderID uuid.UUID, items []domain.ReservationLine) (ReserveResult, error)

	HandleOrderInventoryRequested(ctx context.Context, event events.OrderInventoryRequested) error
	HandleOrderCancelled(ctx context.Context, event events.OrderCancelled) error
}

type inventoryService struct {
	repo   repository.InventoryRepository
	bus    eventbus.Bus
	logger *zap.Logger
	tracer trace.Tracer
}

func NewInventoryService(repo repository.InventoryRepository, bus eventbus.Bus, logger *zap.Logger) InventoryService {
	return &inventoryService{
		repo:   repo,
		bus:    bus,
		logger: logger,
		tracer: otel.Tracer("inventory_service"),
	}
}

func (s *inventoryService) CreateItem(ctx context.Context, productID string, quantity int) (*domain.InventoryItem, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.CreateItem")
	defer span.End()

	span.SetAttributes(attribute.String("product_id", productID))

	item, err := domain.NewInventoryItem(productID, quantity)
	if err != nil {
		return nil, err
	}

	if err := s.repo.AddItem(ctx, item); err != nil {
		return nil, err
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Inventory item created",
		zap.String("product_id", productID),
		zap.Int("in_stock", quantity),
	)

	return item, nil
}

func (s *inventoryService) Restock(ctx context.Context, productID string, delta int) (*domain.InventoryItem, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.Restock")
	defer span.End()

	span.SetAttributes(
		attribute.String("product_id", productID),
		attribute.Int("delta", delta),
	)

	if _, err := s.repo.GetByProductID(ctx, productID); err != nil {
		return nil, err
	}

	if err := s.repo.AdjustStock(ctx, productID, delta); err != nil {
		if errors.Is(err, repository.ErrStockConflict) {
			return nil, domain.ErrStockBelowReserved
		}

		return nil, err
	}

	return s.repo.GetByProductID(ctx, productID)
}

func (s *inventoryService) GetAvailability(ctx context.Context, productID string) (*domain.InventoryItem, error) {
	return s.repo.GetByProductID(ctx, productID)
}

// ReserveInventory puts the requested quantities aside for an order,
// all lines or none. The call is idempotent per order: the reservation
// created by the first delivery is returned to every retry.
func (s *inventoryService) ReserveInventory(ctx context.Context, orderID uuid.UUID, items []domain.ReservationLine) (ReserveResult, error) {
	ctx, span := s.tracer.Start(ctx, "InventoryService.ReserveInventory")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", orderID.String()),
		attribute.Int("lines_count", len(items)),
	)

	lines, err := mergeLines(items)
	if err != nil {
		return nil, err
	}

	if existing, err := s.repo.GetReservationByOrderID(ctx, orderID); err == nil {
		mylogger.Info(
			ctx,
			s.logger,
			"Reservation already exists for order",
			zap.String("order_id", orderID.String()),
			zap.String("reservation_id", existing.ID.String()),
		)

		return successFrom(existing), nil
	} else if !errors.Is(err, repository.ErrReservationNotFound) {
		return nil, err
	}

	for attempt := 0; attempt < maxReserveAttempts; attempt++ {
		failed, err := s.checkAvailability(ctx, lines)
		if err != nil {
			return nil, err
		}
		if len(failed) > 0 {
			return failureFrom(failed), nil
		}

		reservation := domain.NewReservation(orderID, lines)

		switch err := s.repo.SaveReservation(ctx, reservation); {
		case err == nil:
			mylogger.Info(
				ctx,
				s.logger,
				"Inventory reserved",
				zap.String("order_id", orderID.String()),
				zap.String("reservation_id", reservation.ID.String()),
			)

			return successFrom(reservation), nil
		case errors.Is(err, repository.ErrDuplicateReservation):
			existing, err := s.repo.GetReservationByOrderID(ctx, orderID)
			if err != nil {
				return nil, err
			}

			return successFrom(existing), nil
		case errors.Is(err, repository.ErrStockConflict):
			// stock moved between the check and the commit, re-check
			continue
		default:
			return nil, err
		}
	}

	return nil, fmt.Errorf("reservation for order %s kept losing stock races", orderID)
}

func (s *inventoryService) checkAvailability(ctx context.Context, lines []domain.ReservationLine) ([]FailedItem, error) {
	productIDs := make([]string, 0, len(lines))
	for _, line := range lines {
		productIDs = append(productIDs, line.ProductID)
	}

	items, err := s.repo.GetByProductIDs(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	byProduct := make(map[string]*domain.InventoryItem, len(items))
	for _, item := range items {
		byProduct[item.ProductID] = item
	}

	var failed []FailedItem
	for _, line := range lines {
		item, ok := byProduct[line.ProductID]
		if !ok {
			failed = append(failed, FailedItem{ProductID: line.ProductID, Requested: line.Quantity})
			continue
		}

		if item.Available() < line.Quantity {
			failed = append(failed, FailedItem{
				ProductID: line.ProductID,
				Requested: line.Quantity,
				Available: item.Available(),
			})
		}
	}

	return failed, nil
}

func (s *inventoryService) HandleOrderInventoryRequested(ctx context.Context, event events.OrderInventoryRequested) error {
	ctx, span := s.tracer.Start(ctx, "InventoryService.HandleOrderInventoryRequested")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", event.OrderID.String()))

	lines := make([]domain.ReservationLine, 0, len(event.Items))
	for _, item := range event.Items {
		lines = append(lines, domain.ReservationLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	result, err := s.ReserveInventory(ctx, event.OrderID, lines)
	if err != nil {
		if errors.Is(err, domain.ErrBadQuantity) || errors.Is(err, domain.ErrEmptyProduct) {
			// a malformed request never becomes reservable, fail the
			// saga instead of poisoning the consumer
			result = ReserveFailure{Reason: fmt.Sprintf("invalid reservation request: %v", err)}
		} else {
			return err
		}
	}

	switch outcome := result.(type) {
	case ReserveSuccess:
		reserved := make([]events.ReservedItem, 0, len(outcome.Items))
		for _, line := range outcome.Items {
			reserved = append(reserved, events.ReservedItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
			})
		}

		return s.bus.Publish(ctx, events.InventoryReserved{
			Base:          events.NewBase(),
			ReservationID: outcome.ReservationID,
			OrderID:       event.OrderID,
			Items:         reserved,
			ReservedAt:    outcome.ReservedAt,
		})
	case ReserveFailure:
		failed := make([]events.FailedItem, 0, len(outcome.FailedItems))
		for _, item := range outcome.FailedItems {
			failed = append(failed, events.FailedItem{
				ProductID:         item.ProductID,
				RequestedQuantity: item.Requested,
				AvailableQuantity: item.Available,
			})
		}

		mylogger.Warn(
			ctx,
			s.logger,
			"Inventory reservation failed",
			zap.String("order_id", event.OrderID.String()),
			zap.String("reason", outcome.Reason),
		)

		return s.bus.Publish(ctx, events.InventoryFailed{
			Base:          events.NewBase(),
			OrderID:       event.OrderID,
			FailureReason: outcome.Reason,
			FailedItems:   failed,
			FailedAt:      event.RequestedAt,
		})
	default:
		return fmt.Errorf("unexpected reserve result %T", result)
	}
}

// HandleOrderCancelled gives reserved stock back when an order with a
// live reservation is cancelled. Orders without one are acked as-is.
func (s *inventoryService) HandleOrderCancelled(ctx context.Context, event events.OrderCancelled) error {
	ctx, span := s.tracer.Start(ctx, "InventoryService.HandleOrderCancelled")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", event.OrderID.String()))

	reservation, err := s.repo.GetReservationByOrderID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return nil
		}

		return err
	}

	if err := s.repo.ReleaseReservation(ctx, reservation); err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return nil
		}

		return err
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Released reservation for cancelled order",
		zap.String("order_id", event.OrderID.String()),
		zap.String("reservation_id", reservation.ID.String()),
	)

	return nil
}

func mergeLines(items []domain.ReservationLine) ([]domain.ReservationLine, error) {
	if len(items) == 0 {
		return nil, domain.ErrBadQuantity
	}

	index := make(map[string]int, len(items))
	var merged []domain.ReservationLine
	for _, item := range items {
		if item.ProductID == "" {
			return nil, domain.ErrEmptyProduct
		}
		if item.Quantity <= 0 {
			return nil, domain.ErrBadQuantity
		}

		if at, ok := index[item.ProductID]; ok {
			merged[at].Quantity += item.Quantity
			continue
		}

		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}

	return merged, nil
}

func successFrom(reservation *domain.Reservation) ReserveSuccess {
	return ReserveSuccess{
		ReservationID: reservation.ID,
		Items:         reservation.Lines,
		ReservedAt:    reservation.ReservedAt,
	}
}

func failureFrom(failed []FailedItem) ReserveFailure {
	reason := fmt.Sprintf("insufficient stock for %d product(s)", len(failed))
	if len(failed) == 1 {
		reason = fmt.Sprintf("insufficient stock for product %s", failed[0].ProductID)
	}

	return ReserveFailure{Reason: reason, FailedItems: failed}
}
