package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sakashimaa/order-fulfillment/internal/order/domain"
	"github.com/sakashimaa/order-fulfillment/internal/order/repository"
	"github.com/sakashimaa/order-fulfillment/pkg/eventbus"
	"github.com/sakashimaa/order-fulfillment/pkg/events"
	"github.com/sakashimaa/order-fulfillment/pkg/mylogger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OrderService interface {
	CreateOrder(ctx context.Context, customerID string, items []domain.OrderItem) (*domain.Order, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, reason string) error
	GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]*domain.Order, error)

	HandlePaymentSucceeded(ctx context.Context, event events.PaymentSucceeded) error
	HandlePaymentFailed(ctx context.Context, event events.PaymentFailed) error
	HandleInventoryReserved(ctx context.Context, event events.InventoryReserved) error
	HandleInventoryFailed(ctx context.Context, event events.InventoryFailed) error
	HandlePaymentRefunded(ctx context.Context, event events.PaymentRefunded) error
}

type orderService struct {
	repo   repository.OrderRepository
	bus    eventbus.Bus
	logger *zap.Logger
	tracer trace.Tracer
}

func NewOrderService(repo repository.OrderRepository, bus eventbus.Bus, logger *zap.Logger) OrderService {
	return &orderService{
		repo:   repo,
		bus:    bus,
		logger: logger,
		tracer: otel.Tracer("order_service"),
	}
}

func (s *orderService) CreateOrder(ctx context.Context, customerID string, items []domain.OrderItem) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder")
	defer span.End()

	span.SetAttributes(
		attribute.String("customer_id", customerID),
		attribute.Int("items_count", len(items)),
	)

	order, err := domain.NewOrder(customerID, items)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Add(ctx, order); err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Failed to save order",
			zap.Error(err),
		)

		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Order created",
		zap.String("order_id", order.ID.String()),
		zap.Int64("total_amount", order.TotalAmount),
	)

	return order, nil
}

func (s *orderService) CancelOrder(ctx context.Context, orderID uuid.UUID, reason string) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.CancelOrder")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", orderID.String()))

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return err
	}

	if err := order.Cancel(reason); err != nil {
		return err
	}

	return s.repo.Update(ctx, order)
}

func (s *orderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	return s.repo.GetByID(ctx, orderID)
}

func (s *orderService) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.repo.List(ctx)
}

// HandlePaymentSucceeded marks the order as paid and asks the inventory
// service for a reservation. The two steps are guarded separately: if a
// redelivery arrives after the order is already paid, only the
// reservation request is re-emitted, which the inventory side collapses
// per order.
func (s *orderService) HandlePaymentSucceeded(ctx context.Context, event events.PaymentSucceeded) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.HandlePaymentSucceeded")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", event.OrderID.String()))

	order, err := s.loadForEvent(ctx, event.OrderID)
	if err != nil || order == nil {
		return err
	}

	if order.Status == domain.OrderStatusPending {
		if err := order.MarkAsPaid(); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, order); err != nil {
			return fmt.Errorf("failed to mark order as paid: %w", err)
		}

		mylogger.Info(
			ctx,
			s.logger,
			"Order marked as paid",
			zap.String("order_id", order.ID.String()),
		)
	}

	if order.Status != domain.OrderStatusPaid {
		mylogger.Warn(
			ctx,
			s.logger,
			"Ignoring payment success for order in terminal state",
			zap.String("order_id", order.ID.String()),
			zap.String("status", string(order.Status)),
		)

		return nil
	}

	items := make([]events.RequestedItem, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, events.RequestedItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	request := events.OrderInventoryRequested{
		Base:        events.NewBase(),
		OrderID:     order.ID,
		Items:       items,
		RequestedAt: order.UpdatedAt,
	}

	if err := s.bus.Publish(ctx, request); err != nil {
		return fmt.Errorf("failed to request inventory: %w", err)
	}

	return nil
}

func (s *orderService) HandlePaymentFailed(ctx context.Context, event events.PaymentFailed) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.HandlePaymentFailed")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", event.OrderID.String()))

	order, err := s.loadForEvent(ctx, event.OrderID)
	if err != nil || order == nil {
		return err
	}

	if order.Status == domain.OrderStatusCancelled || order.Status == domain.OrderStatusCompleted {
		return nil
	}

	if err := order.Cancel(fmt.Sprintf("payment failed: %s", event.FailureReason)); err != nil {
		return err
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Cancelling order after payment failure",
		zap.String("order_id", order.ID.String()),
		zap.String("reason", event.FailureReason),
	)

	return s.repo.Update(ctx, order)
}

func (s *orderService) HandleInventoryReserved(ctx context.Context, event events.InventoryReserved) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.HandleInventoryReserved")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", event.OrderID.String()))

	order, err := s.loadForEvent(ctx, event.OrderID)
	if err != nil || order == nil {
		return err
	}

	if order.Status != domain.OrderStatusPaid {
		mylogger.Warn(
			ctx,
			s.logger,
			"Ignoring inventory reservation, order is not paid",
			zap.String("order_id", order.ID.String()),
			zap.String("status", string(order.Status)),
		)

		return nil
	}

	if err := order.MarkAsCompleted(); err != nil {
		return err
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Order completed",
		zap.String("order_id", order.ID.String()),
	)

	return s.repo.Update(ctx, order)
}

// HandleInventoryFailed starts the compensation: the order stays paid
// until the refund lands, only the refund request goes out here. The
// request is emitted regardless of the order's current status — the
// charge went through, so the money must come back even when the order
// was cancelled while the inventory reply was in flight. The payment
// side refunds at most once.
func (s *orderService) HandleInventoryFailed(ctx context.Context, event events.InventoryFailed) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.HandleInventoryFailed")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", event.OrderID.String()))

	order, err := s.loadForEvent(ctx, event.OrderID)
	if err != nil || order == nil {
		return err
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Requesting refund after inventory failure",
		zap.String("order_id", order.ID.String()),
		zap.String("reason", event.FailureReason),
	)

	request := events.RefundRequested{
		Base:        events.NewBase(),
		OrderID:     order.ID,
		Reason:      fmt.Sprintf("inventory reservation failed: %s", event.FailureReason),
		RequestedAt: event.FailedAt,
	}

	if err := s.bus.Publish(ctx, request); err != nil {
		return fmt.Errorf("failed to request refund: %w", err)
	}

	return nil
}

func (s *orderService) HandlePaymentRefunded(ctx context.Context, event events.PaymentRefunded) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.HandlePaymentRefunded")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", event.OrderID.String()))

	order, err := s.loadForEvent(ctx, event.OrderID)
	if err != nil || order == nil {
		return err
	}

	if order.Status == domain.OrderStatusCancelled || order.Status == domain.OrderStatusCompleted {
		return nil
	}

	if err := order.Cancel("payment refunded after inventory failure"); err != nil {
		return err
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Cancelling order after refund",
		zap.String("order_id", order.ID.String()),
	)

	return s.repo.Update(ctx, order)
}

// loadForEvent resolves an order for a saga reaction. A missing order
// is acknowledged with a warning instead of retried: the outbox only
// emits events for committed orders, so nothing would change on
// redelivery.
func (s *orderService) loadForEvent(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			mylogger.Warn(
				ctx,
				s.logger,
				"Received event for unknown order",
				zap.String("order_id", orderID.String()),
			)

			return nil, nil
		}

		return nil, err
	}

	return order, nil
}
