package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sakashimaa/order-fulfillment/internal/payment/domain"
	"github.com/sakashimaa/order-fulfillment/internal/payment/gateway"
	"github.com/sakashimaa/order-fulfillment/internal/payment/repository"
	"github.com/sakashimaa/order-fulfillment/pkg/events"
	"github.com/sakashimaa/order-fulfillment/pkg/mylogger"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type PaymentService interface {
	GetPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error)
	GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error)
	RefundPayment(ctx context.Context, paymentID uuid.UUID) error

	HandleOrderCreated(ctx context.Context, event events.OrderCreated) error
	HandleRefundRequested(ctx context.Context, event events.RefundRequested) error
}

type paymentService struct {
	repo    repository.PaymentRepository
	gateway gateway.Gateway
	cb      *gobreaker.CircuitBreaker
	logger  *zap.Logger
	tracer  trace.Tracer
}

func NewPaymentService(repo repository.PaymentRepository, gw gateway.Gateway, logger *zap.Logger) PaymentService {
	settings := gobreaker.Settings{
		Name:        "PaymentGateway",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn(
				"Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &paymentService{
		repo:    repo,
		gateway: gw,
		cb:      gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
		tracer:  otel.Tracer("payment_service"),
	}
}

// HandleOrderCreated charges the order amount and saves the attempt
// with its outcome in one transaction. One payment per order: a
// redelivered OrderCreated finds the existing payment and is acked
// without touching the gateway again.
func (s *paymentService) HandleOrderCreated(ctx context.Context, event events.OrderCreated) error {
	ctx, span := s.tracer.Start(ctx, "PaymentService.HandleOrderCreated")
	defer span.End()

	span.SetAttributes(
		attribute.String("order_id", event.OrderID.String()),
		attribute.Int64("amount", event.TotalAmount),
	)

	if existing, err := s.repo.GetByOrderID(ctx, event.OrderID); err == nil {
		mylogger.Warn(
			ctx,
			s.logger,
			"Payment already exists for order, skipping",
			zap.String("order_id", event.OrderID.String()),
			zap.String("payment_id", existing.ID.String()),
		)

		return nil
	} else if !errors.Is(err, repository.ErrPaymentNotFound) {
		return err
	}

	payment, err := domain.NewPayment(event.OrderID, event.CustomerID, event.TotalAmount)
	if err != nil {
		mylogger.Warn(
			ctx,
			s.logger,
			"Rejecting unpayable order",
			zap.String("order_id", event.OrderID.String()),
			zap.Error(err),
		)

		return nil
	}

	result, err := throughBreaker(s.cb, func() (gateway.ChargeResult, error) {
		return s.gateway.Charge(ctx, event.OrderID, event.TotalAmount)
	})
	if err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Payment gateway unavailable",
			zap.String("order_id", event.OrderID.String()),
			zap.Error(err),
		)

		return fmt.Errorf("charge failed: %w", err)
	}

	if result.Approved {
		if err := payment.MarkAsSucceeded(); err != nil {
			return err
		}
	} else {
		if err := payment.MarkAsFailed(result.DeclineReason); err != nil {
			return err
		}
	}

	if err := s.repo.Add(ctx, payment); err != nil {
		return fmt.Errorf("failed to save payment: %w", err)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Payment processed",
		zap.String("order_id", event.OrderID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("status", string(payment.Status)),
	)

	return nil
}

func (s *paymentService) HandleRefundRequested(ctx context.Context, event events.RefundRequested) error {
	ctx, span := s.tracer.Start(ctx, "PaymentService.HandleRefundRequested")
	defer span.End()

	span.SetAttributes(attribute.String("order_id", event.OrderID.String()))

	payment, err := s.repo.GetByOrderID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			mylogger.Warn(
				ctx,
				s.logger,
				"Refund requested for order without payment",
				zap.String("order_id", event.OrderID.String()),
			)

			return nil
		}

		return err
	}

	// a refund request for a failed payment is a stale compensation,
	// acknowledged rather than retried
	if err := s.refund(ctx, payment); err != nil && !domain.IsInvalidTransition(err) {
		return err
	}

	return nil
}

func (s *paymentService) RefundPayment(ctx context.Context, paymentID uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "PaymentService.RefundPayment")
	defer span.End()

	span.SetAttributes(attribute.String("payment_id", paymentID.String()))

	payment, err := s.repo.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}

	return s.refund(ctx, payment)
}

func (s *paymentService) refund(ctx context.Context, payment *domain.Payment) error {
	if payment.Status == domain.PaymentStatusRefunded {
		return nil
	}

	if err := payment.Refund(); err != nil {
		if domain.IsInvalidTransition(err) {
			mylogger.Warn(
				ctx,
				s.logger,
				"Refund skipped, payment never succeeded",
				zap.String("payment_id", payment.ID.String()),
				zap.String("status", string(payment.Status)),
			)
		}

		return err
	}

	if _, err := throughBreaker(s.cb, func() (struct{}, error) {
		return struct{}{}, s.gateway.Refund(ctx, payment.ID, payment.Amount)
	}); err != nil {
		return fmt.Errorf("refund failed: %w", err)
	}

	if err := s.repo.Update(ctx, payment); err != nil {
		return fmt.Errorf("failed to save refund: %w", err)
	}

	mylogger.Info(
		ctx,
		s.logger,
		"Payment refunded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("order_id", payment.OrderID.String()),
	)

	return nil
}

func (s *paymentService) GetPayment(ctx context.Context, paymentID uuid.UUID) (*domain.Payment, error) {
	return s.repo.GetByID(ctx, paymentID)
}

func (s *paymentService) GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error) {
	return s.repo.GetByOrderID(ctx, orderID)
}

// throughBreaker routes a gateway call through the circuit breaker,
// recovering the typed result from gobreaker's untyped Execute.
func throughBreaker[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	res, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}

	return res.(T), nil
}
