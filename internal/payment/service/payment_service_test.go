package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sakashimaa/order-fulfillment/internal/payment/domain"
	"github.com/sakashimaa/order-fulfillment/internal/payment/gateway"
	"github.com/sakashimaa/order-fulfillment/internal/payment/repository"
	"github.com/sakashimaa/order-fulfillment/pkg/eventbus"
	"github.com/sakashimaa/order-fulfillment/pkg/events"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubGateway struct {
	mu      sync.Mutex
	approve bool
	reason  string
	charges int
}

func (g *stubGateway) Charge(_ context.Context, _ uuid.UUID, _ int64) (gateway.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.charges++
	if g.approve {
		return gateway.ChargeResult{Approved: true}, nil
	}
	return gateway.ChargeResult{Approved: false, DeclineReason: g.reason}, nil
}

func (g *stubGateway) Refund(_ context.Context, _ uuid.UUID, _ int64) error {
	return nil
}

func (g *stubGateway) chargeCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.charges
}

type busRecorder struct {
	mu       sync.Mutex
	recorded []events.IntegrationEvent
}

func (r *busRecorder) record(_ context.Context, ev events.IntegrationEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recorded = append(r.recorded, ev)
	return nil
}

func (r *busRecorder) byName(name string) []events.IntegrationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []events.IntegrationEvent
	for _, ev := range r.recorded {
		if ev.EventName() == name {
			out = append(out, ev)
		}
	}
	return out
}

func newTestService(t *testing.T, gw *stubGateway) (PaymentService, repository.PaymentRepository, *busRecorder) {
	t.Helper()

	bus := eventbus.NewInMemoryBus(zap.NewNop())
	recorder := &busRecorder{}
	for _, name := range []string{
		events.NamePaymentSucceeded,
		events.NamePaymentFailed,
		events.NamePaymentRefunded,
	} {
		bus.Subscribe(name, recorder.record)
	}

	repo := repository.NewMemoryRepository(bus)

	return NewPaymentService(repo, gw, zap.NewNop()), repo, recorder
}

func orderCreated(orderID uuid.UUID, amount int64) events.OrderCreated {
	return events.OrderCreated{
		Base:        events.NewBase(),
		OrderID:     orderID,
		CustomerID:  "customer-1",
		TotalAmount: amount,
	}
}

func TestHandleOrderCreatedApproved(t *testing.T) {
	gw := &stubGateway{approve: true}
	svc, repo, recorder := newTestService(t, gw)
	ctx := context.Background()

	orderID := uuid.New()
	require.NoError(t, svc.HandleOrderCreated(ctx, orderCreated(orderID, 3000)))

	payment, err := repo.GetByOrderID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusSucceeded, payment.Status)
	assert.Equal(t, int64(3000), payment.Amount)
	assert.Equal(t, "customer-1", payment.CustomerID)
	require.NotNil(t, payment.ProcessedAt)

	succeeded := recorder.byName(events.NamePaymentSucceeded)
	require.Len(t, succeeded, 1)
	ev := succeeded[0].(events.PaymentSucceeded)
	assert.Equal(t, orderID, ev.OrderID)
	assert.Equal(t, payment.ID, ev.PaymentID)
}

func TestHandleOrderCreatedDeclined(t *testing.T) {
	gw := &stubGateway{approve: false, reason: "insufficient funds"}
	svc, repo, recorder := newTestService(t, gw)
	ctx := context.Background()

	orderID := uuid.New()
	require.NoError(t, svc.HandleOrderCreated(ctx, orderCreated(orderID, 3000)))

	payment, err := repo.GetByOrderID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, payment.Status)
	assert.Equal(t, "insufficient funds", payment.FailureReason)

	failed := recorder.byName(events.NamePaymentFailed)
	require.Len(t, failed, 1)
	assert.Equal(t, "insufficient funds", failed[0].(events.PaymentFailed).FailureReason)
}

func TestHandleOrderCreatedRedeliveryChargesOnce(t *testing.T) {
	gw := &stubGateway{approve: true}
	svc, _, recorder := newTestService(t, gw)
	ctx := context.Background()

	ev := orderCreated(uuid.New(), 3000)
	require.NoError(t, svc.HandleOrderCreated(ctx, ev))
	require.NoError(t, svc.HandleOrderCreated(ctx, ev))

	assert.Equal(t, 1, gw.chargeCount(), "redelivery must not charge twice")
	assert.Len(t, recorder.byName(events.NamePaymentSucceeded), 1)
}

func TestHandleRefundRequested(t *testing.T) {
	gw := &stubGateway{approve: true}
	svc, repo, recorder := newTestService(t, gw)
	ctx := context.Background()

	orderID := uuid.New()
	require.NoError(t, svc.HandleOrderCreated(ctx, orderCreated(orderID, 3000)))

	refund := events.RefundRequested{
		Base:    events.NewBase(),
		OrderID: orderID,
		Reason:  "inventory reservation failed",
	}
	require.NoError(t, svc.HandleRefundRequested(ctx, refund))

	payment, err := repo.GetByOrderID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRefunded, payment.Status)

	refunded := recorder.byName(events.NamePaymentRefunded)
	require.Len(t, refunded, 1)
	ev := refunded[0].(events.PaymentRefunded)
	assert.Equal(t, orderID, ev.OrderID)
	assert.NotEqual(t, uuid.Nil, ev.RefundID)

	require.NoError(t, svc.HandleRefundRequested(ctx, refund))
	assert.Len(t, recorder.byName(events.NamePaymentRefunded), 1)
}

func TestHandleRefundRequestedForFailedPaymentIsAcked(t *testing.T) {
	gw := &stubGateway{approve: false, reason: "card declined"}
	svc, repo, recorder := newTestService(t, gw)
	ctx := context.Background()

	orderID := uuid.New()
	require.NoError(t, svc.HandleOrderCreated(ctx, orderCreated(orderID, 3000)))

	refund := events.RefundRequested{Base: events.NewBase(), OrderID: orderID}
	assert.NoError(t, svc.HandleRefundRequested(ctx, refund))

	payment, err := repo.GetByOrderID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusFailed, payment.Status)
	assert.Empty(t, recorder.byName(events.NamePaymentRefunded))
}

func TestHandleRefundRequestedUnknownOrderIsAcked(t *testing.T) {
	gw := &stubGateway{approve: true}
	svc, _, _ := newTestService(t, gw)

	refund := events.RefundRequested{Base: events.NewBase(), OrderID: uuid.New()}
	assert.NoError(t, svc.HandleRefundRequested(context.Background(), refund))
}

func TestRefundPayment(t *testing.T) {
	gw := &stubGateway{approve: true}
	svc, repo, _ := newTestService(t, gw)
	ctx := context.Background()

	orderID := uuid.New()
	require.NoError(t, svc.HandleOrderCreated(ctx, orderCreated(orderID, 3000)))

	payment, err := repo.GetByOrderID(ctx, orderID)
	require.NoError(t, err)

	require.NoError(t, svc.RefundPayment(ctx, payment.ID))

	stored, err := repo.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusRefunded, stored.Status)

	err = svc.RefundPayment(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrPaymentNotFound)
}

func TestThroughBreaker(t *testing.T) {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{Name: "test"})

	got, err := throughBreaker(cb, func() (string, error) {
		return "charged", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "charged", got)

	boom := errors.New("gateway down")
	got, err = throughBreaker(cb, func() (string, error) {
		return "ignored", boom
	})
	require.ErrorIs(t, err, boom)
	assert.Empty(t, got)
}
