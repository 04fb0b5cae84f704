package tests

import (
	"time"

	"github.com/google/uuid"
	"github.com/sakashimaa/order-fulfillment/internal/order/domain"
	"github.com/sakashimaa/order-fulfillment/pkg/events"
)

func (s *IntegrationTestSuite) testItems() []domain.OrderItem {
	return []domain.OrderItem{
		{ProductID: "sku-1", Quantity: 2, Price: 1500},
		{ProductID: "sku-2", Quantity: 1, Price: 500},
	}
}

func (s *IntegrationTestSuite) TestCreateOrderPersistsAndStagesOutbox() {
	order, err := s.OrderService.CreateOrder(s.Ctx, "customer-1", s.testItems())
	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusPending, order.Status)
	s.Require().EqualValues(3500, order.TotalAmount)

	var itemCount int
	err = s.DBPool.QueryRow(s.Ctx,
		`SELECT COUNT(*) FROM order_items WHERE order_id = $1`, order.ID,
	).Scan(&itemCount)
	s.Require().NoError(err)
	s.Require().Equal(2, itemCount)

	var eventType string
	err = s.DBPool.QueryRow(s.Ctx,
		`SELECT event_type FROM outbox WHERE aggregate_id = $1`, order.ID.String(),
	).Scan(&eventType)
	s.Require().NoError(err)
	s.Require().Equal(events.NameOrderCreated, eventType)
}

func (s *IntegrationTestSuite) TestOutboxWorkerPublishesCreatedEvent() {
	order, err := s.OrderService.CreateOrder(s.Ctx, "customer-2", s.testItems())
	s.Require().NoError(err)

	s.Require().Eventually(func() bool {
		return len(s.Published.byName(events.NameOrderCreated)) == 1
	}, 10*time.Second, 100*time.Millisecond)

	created := s.Published.byName(events.NameOrderCreated)[0].(events.OrderCreated)
	s.Require().Equal(order.ID, created.OrderID)
	s.Require().Equal("customer-2", created.CustomerID)
	s.Require().EqualValues(3500, created.TotalAmount)
	s.Require().Len(created.Items, 2)

	s.Require().Eventually(func() bool {
		return s.countOutboxRows(true) == 1 && s.countOutboxRows(false) == 0
	}, 10*time.Second, 100*time.Millisecond)
}

func (s *IntegrationTestSuite) TestPaymentSucceededMarksPaidOnce() {
	order, err := s.OrderService.CreateOrder(s.Ctx, "customer-3", s.testItems())
	s.Require().NoError(err)

	event := events.PaymentSucceeded{
		Base:        events.NewBase(),
		PaymentID:   uuid.New(),
		OrderID:     order.ID,
		Amount:      order.TotalAmount,
		ProcessedAt: time.Now().UTC(),
	}

	s.Require().NoError(s.OrderService.HandlePaymentSucceeded(s.Ctx, event))
	// redelivery of the same event must not break anything
	s.Require().NoError(s.OrderService.HandlePaymentSucceeded(s.Ctx, event))

	stored, err := s.OrderService.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusPaid, stored.Status)

	requests := s.Published.byName(events.NameOrderInventoryRequested)
	s.Require().Len(requests, 2)
	for _, ev := range requests {
		s.Require().Equal(order.ID, ev.(events.OrderInventoryRequested).OrderID)
	}
}

func (s *IntegrationTestSuite) TestCancelOrderStagesCancelledEvent() {
	order, err := s.OrderService.CreateOrder(s.Ctx, "customer-4", s.testItems())
	s.Require().NoError(err)

	s.Require().NoError(s.OrderService.CancelOrder(s.Ctx, order.ID, "changed my mind"))

	stored, err := s.OrderService.GetOrder(s.Ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Equal(domain.OrderStatusCancelled, stored.Status)

	s.Require().Eventually(func() bool {
		return len(s.Published.byName(events.NameOrderCancelled)) == 1
	}, 10*time.Second, 100*time.Millisecond)

	cancelled := s.Published.byName(events.NameOrderCancelled)[0].(events.OrderCancelled)
	s.Require().Equal("changed my mind", cancelled.Reason)
}
