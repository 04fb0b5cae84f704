package tests

import (
	"github.com/google/uuid"
	"github.com/sakashimaa/order-fulfillment/internal/inventory/domain"
	"github.com/sakashimaa/order-fulfillment/internal/inventory/repository"
	"github.com/sakashimaa/order-fulfillment/internal/inventory/service"
	"go.uber.org/zap"
)

func (s *IntegrationTestSuite) seedItem(productID string, quantity int) {
	_, err := s.InventoryService.CreateItem(s.Ctx, productID, quantity)
	s.Require().NoError(err)
}

func (s *IntegrationTestSuite) TestReserveUpdatesStoredCounts() {
	s.seedItem("sku-1", 10)
	s.seedItem("sku-2", 4)

	result, err := s.InventoryService.ReserveInventory(s.Ctx, uuid.New(), []domain.ReservationLine{
		{ProductID: "sku-1", Quantity: 3},
		{ProductID: "sku-2", Quantity: 4},
	})
	s.Require().NoError(err)

	success, ok := result.(service.ReserveSuccess)
	s.Require().True(ok)
	s.Require().Len(success.Items, 2)

	first, err := s.InventoryService.GetAvailability(s.Ctx, "sku-1")
	s.Require().NoError(err)
	s.Require().Equal(3, first.Reserved)
	s.Require().Equal(7, first.Available())

	second, err := s.InventoryService.GetAvailability(s.Ctx, "sku-2")
	s.Require().NoError(err)
	s.Require().Equal(0, second.Available())
}

func (s *IntegrationTestSuite) TestReserveIsAllOrNothing() {
	s.seedItem("sku-1", 10)
	s.seedItem("sku-2", 1)

	result, err := s.InventoryService.ReserveInventory(s.Ctx, uuid.New(), []domain.ReservationLine{
		{ProductID: "sku-1", Quantity: 2},
		{ProductID: "sku-2", Quantity: 5},
	})
	s.Require().NoError(err)

	failure, ok := result.(service.ReserveFailure)
	s.Require().True(ok)
	s.Require().Len(failure.FailedItems, 1)
	s.Require().Equal("sku-2", failure.FailedItems[0].ProductID)
	s.Require().Equal(5, failure.FailedItems[0].Requested)
	s.Require().Equal(1, failure.FailedItems[0].Available)

	// the satisfiable line must not hold stock after a failed attempt
	item, err := s.InventoryService.GetAvailability(s.Ctx, "sku-1")
	s.Require().NoError(err)
	s.Require().Equal(0, item.Reserved)

	var reservations int
	err = s.DBPool.QueryRow(s.Ctx, `SELECT COUNT(*) FROM reservations`).Scan(&reservations)
	s.Require().NoError(err)
	s.Require().Equal(0, reservations)
}

func (s *IntegrationTestSuite) TestReserveIsIdempotentPerOrder() {
	s.seedItem("sku-1", 5)

	orderID := uuid.New()
	lines := []domain.ReservationLine{{ProductID: "sku-1", Quantity: 2}}

	first, err := s.InventoryService.ReserveInventory(s.Ctx, orderID, lines)
	s.Require().NoError(err)

	second, err := s.InventoryService.ReserveInventory(s.Ctx, orderID, lines)
	s.Require().NoError(err)

	firstSuccess := first.(service.ReserveSuccess)
	secondSuccess := second.(service.ReserveSuccess)
	s.Require().Equal(firstSuccess.ReservationID, secondSuccess.ReservationID)

	item, err := s.InventoryService.GetAvailability(s.Ctx, "sku-1")
	s.Require().NoError(err)
	s.Require().Equal(2, item.Reserved)
}

func (s *IntegrationTestSuite) TestDuplicateProductRejected() {
	s.seedItem("sku-1", 5)

	_, err := s.InventoryService.CreateItem(s.Ctx, "sku-1", 3)
	s.Require().ErrorIs(err, repository.ErrDuplicateProduct)
}

func (s *IntegrationTestSuite) TestReleaseReturnsReservedStock() {
	s.seedItem("sku-1", 5)

	orderID := uuid.New()
	_, err := s.InventoryService.ReserveInventory(s.Ctx, orderID, []domain.ReservationLine{
		{ProductID: "sku-1", Quantity: 4},
	})
	s.Require().NoError(err)

	afterReserve, err := s.InventoryService.GetAvailability(s.Ctx, "sku-1")
	s.Require().NoError(err)
	s.Require().Equal(1, afterReserve.Available())

	repo := repository.NewPostgresRepository(s.DBPool, zap.NewNop())
	stored, err := repo.GetReservationByOrderID(s.Ctx, orderID)
	s.Require().NoError(err)
	s.Require().NoError(repo.ReleaseReservation(s.Ctx, stored))

	item, err := s.InventoryService.GetAvailability(s.Ctx, "sku-1")
	s.Require().NoError(err)
	s.Require().Equal(0, item.Reserved)
	s.Require().Equal(5, item.Available())
}
