package tests

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sakashimaa/order-fulfillment/internal/inventory/domain"
)

func (s *IntegrationTestSuite) cachedItem(productID string) (*domain.InventoryItem, bool) {
	val, err := s.RedisClient.Get(s.Ctx, fmt.Sprintf("inventory:%s", productID)).Result()
	if err == redis.Nil {
		return nil, false
	}
	s.Require().NoError(err)

	var item domain.InventoryItem
	s.Require().NoError(json.Unmarshal([]byte(val), &item))
	return &item, true
}

func (s *IntegrationTestSuite) TestAvailabilityReadPopulatesCache() {
	s.seedItem("sku-1", 8)

	item, err := s.CachedService.GetAvailability(s.Ctx, "sku-1")
	s.Require().NoError(err)
	s.Require().Equal(8, item.Available())

	cached, ok := s.cachedItem("sku-1")
	s.Require().True(ok)
	s.Require().Equal("sku-1", cached.ProductID)
	s.Require().Equal(8, cached.InStock)
}

func (s *IntegrationTestSuite) TestRestockDropsCachedEntry() {
	s.seedItem("sku-1", 8)

	_, err := s.CachedService.GetAvailability(s.Ctx, "sku-1")
	s.Require().NoError(err)

	_, err = s.CachedService.Restock(s.Ctx, "sku-1", 4)
	s.Require().NoError(err)

	_, ok := s.cachedItem("sku-1")
	s.Require().False(ok)

	item, err := s.CachedService.GetAvailability(s.Ctx, "sku-1")
	s.Require().NoError(err)
	s.Require().Equal(12, item.Available())
}

func (s *IntegrationTestSuite) TestReserveDropsCachedEntriesForReservedProducts() {
	s.seedItem("sku-1", 8)
	s.seedItem("sku-2", 3)

	for _, productID := range []string{"sku-1", "sku-2"} {
		_, err := s.CachedService.GetAvailability(s.Ctx, productID)
		s.Require().NoError(err)
	}

	_, err := s.CachedService.ReserveInventory(s.Ctx, uuid.New(), []domain.ReservationLine{
		{ProductID: "sku-1", Quantity: 2},
	})
	s.Require().NoError(err)

	_, ok := s.cachedItem("sku-1")
	s.Require().False(ok)

	// sku-2 was not part of the reservation, its entry stays
	_, ok = s.cachedItem("sku-2")
	s.Require().True(ok)
}
