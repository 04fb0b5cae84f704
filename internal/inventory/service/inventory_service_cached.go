package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sakashimaa/order-fulfillment/internal/inventory/domain"
	"github.com/sakashimaa/order-fulfillment/pkg/events"
)

// cachedInventoryService caches availability reads in redis and drops
// the cached entries whenever a mutation touches their products.
type cachedInventoryService struct {
	next        InventoryService
	redisClient *redis.Client
	cacheTTL    time.Duration
}

func NewCachedInventoryService(next InventoryService, redisClient *redis.Client) InventoryService {
	return &cachedInventoryService{
		next:        next,
		redisClient: redisClient,
		cacheTTL:    time.Minute * 10,
	}
}

func itemKey(productID string) string {
	return fmt.Sprintf("inventory:%s", productID)
}

func (s *cachedInventoryService) GetAvailability(ctx context.Context, productID string) (*domain.InventoryItem, error) {
	key := itemKey(productID)

	if val, err := s.redisClient.Get(ctx, key).Result(); err == nil {
		var item domain.InventoryItem
		if err := json.Unmarshal([]byte(val), &item); err == nil {
			return &item, nil
		}
	}

	item, err := s.next.GetAvailability(ctx, productID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(item); err == nil {
		s.redisClient.Set(ctx, key, data, s.cacheTTL)
	}

	return item, nil
}

func (s *cachedInventoryService) CreateItem(ctx context.Context, productID string, quantity int) (*domain.InventoryItem, error) {
	item, err := s.next.CreateItem(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}

	s.redisClient.Del(ctx, itemKey(productID))
	return item, nil
}

func (s *cachedInventoryService) Restock(ctx context.Context, productID string, delta int) (*domain.InventoryItem, error) {
	item, err := s.next.Restock(ctx, productID, delta)
	if err != nil {
		return nil, err
	}

	s.redisClient.Del(ctx, itemKey(productID))
	return item, nil
}

func (s *cachedInventoryService) ReserveInventory(ctx context.Context, orderID uuid.UUID, items []domain.ReservationLine) (ReserveResult, error) {
	result, err := s.next.ReserveInventory(ctx, orderID, items)
	if err != nil {
		return nil, err
	}

	if success, ok := result.(ReserveSuccess); ok {
		s.invalidateLines(ctx, success.Items)
	}

	return result, nil
}

func (s *cachedInventoryService) HandleOrderInventoryRequested(ctx context.Context, event events.OrderInventoryRequested) error {
	if err := s.next.HandleOrderInventoryRequested(ctx, event); err != nil {
		return err
	}

	for _, item := range event.Items {
		s.redisClient.Del(ctx, itemKey(item.ProductID))
	}

	return nil
}

func (s *cachedInventoryService) HandleOrderCancelled(ctx context.Context, event events.OrderCancelled) error {
	// the released lines are not visible at this layer, stale
	// availability lasts at most one TTL
	return s.next.HandleOrderCancelled(ctx, event)
}

func (s *cachedInventoryService) invalidateLines(ctx context.Context, lines []domain.ReservationLine) {
	for _, line := range lines {
		s.redisClient.Del(ctx, itemKey(line.ProductID))
	}
}
