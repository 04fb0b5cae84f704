package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestWrapDecodeRoundTrip(t *testing.T) {
	original := InventoryFailed{
		Base:          NewBase(),
		OrderID:       uuid.New(),
		FailureReason: "insufficient stock for 2 product(s)",
		FailedItems: []FailedItem{
			{ProductID: "sku-1", RequestedQuantity: 5, AvailableQuantity: 2},
			{ProductID: "sku-9", RequestedQuantity: 1, AvailableQuantity: 0},
		},
		FailedAt: time.Now().UTC(),
	}

	env, err := Wrap(original)
	require.NoError(t, err)
	require.Equal(t, NameInventoryFailed, env.EventType)
	require.Equal(t, original.EventID(), env.EventID)

	body, err := json.Marshal(env)
	require.NoError(t, err)

	decoded, err := DecodeBytes(body)
	require.NoError(t, err)

	failed, ok := decoded.(InventoryFailed)
	require.True(t, ok)
	require.Equal(t, original.OrderID, failed.OrderID)
	require.Equal(t, original.FailureReason, failed.FailureReason)
	require.Equal(t, original.FailedItems, failed.FailedItems)
}

func TestDecodeUnknownEventType(t *testing.T) {
	env := Envelope{EventID: uuid.New(), EventType: "SomethingElse", Payload: json.RawMessage(`{}`)}

	_, err := Decode(env)
	require.Error(t, err)
}

func TestEveryRegisteredEventHasACorrelationID(t *testing.T) {
	for name := range registry {
		ev, err := Decode(Envelope{EventType: name, Payload: json.RawMessage(`{}`)})
		require.NoError(t, err, name)
		_, ok := ev.(Keyed)
		require.True(t, ok, "%s must expose a correlation id for partitioning", name)
	}
}

func TestTopicFor(t *testing.T) {
	require.Equal(t, "ordercreated", TopicFor(NameOrderCreated))
	require.Equal(t, "inventory", TopicFor("Inventory"))
	require.Equal(t, "order.events", QueueFor("Order"))
}
