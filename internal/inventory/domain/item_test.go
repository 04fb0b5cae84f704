package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInventoryItem(t *testing.T) {
	item, err := NewInventoryItem("sku-1", 10)
	require.NoError(t, err)

	assert.Equal(t, 10, item.InStock)
	assert.Equal(t, 0, item.Reserved)
	assert.Equal(t, 10, item.Available())

	_, err = NewInventoryItem("", 10)
	assert.ErrorIs(t, err, ErrEmptyProduct)

	_, err = NewInventoryItem("sku-1", -1)
	assert.ErrorIs(t, err, ErrNegativeStock)
}

func TestReserve(t *testing.T) {
	item, err := NewInventoryItem("sku-1", 10)
	require.NoError(t, err)

	require.NoError(t, item.Reserve(4))
	assert.Equal(t, 4, item.Reserved)
	assert.Equal(t, 6, item.Available())

	require.NoError(t, item.Reserve(6))
	assert.Equal(t, 0, item.Available())
}

func TestReserveInsufficientStock(t *testing.T) {
	item, err := NewInventoryItem("sku-1", 5)
	require.NoError(t, err)

	require.NoError(t, item.Reserve(3))

	err = item.Reserve(3)
	require.True(t, IsInsufficientStock(err))

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "sku-1", stockErr.ProductID)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)

	// the failed reserve must not change anything
	assert.Equal(t, 3, item.Reserved)
}

func TestReserveRejectsNonPositiveQuantity(t *testing.T) {
	item, err := NewInventoryItem("sku-1", 5)
	require.NoError(t, err)

	assert.ErrorIs(t, item.Reserve(0), ErrBadQuantity)
	assert.ErrorIs(t, item.Reserve(-1), ErrBadQuantity)
}

func TestRelease(t *testing.T) {
	item, err := NewInventoryItem("sku-1", 10)
	require.NoError(t, err)

	require.NoError(t, item.Reserve(4))
	require.NoError(t, item.Release(3))
	assert.Equal(t, 1, item.Reserved)

	assert.ErrorIs(t, item.Release(2), ErrReleaseExceedsReserved)
	assert.ErrorIs(t, item.Release(0), ErrBadQuantity)
}

func TestAdjustStock(t *testing.T) {
	item, err := NewInventoryItem("sku-1", 10)
	require.NoError(t, err)

	require.NoError(t, item.AdjustStock(5))
	assert.Equal(t, 15, item.InStock)

	require.NoError(t, item.Reserve(12))
	assert.ErrorIs(t, item.AdjustStock(-4), ErrStockBelowReserved)
	require.NoError(t, item.AdjustStock(-3))
	assert.Equal(t, 12, item.InStock)
}

func TestNewReservation(t *testing.T) {
	orderID := uuid.New()
	reservation := NewReservation(orderID, []ReservationLine{
		{ProductID: "sku-1", Quantity: 2},
		{ProductID: "sku-2", Quantity: 1},
	})

	assert.Equal(t, orderID, reservation.OrderID)
	assert.NotEqual(t, uuid.Nil, reservation.ID)
	assert.Len(t, reservation.Lines, 2)
	assert.False(t, reservation.ReservedAt.IsZero())
}
