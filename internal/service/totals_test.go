package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/checkout/internal/models"
)

func TestSubtotal(t *testing.T) {
	got := Subtotal(3, decimal.RequireFromString("19.99"))
	require.True(t, got.Equal(decimal.RequireFromString("59.97")), "got %s", got)

	got = Subtotal(1, decimal.RequireFromString("0.01"))
	require.True(t, got.Equal(decimal.RequireFromString("0.01")), "got %s", got)
}

func TestOrderTotalStableAcrossItemOrder(t *testing.T) {
	items := []models.OrderItem{
		{ID: 3, Subtotal: decimal.RequireFromString("7.25")},
		{ID: 1, Subtotal: decimal.RequireFromString("19.99")},
		{ID: 2, Subtotal: decimal.RequireFromString("0.03")},
	}

	total := OrderTotal(items)
	require.True(t, total.Equal(decimal.RequireFromString("27.27")), "got %s", total)

	shuffled := []models.OrderItem{items[1], items[2], items[0]}
	require.True(t, OrderTotal(shuffled).Equal(total))

	// Input slice is not reordered in place.
	require.EqualValues(t, 3, items[0].ID)
}

func TestOrderTotalEmpty(t *testing.T) {
	require.True(t, OrderTotal(nil).Equal(decimal.Zero))
}
