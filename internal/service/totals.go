package service

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/checkout/internal/models"
)

// Subtotal is quantity × unit price at the currency's native scale.
func Subtotal(quantity int, price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity)))
}

// OrderTotal sums item subtotals in ascending item-id order. The ordering is
// a correctness property: the same logical item set must always produce the
// same total no matter how the items were loaded.
func OrderTotal(items []models.OrderItem) decimal.Decimal {
	sorted := make([]models.OrderItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	total := decimal.Zero
	for _, item := range sorted {
		total = total.Add(item.Subtotal)
	}
	return total
}
