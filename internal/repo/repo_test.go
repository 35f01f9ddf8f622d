package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/checkout/internal/models"
)

func initTestRepo(t *testing.T) *GormRepo {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect to in-memory db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Category{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	); err != nil {
		t.Fatalf("failed to migrate tables: %v", err)
	}
	return New(db)
}

func TestDecrementStock(t *testing.T) {
	r := initTestRepo(t)
	ctx := context.Background()

	product := &models.Product{Name: "p", SKU: "d-1", Price: decimal.New(100, -2), Stock: 5, Status: models.ProductStatusActive}
	require.NoError(t, r.CreateProduct(ctx, product))

	updated, ok, err := r.DecrementStock(ctx, product.ID, 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, updated.Stock)

	// Short stock: no change, no error.
	updated, ok, err = r.DecrementStock(ctx, product.ID, 3)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, 2, updated.Stock)

	// Exact drain is allowed.
	updated, ok, err = r.DecrementStock(ctx, product.ID, 2)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 0, updated.Stock)

	_, _, err = r.DecrementStock(ctx, 999, 1)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestClaimOrderStatus(t *testing.T) {
	r := initTestRepo(t)
	ctx := context.Background()

	order := &models.Order{UserID: 1, Status: models.OrderStatusPending, TotalAmount: decimal.Zero}
	require.NoError(t, r.CreateOrder(ctx, order))

	won, err := r.ClaimOrderStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusPaid)
	require.NoError(t, err)
	require.True(t, won)

	// The second claimant loses.
	won, err = r.ClaimOrderStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusPaid)
	require.NoError(t, err)
	require.False(t, won)

	fresh, err := r.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, models.OrderStatusPaid, fresh.Status)
}

func TestGetPaymentByTransactionScopedToProvider(t *testing.T) {
	r := initTestRepo(t)
	ctx := context.Background()

	order := &models.Order{UserID: 1, Status: models.OrderStatusPending, TotalAmount: decimal.Zero}
	require.NoError(t, r.CreateOrder(ctx, order))

	pay := &models.Payment{OrderID: order.ID, Provider: "stripe", TransactionID: "tx-1", Status: models.PaymentStatusPending}
	require.NoError(t, r.CreatePayment(ctx, pay))

	found, err := r.GetPaymentByTransaction(ctx, "tx-1", "stripe")
	require.NoError(t, err)
	require.Equal(t, pay.ID, found.ID)

	_, err = r.GetPaymentByTransaction(ctx, "tx-1", "bkash")
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestTransactionRollback(t *testing.T) {
	r := initTestRepo(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := r.Transaction(ctx, func(tx *GormRepo) error {
		if err := tx.CreateProduct(ctx, &models.Product{Name: "ghost", SKU: "g-1", Price: decimal.Zero}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = r.GetProductBySKU(ctx, "g-1")
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
