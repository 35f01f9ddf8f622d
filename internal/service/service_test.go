package service

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/checkout/internal/cache"
	"github.com/Skotchmaster/checkout/internal/models"
	"github.com/Skotchmaster/checkout/internal/payment"
	"github.com/Skotchmaster/checkout/internal/repo"
)

func InitTestDB(t *testing.T) *gorm.DB {
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

	return db
}

func newOrderService(t *testing.T) (*OrderService, *gorm.DB) {
	t.Helper()
	db := InitTestDB(t)
	return &OrderService{Repo: repo.New(db)}, db
}

func newCategoryService(t *testing.T) (*CategoryService, *gorm.DB) {
	t.Helper()
	db := InitTestDB(t)
	return &CategoryService{Repo: repo.New(db), Cache: cache.NewMemory()}, db
}

func seedProduct(t *testing.T, db *gorm.DB, sku string, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:   "product " + sku,
		SKU:    sku,
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Status: models.ProductStatusActive,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}
	return product
}

// fakeProvider lets the ledger tests script provider behavior.
type fakeProvider struct {
	name         string
	intent       *payment.Intent
	createErr    error
	result       *payment.Result
	callErr      error
	signatureOK  bool
	extractID    string
	confirmCalls int
	queryCalls   int
}

func (f *fakeProvider) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeProvider) CreateIntent(ctx context.Context, orderID uint, amount decimal.Decimal) (*payment.Intent, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.intent, nil
}

func (f *fakeProvider) Confirm(ctx context.Context, transactionID string) (*payment.Result, error) {
	f.confirmCalls++
	if f.callErr != nil {
		return nil, f.callErr
	}
	return f.result, nil
}

func (f *fakeProvider) Query(ctx context.Context, transactionID string) (*payment.Result, error) {
	f.queryCalls++
	if f.callErr != nil {
		return nil, f.callErr
	}
	return f.result, nil
}

func (f *fakeProvider) VerifySignature(payload []byte, signature string) bool {
	return f.signatureOK
}

func (f *fakeProvider) ExtractTransactionID(payload []byte) string {
	return f.extractID
}
