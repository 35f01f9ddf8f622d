package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/checkout/internal/cache"
	"github.com/Skotchmaster/checkout/internal/models"
	"github.com/Skotchmaster/checkout/internal/payment"
	"github.com/Skotchmaster/checkout/internal/repo"
	"github.com/Skotchmaster/checkout/internal/service"
)

const testWebhookSecret = "whsec_test"

// stripeStub scripts the card provider backend: one intent, whose status the
// test flips between calls.
type stripeStub struct {
	intentID string
	status   string
}

func (s *stripeStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/payment_intents":
			fmt.Fprintf(w, `{"id":%q,"status":"requires_payment_method","client_secret":"cs_test"}`, s.intentID)
		case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/v1/payment_intents/"):
			fmt.Fprintf(w, `{"id":%q,"status":%q}`, s.intentID, s.status)
		default:
			http.NotFound(w, r)
		}
	}
}

type testEnv struct {
	db     *gorm.DB
	stripe *stripeStub

	orders     *OrderHandler
	payments   *PaymentHandler
	webhooks   *WebhookHandler
	products   *ProductHandler
	categories *CategoryHandler
}

func newTestEnv(t *testing.T) *testEnv {
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

	stub := &stripeStub{intentID: "pi_test", status: "requires_payment_method"}
	backend := httptest.NewServer(stub.handler())
	t.Cleanup(backend.Close)

	registry := payment.NewRegistry(payment.NewStripe(payment.StripeConfig{
		BaseURL:       backend.URL,
		SecretKey:     "sk_test",
		WebhookSecret: testWebhookSecret,
	}))

	r := repo.New(db)
	categorySvc := &service.CategoryService{Repo: r, Cache: cache.NewMemory()}
	orderSvc := &service.OrderService{Repo: r}
	paymentSvc := &service.PaymentService{Repo: r, Providers: registry, Orders: orderSvc}
	productSvc := &service.ProductService{Repo: r, Categories: categorySvc}

	return &testEnv{
		db:         db,
		stripe:     stub,
		orders:     &OrderHandler{Svc: orderSvc},
		payments:   &PaymentHandler{Svc: paymentSvc},
		webhooks:   &WebhookHandler{Svc: paymentSvc},
		products:   &ProductHandler{Svc: productSvc, Categories: categorySvc},
		categories: &CategoryHandler{Svc: categorySvc},
	}
}

func (env *testEnv) seedProduct(t *testing.T, sku, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:   "product " + sku,
		SKU:    sku,
		Price:  decimal.RequireFromString(price),
		Stock:  stock,
		Status: models.ProductStatusActive,
	}
	if err := env.db.Create(product).Error; err != nil {
		t.Fatalf("failed to seed product: %v", err)
	}
	return product
}

func (env *testEnv) productStock(t *testing.T, id uint) int {
	t.Helper()
	var product models.Product
	if err := env.db.First(&product, id).Error; err != nil {
		t.Fatalf("failed to load product %d: %v", id, err)
	}
	return product.Stock
}

// request builds an echo context the way the authed routes see it, with the
// caller identity already resolved by the auth middleware.
func request(method, target, body string, userID uint) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != 0 {
		c.Set("user_id", userID)
	}
	return c, rec
}

func signStripePayload(ts string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}
