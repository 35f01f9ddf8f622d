package httpserver

import (
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/checkout/internal/handlers"
	"github.com/Skotchmaster/checkout/internal/jwtmiddleware"
)

type Deps struct {
	JWTSecret []byte

	OrderHandler    *handlers.OrderHandler
	PaymentHandler  *handlers.PaymentHandler
	WebhookHandler  *handlers.WebhookHandler
	ProductHandler  *handlers.ProductHandler
	CategoryHandler *handlers.CategoryHandler
	SearchHandler   *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)
	products.GET("/:id/related", d.ProductHandler.GetRelatedProducts)

	categories := v1.Group("/categories")
	categories.GET("", d.CategoryHandler.GetCategories)
	categories.GET("/:id", d.CategoryHandler.GetCategory)
	categories.GET("/:id/tree", d.CategoryHandler.GetCategoryTree)

	if d.SearchHandler != nil {
		v1.GET("/search", d.SearchHandler.Search)
	}

	// Provider callbacks are unauthenticated by nature; authenticity is the
	// reconciler's problem.
	webhooks := v1.Group("/webhooks")
	webhooks.POST("/stripe", d.WebhookHandler.Stripe)
	webhooks.POST("/bkash", d.WebhookHandler.Bkash)

	authed := v1.Group("", jwtmiddleware.RequireAuth(d.JWTSecret))

	authed.POST("/orders", d.OrderHandler.CreateOrder)
	authed.GET("/orders", d.OrderHandler.ListOrders)
	authed.GET("/orders/:id", d.OrderHandler.GetOrder)
	authed.POST("/orders/:id/cancel", d.OrderHandler.CancelOrder)

	authed.POST("/payments", d.PaymentHandler.InitiatePayment)
	authed.POST("/payments/confirm", d.PaymentHandler.ConfirmPayment)
	authed.GET("/payments/:id", d.PaymentHandler.GetPayment)

	admin := v1.Group("/admin", jwtmiddleware.RequireAuth(d.JWTSecret), jwtmiddleware.RequireAdmin)
	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)
	admin.POST("/categories", d.CategoryHandler.CreateCategory)
}
