package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/checkout/internal/logging"
	"github.com/Skotchmaster/checkout/internal/models"
	"github.com/Skotchmaster/checkout/internal/service"
	"github.com/Skotchmaster/checkout/internal/transport"
	"github.com/Skotchmaster/checkout/internal/util"
)

type ProductHandler struct {
	Svc        *service.ProductService
	Categories *service.CategoryService
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()

	productID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	product, err := h.Svc.Get(ctx, productID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	ctx := c.Request().Context()

	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.List(ctx, c.QueryParam("status"), offset, limit)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

// GetRelatedProducts serves the subtree-based recommendations.
func (h *ProductHandler) GetRelatedProducts(c echo.Context) error {
	ctx := c.Request().Context()

	productID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	limit := parseIntDefault(c.QueryParam("limit"), 10)
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	products, err := h.Categories.RelatedProducts(ctx, productID, limit)
	if err != nil {
		return httpError(err)
	}
	if products == nil {
		products = []models.Product{}
	}
	return c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.create")

	var req transport.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_product_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	product, err := h.Svc.Create(ctx, req)
	if err != nil {
		he := httpError(err)
		l.Warn("create_product_error", "status", he.Code, "error", err)
		return he
	}

	l.Info("create_product_success", "product_id", product.ID)
	return c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "product.patch")

	productID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	var req transport.PatchProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("patch_product_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	product, err := h.Svc.Patch(ctx, productID, req)
	if err != nil {
		he := httpError(err)
		l.Warn("patch_product_error", "status", he.Code, "product_id", productID, "error", err)
		return he
	}
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()

	productID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.Svc.Delete(ctx, productID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
