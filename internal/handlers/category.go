package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/checkout/internal/logging"
	"github.com/Skotchmaster/checkout/internal/models"
	"github.com/Skotchmaster/checkout/internal/service"
	"github.com/Skotchmaster/checkout/internal/transport"
)

type CategoryHandler struct {
	Svc *service.CategoryService
}

func (h *CategoryHandler) GetCategory(c echo.Context) error {
	ctx := c.Request().Context()

	categoryID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	category, err := h.Svc.Get(ctx, categoryID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, category)
}

func (h *CategoryHandler) GetCategories(c echo.Context) error {
	categories, err := h.Svc.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, categories)
}

// GetCategoryTree returns the pre-order subtree rooted at the category.
func (h *CategoryHandler) GetCategoryTree(c echo.Context) error {
	ctx := c.Request().Context()

	categoryID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	tree, err := h.Svc.Subtree(ctx, categoryID)
	if err != nil {
		return httpError(err)
	}
	if len(tree) == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "category not found")
	}
	return c.JSON(http.StatusOK, tree)
}

func (h *CategoryHandler) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "category.create")

	var req transport.CreateCategoryRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_category_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name required")
	}

	category, err := h.Svc.Create(ctx, &models.Category{
		Name:        req.Name,
		Description: req.Description,
		ParentID:    req.ParentID,
	})
	if err != nil {
		he := httpError(err)
		l.Warn("create_category_error", "status", he.Code, "error", err)
		return he
	}

	l.Info("create_category_success", "category_id", category.ID)
	return c.JSON(http.StatusCreated, category)
}
