package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/checkout/internal/payment"
	"github.com/Skotchmaster/checkout/internal/service"
)

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func parseID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return uint(id), nil
}

// httpError maps the service error taxonomy to status codes. Provider
// failures come back as a generic upstream error; the raw detail stays in
// the logs and the payment row.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	case errors.Is(err, service.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrInvalidSignature),
		errors.Is(err, payment.ErrUnknownProvider):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrProvider):
		return echo.NewHTTPError(http.StatusBadGateway, "payment provider failure")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
