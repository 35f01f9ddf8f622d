package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/checkout/internal/jwtmiddleware"
	"github.com/Skotchmaster/checkout/internal/logging"
	"github.com/Skotchmaster/checkout/internal/service"
	"github.com/Skotchmaster/checkout/internal/transport"
)

type PaymentHandler struct {
	Svc *service.PaymentService
}

func (h *PaymentHandler) InitiatePayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.initiate")

	if _, err := jwtmiddleware.UserID(c); err != nil {
		return err
	}

	var req transport.InitiatePaymentRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("initiate_payment_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	result, err := h.Svc.Initiate(ctx, req.OrderID, req.Provider)
	if err != nil {
		he := httpError(err)
		l.Warn("initiate_payment_error", "status", he.Code, "order_id", req.OrderID, "provider", req.Provider, "error", err)
		return he
	}

	l.Info("initiate_payment_success", "order_id", req.OrderID, "provider", req.Provider, "payment_id", result.PaymentID)
	return c.JSON(http.StatusCreated, result)
}

func (h *PaymentHandler) ConfirmPayment(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.confirm")

	if _, err := jwtmiddleware.UserID(c); err != nil {
		return err
	}

	var req transport.ConfirmPaymentRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("confirm_payment_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	pay, err := h.Svc.Confirm(ctx, req.TransactionID, req.Provider)
	if err != nil {
		he := httpError(err)
		l.Warn("confirm_payment_error", "status", he.Code, "transaction_id", req.TransactionID, "error", err)
		return he
	}
	if pay == nil {
		return echo.NewHTTPError(http.StatusNotFound, "payment not found")
	}

	l.Info("confirm_payment_success", "payment_id", pay.ID, "payment_status", pay.Status)
	return c.JSON(http.StatusOK, pay)
}

func (h *PaymentHandler) GetPayment(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := jwtmiddleware.UserID(c)
	if err != nil {
		return err
	}
	paymentID, err := parseID(c, "id")
	if err != nil {
		return err
	}

	pay, err := h.Svc.Get(ctx, paymentID, userID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pay)
}
