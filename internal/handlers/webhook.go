package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/checkout/internal/logging"
	"github.com/Skotchmaster/checkout/internal/service"
)

// WebhookHandler takes provider notifications. Responses are deliberately
// terse: the caller is unauthenticated, so no internal detail beyond a
// generic failure signal leaves this endpoint.
type WebhookHandler struct {
	Svc *service.PaymentService
}

func (h *WebhookHandler) Stripe(c echo.Context) error {
	return h.handle(c, "stripe", c.Request().Header.Get("Stripe-Signature"))
}

// Bkash webhooks carry no reliable signature; authenticity is established by
// querying the provider rather than trusting the payload.
func (h *WebhookHandler) Bkash(c echo.Context) error {
	return h.handle(c, "bkash", "")
}

func (h *WebhookHandler) handle(c echo.Context, provider, signature string) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "webhook."+provider)

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		l.Warn("webhook_error", "status", 400, "reason", "unreadable body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}

	pay, err := h.Svc.HandleWebhook(ctx, provider, payload, signature)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSignature) {
			l.Warn("webhook_rejected", "status", 400, "reason", "invalid signature")
			return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
		}
		l.Error("webhook_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "webhook processing failed")
	}

	if pay == nil {
		l.Info("webhook_ignored")
		return c.JSON(http.StatusOK, map[string]any{"status": "ignored"})
	}

	l.Info("webhook_processed", "payment_id", pay.ID, "payment_status", pay.Status)
	return c.JSON(http.StatusOK, map[string]any{"status": "success", "payment_id": pay.ID})
}
