package httpapi

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"

	"github.com/dmitrijs2005/photorestore/internal/common"
	"github.com/dmitrijs2005/photorestore/internal/server/models"
	"github.com/labstack/echo/v4"
)

// SignatureHeader carries hex(HMAC-SHA256(webhook secret, raw body)).
const SignatureHeader = "X-Photorestore-Signature"

const maxWebhookBody = 64 << 10

// WebhookEvent is the payment notification accepted by the webhook.
type WebhookEvent struct {
	Type       string `json:"type" validate:"required,oneof=checkout.completed"`
	CheckoutID string `json:"checkout_id" validate:"required,uuid"`
}

func (s *Server) healthz(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) trialCheck(c echo.Context) error {
	ok, err := s.trials.TrialAvailable(c.Request().Context(), c.RealIP())
	if err != nil {
		s.logger.Warn(c.Request().Context(), "trial store unavailable", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "trial store unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]bool{"available": ok})
}

// Sign returns the signature the webhook expects for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Server) webhook(c echo.Context) error {
	ctx := c.Request().Context()
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unreadable body"})
	}

	got, err := hex.DecodeString(c.Request().Header.Get(SignatureHeader))
	want, _ := hex.DecodeString(Sign(s.opts.WebhookSecret, body))
	if s.opts.WebhookSecret == "" || err != nil || !hmac.Equal(got, want) {
		s.logger.Warn(ctx, "webhook signature rejected")
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": common.ErrInvalidSignature.Error()})
	}

	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "malformed payload"})
	}
	if err := s.validate.Struct(ev); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	fulfilled, err := s.payments.FulfilCheckout(ctx, ev.CheckoutID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown checkout"})
		}
		s.logger.Error(ctx, "webhook fulfilment failed", "checkout_id", ev.CheckoutID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, map[string]bool{"fulfilled": fulfilled})
}

const checkoutHTML = `<!doctype html>
<html><head><meta charset="utf-8"><title>Checkout</title></head>
<body><h1>%s</h1><p>Checkout %s for plan %s.</p></body></html>
`

// checkoutPage is the hosted payment page. With mock checkout enabled,
// visiting it completes the payment.
func (s *Server) checkoutPage(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	checkout, err := s.payments.GetCheckout(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return c.String(http.StatusNotFound, "unknown checkout")
		}
		s.logger.Error(ctx, "checkout lookup failed", "checkout_id", id, "error", err)
		return c.String(http.StatusInternalServerError, "internal error")
	}

	if s.opts.MockCheckout && checkout.Status == models.CheckoutPending {
		if _, err := s.payments.FulfilCheckout(ctx, id); err != nil {
			s.logger.Error(ctx, "mock checkout failed", "checkout_id", id, "error", err)
			return c.String(http.StatusInternalServerError, "internal error")
		}
		checkout.Status = models.CheckoutCompleted
	}

	title := "Awaiting payment"
	if checkout.Status == models.CheckoutCompleted {
		title = "Payment complete"
	}
	return c.HTML(http.StatusOK, fmt.Sprintf(checkoutHTML, title, html.EscapeString(checkout.ID), html.EscapeString(checkout.PlanID)))
}
