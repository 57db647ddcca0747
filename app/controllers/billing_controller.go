package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ManuelReschke/BizDesk/app/models"
	"github.com/ManuelReschke/BizDesk/internal/pkg/billing"
	"github.com/ManuelReschke/BizDesk/internal/pkg/entitlements"
	"github.com/ManuelReschke/BizDesk/internal/pkg/gate"
)

const webhookTimeout = 15 * time.Second

func setWebhookCORS(c *fiber.Ctx) {
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	c.Set(fiber.HeaderAccessControlAllowHeaders, "authorization, x-client-info, apikey, content-type, stripe-signature")
	c.Set(fiber.HeaderAccessControlAllowMethods, "POST, OPTIONS")
}

// HandleStripeWebhook verifies and reconciles one Stripe webhook delivery.
func HandleStripeWebhook(c *fiber.Ctx) error {
	setWebhookCORS(c)
	if c.Method() == fiber.MethodOptions {
		return c.Status(fiber.StatusOK).SendString("ok")
	}

	start := time.Now()
	eventType := ""
	respond := func(status int, body fiber.Map) error {
		deps.Metrics.RecordWebhook(eventType, status, time.Since(start))
		return c.Status(status).JSON(body)
	}

	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))

	if err := billing.VerifyWebhookSignature(rawBody, signature, deps.WebhookSecret); err != nil {
		if errors.Is(err, billing.ErrMissingSignature) {
			log.Warn().Msg("[Webhook] Missing Stripe signature")
			return respond(fiber.StatusBadRequest, fiber.Map{"error": "Missing signature"})
		}
		log.Warn().Err(err).Msg("[Webhook] Stripe signature verification failed")
		return respond(fiber.StatusBadRequest, fiber.Map{"error": "Invalid signature"})
	}

	ev, err := billing.ParseEvent(rawBody)
	if err != nil {
		log.Warn().Err(err).Msg("[Webhook] Malformed Stripe event")
		return respond(fiber.StatusBadRequest, fiber.Map{"error": "Invalid payload"})
	}
	eventType = ev.Type

	ctx, cancel := context.WithTimeout(c.UserContext(), webhookTimeout)
	defer cancel()

	svc := deps.Billing
	created, stored, recErr := svc.RecordWebhookEvent(ctx, billing.WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: ev.ID,
		EventType:       ev.Type,
		PayloadJSON:     string(rawBody),
		SignatureValid:  true,
	})
	if recErr != nil {
		// the event log is an audit trail; reconciliation proceeds without it
		log.Warn().Err(recErr).Str("event_id", ev.ID).Msg("[Webhook] Failed to record event")
		stored = nil
	} else if !created && stored.Succeeded() {
		log.Info().Str("event_id", ev.ID).Str("type", ev.Type).Msg("[Webhook] Duplicate delivery acknowledged")
		return respond(fiber.StatusOK, fiber.Map{"received": true})
	}

	if created && deps.Archive != nil {
		if key, err := deps.Archive.Archive(ctx, models.BillingProviderStripe, ev.ID, rawBody); err != nil {
			log.Warn().Err(err).Str("event_id", ev.ID).Msg("[Webhook] Failed to archive payload")
		} else {
			log.Debug().Str("key", key).Msg("[Webhook] Archived payload")
		}
	}

	markProcessed := func(procErr error) {
		if stored == nil {
			return
		}
		if err := svc.MarkWebhookProcessed(ctx, stored.ID, procErr); err != nil {
			log.Warn().Err(err).Uint("webhook_event_id", stored.ID).Msg("[Webhook] Failed to mark event processed")
		}
	}

	if !billing.IsHandledEventType(ev.Type) {
		log.Debug().Str("type", ev.Type).Msg("[Webhook] Ignoring unhandled event type")
		markProcessed(nil)
		return respond(fiber.StatusOK, fiber.Map{"received": true})
	}

	log.Info().Str("event_id", ev.ID).Str("type", ev.Type).Msg("[Webhook] Processing Stripe event")
	procErr := svc.HandleEvent(ctx, ev.Type, ev.Data.Object)
	markProcessed(procErr)
	if procErr != nil {
		status := billing.HTTPStatus(procErr)
		log.Error().Err(procErr).Str("event_id", ev.ID).Str("type", ev.Type).Int("status", status).
			Msg("[Webhook] Reconciliation failed")
		switch {
		case errors.Is(procErr, billing.ErrMissingEmail):
			return respond(status, fiber.Map{"error": "No customer email"})
		case errors.Is(procErr, billing.ErrMalformedPayload):
			return respond(status, fiber.Map{"error": "Invalid payload"})
		default:
			return respond(fiber.StatusInternalServerError, fiber.Map{"error": "Webhook error"})
		}
	}

	return respond(fiber.StatusOK, fiber.Map{"received": true})
}

func setQueryCORS(c *fiber.Ctx) {
	c.Set(fiber.HeaderAccessControlAllowOrigin, "*")
	c.Set(fiber.HeaderAccessControlAllowHeaders, "authorization, x-client-info, apikey, content-type")
	c.Set(fiber.HeaderAccessControlAllowMethods, "GET, POST, OPTIONS")
}

type checkSubscriptionRequest struct {
	Email string `json:"email"`
}

// HandleCheckSubscription answers whether an email currently holds an active entitlement.
func HandleCheckSubscription(c *fiber.Ctx) error {
	setQueryCORS(c)
	if c.Method() == fiber.MethodOptions {
		return c.Status(fiber.StatusOK).SendString("ok")
	}

	email := strings.TrimSpace(c.Query("email"))
	if email == "" && c.Method() == fiber.MethodPost {
		var req checkSubscriptionRequest
		if err := json.Unmarshal(c.Body(), &req); err == nil {
			email = strings.TrimSpace(req.Email)
		}
	}
	if email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email is required"})
	}

	res, err := deps.Entitlements.Check(c.UserContext(), email)
	if err != nil {
		deps.Metrics.RecordEntitlementCheck("error")
		log.Error().Err(err).Str("email", email).Msg("[Entitlements] Query failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":                 "Database error",
			"hasActiveSubscription": false,
		})
	}

	if res.HasActiveSubscription {
		deps.Metrics.RecordEntitlementCheck("entitled")
	} else {
		deps.Metrics.RecordEntitlementCheck("not_entitled")
	}
	log.Debug().Str("email", res.Email).Bool("entitled", res.HasActiveSubscription).Msg("[Entitlements] Query answered")
	return c.Status(fiber.StatusOK).JSON(res)
}

type billingStatusResponse struct {
	gate.Snapshot
	StatusLabel string `json:"statusLabel,omitempty"`
}

func billingStatus(snap gate.Snapshot) billingStatusResponse {
	resp := billingStatusResponse{Snapshot: snap}
	if snap.Subscription != nil {
		resp.StatusLabel = entitlements.FormatStatus(snap.Subscription.Status)
	}
	return resp
}

// HandleBillingStatus returns the cached entitlement snapshot for the session.
func HandleBillingStatus(c *fiber.Ctx) error {
	g, ok := currentGate(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "login required"})
	}
	return c.JSON(billingStatus(g.Snapshot()))
}

// HandleBillingRefresh re-queries entitlement, e.g. after returning from checkout.
// A not-yet-entitled answer right after payment is expected until the webhook lands.
func HandleBillingRefresh(c *fiber.Ctx) error {
	g, ok := currentGate(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "login required"})
	}
	snap := waitForGate(c.UserContext(), g, g.RefreshRequested(c.UserContext()))
	return c.JSON(billingStatus(snap))
}
