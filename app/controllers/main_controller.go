package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/ManuelReschke/BizDesk/internal/pkg/constants"
	"github.com/ManuelReschke/BizDesk/internal/pkg/entitlements"
	"github.com/ManuelReschke/BizDesk/internal/pkg/usercontext"
)

// HandleDashboard is the protected landing page for entitled users.
func HandleDashboard(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	resp := fiber.Map{"user": uc}
	if g, ok := currentGate(c); ok {
		snap := g.Snapshot()
		if snap.Subscription != nil {
			resp["subscription"] = snap.Subscription
			resp["statusLabel"] = entitlements.FormatStatus(snap.Subscription.Status)
		}
	}
	return c.JSON(resp)
}

// HandleSubscriptionRequired is the upgrade prompt unentitled users land on.
func HandleSubscriptionRequired(c *fiber.Ctx) error {
	resp := fiber.Map{
		"subscriptionRequired": true,
		"refresh":              constants.RouteBillingRefresh,
	}
	if msg := flash.Get(c); len(msg) > 0 {
		resp["flash"] = msg
	}
	if g, ok := currentGate(c); ok {
		resp["entitlement"] = billingStatus(g.Snapshot())
	}
	return c.JSON(resp)
}

// HandleHealth reports liveness.
func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}
