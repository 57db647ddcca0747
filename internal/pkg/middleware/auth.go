package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"

	"github.com/ManuelReschke/BizDesk/internal/pkg/constants"
	"github.com/ManuelReschke/BizDesk/internal/pkg/gate"
	"github.com/ManuelReschke/BizDesk/internal/pkg/usercontext"
)

// RequireAuth ensures a logged-in session and returns JSON 401 otherwise.
func RequireAuth(c *fiber.Ctx) error {
	v := c.Locals(usercontext.KeyFromProtected)
	loggedIn := false
	if b, ok := v.(bool); ok {
		loggedIn = b
	}
	if !loggedIn {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   "unauthorized",
			"message": "login required",
		})
	}
	return c.Next()
}

// RequireEntitlement guards a route with the cached gate snapshot. It never
// queries the entitlement service itself.
func RequireEntitlement(gates *gate.Registry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		uc := usercontext.GetUserContext(c)
		if !uc.IsLoggedIn {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error":   "unauthorized",
				"message": "login required",
			})
		}

		g, ok := gates.Lookup(uc.SessionID)
		if !ok {
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"loading": true})
		}
		snap := g.Snapshot()

		switch {
		case snap.Err != nil:
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":     "entitlement_check_failed",
				"retryable": true,
			})
		case snap.HasActiveSubscription:
			return c.Next()
		case snap.Loading:
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"loading": true})
		default:
			fm := fiber.Map{
				"type":    "error",
				"message": "An active subscription is required to access this page",
			}
			return flash.WithError(c, fm).Redirect(constants.RouteSubscriptionRequired)
		}
	}
}
