package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/ManuelReschke/BizDesk/app/controllers"
)

// APIServer implements the ServerInterface
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// PostStripeWebhook receives signed Stripe events.
// The signature is verified inside the controller against the raw body.
func (s *APIServer) PostStripeWebhook(c *fiber.Ctx) error {
	return controllers.HandleStripeWebhook(c)
}

// OptionsStripeWebhook answers CORS preflights without processing anything.
func (s *APIServer) OptionsStripeWebhook(c *fiber.Ctx) error {
	return controllers.HandleStripeWebhook(c)
}

// GetCheckSubscription reports the entitlement for ?email=.
// Security is enforced via bearer key middleware attached in the router.
func (s *APIServer) GetCheckSubscription(c *fiber.Ctx, params GetCheckSubscriptionParams) error {
	return controllers.HandleCheckSubscription(c)
}

// PostCheckSubscription reports the entitlement for a JSON {email} body.
func (s *APIServer) PostCheckSubscription(c *fiber.Ctx) error {
	return controllers.HandleCheckSubscription(c)
}

func (s *APIServer) OptionsCheckSubscription(c *fiber.Ctx) error {
	return controllers.HandleCheckSubscription(c)
}

// GetAdminUsers lists accounts matching ?email= with their entitlement records.
func (s *APIServer) GetAdminUsers(c *fiber.Ctx, params GetAdminUsersParams) error {
	return controllers.HandleAdminUsers(c)
}
