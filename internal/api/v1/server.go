package apiv1

import (
	"github.com/gofiber/fiber/v2"
)

// Pong defines model for Pong.
type Pong struct {
	Ping string `json:"ping"`
}

// CheckSubscriptionRequest defines model for CheckSubscriptionRequest.
type CheckSubscriptionRequest struct {
	Email string `json:"email"`
}

// GetCheckSubscriptionParams defines parameters for GetCheckSubscription.
type GetCheckSubscriptionParams struct {
	Email string `query:"email"`
}

// GetAdminUsersParams defines parameters for GetAdminUsers.
type GetAdminUsersParams struct {
	Email string `query:"email"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// (GET /ping)
	GetPing(c *fiber.Ctx) error
	// (POST /webhooks/stripe)
	PostStripeWebhook(c *fiber.Ctx) error
	// (OPTIONS /webhooks/stripe)
	OptionsStripeWebhook(c *fiber.Ctx) error
	// (GET /check-subscription)
	GetCheckSubscription(c *fiber.Ctx, params GetCheckSubscriptionParams) error
	// (POST /check-subscription)
	PostCheckSubscription(c *fiber.Ctx) error
	// (OPTIONS /check-subscription)
	OptionsCheckSubscription(c *fiber.Ctx) error
	// (GET /admin/users)
	GetAdminUsers(c *fiber.Ctx, params GetAdminUsersParams) error
}

// Guards are the per-area middlewares mounted in front of the handlers.
type Guards struct {
	Webhook []fiber.Handler
	Query   []fiber.Handler
	Admin   []fiber.Handler
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler ServerInterface
}

// GetCheckSubscription operation middleware
func (siw *ServerInterfaceWrapper) GetCheckSubscription(c *fiber.Ctx) error {
	var params GetCheckSubscriptionParams
	params.Email = c.Query("email")
	return siw.Handler.GetCheckSubscription(c, params)
}

// GetAdminUsers operation middleware
func (siw *ServerInterfaceWrapper) GetAdminUsers(c *fiber.Ctx) error {
	var params GetAdminUsersParams
	params.Email = c.Query("email")
	return siw.Handler.GetAdminUsers(c, params)
}

// RegisterHandlers creates http.Handler with routing matching the OpenAPI document.
func RegisterHandlers(router fiber.Router, si ServerInterface, guards Guards) {
	wrapper := ServerInterfaceWrapper{
		Handler: si,
	}

	router.Get("/ping", si.GetPing)

	router.Post("/webhooks/stripe", chain(guards.Webhook, si.PostStripeWebhook)...)
	router.Options("/webhooks/stripe", chain(guards.Webhook, si.OptionsStripeWebhook)...)

	router.Get("/check-subscription", chain(guards.Query, wrapper.GetCheckSubscription)...)
	router.Post("/check-subscription", chain(guards.Query, si.PostCheckSubscription)...)
	router.Options("/check-subscription", chain(guards.Query, si.OptionsCheckSubscription)...)

	router.Get("/admin/users", chain(guards.Admin, wrapper.GetAdminUsers)...)
}

func chain(guards []fiber.Handler, h fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(guards)+1)
	out = append(out, guards...)
	return append(out, h)
}
