package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	apiv1 "github.com/ManuelReschke/BizDesk/internal/api/v1"
	"github.com/ManuelReschke/BizDesk/internal/pkg/middleware"
)

type ApiRouter struct {
	opts Options
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	apiServer := apiv1.NewAPIServer()
	apiv1.RegisterHandlers(v1, apiServer, apiv1.Guards{
		// Webhook deliveries stay unthrottled; Stripe retries on its own schedule.
		Query: []fiber.Handler{limiter.New(limiter.Config{Max: 120}), middleware.RequireBearerKey(h.opts.StoreServiceKey)},
		Admin: []fiber.Handler{limiter.New(), middleware.RequireBearerKey(h.opts.IdentityAdminKey)},
	})
}

func NewApiRouter(opts Options) *ApiRouter {
	return &ApiRouter{opts: opts}
}
