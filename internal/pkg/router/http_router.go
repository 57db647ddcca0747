package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BizDesk/app/controllers"
	"github.com/ManuelReschke/BizDesk/internal/pkg/constants"
	"github.com/ManuelReschke/BizDesk/internal/pkg/middleware"
	"github.com/ManuelReschke/BizDesk/internal/pkg/oauth"
	"github.com/ManuelReschke/BizDesk/internal/pkg/session"
)

type HttpRouter struct {
	opts Options
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	if session.GetSessionStore() == nil {
		session.NewSessionStore()
	}

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware(h.opts.Gates))

	h.registerPublicRoutes(app)
	h.registerAuthRoutes(app)
	h.registerBillingRoutes(app)
}

func (h HttpRouter) registerPublicRoutes(app *fiber.App) {
	app.Get("/health", controllers.HandleHealth)
	app.Get(constants.RouteSubscriptionRequired, controllers.HandleSubscriptionRequired)
	app.Get(constants.RouteDashboard, middleware.RequireAuth, middleware.RequireEntitlement(h.opts.Gates), controllers.HandleDashboard)
}

func (h HttpRouter) registerAuthRoutes(app *fiber.App) {
	auth := app.Group("/auth")
	auth.Post("/login", controllers.HandleAuthLogin)
	auth.Post("/signup", controllers.HandleAuthSignup)
	auth.Post("/logout", middleware.RequireAuth, controllers.HandleAuthLogout)
	auth.Get("/session", controllers.HandleAuthSession)

	// Social OAuth
	if oauth.Enabled() {
		app.Get(constants.RouteOAuthPrefix+"/:provider", controllers.HandleOAuthBegin)
		app.Get(constants.RouteOAuthPrefix+"/:provider/callback", controllers.HandleOAuthCallback)
	}
}

func (h HttpRouter) registerBillingRoutes(app *fiber.App) {
	app.Get(constants.RouteBillingStatus, middleware.RequireAuth, controllers.HandleBillingStatus)
	app.Post(constants.RouteBillingRefresh, middleware.RequireAuth, controllers.HandleBillingRefresh)
}

func NewHttpRouter(opts Options) *HttpRouter {
	return &HttpRouter{opts: opts}
}
