package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/BizDesk/internal/pkg/gate"
)

// Options carries what the routers need beyond the configured controllers.
type Options struct {
	Gates            *gate.Registry
	StoreServiceKey  string
	IdentityAdminKey string
}

func InstallRouter(app *fiber.App, opts Options) {
	// Install HttpRouter first to initialize the session store, oauth providers
	// and the UserContext middleware the API routes rely on.
	setup(app, NewHttpRouter(opts), NewApiRouter(opts))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
