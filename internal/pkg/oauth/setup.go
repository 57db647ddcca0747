package oauth

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"github.com/rs/zerolog/log"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/ManuelReschke/BizDesk/internal/pkg/cache"
	"github.com/ManuelReschke/BizDesk/internal/pkg/constants"
	"github.com/ManuelReschke/BizDesk/internal/pkg/env"
)

// Enabled reports whether Google sign-in is configured.
func Enabled() bool {
	return env.GetEnv("GOOGLE_KEY", "") != "" && env.GetEnv("GOOGLE_SECRET", "") != ""
}

// Setup registers the Google provider and keeps OAuth state in Redis (DB 2).
// It is safe to call multiple times; providers will just be re-registered.
func Setup() {
	if !Enabled() {
		log.Info().Msg("[OAuth] Google sign-in disabled, GOOGLE_KEY/GOOGLE_SECRET not set")
		return
	}

	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}

	goth.UseProviders(
		google.New(
			env.GetEnv("GOOGLE_KEY", ""),
			env.GetEnv("GOOGLE_SECRET", ""),
			base+constants.RouteOAuthPrefix+"/google/callback",
			"email", "profile",
		),
	)

	gothfiber.SessionStore = session.New(session.Config{
		Storage:        cache.NewStorage(cache.OAuthDB),
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !env.IsDev(),
		Expiration:     time.Hour,
	})
}
