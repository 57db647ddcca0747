package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/ManuelReschke/BizDesk/internal/pkg/constants"
)

// HandleOAuthBegin redirects to the provider's consent page.
func HandleOAuthBegin(c *fiber.Ctx) error {
	return gothfiber.BeginAuthHandler(c)
}

// HandleOAuthCallback completes the provider flow and logs the user in.
// The OAuth return establishes a session like any other sign-in.
func HandleOAuthCallback(c *fiber.Ctx) error {
	u, err := gothfiber.CompleteUserAuth(c)
	if err != nil {
		log.Warn().Err(err).Msg("[OAuth] Completing provider auth failed")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "OAuth failed"})
	}
	if u.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Provider did not return an email"})
	}

	user, err := deps.Identity.SignInExternal(c.UserContext(), firstNonEmpty(u.Name, u.NickName), u.Email)
	if err != nil {
		log.Error().Err(err).Str("provider", u.Provider).Msg("[OAuth] Sign-in failed")
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "sign-in failed"})
	}

	if _, err := signIn(c, user); err != nil {
		log.Error().Err(err).Msg("[OAuth] Session init failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "session init failed"})
	}
	return c.Redirect(constants.RouteDashboard, fiber.StatusSeeOther)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
