package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/ManuelReschke/BizDesk/internal/pkg/identity"
	"github.com/ManuelReschke/BizDesk/internal/pkg/session"
	"github.com/ManuelReschke/BizDesk/internal/pkg/usercontext"
)

type credentialsRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func parseCredentials(c *fiber.Ctx) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := c.BodyParser(&req); err != nil {
		return req, false
	}
	req.Email = strings.TrimSpace(req.Email)
	return req, req.Email != "" && req.Password != ""
}

// HandleAuthLogin signs a user in with email and password.
func HandleAuthLogin(c *fiber.Ctx) error {
	req, ok := parseCredentials(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email and password are required"})
	}

	user, err := deps.Identity.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		// notice: do not tell the client which part of the login failed
		if errors.Is(err, identity.ErrInvalidCredentials) || errors.Is(err, identity.ErrUserInactive) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "There is a problem with the login process"})
		}
		log.Error().Err(err).Msg("[Auth] Login failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	snap, err := signIn(c, user)
	if err != nil {
		log.Error().Err(err).Msg("[Auth] Session init failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "session init failed"})
	}
	return c.JSON(fiber.Map{"user": user, "entitlement": billingStatus(snap)})
}

// HandleAuthSignup creates a self-service account and signs it in.
func HandleAuthSignup(c *fiber.Ctx) error {
	req, ok := parseCredentials(c)
	if !ok {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email and password are required"})
	}
	if len(req.Password) < 8 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Password must be at least 8 characters"})
	}

	user, err := deps.Identity.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrEmailTaken) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Email already registered"})
		}
		log.Warn().Err(err).Msg("[Auth] Sign-up failed")
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid sign-up data"})
	}

	snap, err := signIn(c, user)
	if err != nil {
		log.Error().Err(err).Msg("[Auth] Session init failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "session init failed"})
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user, "entitlement": billingStatus(snap)})
}

// HandleAuthLogout clears entitlement state first, then destroys the session.
func HandleAuthLogout(c *fiber.Ctx) error {
	sess, err := session.GetSessionStore().Get(c)
	if err != nil {
		return c.JSON(fiber.Map{"message": "logged out (no sess)"})
	}

	if deps.Gates != nil {
		deps.Gates.Remove(sess.ID())
	}
	if err := sess.Destroy(); err != nil {
		log.Error().Err(err).Msg("[Auth] Session destroy failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "logout failed"})
	}

	usercontext.SetUserContext(c, usercontext.UserContext{})
	return c.JSON(fiber.Map{"message": "logged out"})
}

// HandleAuthSession returns the current session and its entitlement snapshot.
func HandleAuthSession(c *fiber.Ctx) error {
	uc := usercontext.GetUserContext(c)
	if !uc.IsLoggedIn {
		return c.JSON(fiber.Map{"session": nil})
	}
	resp := fiber.Map{"session": uc}
	if g, ok := currentGate(c); ok {
		resp["entitlement"] = billingStatus(g.Snapshot())
	}
	return c.JSON(resp)
}
