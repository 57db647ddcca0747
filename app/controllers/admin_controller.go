package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// HandleAdminUsers lists users and their entitlement records by email.
func HandleAdminUsers(c *fiber.Ctx) error {
	query := strings.TrimSpace(c.Query("email"))
	if query == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Email is required"})
	}

	users, err := deps.Identity.ListUsersByEmail(c.UserContext(), query)
	if err != nil {
		log.Error().Err(err).Msg("[Admin] User lookup failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}
	return c.JSON(fiber.Map{"users": users})
}
