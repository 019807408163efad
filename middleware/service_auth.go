package middleware

import (
	"strings"

	"taskforge/utils"

	"github.com/gofiber/fiber/v2"
)

// ServiceProtected guards endpoints that act with privileged service-level
// credentials: the engine trigger and the collaborator write endpoints.
// Callers present a Bearer token minted with the shared service secret.
func ServiceProtected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization required",
			})
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization format",
			})
		}

		claims, err := utils.ParseServiceToken(tokenParts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals("service", claims.Service)
		c.Locals("orgID", claims.OrgID)

		return c.Next()
	}
}
