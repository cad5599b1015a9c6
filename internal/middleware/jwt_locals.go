package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/nandaputra/bidlance_be/internal/utils"
)

// AttachJWTLocals copies the verified claims into plain locals so handlers
// never touch the token themselves.
func AttachJWTLocals() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := c.Locals("claims").(*utils.Claims)
		if !ok || claims == nil {
			return fiber.ErrUnauthorized
		}

		uid := strings.TrimSpace(claims.UserID)
		role := strings.ToLower(strings.TrimSpace(claims.Role))

		if uid == "" {
			return fiber.ErrUnauthorized
		}

		c.Locals("userId", uid)
		c.Locals("role", role)

		return c.Next()
	}
}
