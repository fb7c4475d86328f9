package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CleanConnect/internal/pkg/apperror"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/usercontext"
)

// RequireIdentity rejects anonymous callers with a JSON 401.
func RequireIdentity(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":   string(apperror.KindAuthentication),
			"message": "sign in required",
		})
	}
	return c.Next()
}
