package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CleanConnect/app/models"
)

// GetIdentity returns the caller of the request.
// Returns the anonymous identity if none is set
func GetIdentity(c *fiber.Ctx) models.Identity {
	if id, ok := c.Locals(KeyIdentity).(models.Identity); ok {
		return id
	}
	return models.Identity{}
}

// SetIdentity stores the caller for the rest of the request.
func SetIdentity(c *fiber.Ctx, id models.Identity) {
	c.Locals(KeyIdentity, id)
}

// IsLoggedIn checks if the request carries a non-anonymous identity
func IsLoggedIn(c *fiber.Ctx) bool {
	return !GetIdentity(c).IsAnonymous()
}

// GetEmail returns the normalized email of the caller, or empty string if anonymous
func GetEmail(c *fiber.Ctx) string {
	return models.NormalizeEmail(GetIdentity(c).Email)
}
