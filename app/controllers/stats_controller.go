package controllers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
)

// HandleCommunityStats returns system-wide statistics.
func HandleCommunityStats(c *fiber.Ctx) error {
	stats, err := getEngine().GetCommunityStats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

// HandleUserStats returns the statistics of the user in the :email param.
func HandleUserStats(c *fiber.Ctx) error {
	email, err := url.PathUnescape(c.Params("email"))
	if err != nil {
		return badRequest(c, "invalid email")
	}
	stats, err := getEngine().GetUserStats(c.UserContext(), email)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}
