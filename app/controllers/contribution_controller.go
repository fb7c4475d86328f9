package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CleanConnect/internal/pkg/usercontext"
)

// HeaderIdempotencyKey lets clients retry a donation safely.
const HeaderIdempotencyKey = "Idempotency-Key"

const maxIdempotencyKeyLength = 255

type contributeRequest struct {
	Amount  int64  `json:"amount"`
	Message string `json:"message"`
}

// HandleListContributions returns the contributions of an issue, oldest first.
func HandleListContributions(c *fiber.Ctx) error {
	items, err := getEngine().ListContributions(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"contributions": items})
}

// HandleContribute records a donation from the caller.
// Responds 201 for a new contribution and 200 when an Idempotency-Key replays one.
func HandleContribute(c *fiber.Ctx) error {
	var req contributeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	key := strings.TrimSpace(c.Get(HeaderIdempotencyKey))
	if len(key) > maxIdempotencyKeyLength {
		return badRequest(c, "Idempotency-Key is too long")
	}

	res, err := getEngine().Contribute(c.UserContext(), usercontext.GetIdentity(c), c.Params("id"), req.Amount, req.Message, key)
	if err != nil {
		return respondError(c, err)
	}

	status := fiber.StatusCreated
	if res.Replayed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(res)
}

// HandleMyContributions lists the caller's contributions.
func HandleMyContributions(c *fiber.Ctx) error {
	items, err := getEngine().MyContributions(c.UserContext(), usercontext.GetIdentity(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"contributions": items})
}
