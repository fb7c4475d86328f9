package controllers

import (
	"errors"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CleanConnect/internal/pkg/apperror"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/engine"
)

var (
	engineMu      sync.RWMutex
	engineService *engine.Service
)

// InitializeEngine sets the service used by all handlers.
func InitializeEngine(e *engine.Service) {
	engineMu.Lock()
	defer engineMu.Unlock()
	engineService = e
}

func getEngine() *engine.Service {
	engineMu.RLock()
	defer engineMu.RUnlock()
	if engineService == nil {
		panic("Engine not initialized. Call InitializeEngine first.")
	}
	return engineService
}

// respondError writes err as {"error": kind, "message": ...}. Unclassified
// errors are logged and reported without detail.
func respondError(c *fiber.Ctx, err error) error {
	kind := apperror.KindOf(err)
	message := err.Error()
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if kind == apperror.KindInternal {
		log.Errorf("[API] %s %s failed: %v", c.Method(), c.Path(), err)
		message = "internal server error"
	}
	return c.Status(apperror.HTTPStatus(kind)).JSON(fiber.Map{
		"error":   string(kind),
		"message": message,
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return respondError(c, apperror.Validation("%s", message))
}
