package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	apiv1 "github.com/ManuelReschke/CleanConnect/internal/api/v1"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/apperror"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/env"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/middleware"
)

type ApiRouter struct {
	identity middleware.IdentityConfig
	storage  fiber.Storage
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api",
		middleware.IdentityMiddleware(h.identity),
		limiter.New(limiter.Config{
			Max:        env.GetEnvInt("API_RATE_LIMIT", 120),
			Expiration: time.Minute,
			Storage:    h.storage,
			LimitReached: func(c *fiber.Ctx) error {
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
					"error":   "rate_limited",
					"message": "too many requests",
				})
			},
		}),
	)
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group("/v1")
	apiServer := apiv1.NewAPIServer()
	apiv1.RegisterHandlers(v1, apiServer)

	v1.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   string(apperror.KindNotFound),
			"message": "route not found",
		})
	})
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{
		identity: middleware.IdentityConfigFromEnv(),
		storage:  newLimiterStorage(),
	}
}
