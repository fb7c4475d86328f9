package router

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CleanConnect/app/controllers"
	"github.com/ManuelReschke/CleanConnect/app/repository"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/engine"
)

func TestInstallRouter_MemoryBackend(t *testing.T) {
	t.Setenv("CACHE_DRIVER", "memory")
	t.Setenv("API_RATE_LIMIT", "2")
	controllers.InitializeEngine(engine.NewService(repository.NewMemoryRepositories()))

	app := fiber.New()
	InstallRouter(app)

	for i := 0; i < 2; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/health", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}

func TestUnknownV1RouteIsJSON404(t *testing.T) {
	t.Setenv("CACHE_DRIVER", "memory")
	controllers.InitializeEngine(engine.NewService(repository.NewMemoryRepositories()))

	app := fiber.New()
	InstallRouter(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/api/v1/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
}
