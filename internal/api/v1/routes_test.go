package apiv1

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CleanConnect/app/controllers"
	"github.com/ManuelReschke/CleanConnect/app/repository"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/engine"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/middleware"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/usercontext"
)

func newApp() *fiber.App {
	controllers.InitializeEngine(engine.NewService(repository.NewMemoryRepositories()))
	app := fiber.New()
	app.Use(middleware.IdentityMiddleware(middleware.IdentityConfig{TrustHeaders: true}))
	RegisterHandlers(app.Group("/api/v1"), NewAPIServer())
	return app
}

func TestHealth(t *testing.T) {
	resp, err := newApp().Test(httptest.NewRequest("GET", "/api/v1/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var h Health
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
	assert.Equal(t, "ok", h.Status)
}

func TestProtectedRoutesRequireIdentity(t *testing.T) {
	app := newApp()

	for _, r := range []struct{ method, path string }{
		{"POST", "/api/v1/issues"},
		{"PATCH", "/api/v1/issues/x/status"},
		{"DELETE", "/api/v1/issues/x"},
		{"POST", "/api/v1/issues/x/contributions"},
		{"GET", "/api/v1/me/issues"},
		{"GET", "/api/v1/me/contributions"},
		{"GET", "/api/v1/me/contributions/report.csv"},
	} {
		resp, err := app.Test(httptest.NewRequest(r.method, r.path, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "%s %s", r.method, r.path)
	}
}

func TestRecentIsNotAnIssueID(t *testing.T) {
	app := newApp()

	req := httptest.NewRequest("GET", "/api/v1/issues/recent", nil)
	req.Header.Set(usercontext.HeaderEmail, "someone@example.com")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/v1/issues/unknown", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
