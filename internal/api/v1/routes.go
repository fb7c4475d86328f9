package apiv1

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CleanConnect/internal/pkg/middleware"
)

// ServerInterface is the set of operations served under /api/v1.
type ServerInterface interface {
	GetHealth(c *fiber.Ctx) error
	ListIssues(c *fiber.Ctx) error
	ListRecentIssues(c *fiber.Ctx) error
	GetIssue(c *fiber.Ctx, id string) error
	CreateIssue(c *fiber.Ctx) error
	SetIssueStatus(c *fiber.Ctx, id string) error
	DeleteIssue(c *fiber.Ctx, id string) error
	ListIssueContributions(c *fiber.Ctx, id string) error
	CreateContribution(c *fiber.Ctx, id string) error
	ListMyIssues(c *fiber.Ctx) error
	ListMyContributions(c *fiber.Ctx) error
	ExportMyContributions(c *fiber.Ctx) error
	GetCommunityStats(c *fiber.Ctx) error
	GetUserStats(c *fiber.Ctx, email string) error
}

func withParam(name string, fn func(c *fiber.Ctx, value string) error) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return fn(c, c.Params(name))
	}
}

// RegisterHandlers installs every operation on router. Write operations and
// the /me routes require an identity.
func RegisterHandlers(router fiber.Router, si ServerInterface) {
	auth := middleware.RequireIdentity

	router.Get("/health", si.GetHealth)

	// static segment before :id
	router.Get("/issues/recent", si.ListRecentIssues)
	router.Get("/issues", si.ListIssues)
	router.Post("/issues", auth, si.CreateIssue)
	router.Get("/issues/:id", withParam("id", si.GetIssue))
	router.Patch("/issues/:id/status", auth, withParam("id", si.SetIssueStatus))
	router.Delete("/issues/:id", auth, withParam("id", si.DeleteIssue))
	router.Get("/issues/:id/contributions", withParam("id", si.ListIssueContributions))
	router.Post("/issues/:id/contributions", auth, withParam("id", si.CreateContribution))

	me := router.Group("/me", auth)
	me.Get("/issues", si.ListMyIssues)
	me.Get("/contributions", si.ListMyContributions)
	me.Get("/contributions/report.csv", si.ExportMyContributions)

	router.Get("/stats/community", si.GetCommunityStats)
	router.Get("/stats/users/:email", withParam("email", si.GetUserStats))
}
