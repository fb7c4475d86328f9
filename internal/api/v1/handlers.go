package apiv1

import (
	"time"

	"github.com/gofiber/fiber/v2"

	// Delegate to controllers to keep behavior consistent
	"github.com/ManuelReschke/CleanConnect/app/controllers"
)

// APIServer implements ServerInterface
type APIServer struct {
	startedAt time.Time
}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{startedAt: time.Now()}
}

// GetHealth reports that the service is up.
func (s *APIServer) GetHealth(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(Health{
		Status: "ok",
		Uptime: time.Since(s.startedAt).Round(time.Second).String(),
	})
}

func (s *APIServer) ListIssues(c *fiber.Ctx) error {
	return controllers.HandleListIssues(c)
}

func (s *APIServer) ListRecentIssues(c *fiber.Ctx) error {
	return controllers.HandleRecentIssues(c)
}

func (s *APIServer) GetIssue(c *fiber.Ctx, id string) error {
	return controllers.HandleGetIssue(c)
}

// CreateIssue requires an identity; the router attaches RequireIdentity.
func (s *APIServer) CreateIssue(c *fiber.Ctx) error {
	return controllers.HandleReportIssue(c)
}

func (s *APIServer) SetIssueStatus(c *fiber.Ctx, id string) error {
	return controllers.HandleSetIssueStatus(c)
}

func (s *APIServer) DeleteIssue(c *fiber.Ctx, id string) error {
	return controllers.HandleDeleteIssue(c)
}

func (s *APIServer) ListIssueContributions(c *fiber.Ctx, id string) error {
	return controllers.HandleListContributions(c)
}

func (s *APIServer) CreateContribution(c *fiber.Ctx, id string) error {
	return controllers.HandleContribute(c)
}

func (s *APIServer) ListMyIssues(c *fiber.Ctx) error {
	return controllers.HandleMyIssues(c)
}

func (s *APIServer) ListMyContributions(c *fiber.Ctx) error {
	return controllers.HandleMyContributions(c)
}

func (s *APIServer) ExportMyContributions(c *fiber.Ctx) error {
	return controllers.HandleExportReport(c)
}

func (s *APIServer) GetCommunityStats(c *fiber.Ctx) error {
	return controllers.HandleCommunityStats(c)
}

func (s *APIServer) GetUserStats(c *fiber.Ctx, email string) error {
	return controllers.HandleUserStats(c)
}
