package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CleanConnect/internal/pkg/report"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/usercontext"
)

// HandleExportReport downloads the caller's contributions as CSV.
// GET /api/v1/me/contributions/report.csv
func HandleExportReport(c *fiber.Ctx) error {
	r, err := getEngine().ExportReport(c.UserContext(), usercontext.GetIdentity(c))
	if err != nil {
		return respondError(c, err)
	}

	c.Set(fiber.HeaderContentType, report.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", r.Filename))
	if r.ArchiveKey != "" {
		c.Set("X-Report-Archive-Key", r.ArchiveKey)
	}
	return c.Send(r.Body)
}
