package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/CleanConnect/internal/pkg/issues"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/usercontext"
)

type listIssuesQuery struct {
	Search   string `query:"search"`
	Category string `query:"category"`
	Page     int    `query:"page"`
	Limit    int    `query:"limit"`
}

type statusRequest struct {
	Status string `json:"status"`
}

// HandleListIssues returns one page of issues.
// GET /api/v1/issues?search=&category=&page=&limit=
func HandleListIssues(c *fiber.Ctx) error {
	var q listIssuesQuery
	if err := c.QueryParser(&q); err != nil {
		return badRequest(c, "page and limit must be numbers")
	}

	page, err := getEngine().ListIssues(c.UserContext(), issues.ListQuery{
		Search:   strings.TrimSpace(q.Search),
		Category: strings.TrimSpace(q.Category),
		Page:     q.Page,
		PageSize: q.Limit,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// HandleRecentIssues returns the newest issues.
func HandleRecentIssues(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", issues.DefaultRecentLimit)
	items, err := getEngine().RecentIssues(c.UserContext(), limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"issues": items})
}

// HandleGetIssue returns an issue with its funding snapshot and contributions.
func HandleGetIssue(c *fiber.Ctx) error {
	detail, err := getEngine().GetIssue(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(detail)
}

// HandleReportIssue creates an issue for the signed-in caller.
func HandleReportIssue(c *fiber.Ctx) error {
	var draft issues.Draft
	if err := c.BodyParser(&draft); err != nil {
		return badRequest(c, "invalid request body")
	}

	issue, err := getEngine().ReportIssue(c.UserContext(), usercontext.GetIdentity(c), draft)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(issue)
}

// HandleSetIssueStatus changes the status of one of the caller's issues.
func HandleSetIssueStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	issue, err := getEngine().SetIssueStatus(c.UserContext(), usercontext.GetIdentity(c), c.Params("id"), req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(issue)
}

// HandleDeleteIssue deletes one of the caller's issues with its contributions.
func HandleDeleteIssue(c *fiber.Ctx) error {
	if err := getEngine().DeleteIssue(c.UserContext(), usercontext.GetIdentity(c), c.Params("id")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleMyIssues lists the issues reported by the caller.
func HandleMyIssues(c *fiber.Ctx) error {
	items, err := getEngine().MyIssues(c.UserContext(), usercontext.GetIdentity(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"issues": items})
}
