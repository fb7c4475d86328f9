// Package issues stores community-reported issues and enforces that only the
// reporter may change or delete them.
package issues

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CleanConnect/app/models"
	"github.com/ManuelReschke/CleanConnect/app/repository"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/apperror"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/resolution"
)

const (
	DefaultPageSize    = 12
	MaxPageSize        = 100
	DefaultRecentLimit = 6
)

// Draft holds the reporter supplied fields of a new issue.
type Draft struct {
	Title        string `json:"title"`
	Category     string `json:"category"`
	Location     string `json:"location"`
	Description  string `json:"description"`
	ImageURL     string `json:"imageUrl"`
	TargetAmount int64  `json:"targetAmount"`
}

// ListQuery selects one page of issues. Page is 1-indexed.
type ListQuery struct {
	Search   string
	Category string
	Page     int
	PageSize int
}

// Page is one page of a listing together with the size of the full result.
type Page struct {
	Items      []models.Issue `json:"issues"`
	TotalCount int64          `json:"totalCount"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

// Service is the issue record store.
type Service struct {
	repo    repository.IssueRepository
	machine *resolution.Machine
}

// NewService creates an issue service. Status changes are delegated to machine.
func NewService(repo repository.IssueRepository, machine *resolution.Machine) *Service {
	return &Service{repo: repo, machine: machine}
}

// Create stores a new issue reported by reporter. New issues always start Open.
func (s *Service) Create(ctx context.Context, reporter models.Identity, draft Draft) (*models.Issue, error) {
	if reporter.IsAnonymous() {
		return nil, apperror.Authentication("sign in to report an issue")
	}

	issue := &models.Issue{
		Title:         strings.TrimSpace(draft.Title),
		Category:      strings.TrimSpace(draft.Category),
		Location:      strings.TrimSpace(draft.Location),
		Description:   strings.TrimSpace(draft.Description),
		ImageURL:      strings.TrimSpace(draft.ImageURL),
		TargetAmount:  draft.TargetAmount,
		Status:        models.IssueStatusOpen,
		ReporterEmail: models.NormalizeEmail(reporter.Email),
		ReporterName:  strings.TrimSpace(reporter.DisplayName),
	}
	if err := issue.Validate(); err != nil {
		return nil, apperror.FromValidator(err)
	}

	if err := s.repo.Create(ctx, issue); err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}

	log.Infof("[Issues] Issue %s reported by %s", issue.ID, issue.ReporterEmail)
	return issue, nil
}

// Get returns the issue with the given id.
func (s *Service) Get(ctx context.Context, id string) (*models.Issue, error) {
	issue, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("issue %s not found", id)
		}
		return nil, fmt.Errorf("load issue: %w", err)
	}
	return issue, nil
}

// authorize loads the issue and checks that requester reported it.
func (s *Service) authorize(ctx context.Context, requester models.Identity, id string) (*models.Issue, error) {
	if requester.IsAnonymous() {
		return nil, apperror.Authentication("sign in to manage issues")
	}
	issue, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if models.NormalizeEmail(requester.Email) != issue.ReporterEmail {
		return nil, apperror.Authorization("only the reporter can modify this issue")
	}
	return issue, nil
}

// SetStatus lets the reporter set any status, including reopening a resolved issue.
func (s *Service) SetStatus(ctx context.Context, requester models.Identity, id, status string) (*models.Issue, error) {
	if !models.IsValidIssueStatus(status) {
		return nil, apperror.Validation("status must be one of %q, %q or %q",
			models.IssueStatusOpen, models.IssueStatusInProgress, models.IssueStatusResolved)
	}
	if _, err := s.authorize(ctx, requester, id); err != nil {
		return nil, err
	}

	issue, _, err := s.machine.Transition(ctx, id, status, resolution.CauseManual)
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// Delete removes the issue and all of its contributions.
func (s *Service) Delete(ctx context.Context, requester models.Identity, id string) error {
	if _, err := s.authorize(ctx, requester, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("issue %s not found", id)
		}
		return fmt.Errorf("delete issue: %w", err)
	}

	log.Infof("[Issues] Issue %s deleted by its reporter", id)
	return nil
}

// List returns one page of issues, newest first. A page past the end is empty
// but still reports the true total.
func (s *Service) List(ctx context.Context, q ListQuery) (*Page, error) {
	if q.Page == 0 {
		q.Page = 1
	}
	if q.PageSize == 0 {
		q.PageSize = DefaultPageSize
	}
	if q.Page < 1 {
		return nil, apperror.Validation("page must be at least 1")
	}
	if q.PageSize < 1 || q.PageSize > MaxPageSize {
		return nil, apperror.Validation("pageSize must be between 1 and %d", MaxPageSize)
	}

	filter := repository.IssueFilter{Search: q.Search, Category: strings.TrimSpace(q.Category)}
	offset := (q.Page - 1) * q.PageSize
	items, total, err := s.repo.List(ctx, filter, offset, q.PageSize)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	if items == nil {
		items = []models.Issue{}
	}

	return &Page{
		Items:      items,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
		TotalPages: int((total + int64(q.PageSize) - 1) / int64(q.PageSize)),
	}, nil
}

// Recent returns the newest issues.
func (s *Service) Recent(ctx context.Context, limit int) ([]models.Issue, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = DefaultRecentLimit
	}
	items, err := s.repo.Recent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("recent issues: %w", err)
	}
	if items == nil {
		items = []models.Issue{}
	}
	return items, nil
}

// ListByReporter returns every issue the given person reported, newest first.
func (s *Service) ListByReporter(ctx context.Context, email string) ([]models.Issue, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, apperror.Validation("email is required")
	}
	items, _, err := s.repo.List(ctx, repository.IssueFilter{ReporterEmail: email}, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("list issues by reporter: %w", err)
	}
	return items, nil
}
