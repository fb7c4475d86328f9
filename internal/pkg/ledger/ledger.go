// Package ledger records contributions. The ledger is append-only and is the
// single source of truth for how much an issue has raised.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CleanConnect/app/models"
	"github.com/ManuelReschke/CleanConnect/app/repository"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/apperror"
)

const maxMessageLength = 1000

// Service appends to and reads from the contribution ledger.
type Service struct {
	contributions repository.ContributionRepository
	issues        repository.IssueRepository
}

// NewService creates a ledger service from injected repositories.
func NewService(contributions repository.ContributionRepository, issues repository.IssueRepository) *Service {
	return &Service{contributions: contributions, issues: issues}
}

// Record appends a contribution for the authenticated contributor.
func (s *Service) Record(ctx context.Context, contributor models.Identity, issueID string, amount int64, message string) (*models.Contribution, error) {
	return s.RecordAs(ctx, "", contributor, issueID, amount, message)
}

// RecordAs is Record with a caller chosen contribution id. An empty id is
// generated on insert.
func (s *Service) RecordAs(ctx context.Context, id string, contributor models.Identity, issueID string, amount int64, message string) (*models.Contribution, error) {
	if contributor.IsAnonymous() {
		return nil, apperror.Authentication("sign in to contribute")
	}
	if amount <= 0 {
		return nil, apperror.Validation("amount must be a positive whole number")
	}
	if amount > models.MaxContributionAmount {
		return nil, apperror.Validation("amount must not exceed %d", models.MaxContributionAmount)
	}
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) > maxMessageLength {
		return nil, apperror.Validation("message must be at most %d characters", maxMessageLength)
	}

	c := &models.Contribution{
		ID:               id,
		IssueID:          issueID,
		ContributorEmail: models.NormalizeEmail(contributor.Email),
		ContributorName:  strings.TrimSpace(contributor.DisplayName),
		ContributorPhoto: strings.TrimSpace(contributor.PhotoURL),
		Amount:           amount,
		Message:          message,
	}
	if err := c.Validate(); err != nil {
		return nil, apperror.FromValidator(err)
	}

	if err := s.contributions.Append(ctx, c); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("issue %s not found", issueID)
		}
		return nil, fmt.Errorf("append contribution: %w", err)
	}

	log.Infof("[Ledger] Recorded contribution %s of %d to issue %s", c.ID, c.Amount, c.IssueID)
	return c, nil
}

// Get returns a single contribution.
func (s *Service) Get(ctx context.Context, id string) (*models.Contribution, error) {
	c, err := s.contributions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("contribution %s not found", id)
		}
		return nil, fmt.Errorf("load contribution: %w", err)
	}
	return c, nil
}

// ListForIssue returns an issue's contributions in acceptance order.
func (s *Service) ListForIssue(ctx context.Context, issueID string) ([]models.Contribution, error) {
	if _, err := s.issues.GetByID(ctx, issueID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("issue %s not found", issueID)
		}
		return nil, fmt.Errorf("load issue: %w", err)
	}
	contributions, err := s.contributions.ListByIssue(ctx, issueID)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	return contributions, nil
}

// ListForContributor returns everything one contributor has donated, oldest first.
func (s *Service) ListForContributor(ctx context.Context, email string) ([]models.Contribution, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, apperror.Validation("email is required")
	}
	contributions, err := s.contributions.ListByContributor(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	return contributions, nil
}
