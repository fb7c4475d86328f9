// Package resolution owns issue status changes. Owner edits and automatic
// resolution after funding both go through the same compare-and-set transition.
package resolution

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CleanConnect/app/models"
	"github.com/ManuelReschke/CleanConnect/app/repository"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/apperror"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/funding"
)

// Cause records who asked for a transition.
type Cause string

const (
	CauseManual    Cause = "manual"
	CauseAutomatic Cause = "automatic"
)

// MaxAttempts bounds the read-decide-write cycle when a concurrent writer wins.
const MaxAttempts = 3

// Machine applies status transitions to issues.
type Machine struct {
	issues        repository.IssueRepository
	contributions repository.ContributionRepository
	maxAttempts   int
}

// NewMachine creates a state machine over the given repositories
func NewMachine(issues repository.IssueRepository, contributions repository.ContributionRepository) *Machine {
	return &Machine{
		issues:        issues,
		contributions: contributions,
		maxAttempts:   MaxAttempts,
	}
}

// decision picks the status to write for the current issue state. ok=false leaves the issue untouched.
type decision func(ctx context.Context, issue *models.Issue) (target string, ok bool, err error)

// Transition moves an issue to target. Manual transitions may set any status,
// including moving a resolved issue back. Automatic transitions may only
// resolve. Setting the status the issue already has is a no-op and reports changed=false.
func (m *Machine) Transition(ctx context.Context, issueID, target string, cause Cause) (*models.Issue, bool, error) {
	if !models.IsValidIssueStatus(target) {
		return nil, false, apperror.Validation("unknown status %q", target)
	}
	if cause == CauseAutomatic && target != models.IssueStatusResolved {
		return nil, false, apperror.Validation("automatic transitions can only resolve an issue")
	}

	return m.transition(ctx, issueID, cause, func(ctx context.Context, issue *models.Issue) (string, bool, error) {
		return target, issue.Status != target, nil
	})
}

// Evaluate resolves the issue if its funding is complete and it is not resolved yet.
// It never moves an issue away from Resolved and is safe to call repeatedly.
func (m *Machine) Evaluate(ctx context.Context, issueID string) (*models.Issue, bool, error) {
	return m.transition(ctx, issueID, CauseAutomatic, func(ctx context.Context, issue *models.Issue) (string, bool, error) {
		if issue.Status == models.IssueStatusResolved {
			return "", false, nil
		}
		ledger, err := m.contributions.ListByIssue(ctx, issue.ID)
		if err != nil {
			return "", false, fmt.Errorf("load contributions: %w", err)
		}
		if !funding.IsFundingComplete(*issue, ledger) {
			return "", false, nil
		}
		return models.IssueStatusResolved, true, nil
	})
}

// Reconcile re-runs Evaluate for an issue whose resolution check after a
// contribution did not complete. Issues without a pending check are returned
// unchanged, so an owner's manual status is never overridden without new funding.
func (m *Machine) Reconcile(ctx context.Context, issueID string) (*models.Issue, bool, error) {
	issue, err := m.load(ctx, issueID)
	if err != nil {
		return nil, false, err
	}
	if issue.ReconcileSeq == 0 {
		return issue, false, nil
	}
	return m.Evaluate(ctx, issueID)
}

func (m *Machine) load(ctx context.Context, issueID string) (*models.Issue, error) {
	issue, err := m.issues.GetByID(ctx, issueID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("issue %s not found", issueID)
		}
		return nil, fmt.Errorf("load issue %s: %w", issueID, err)
	}
	return issue, nil
}

// settle drops the pending check mark once the contributions it covers have
// been looked at. A manual transition settles too: the owner's choice wins
// over funding booked before it.
func (m *Machine) settle(ctx context.Context, issue *models.Issue) error {
	if issue.ReconcileSeq == 0 {
		return nil
	}
	if err := m.issues.ClearReconcile(ctx, issue.ID, issue.ReconcileSeq); err != nil {
		return fmt.Errorf("clear pending check of issue %s: %w", issue.ID, err)
	}
	issue.ReconcileSeq = 0
	return nil
}

func (m *Machine) transition(ctx context.Context, issueID string, cause Cause, decide decision) (*models.Issue, bool, error) {
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		issue, err := m.load(ctx, issueID)
		if err != nil {
			return nil, false, err
		}

		target, ok, err := decide(ctx, issue)
		if err != nil {
			return nil, false, err
		}
		if cause == CauseManual {
			if err := m.settle(ctx, issue); err != nil {
				return nil, false, err
			}
		}
		if !ok {
			m.settleAutomatic(ctx, issue, cause)
			return issue, false, nil
		}

		updated, err := m.issues.UpdateStatus(ctx, issueID, issue.Version, target)
		if err != nil {
			return nil, false, fmt.Errorf("update status of issue %s: %w", issueID, err)
		}
		if updated {
			log.Infof("[Resolution] Issue %s: %s -> %s (%s)", issueID, issue.Status, target, cause)
			issue.Status = target
			issue.Version++
			m.settleAutomatic(ctx, issue, cause)
			return issue, true, nil
		}

		log.Warnf("[Resolution] Issue %s changed concurrently (attempt %d/%d)", issueID, attempt, m.maxAttempts)
	}

	return nil, false, apperror.Conflict("issue %s was modified concurrently, please retry", issueID)
}

// settleAutomatic clears the mark after an automatic check. A failure only
// means the sweep looks at the issue once more.
func (m *Machine) settleAutomatic(ctx context.Context, issue *models.Issue, cause Cause) {
	if cause != CauseAutomatic {
		return
	}
	if err := m.settle(ctx, issue); err != nil {
		log.Warnf("[Resolution] %v", err)
	}
}
