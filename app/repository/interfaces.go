package repository

import (
	"context"

	"github.com/ManuelReschke/CleanConnect/app/models"
	"gorm.io/gorm"
)

// IssueFilter narrows an issue listing. Empty fields do not filter.
type IssueFilter struct {
	Search        string
	Category      string
	ReporterEmail string
}

// IssueRepository defines the interface for issue-related database operations.
// Lookups of unknown ids return gorm.ErrRecordNotFound.
type IssueRepository interface {
	Create(ctx context.Context, issue *models.Issue) error
	GetByID(ctx context.Context, id string) (*models.Issue, error)
	List(ctx context.Context, filter IssueFilter, offset, limit int) ([]models.Issue, int64, error)
	Recent(ctx context.Context, limit int) ([]models.Issue, error)
	// UpdateStatus writes status only if the stored version still equals
	// expectedVersion. It reports false when another writer got there first.
	UpdateStatus(ctx context.Context, id string, expectedVersion uint, status string) (bool, error)
	// Delete removes the issue together with all of its contributions.
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status string) (int64, error)
	CountByCategory(ctx context.Context) ([]models.CategoryCount, error)
	// CountByReporter counts issues reported by email; an empty status counts all.
	CountByReporter(ctx context.Context, email, status string) (int64, error)
	// ClearReconcile drops the pending resolution mark if it does not point past
	// uptoSeq. A contribution appended after the check keeps its mark.
	ClearReconcile(ctx context.Context, id string, uptoSeq int64) error
	// ListPendingReconcile returns issues whose resolution check is still pending, oldest first.
	ListPendingReconcile(ctx context.Context, limit int) ([]models.Issue, error)
}

// ContributionRepository defines the interface for ledger storage.
// Contributions are never updated once appended.
type ContributionRepository interface {
	// Append stores c after locking its issue. It assigns Seq and IssueTitle,
	// marks the issue for a resolution check and returns gorm.ErrRecordNotFound
	// when the issue does not exist.
	Append(ctx context.Context, c *models.Contribution) error
	GetByID(ctx context.Context, id string) (*models.Contribution, error)
	ListByIssue(ctx context.Context, issueID string) ([]models.Contribution, error)
	ListByContributor(ctx context.Context, email string) ([]models.Contribution, error)
	Totals(ctx context.Context) (models.ContributionTotals, error)
	TotalsByContributor(ctx context.Context, email string) (models.ContributionTotals, error)
}

// Repositories contains all repository instances
type Repositories struct {
	Issue        IssueRepository
	Contribution ContributionRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Issue:        NewIssueRepository(db),
		Contribution: NewContributionRepository(db),
	}
}
