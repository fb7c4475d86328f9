package repository

import (
	"context"
	"time"

	"github.com/ManuelReschke/CleanConnect/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// contributionRepository implements the ContributionRepository interface
type contributionRepository struct {
	db *gorm.DB
}

// NewContributionRepository creates a new contribution repository instance
func NewContributionRepository(db *gorm.DB) ContributionRepository {
	return &contributionRepository{db: db}
}

// Append inserts a contribution while holding a row lock on its issue.
// Concurrent appends to the same issue are serialised; different issues do not block each other.
func (r *contributionRepository) Append(ctx context.Context, c *models.Contribution) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var issue models.Issue
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "title").
			Where("id = ?", c.IssueID).
			First(&issue).Error; err != nil {
			return err
		}

		var lastSeq int64
		if err := tx.Model(&models.Contribution{}).
			Where("issue_id = ?", c.IssueID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&lastSeq).Error; err != nil {
			return err
		}

		c.Seq = lastSeq + 1
		c.IssueTitle = issue.Title
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now().UTC()
		}
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return tx.Model(&models.Issue{}).
			Where("id = ?", c.IssueID).
			UpdateColumn("reconcile_seq", c.Seq).Error
	})
}

// GetByID retrieves a contribution by its id
func (r *contributionRepository) GetByID(ctx context.Context, id string) (*models.Contribution, error) {
	var c models.Contribution
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByIssue returns the contributions of an issue in acceptance order
func (r *contributionRepository) ListByIssue(ctx context.Context, issueID string) ([]models.Contribution, error) {
	contributions := []models.Contribution{}
	err := r.db.WithContext(ctx).
		Where("issue_id = ?", issueID).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&contributions).Error
	return contributions, err
}

// ListByContributor returns all contributions made by email, oldest first
func (r *contributionRepository) ListByContributor(ctx context.Context, email string) ([]models.Contribution, error) {
	contributions := []models.Contribution{}
	err := r.db.WithContext(ctx).
		Where("contributor_email = ?", email).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&contributions).Error
	return contributions, err
}

// Totals returns the count and sum over the whole ledger
func (r *contributionRepository) Totals(ctx context.Context) (models.ContributionTotals, error) {
	var totals models.ContributionTotals
	err := r.db.WithContext(ctx).Model(&models.Contribution{}).
		Select("COUNT(*) as count, COALESCE(SUM(amount), 0) as sum").
		Scan(&totals).Error
	return totals, err
}

// TotalsByContributor returns the count and sum of one contributor's donations
func (r *contributionRepository) TotalsByContributor(ctx context.Context, email string) (models.ContributionTotals, error) {
	var totals models.ContributionTotals
	err := r.db.WithContext(ctx).Model(&models.Contribution{}).
		Where("contributor_email = ?", email).
		Select("COUNT(*) as count, COALESCE(SUM(amount), 0) as sum").
		Scan(&totals).Error
	return totals, err
}
