package repository

import (
	"context"
	"strings"

	"github.com/ManuelReschke/CleanConnect/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// issueRepository implements the IssueRepository interface
type issueRepository struct {
	db *gorm.DB
}

// NewIssueRepository creates a new issue repository instance
func NewIssueRepository(db *gorm.DB) IssueRepository {
	return &issueRepository{db: db}
}

// Create inserts a new issue
func (r *issueRepository) Create(ctx context.Context, issue *models.Issue) error {
	return r.db.WithContext(ctx).Create(issue).Error
}

// GetByID retrieves an issue by its id
func (r *issueRepository) GetByID(ctx context.Context, id string) (*models.Issue, error) {
	var issue models.Issue
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&issue).Error
	if err != nil {
		return nil, err
	}
	return &issue, nil
}

func (r *issueRepository) filtered(ctx context.Context, filter IssueFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Issue{})
	if s := strings.TrimSpace(filter.Search); s != "" {
		query = query.Where("LOWER(title) LIKE ?", "%"+escapeLike(strings.ToLower(s))+"%")
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.ReporterEmail != "" {
		query = query.Where("reporter_email = ?", filter.ReporterEmail)
	}
	return query
}

// List returns one page of matching issues, newest first, plus the total match count
func (r *issueRepository) List(ctx context.Context, filter IssueFilter, offset, limit int) ([]models.Issue, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	issues := []models.Issue{}
	if total == 0 || int64(offset) >= total {
		return issues, total, nil
	}
	query := r.filtered(ctx, filter).Order("created_at DESC").Order("id DESC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&issues).Error; err != nil {
		return nil, 0, err
	}
	return issues, total, nil
}

// Recent returns the newest issues
func (r *issueRepository) Recent(ctx context.Context, limit int) ([]models.Issue, error) {
	var issues []models.Issue
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit).Find(&issues).Error
	return issues, err
}

// UpdateStatus performs a compare-and-set on the version column
func (r *issueRepository) UpdateStatus(ctx context.Context, id string, expectedVersion uint, status string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Issue{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]interface{}{
			"status":  status,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Delete removes an issue and its contributions in one transaction
func (r *issueRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var issue models.Issue
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").Where("id = ?", id).First(&issue).Error; err != nil {
			return err
		}
		if err := tx.Where("issue_id = ?", id).Delete(&models.Contribution{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&models.Issue{}).Error
	})
}

// Count returns the total number of issues
func (r *issueRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Issue{}).Count(&count).Error
	return count, err
}

// CountByStatus returns the number of issues in the given status
func (r *issueRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Issue{}).Where("status = ?", status).Count(&count).Error
	return count, err
}

// CountByCategory groups issues by category
func (r *issueRepository) CountByCategory(ctx context.Context) ([]models.CategoryCount, error) {
	var counts []models.CategoryCount
	err := r.db.WithContext(ctx).Model(&models.Issue{}).
		Select("category, COUNT(*) as count").
		Group("category").
		Order("category ASC").
		Scan(&counts).Error
	return counts, err
}

// CountByReporter counts issues reported by email, optionally restricted to one status
func (r *issueRepository) CountByReporter(ctx context.Context, email, status string) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Issue{}).Where("reporter_email = ?", email)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err := query.Count(&count).Error
	return count, err
}

// ClearReconcile resets reconcile_seq unless a newer contribution raised it
func (r *issueRepository) ClearReconcile(ctx context.Context, id string, uptoSeq int64) error {
	return r.db.WithContext(ctx).Model(&models.Issue{}).
		Where("id = ? AND reconcile_seq > 0 AND reconcile_seq <= ?", id, uptoSeq).
		UpdateColumn("reconcile_seq", 0).Error
}

// ListPendingReconcile returns issues with an unfinished resolution check
func (r *issueRepository) ListPendingReconcile(ctx context.Context, limit int) ([]models.Issue, error) {
	var issues []models.Issue
	err := r.db.WithContext(ctx).
		Where("reconcile_seq > 0").
		Order("created_at ASC").
		Limit(limit).
		Find(&issues).Error
	return issues, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
