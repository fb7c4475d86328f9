package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/CleanConnect/app/models"
)

func newIssue(title, category string) *models.Issue {
	return &models.Issue{
		Title:         title,
		Category:      category,
		Location:      "Main Street",
		Description:   "needs fixing",
		TargetAmount:  100,
		ReporterEmail: "owner@example.com",
	}
}

func TestMemoryIssueRepository_CreateDefaults(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()

	issue := newIssue("Overflowing bin", "Garbage")
	require.NoError(t, repos.Issue.Create(ctx, issue))

	assert.NotEmpty(t, issue.ID)
	assert.Equal(t, models.IssueStatusOpen, issue.Status)
	assert.Equal(t, uint(1), issue.Version)
	assert.False(t, issue.CreatedAt.IsZero())

	_, err := repos.Issue.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMemoryIssueRepository_ListSearchAndPaging(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, repos.Issue.Create(ctx, newIssue(fmt.Sprintf("Pothole %d", i), "Potholes")))
	}
	require.NoError(t, repos.Issue.Create(ctx, newIssue("Broken bench", "Broken Public Property")))

	items, total, err := repos.Issue.List(ctx, IssueFilter{Search: "POTHOLE"}, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, items, 2)
	assert.Equal(t, "Pothole 4", items[0].Title)

	items, total, err = repos.Issue.List(ctx, IssueFilter{Search: "pothole"}, 10, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Empty(t, items)

	items, total, err = repos.Issue.List(ctx, IssueFilter{Category: "Broken Public Property"}, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Broken bench", items[0].Title)
}

func TestMemoryIssueRepository_UpdateStatusCompareAndSet(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()

	issue := newIssue("Leak", "Water Leak")
	require.NoError(t, repos.Issue.Create(ctx, issue))

	ok, err := repos.Issue.UpdateStatus(ctx, issue.ID, issue.Version, models.IssueStatusInProgress)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repos.Issue.UpdateStatus(ctx, issue.ID, issue.Version, models.IssueStatusResolved)
	require.NoError(t, err)
	assert.False(t, ok, "stale version must not win")

	stored, err := repos.Issue.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusInProgress, stored.Status)
	assert.Equal(t, uint(2), stored.Version)
}

func TestMemoryContributionRepository_AppendOrderAndCascade(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()

	issue := newIssue("Road damage", "Road Damage")
	require.NoError(t, repos.Issue.Create(ctx, issue))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repos.Contribution.Append(ctx, &models.Contribution{
				IssueID:          issue.ID,
				ContributorEmail: "donor@example.com",
				Amount:           5,
			}))
		}()
	}
	wg.Wait()

	list, err := repos.Contribution.ListByIssue(ctx, issue.ID)
	require.NoError(t, err)
	require.Len(t, list, 20)
	for i, c := range list {
		assert.Equal(t, int64(i+1), c.Seq)
		assert.Equal(t, "Road damage", c.IssueTitle)
	}

	totals, err := repos.Contribution.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ContributionTotals{Count: 20, Sum: 100}, totals)

	err = repos.Contribution.Append(ctx, &models.Contribution{IssueID: "missing", ContributorEmail: "x@example.com", Amount: 1})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, repos.Issue.Delete(ctx, issue.ID))
	list, err = repos.Contribution.ListByIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
	totals, err = repos.Contribution.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ContributionTotals{}, totals)

	assert.ErrorIs(t, repos.Issue.Delete(ctx, issue.ID), gorm.ErrRecordNotFound)
}

func TestMemoryIssueRepository_PendingReconcileMark(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()

	issue := newIssue("Leaking hydrant", "Water Leak")
	require.NoError(t, repos.Issue.Create(ctx, issue))
	quiet := newIssue("Graffiti", "Other")
	require.NoError(t, repos.Issue.Create(ctx, quiet))

	for i := 0; i < 2; i++ {
		require.NoError(t, repos.Contribution.Append(ctx, &models.Contribution{
			IssueID: issue.ID, ContributorEmail: "donor@example.com", Amount: 10,
		}))
	}

	pending, err := repos.Issue.ListPendingReconcile(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, issue.ID, pending[0].ID)
	assert.Equal(t, int64(2), pending[0].ReconcileSeq)

	// a check that only saw the first contribution keeps the mark
	require.NoError(t, repos.Issue.ClearReconcile(ctx, issue.ID, 1))
	pending, err = repos.Issue.ListPendingReconcile(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	require.NoError(t, repos.Issue.ClearReconcile(ctx, issue.ID, 2))
	pending, err = repos.Issue.ListPendingReconcile(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.NoError(t, repos.Issue.ClearReconcile(ctx, "missing", 1))
}

func TestMemoryContributionRepository_TotalsByContributor(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()

	a := newIssue("Pothole", "Potholes")
	require.NoError(t, repos.Issue.Create(ctx, a))
	b := newIssue("Broken swing", "Broken Public Property")
	require.NoError(t, repos.Issue.Create(ctx, b))

	for _, c := range []models.Contribution{
		{IssueID: a.ID, ContributorEmail: "donor@example.com", Amount: 25},
		{IssueID: b.ID, ContributorEmail: "donor@example.com", Amount: 75},
		{IssueID: b.ID, ContributorEmail: "other@example.com", Amount: 5},
	} {
		c := c
		require.NoError(t, repos.Contribution.Append(ctx, &c))
	}

	totals, err := repos.Contribution.TotalsByContributor(ctx, "donor@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.ContributionTotals{Count: 2, Sum: 100}, totals)

	totals, err = repos.Contribution.TotalsByContributor(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Zero(t, totals.Count)
	assert.Zero(t, totals.Sum)
}
