package statistics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CleanConnect/app/models"
	"github.com/ManuelReschke/CleanConnect/app/repository"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/cache"
)

func seedIssue(t *testing.T, repos *repository.Repositories, title, category, reporter string) *models.Issue {
	t.Helper()
	issue := &models.Issue{
		Title:         title,
		Category:      category,
		Location:      "Town square",
		Description:   "reported by a neighbour",
		TargetAmount:  100,
		ReporterEmail: reporter,
	}
	require.NoError(t, repos.Issue.Create(context.Background(), issue))
	return issue
}

func TestCompute_EmptySystem(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	agg := NewAggregator(repos.Issue, repos.Contribution, nil)

	stats, err := agg.Compute(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(0), stats.TotalIssues)
	assert.Equal(t, int64(0), stats.ResolvedIssues)
	assert.Equal(t, int64(0), stats.TotalContributions)
	assert.Equal(t, int64(0), stats.TotalFundsRaised)
	assert.NotNil(t, stats.CategoryBreakdown)
	assert.Empty(t, stats.CategoryBreakdown)
}

func TestCompute_Totals(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	ctx := context.Background()
	a := seedIssue(t, repos, "Overflowing bins", "Garbage", "ann@example.com")
	seedIssue(t, repos, "Litter in park", "Garbage", "ann@example.com")
	c := seedIssue(t, repos, "Burst pipe", "Water Leak", "bob@example.com")

	ok, err := repos.Issue.UpdateStatus(ctx, c.ID, c.Version, models.IssueStatusResolved)
	require.NoError(t, err)
	require.True(t, ok)
	for _, amount := range []int64{10, 15} {
		require.NoError(t, repos.Contribution.Append(ctx, &models.Contribution{IssueID: a.ID, ContributorEmail: "bob@example.com", Amount: amount}))
	}

	stats, err := NewAggregator(repos.Issue, repos.Contribution, nil).Compute(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.TotalIssues)
	assert.Equal(t, int64(1), stats.ResolvedIssues)
	assert.Equal(t, int64(2), stats.TotalContributions)
	assert.Equal(t, int64(25), stats.TotalFundsRaised)
	assert.Equal(t, map[string]int64{"Garbage": 2, "Water Leak": 1}, stats.CategoryBreakdown)
}

func TestCompute_CacheIsInvalidatedByWrites(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	ctx := context.Background()
	agg := NewAggregator(repos.Issue, repos.Contribution, cache.NewMemoryStore(time.Minute, time.Minute))

	first, err := agg.Compute(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), first.TotalIssues)

	seedIssue(t, repos, "Pothole", "Potholes", "ann@example.com")
	cached, err := agg.Compute(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), cached.TotalIssues, "served from cache until invalidated")

	agg.Invalidate(ctx)
	fresh, err := agg.Compute(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), fresh.TotalIssues)
}

func TestComputeForUser(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	ctx := context.Background()
	issue := seedIssue(t, repos, "Fallen tree", "Other", "ann@example.com")
	done := seedIssue(t, repos, "Graffiti", "Other", "ann@example.com")
	_, err := repos.Issue.UpdateStatus(ctx, done.ID, done.Version, models.IssueStatusResolved)
	require.NoError(t, err)

	day1 := time.Date(2024, 3, 1, 23, 30, 0, 0, time.UTC)
	day2 := time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC)
	for _, c := range []models.Contribution{
		{IssueID: issue.ID, ContributorEmail: "ann@example.com", Amount: 10, CreatedAt: day1},
		{IssueID: issue.ID, ContributorEmail: "ann@example.com", Amount: 5, CreatedAt: day1.Add(10 * time.Minute)},
		{IssueID: issue.ID, ContributorEmail: "ann@example.com", Amount: 20, CreatedAt: day2},
		{IssueID: issue.ID, ContributorEmail: "bob@example.com", Amount: 99, CreatedAt: day2},
	} {
		c := c
		require.NoError(t, repos.Contribution.Append(ctx, &c))
	}

	stats, err := NewAggregator(repos.Issue, repos.Contribution, nil).ComputeForUser(ctx, " ANN@example.com")
	require.NoError(t, err)

	assert.Equal(t, "ann@example.com", stats.Email)
	assert.Equal(t, int64(2), stats.ReportedCount)
	assert.Equal(t, int64(1), stats.ResolvedCount)
	assert.Equal(t, int64(35), stats.TotalDonated)
	assert.Equal(t, int64(3), stats.ContributionCount)
	assert.Equal(t, []models.DailyContribution{
		{Date: "2024-03-01", Amount: 15},
		{Date: "2024-03-02", Amount: 20},
	}, stats.History)
}

func TestComputeForUser_Unknown(t *testing.T) {
	repos := repository.NewMemoryRepositories()

	stats, err := NewAggregator(repos.Issue, repos.Contribution, nil).ComputeForUser(context.Background(), "nobody@example.com")
	require.NoError(t, err)

	assert.Equal(t, int64(0), stats.ReportedCount)
	assert.Equal(t, int64(0), stats.TotalDonated)
	assert.NotNil(t, stats.History)
	assert.Empty(t, stats.History)
}

// brokenTotals fails the per-contributor aggregate.
type brokenTotals struct {
	repository.ContributionRepository
}

func (brokenTotals) TotalsByContributor(ctx context.Context, email string) (models.ContributionTotals, error) {
	return models.ContributionTotals{}, errors.New("aggregate failed")
}

func TestComputeForUser_TotalsComeFromAggregate(t *testing.T) {
	repos := repository.NewMemoryRepositories()
	issue := seedIssue(t, repos, "Fallen tree", "Other", "ann@example.com")
	require.NoError(t, repos.Contribution.Append(context.Background(), &models.Contribution{
		IssueID: issue.ID, ContributorEmail: "ann@example.com", Amount: 10,
	}))

	_, err := NewAggregator(repos.Issue, brokenTotals{repos.Contribution}, nil).ComputeForUser(context.Background(), "ann@example.com")
	assert.ErrorContains(t, err, "aggregate failed")
}

func TestBucketByDay_SortsAscending(t *testing.T) {
	history := BucketByDay([]models.Contribution{
		{Amount: 3, CreatedAt: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)},
		{Amount: 1, CreatedAt: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{Amount: 2, CreatedAt: time.Date(2024, 5, 3, 12, 0, 0, 0, time.UTC)},
	})

	assert.Equal(t, []models.DailyContribution{
		{Date: "2024-05-01", Amount: 1},
		{Date: "2024-05-03", Amount: 5},
	}, history)
}
