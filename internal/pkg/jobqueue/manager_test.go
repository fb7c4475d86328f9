package jobqueue

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CleanConnect/app/models"
	"github.com/ManuelReschke/CleanConnect/app/repository"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/engine"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/issues"
)

type staticLister []string

func (l staticLister) ListReconcileCandidates(ctx context.Context, limit int) ([]string, error) {
	return l, nil
}

// selectiveReconciler resolves "funded-*" ids and fails "broken-*" ids.
type selectiveReconciler struct{}

func (selectiveReconciler) Reconcile(ctx context.Context, issueID string) (*models.Issue, bool, error) {
	switch issueID[:3] {
	case "fun":
		return &models.Issue{ID: issueID, Status: models.IssueStatusResolved}, true, nil
	case "bro":
		return nil, false, errors.New("temporary failure")
	}
	return &models.Issue{ID: issueID, Status: models.IssueStatusOpen}, false, nil
}

func TestManager_SweepOnce(t *testing.T) {
	m := newManager(NewQueueWithClient(nil, 1))
	m.reconciler = selectiveReconciler{}
	m.lister = staticLister{"funded-1", "open-1", "broken-1", "funded-2"}

	var queued []string
	m.enqueue = func(ctx context.Context, issueID, reason string) error {
		queued = append(queued, issueID)
		return nil
	}

	resolved, err := m.SweepOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, resolved)
	assert.Equal(t, []string{"broken-1"}, queued)
}

func TestManager_SweepKeepsOwnerStatus(t *testing.T) {
	ctx := context.Background()
	owner := models.Identity{Email: "owner@example.com"}
	svc := engine.NewService(repository.NewMemoryRepositories())

	issue, err := svc.ReportIssue(ctx, owner, issues.Draft{
		Title:        "Broken bench",
		Category:     "Broken Public Property",
		Location:     "Main Square",
		Description:  "The bench lost two planks",
		TargetAmount: 100,
	})
	require.NoError(t, err)

	res, err := svc.Contribute(ctx, models.Identity{Email: "donor@example.com"}, issue.ID, 100, "", "")
	require.NoError(t, err)
	require.Equal(t, models.IssueStatusResolved, res.Issue.Status)

	_, err = svc.SetIssueStatus(ctx, owner, issue.ID, models.IssueStatusInProgress)
	require.NoError(t, err)

	m := newManager(NewQueueWithClient(nil, 1))
	m.reconciler = svc
	m.lister = svc
	m.enqueue = func(ctx context.Context, issueID, reason string) error {
		t.Fatalf("unexpected reconcile of %s", issueID)
		return nil
	}

	resolved, err := m.SweepOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, resolved)

	detail, err := svc.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusInProgress, detail.Issue.Status)

	// a queued job for the same issue is a no-op as well
	require.NoError(t, NewReconcileHandler(svc)(ctx, &Job{Payload: ReconcileResolutionJobPayload{IssueID: issue.ID}.ToMap()}))
	detail, err = svc.GetIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStatusInProgress, detail.Issue.Status)
}

func TestManager_IsRunning(t *testing.T) {
	m := newManager(NewQueueWithClient(nil, 1))
	assert.False(t, m.IsRunning())
	assert.NotNil(t, m.GetQueue())

	m.Stop() // no-op when not running
	assert.False(t, m.IsRunning())
}
