package jobqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/CleanConnect/app/models"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/apperror"
)

type fakeReconciler struct {
	calls   []string
	changed bool
	err     error
}

func (f *fakeReconciler) Reconcile(ctx context.Context, issueID string) (*models.Issue, bool, error) {
	f.calls = append(f.calls, issueID)
	if f.err != nil {
		return nil, false, f.err
	}
	return &models.Issue{ID: issueID, Status: models.IssueStatusResolved}, f.changed, nil
}

func TestNewQueueWithClient(t *testing.T) {
	tests := []struct {
		name            string
		workers         int
		expectedWorkers int
	}{
		{"Valid worker count", 5, 5},
		{"Zero workers", 0, 3},
		{"Negative workers", -1, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := NewQueueWithClient(nil, tt.workers)

			assert.Equal(t, tt.expectedWorkers, queue.workers)
			assert.Equal(t, tt.expectedWorkers, cap(queue.workerPool))
			assert.NotNil(t, queue.handlers)
			assert.False(t, queue.running)
		})
	}
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "job:", JobKeyPrefix)
	assert.Equal(t, "job_queue", JobQueueKey)
	assert.Equal(t, "job_processing", JobProcessingKey)
	assert.Equal(t, "job_stats", JobStatsKey)
	assert.Equal(t, 3, DefaultMaxRetries)
	assert.Equal(t, 24*time.Hour, JobTTL)
}

func TestReconcileHandler(t *testing.T) {
	job := func(issueID string) *Job {
		return &Job{Type: JobTypeReconcileResolution, Payload: ReconcileResolutionJobPayload{IssueID: issueID}.ToMap()}
	}

	ev := &fakeReconciler{changed: true}
	require.NoError(t, NewReconcileHandler(ev)(context.Background(), job("issue-1")))
	assert.Equal(t, []string{"issue-1"}, ev.calls)

	gone := &fakeReconciler{err: apperror.NotFound("issue gone")}
	assert.NoError(t, NewReconcileHandler(gone)(context.Background(), job("issue-2")), "deleted issues need no retry")

	failing := &fakeReconciler{err: errors.New("db down")}
	assert.Error(t, NewReconcileHandler(failing)(context.Background(), job("issue-3")))

	assert.Error(t, NewReconcileHandler(ev)(context.Background(), job("")))
}

func TestQueue_ProcessesReconcileJob(t *testing.T) {
	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)
	queue := NewQueueWithClient(client, 1)
	ev := &fakeReconciler{changed: true}
	queue.RegisterHandler(JobTypeReconcileResolution, NewReconcileHandler(ev))
	ctx := context.Background()

	require.NoError(t, queue.EnqueueReconcile(ctx, "issue-7", "conflict"))
	job, err := queue.dequeueJob(ctx)
	require.NoError(t, err)
	assert.Equal(t, JobTypeReconcileResolution, job.Type)

	queue.processJob(ctx, job)

	assert.Equal(t, []string{"issue-7"}, ev.calls)
	stats, err := queue.GetJobStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[JobStatusCompleted])
	processing, err := client.LLen(ctx, JobProcessingKey).Result()
	require.NoError(t, err)
	assert.Zero(t, processing)
	_, err = queue.GetJob(ctx, job.ID)
	assert.Error(t, err, "completed jobs are removed")
}

func TestQueue_FailedJobIsRetried(t *testing.T) {
	client := newIsolatedRedisClient(t, isolatedJobQueueTestRedisDB)
	queue := NewQueueWithClient(client, 1)
	queue.retryDelay = time.Millisecond
	queue.RegisterHandler(JobTypeReconcileResolution, NewReconcileHandler(&fakeReconciler{err: errors.New("db down")}))
	ctx := context.Background()

	require.NoError(t, queue.EnqueueReconcile(ctx, "issue-8", "conflict"))
	job, err := queue.dequeueJob(ctx)
	require.NoError(t, err)

	queue.processJob(ctx, job)

	stored, err := queue.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusRetrying, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	assert.Eventually(t, func() bool {
		n, err := client.LLen(ctx, JobQueueKey).Result()
		return err == nil && n == 1
	}, time.Second, 10*time.Millisecond)
}
