package jobqueue

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CleanConnect/app/models"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/apperror"
)

// Reconciler re-runs automatic resolution for an issue with a pending check.
// It must be a no-op for issues without one.
type Reconciler interface {
	Reconcile(ctx context.Context, issueID string) (*models.Issue, bool, error)
}

// NewReconcileHandler returns the handler for reconcile_resolution jobs.
func NewReconcileHandler(reconciler Reconciler) Handler {
	return func(ctx context.Context, job *Job) error {
		payload, err := ReconcileResolutionJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid reconcile payload: %w", err)
		}
		if payload.IssueID == "" {
			return errors.New("reconcile payload without issue id")
		}

		_, changed, err := reconciler.Reconcile(ctx, payload.IssueID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				// deleted in the meantime; nothing left to resolve
				log.Infof("[JobQueue] Reconcile skipped, issue %s no longer exists", payload.IssueID)
				return nil
			}
			return err
		}
		if changed {
			log.Infof("[JobQueue] Reconcile resolved issue %s", payload.IssueID)
		}
		return nil
	}
}

// EnqueueReconcile schedules a reconcile_resolution job for issueID.
func (q *Queue) EnqueueReconcile(ctx context.Context, issueID, reason string) error {
	payload := ReconcileResolutionJobPayload{IssueID: issueID, Reason: reason}
	_, err := q.EnqueueJob(ctx, JobTypeReconcileResolution, payload.ToMap())
	return err
}
