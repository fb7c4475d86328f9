// Package engine exposes the consumer-facing operations of the funding
// service. It sequences ledger appends, automatic resolution and statistics
// invalidation so callers never have to.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/ManuelReschke/CleanConnect/app/models"
	"github.com/ManuelReschke/CleanConnect/app/repository"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/apperror"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/cache"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/funding"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/idempotency"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/issues"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/ledger"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/report"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/resolution"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/statistics"
)

// completeAttempts bounds how often a finished idempotency key is written.
const completeAttempts = 3

// Reconciler takes over automatic resolution that could not finish inline.
type Reconciler interface {
	EnqueueReconcile(ctx context.Context, issueID, reason string) error
}

// IssueDetail is an issue with its derived funding state and its ledger.
type IssueDetail struct {
	Issue         *models.Issue         `json:"issue"`
	Funding       funding.Snapshot      `json:"funding"`
	Contributions []models.Contribution `json:"contributions"`
}

// ContributionResult describes an accepted contribution. Issue and Funding
// reflect the state after automatic resolution ran and may be nil when the
// issue could not be reloaded.
type ContributionResult struct {
	Contribution *models.Contribution `json:"contribution"`
	Issue        *models.Issue        `json:"issue,omitempty"`
	Funding      *funding.Snapshot    `json:"funding,omitempty"`
	Replayed     bool                 `json:"replayed"`
}

// Service implements the consumer-facing operations.
type Service struct {
	repos       *repository.Repositories
	issues      *issues.Service
	ledger      *ledger.Service
	machine     *resolution.Machine
	stats       *statistics.Aggregator
	statsCache  cache.Store
	idempotency *idempotency.Store
	reconciler  Reconciler
	exporter    *report.Exporter
}

// Option configures optional collaborators.
type Option func(*Service)

// WithStatsCache caches community statistics in store.
func WithStatsCache(store cache.Store) Option {
	return func(s *Service) { s.statsCache = store }
}

// WithIdempotency enables Idempotency-Key handling for contributions.
func WithIdempotency(store *idempotency.Store) Option {
	return func(s *Service) { s.idempotency = store }
}

// WithReconciler hands failed automatic resolutions to r.
func WithReconciler(r Reconciler) Option {
	return func(s *Service) { s.reconciler = r }
}

// WithReportExporter replaces the default exporter, which does not archive.
func WithReportExporter(e *report.Exporter) Option {
	return func(s *Service) { s.exporter = e }
}

// NewService wires the components over repos.
func NewService(repos *repository.Repositories, opts ...Option) *Service {
	s := &Service{repos: repos}
	for _, opt := range opts {
		opt(s)
	}
	s.machine = resolution.NewMachine(repos.Issue, repos.Contribution)
	s.issues = issues.NewService(repos.Issue, s.machine)
	s.ledger = ledger.NewService(repos.Contribution, repos.Issue)
	s.stats = statistics.NewAggregator(repos.Issue, repos.Contribution, s.statsCache)
	if s.exporter == nil {
		s.exporter = report.NewExporter(nil)
	}
	return s
}

// ListIssues returns one page of issues.
func (s *Service) ListIssues(ctx context.Context, q issues.ListQuery) (*issues.Page, error) {
	return s.issues.List(ctx, q)
}

// RecentIssues returns the newest issues.
func (s *Service) RecentIssues(ctx context.Context, limit int) ([]models.Issue, error) {
	return s.issues.Recent(ctx, limit)
}

// GetIssue returns an issue with its funding snapshot and contributions.
func (s *Service) GetIssue(ctx context.Context, id string) (*IssueDetail, error) {
	issue, err := s.issues.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	contributions, err := s.ledger.ListForIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	return &IssueDetail{
		Issue:         issue,
		Funding:       funding.Compute(*issue, contributions),
		Contributions: contributions,
	}, nil
}

// ListContributions returns an issue's contributions in acceptance order.
func (s *Service) ListContributions(ctx context.Context, issueID string) ([]models.Contribution, error) {
	return s.ledger.ListForIssue(ctx, issueID)
}

// GetCommunityStats returns system-wide statistics.
func (s *Service) GetCommunityStats(ctx context.Context) (*statistics.CommunityStats, error) {
	return s.stats.Compute(ctx)
}

// GetUserStats returns one person's statistics.
func (s *Service) GetUserStats(ctx context.Context, email string) (*statistics.UserStats, error) {
	if models.NormalizeEmail(email) == "" {
		return nil, apperror.Validation("email is required")
	}
	return s.stats.ComputeForUser(ctx, email)
}

// ReportIssue creates a new issue owned by reporter.
func (s *Service) ReportIssue(ctx context.Context, reporter models.Identity, draft issues.Draft) (*models.Issue, error) {
	issue, err := s.issues.Create(ctx, reporter, draft)
	if err != nil {
		return nil, err
	}
	s.stats.Invalidate(ctx)
	return issue, nil
}

// SetIssueStatus lets the reporter change the status of their issue.
func (s *Service) SetIssueStatus(ctx context.Context, requester models.Identity, id, status string) (*models.Issue, error) {
	issue, err := s.issues.SetStatus(ctx, requester, id, status)
	if err != nil {
		return nil, err
	}
	s.stats.Invalidate(ctx)
	return issue, nil
}

// DeleteIssue removes an issue and its contributions.
func (s *Service) DeleteIssue(ctx context.Context, requester models.Identity, id string) error {
	if err := s.issues.Delete(ctx, requester, id); err != nil {
		return err
	}
	s.stats.Invalidate(ctx)
	return nil
}

// MyIssues lists the issues reported by the caller.
func (s *Service) MyIssues(ctx context.Context, requester models.Identity) ([]models.Issue, error) {
	if requester.IsAnonymous() {
		return nil, apperror.Authentication("sign in to see your issues")
	}
	return s.issues.ListByReporter(ctx, requester.Email)
}

// MyContributions lists the caller's contributions, oldest first.
func (s *Service) MyContributions(ctx context.Context, requester models.Identity) ([]models.Contribution, error) {
	if requester.IsAnonymous() {
		return nil, apperror.Authentication("sign in to see your contributions")
	}
	return s.ledger.ListForContributor(ctx, requester.Email)
}

// ExportReport renders the caller's contribution history as CSV.
func (s *Service) ExportReport(ctx context.Context, requester models.Identity) (*report.Report, error) {
	contributions, err := s.MyContributions(ctx, requester)
	if err != nil {
		return nil, err
	}
	return s.exporter.Build(ctx, requester, contributions)
}

// Contribute records a donation and then runs automatic resolution. Once the
// contribution is stored it stays stored: a failing resolution step is logged
// and handed to the reconciler instead of being reported to the caller.
func (s *Service) Contribute(ctx context.Context, contributor models.Identity, issueID string, amount int64, message, idempotencyKey string) (*ContributionResult, error) {
	useKey := idempotencyKey != "" && s.idempotency != nil && !contributor.IsAnonymous()
	scope := models.NormalizeEmail(contributor.Email)

	var plannedID string
	if useKey {
		res, err := s.idempotency.Reserve(scope, idempotencyKey, uuid.New().String())
		if err != nil {
			if errors.Is(err, idempotency.ErrInProgress) {
				return nil, apperror.Conflict("a contribution with this idempotency key is still being processed")
			}
			return nil, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if res.Completed {
			return s.replay(ctx, res.ContributionID, issueID, amount)
		}
		if res.Reclaimed {
			booked, err := s.ledger.Get(ctx, res.ContributionID)
			if err == nil {
				// the abandoned request booked before it could finish the key
				s.completeKey(scope, idempotencyKey, booked.ID)
				return s.replay(ctx, booked.ID, issueID, amount)
			}
			if apperror.KindOf(err) != apperror.KindNotFound {
				return nil, err
			}
		}
		plannedID = res.ContributionID
	}

	c, err := s.ledger.RecordAs(ctx, plannedID, contributor, issueID, amount, message)
	if err != nil {
		if useKey {
			if rerr := s.idempotency.Release(scope, idempotencyKey); rerr != nil {
				log.Errorf("[Engine] Failed to release idempotency key: %v", rerr)
			}
		}
		return nil, err
	}
	if useKey {
		s.completeKey(scope, idempotencyKey, c.ID)
	}
	s.stats.Invalidate(ctx)

	issue, changed, err := s.machine.Evaluate(ctx, issueID)
	if err != nil {
		// the issue keeps its pending check mark, the sweep picks it up
		log.Errorf("[Engine] Automatic resolution of issue %s failed after contribution %s: %v", issueID, c.ID, err)
		s.scheduleReconcile(ctx, issueID, err)
		issue = nil
	} else if changed {
		s.stats.Invalidate(ctx)
	}

	return s.result(ctx, c, issue, false), nil
}

// completeKey binds the key to the booked contribution. If every attempt
// fails the reservation still carries the id, so a retry after
// PendingTimeout finds the booking instead of recording it again.
func (s *Service) completeKey(scope, key, contributionID string) {
	var err error
	for attempt := 1; attempt <= completeAttempts; attempt++ {
		if err = s.idempotency.Complete(scope, key, contributionID); err == nil {
			return
		}
		log.Warnf("[Engine] Storing idempotency key for contribution %s failed (attempt %d/%d): %v", contributionID, attempt, completeAttempts, err)
	}
	log.Errorf("[Engine] Idempotency key for contribution %s left pending: %v", contributionID, err)
}

func (s *Service) replay(ctx context.Context, contributionID, issueID string, amount int64) (*ContributionResult, error) {
	c, err := s.ledger.Get(ctx, contributionID)
	if err != nil {
		if apperror.KindOf(err) == apperror.KindNotFound {
			// the issue and its ledger were deleted since the first request
			return nil, apperror.NotFound("issue %s not found", issueID)
		}
		return nil, err
	}
	if c.IssueID != issueID || c.Amount != amount {
		return nil, apperror.Conflict("idempotency key was already used for a different contribution")
	}
	log.Infof("[Engine] Replaying contribution %s for a retried request", c.ID)
	return s.result(ctx, c, nil, true), nil
}

func (s *Service) result(ctx context.Context, c *models.Contribution, issue *models.Issue, replayed bool) *ContributionResult {
	res := &ContributionResult{Contribution: c, Replayed: replayed}
	if issue == nil {
		loaded, err := s.repos.Issue.GetByID(ctx, c.IssueID)
		if err != nil {
			return res
		}
		issue = loaded
	}
	contributions, err := s.repos.Contribution.ListByIssue(ctx, c.IssueID)
	if err != nil {
		return res
	}
	snapshot := funding.Compute(*issue, contributions)
	res.Issue = issue
	res.Funding = &snapshot
	return res
}

func (s *Service) scheduleReconcile(ctx context.Context, issueID string, cause error) {
	if s.reconciler == nil {
		log.Warnf("[Engine] No reconciler configured, issue %s waits for the next sweep", issueID)
		return
	}
	if err := s.reconciler.EnqueueReconcile(ctx, issueID, cause.Error()); err != nil {
		log.Errorf("[Engine] Failed to queue reconcile for issue %s: %v", issueID, err)
	}
}

// Reconcile re-runs automatic resolution for an issue whose check after a
// contribution did not complete. Other issues are left alone.
func (s *Service) Reconcile(ctx context.Context, issueID string) (*models.Issue, bool, error) {
	issue, changed, err := s.machine.Reconcile(ctx, issueID)
	if err == nil && changed {
		s.stats.Invalidate(ctx)
	}
	return issue, changed, err
}

// ListReconcileCandidates returns ids of issues with a pending resolution check.
func (s *Service) ListReconcileCandidates(ctx context.Context, limit int) ([]string, error) {
	candidates, err := s.repos.Issue.ListPendingReconcile(ctx, limit)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(candidates))
	for _, issue := range candidates {
		ids = append(ids, issue.ID)
	}
	return ids, nil
}
