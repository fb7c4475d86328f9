package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ManuelReschke/CleanConnect/app/models"
	"gorm.io/gorm"
)

// memoryStore keeps issues and the ledger in process. It backs DB_DRIVER=memory
// and the service tests. One mutex guards both tables so cascade deletes and
// appends are atomic with respect to each other.
type memoryStore struct {
	mu            sync.RWMutex
	issues        map[string]models.Issue
	order         []string
	contributions map[string][]models.Contribution
	byID          map[string]models.Contribution
	now           func() time.Time
}

type memoryIssueRepository struct{ s *memoryStore }

type memoryContributionRepository struct{ s *memoryStore }

// NewMemoryRepositories returns repositories backed by a fresh in-process store
func NewMemoryRepositories() *Repositories {
	s := &memoryStore{
		issues:        make(map[string]models.Issue),
		contributions: make(map[string][]models.Contribution),
		byID:          make(map[string]models.Contribution),
		now:           func() time.Time { return time.Now().UTC() },
	}
	return &Repositories{
		Issue:        &memoryIssueRepository{s: s},
		Contribution: &memoryContributionRepository{s: s},
	}
}

func (r *memoryIssueRepository) Create(ctx context.Context, issue *models.Issue) error {
	if err := issue.BeforeCreate(nil); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.issues[issue.ID]; exists {
		return gorm.ErrDuplicatedKey
	}
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = r.s.now()
	}
	issue.UpdatedAt = issue.CreatedAt
	r.s.issues[issue.ID] = *issue
	r.s.order = append(r.s.order, issue.ID)
	return nil
}

func (r *memoryIssueRepository) GetByID(ctx context.Context, id string) (*models.Issue, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	issue, ok := r.s.issues[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &issue, nil
}

// newestFirst returns issues matching keep, newest first. Caller holds the lock.
func (r *memoryIssueRepository) newestFirst(keep func(models.Issue) bool) []models.Issue {
	out := []models.Issue{}
	for i := len(r.s.order) - 1; i >= 0; i-- {
		issue, ok := r.s.issues[r.s.order[i]]
		if ok && keep(issue) {
			out = append(out, issue)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

func (r *memoryIssueRepository) List(ctx context.Context, filter IssueFilter, offset, limit int) ([]models.Issue, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matches := r.newestFirst(func(issue models.Issue) bool {
		if search != "" && !strings.Contains(strings.ToLower(issue.Title), search) {
			return false
		}
		if filter.Category != "" && issue.Category != filter.Category {
			return false
		}
		if filter.ReporterEmail != "" && issue.ReporterEmail != filter.ReporterEmail {
			return false
		}
		return true
	})

	total := int64(len(matches))
	if offset >= len(matches) {
		return []models.Issue{}, total, nil
	}
	end := len(matches)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return matches[offset:end], total, nil
}

func (r *memoryIssueRepository) Recent(ctx context.Context, limit int) ([]models.Issue, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := r.newestFirst(func(models.Issue) bool { return true })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (r *memoryIssueRepository) UpdateStatus(ctx context.Context, id string, expectedVersion uint, status string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	issue, ok := r.s.issues[id]
	if !ok || issue.Version != expectedVersion {
		return false, nil
	}
	issue.Status = status
	issue.Version++
	issue.UpdatedAt = r.s.now()
	r.s.issues[id] = issue
	return true, nil
}

func (r *memoryIssueRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.issues[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	for _, c := range r.s.contributions[id] {
		delete(r.s.byID, c.ID)
	}
	delete(r.s.contributions, id)
	delete(r.s.issues, id)
	for i, issueID := range r.s.order {
		if issueID == id {
			r.s.order = append(r.s.order[:i], r.s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *memoryIssueRepository) count(keep func(models.Issue) bool) int64 {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, issue := range r.s.issues {
		if keep(issue) {
			n++
		}
	}
	return n
}

func (r *memoryIssueRepository) Count(ctx context.Context) (int64, error) {
	return r.count(func(models.Issue) bool { return true }), nil
}

func (r *memoryIssueRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	return r.count(func(issue models.Issue) bool { return issue.Status == status }), nil
}

func (r *memoryIssueRepository) CountByCategory(ctx context.Context) ([]models.CategoryCount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	byCategory := make(map[string]int64)
	for _, issue := range r.s.issues {
		byCategory[issue.Category]++
	}
	counts := make([]models.CategoryCount, 0, len(byCategory))
	for category, n := range byCategory {
		counts = append(counts, models.CategoryCount{Category: category, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Category < counts[j].Category })
	return counts, nil
}

func (r *memoryIssueRepository) CountByReporter(ctx context.Context, email, status string) (int64, error) {
	return r.count(func(issue models.Issue) bool {
		return issue.ReporterEmail == email && (status == "" || issue.Status == status)
	}), nil
}

func (r *memoryIssueRepository) ClearReconcile(ctx context.Context, id string, uptoSeq int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	issue, ok := r.s.issues[id]
	if !ok || issue.ReconcileSeq == 0 || issue.ReconcileSeq > uptoSeq {
		return nil
	}
	issue.ReconcileSeq = 0
	r.s.issues[id] = issue
	return nil
}

func (r *memoryIssueRepository) ListPendingReconcile(ctx context.Context, limit int) ([]models.Issue, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []models.Issue{}
	for _, id := range r.s.order {
		issue := r.s.issues[id]
		if issue.ReconcileSeq > 0 {
			out = append(out, issue)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memoryContributionRepository) Append(ctx context.Context, c *models.Contribution) error {
	if err := c.BeforeCreate(nil); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	issue, ok := r.s.issues[c.IssueID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if _, exists := r.s.byID[c.ID]; exists {
		return gorm.ErrDuplicatedKey
	}

	ledger := r.s.contributions[c.IssueID]
	c.Seq = int64(len(ledger)) + 1
	c.IssueTitle = issue.Title
	if c.CreatedAt.IsZero() {
		c.CreatedAt = r.s.now()
	}
	r.s.contributions[c.IssueID] = append(ledger, *c)
	r.s.byID[c.ID] = *c
	issue.ReconcileSeq = c.Seq
	r.s.issues[c.IssueID] = issue
	return nil
}

func (r *memoryContributionRepository) GetByID(ctx context.Context, id string) (*models.Contribution, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &c, nil
}

func (r *memoryContributionRepository) ListByIssue(ctx context.Context, issueID string) ([]models.Contribution, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := append([]models.Contribution{}, r.s.contributions[issueID]...)
	sortByAcceptance(out)
	return out, nil
}

func (r *memoryContributionRepository) ListByContributor(ctx context.Context, email string) ([]models.Contribution, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []models.Contribution{}
	for _, c := range r.s.byID {
		if c.ContributorEmail == email {
			out = append(out, c)
		}
	}
	sortByAcceptance(out)
	return out, nil
}

func (r *memoryContributionRepository) Totals(ctx context.Context) (models.ContributionTotals, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var totals models.ContributionTotals
	for _, c := range r.s.byID {
		totals.Count++
		totals.Sum += c.Amount
	}
	return totals, nil
}

func (r *memoryContributionRepository) TotalsByContributor(ctx context.Context, email string) (models.ContributionTotals, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var totals models.ContributionTotals
	for _, c := range r.s.byID {
		if c.ContributorEmail == email {
			totals.Count++
			totals.Sum += c.Amount
		}
	}
	return totals, nil
}

func sortByAcceptance(cs []models.Contribution) {
	sort.SliceStable(cs, func(i, j int) bool {
		if !cs[i].CreatedAt.Equal(cs[j].CreatedAt) {
			return cs[i].CreatedAt.Before(cs[j].CreatedAt)
		}
		if cs[i].IssueID == cs[j].IssueID {
			return cs[i].Seq < cs[j].Seq
		}
		return cs[i].ID < cs[j].ID
	})
}
