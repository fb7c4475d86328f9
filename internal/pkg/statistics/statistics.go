// Package statistics rolls up community-wide and per-user figures from the
// issue store and the contribution ledger.
package statistics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CleanConnect/app/models"
	"github.com/ManuelReschke/CleanConnect/app/repository"
	"github.com/ManuelReschke/CleanConnect/internal/pkg/cache"
)

const (
	CacheKeyCommunity = "statistics:community"
	CacheExpiration   = time.Minute
	dayLayout         = "2006-01-02"
)

// CommunityStats summarises the whole system.
type CommunityStats struct {
	TotalIssues        int64            `json:"totalIssues"`
	ResolvedIssues     int64            `json:"resolvedIssues"`
	TotalContributions int64            `json:"totalContributions"`
	TotalFundsRaised   int64            `json:"totalFundsRaised"`
	CategoryBreakdown  map[string]int64 `json:"categoryBreakdown"`
}

// UserStats summarises one person's activity. History has one entry per day
// with donations, oldest first.
type UserStats struct {
	Email             string                     `json:"email"`
	ReportedCount     int64                      `json:"reportedCount"`
	ResolvedCount     int64                      `json:"resolvedCount"`
	TotalDonated      int64                      `json:"totalDonated"`
	ContributionCount int64                      `json:"contributionCount"`
	History           []models.DailyContribution `json:"history"`
}

// Aggregator computes statistics. Community figures are cached in store and
// dropped by Invalidate after every write.
type Aggregator struct {
	issues        repository.IssueRepository
	contributions repository.ContributionRepository
	store         cache.Store
	generation    atomic.Uint64
}

// NewAggregator creates an aggregator. A nil store disables caching.
func NewAggregator(issues repository.IssueRepository, contributions repository.ContributionRepository, store cache.Store) *Aggregator {
	return &Aggregator{issues: issues, contributions: contributions, store: store}
}

// Invalidate drops cached figures so the next computation sees the latest writes.
func (a *Aggregator) Invalidate(ctx context.Context) {
	a.generation.Add(1)
	if a.store == nil {
		return
	}
	if err := a.store.Delete(ctx, CacheKeyCommunity); err != nil {
		log.Warnf("[Statistics] Failed to invalidate cache: %v", err)
	}
}

// Compute returns the community statistics.
func (a *Aggregator) Compute(ctx context.Context) (*CommunityStats, error) {
	if cached := a.cached(ctx); cached != nil {
		return cached, nil
	}

	gen := a.generation.Load()
	stats, err := a.compute(ctx)
	if err != nil {
		return nil, err
	}
	// A write that happened while computing makes this result stale.
	if a.store != nil && a.generation.Load() == gen {
		if data, err := json.Marshal(stats); err == nil {
			if err := a.store.Set(ctx, CacheKeyCommunity, data, CacheExpiration); err != nil {
				log.Warnf("[Statistics] Failed to cache community statistics: %v", err)
			}
		}
	}
	return stats, nil
}

func (a *Aggregator) cached(ctx context.Context) *CommunityStats {
	if a.store == nil {
		return nil
	}
	data, err := a.store.Get(ctx, CacheKeyCommunity)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			log.Warnf("[Statistics] Cache read failed: %v", err)
		}
		return nil
	}
	var stats CommunityStats
	if err := json.Unmarshal(data, &stats); err != nil {
		log.Warnf("[Statistics] Discarding malformed cache entry: %v", err)
		return nil
	}
	return &stats
}

func (a *Aggregator) compute(ctx context.Context) (*CommunityStats, error) {
	total, err := a.issues.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count issues: %w", err)
	}
	resolved, err := a.issues.CountByStatus(ctx, models.IssueStatusResolved)
	if err != nil {
		return nil, fmt.Errorf("count resolved issues: %w", err)
	}
	categories, err := a.issues.CountByCategory(ctx)
	if err != nil {
		return nil, fmt.Errorf("count issues by category: %w", err)
	}
	totals, err := a.contributions.Totals(ctx)
	if err != nil {
		return nil, fmt.Errorf("sum contributions: %w", err)
	}

	breakdown := make(map[string]int64, len(categories))
	for _, c := range categories {
		breakdown[c.Category] = c.Count
	}

	return &CommunityStats{
		TotalIssues:        total,
		ResolvedIssues:     resolved,
		TotalContributions: totals.Count,
		TotalFundsRaised:   totals.Sum,
		CategoryBreakdown:  breakdown,
	}, nil
}

// ComputeForUser returns the statistics of one person. It is always computed fresh.
func (a *Aggregator) ComputeForUser(ctx context.Context, email string) (*UserStats, error) {
	email = models.NormalizeEmail(email)

	reported, err := a.issues.CountByReporter(ctx, email, "")
	if err != nil {
		return nil, fmt.Errorf("count reported issues: %w", err)
	}
	resolved, err := a.issues.CountByReporter(ctx, email, models.IssueStatusResolved)
	if err != nil {
		return nil, fmt.Errorf("count resolved issues: %w", err)
	}
	totals, err := a.contributions.TotalsByContributor(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("sum contributions: %w", err)
	}
	contributions, err := a.contributions.ListByContributor(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}

	return &UserStats{
		Email:             email,
		ReportedCount:     reported,
		ResolvedCount:     resolved,
		TotalDonated:      totals.Sum,
		ContributionCount: totals.Count,
		History:           BucketByDay(contributions),
	}, nil
}

// BucketByDay sums contribution amounts per UTC calendar day, oldest day first.
func BucketByDay(contributions []models.Contribution) []models.DailyContribution {
	history := []models.DailyContribution{}
	index := make(map[string]int)
	for _, c := range contributions {
		day := c.CreatedAt.UTC().Format(dayLayout)
		if i, ok := index[day]; ok {
			history[i].Amount += c.Amount
			continue
		}
		index[day] = len(history)
		history = append(history, models.DailyContribution{Date: day, Amount: c.Amount})
	}
	// dates in this layout sort lexically
	sort.Slice(history, func(i, j int) bool { return history[i].Date < history[j].Date })
	return history
}
