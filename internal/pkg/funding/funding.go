// Package funding derives funding progress from an issue and its ledger.
// Nothing here is stored; every value is recomputed from contributions.
package funding

import "github.com/ManuelReschke/CleanConnect/app/models"

// Snapshot is the funding state of one issue at the time it was computed.
type Snapshot struct {
	AmountRaised    int64   `json:"amountRaised"`
	TargetAmount    int64   `json:"targetAmount"`
	ProgressPercent float64 `json:"progressPercent"`
	Remaining       int64   `json:"remaining"`
	IsFunded        bool    `json:"isFunded"`
	Contributions   int     `json:"contributionCount"`
}

// Raised sums the amounts of the given contributions.
func Raised(contributions []models.Contribution) int64 {
	var sum int64
	for _, c := range contributions {
		sum += c.Amount
	}
	return sum
}

// Compute builds the snapshot for an issue. Contributions of other issues are ignored.
func Compute(issue models.Issue, contributions []models.Contribution) Snapshot {
	var raised int64
	count := 0
	for _, c := range contributions {
		if c.IssueID != issue.ID {
			continue
		}
		raised += c.Amount
		count++
	}

	target := issue.TargetAmount
	s := Snapshot{
		AmountRaised:  raised,
		TargetAmount:  target,
		Remaining:     max(target-raised, 0),
		IsFunded:      isComplete(target, raised),
		Contributions: count,
	}
	if target > 0 {
		s.ProgressPercent = min(float64(raised)*100/float64(target), 100)
	}
	return s
}

// IsFundingComplete reports whether the issue has a target and has reached it.
// An issue without a target is never complete.
func IsFundingComplete(issue models.Issue, contributions []models.Contribution) bool {
	return Compute(issue, contributions).IsFunded
}

func isComplete(target, raised int64) bool {
	return target > 0 && raised >= target
}
