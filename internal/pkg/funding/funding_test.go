package funding

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ManuelReschke/CleanConnect/app/models"
)

func contributions(issueID string, amounts ...int64) []models.Contribution {
	out := make([]models.Contribution, 0, len(amounts))
	for _, a := range amounts {
		out = append(out, models.Contribution{IssueID: issueID, Amount: a})
	}
	return out
}

func TestCompute(t *testing.T) {
	tests := []struct {
		name      string
		target    int64
		amounts   []int64
		raised    int64
		percent   float64
		remaining int64
		funded    bool
	}{
		{"no contributions", 500, nil, 0, 0, 500, false},
		{"partial", 500, []int64{100}, 100, 20, 400, false},
		{"exactly funded", 100, []int64{60, 40}, 100, 100, 0, true},
		{"overfunded clamps", 100, []int64{80, 70}, 150, 100, 0, true},
		{"zero target", 0, []int64{25}, 25, 0, 0, false},
		{"zero target no contributions", 0, nil, 0, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issue := models.Issue{ID: "i1", TargetAmount: tt.target}
			s := Compute(issue, contributions("i1", tt.amounts...))

			assert.Equal(t, tt.raised, s.AmountRaised)
			assert.InDelta(t, tt.percent, s.ProgressPercent, 1e-9)
			assert.Equal(t, tt.remaining, s.Remaining)
			assert.Equal(t, tt.funded, s.IsFunded)
			assert.Equal(t, tt.funded, IsFundingComplete(issue, contributions("i1", tt.amounts...)))
			assert.Equal(t, len(tt.amounts), s.Contributions)
		})
	}
}

func TestComputeIgnoresOtherIssues(t *testing.T) {
	issue := models.Issue{ID: "i1", TargetAmount: 100}
	ledger := append(contributions("i1", 30), contributions("i2", 500)...)

	s := Compute(issue, ledger)

	assert.Equal(t, int64(30), s.AmountRaised)
	assert.False(t, s.IsFunded)
}

func TestComputeIsMonotoneInContributions(t *testing.T) {
	issue := models.Issue{ID: "i1", TargetAmount: 1000}
	var ledger []models.Contribution
	prev := Compute(issue, ledger)

	for _, a := range []int64{1, 250, 3, 400, 999, 7} {
		ledger = append(ledger, models.Contribution{IssueID: "i1", Amount: a})
		next := Compute(issue, ledger)

		assert.GreaterOrEqual(t, next.AmountRaised, prev.AmountRaised)
		assert.GreaterOrEqual(t, next.ProgressPercent, prev.ProgressPercent)
		assert.LessOrEqual(t, next.ProgressPercent, 100.0)
		assert.GreaterOrEqual(t, next.Remaining, int64(0))
		prev = next
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	issue := models.Issue{ID: "i1", TargetAmount: 300}
	ledger := contributions("i1", 10, 20, 30)

	assert.Equal(t, Compute(issue, ledger), Compute(issue, ledger))
	assert.Equal(t, int64(60), Raised(ledger))
}
