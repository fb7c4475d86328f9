package models

// DailyContribution is the amount donated on a single calendar day (UTC).
type DailyContribution struct {
	Date   string `json:"date"`
	Amount int64  `json:"amount"`
}

// CategoryCount holds the number of issues in one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// ContributionTotals is the count and sum of a set of contributions.
type ContributionTotals struct {
	Count int64 `json:"count"`
	Sum   int64 `json:"sum"`
}
