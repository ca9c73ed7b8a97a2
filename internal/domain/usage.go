package domain

import "time"

// MonthKeyLayout formats usage buckets as YYYY-MM.
const MonthKeyLayout = "2006-01"

// MonthKey returns the usage bucket for t in UTC.
func MonthKey(t time.Time) string {
	return t.UTC().Format(MonthKeyLayout)
}

// UserUsage holds the running totals of a user for one calendar month.
type UserUsage struct {
	ID                    int64
	UserID                int64
	Month                 string
	CharactersUsed        int64
	APICalls              int64
	AudioGeneratedSeconds float64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// UserStats aggregates completed generations plus the current month bucket.
type UserStats struct {
	TotalGenerations int64
	TotalCharacters  int64
	TotalDuration    float64
	ThisMonthUsage   *UserUsage
}

// Quota compares the current month against the configured limits.
type Quota struct {
	Month                string
	CharactersUsed       int64
	CharactersLimit      int64
	CharactersPercentage int
	APICalls             int64
	APICallsLimit        int64
	APICallsPercentage   int
	AudioGenerated       float64
}

// Exceeded reports whether either monthly limit has been reached.
func (q Quota) Exceeded() bool {
	return (q.CharactersLimit > 0 && q.CharactersUsed >= q.CharactersLimit) ||
		(q.APICallsLimit > 0 && q.APICalls >= q.APICallsLimit)
}
