package domain

import "time"

type FeedbackLabel int

const (
	FeedbackNegative FeedbackLabel = 0
	FeedbackPositive FeedbackLabel = 1
)

type FeedbackEntry struct {
	ID          string        `json:"id"`
	Collection  CollectionKey `json:"collection"`
	Query       string        `json:"query"`
	QueryVector []float32     `json:"-"`
	DocumentIDs []string      `json:"doc_ids"`
	Label       FeedbackLabel `json:"label"`
	CreatedAt   time.Time     `json:"created_at"`
}

// FeedbackHit is a stored feedback entry whose query resembles the current one.
type FeedbackHit struct {
	DocumentIDs []string
	Label       FeedbackLabel
	Similarity  float64
}

type FeedbackStats struct {
	Total       int      `json:"total"`
	Positive    int      `json:"positive"`
	Negative    int      `json:"negative"`
	Ratio       float64  `json:"positive_ratio"`
	Collections []string `json:"collections"`
}
