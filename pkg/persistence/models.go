package persistence

import "time"

// Interaction is one answered or rejected question, stored for audit and
// usage reporting.
type Interaction struct {
	RequestID          string
	SessionID          string
	CreatedAt          time.Time
	Question           string
	Answered           bool
	RejectionReason    string
	Route              string
	Solution           string
	Confidence         float64
	NeedsHumanFeedback bool
	ProcessingTime     time.Duration
	TokensUsed         int
	CostEstimate       float64
}

// SessionTotals aggregates usage over one session's interactions.
type SessionTotals struct {
	Interactions int
	Answered     int
	TokensUsed   int
	CostEstimate float64
}
