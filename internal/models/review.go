package models

import "time"

// Review is post-completion feedback. At most one non-deleted review may
// exist per (contract, reviewer role) pair.
type Review struct {
	ID           string    `json:"id"`
	ContractID   string    `json:"contract_id"`
	ReviewerID   string    `json:"reviewer_id"`
	ReviewerType Role      `json:"reviewer_type"`
	RevieweeID   string    `json:"reviewee_id"`
	RevieweeType Role      `json:"reviewee_type"`
	Rating       int       `json:"rating"`
	Feedback     string    `json:"feedback"`
	IsDeleted    bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// RatingSummary is recomputed from non-deleted reviews on every read; no
// running average is persisted.
type RatingSummary struct {
	RevieweeID    string  `json:"reviewee_id"`
	AverageRating float64 `json:"average_rating"`
	ReviewCount   int     `json:"review_count"`
}

// Conversation is the message channel guaranteed to exist once discussion
// starts on a negotiation. Message contents live outside this engine.
type Conversation struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	WorkerID  string    `json:"worker_id"`
	CreatedAt time.Time `json:"created_at"`
}
