package models

import "time"

// JobStatus enumerates the lifecycle states of a posting, persisted in Postgres.
type JobStatus string

const (
	JobOpen       JobStatus = "open"
	JobHired      JobStatus = "hired"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobCancelled  JobStatus = "cancelled"
)

// JobPosting is a client-owned listing. Its status and hired_worker fields are
// mutated only by the negotiation and contract engines, never by profile code.
type JobPosting struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"client_id"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Price       float64   `json:"price"`
	CategoryID  string    `json:"category_id"`
	Status      JobStatus `json:"status"`
	HiredWorker *string   `json:"hired_worker,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
