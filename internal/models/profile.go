package models

import "time"

// WorkerStatus enumerates a worker's engagement state.
type WorkerStatus string

const (
	WorkerAvailable    WorkerStatus = "available"
	WorkerWorking      WorkerStatus = "working"
	WorkerNotAvailable WorkerStatus = "not available"
)

// WorkerProfile tracks a worker's availability alongside identity fields.
// Status and CurrentJob are mutated only by the contract engine; the pair is
// the availability gate for new work.
type WorkerProfile struct {
	ID                 string       `json:"id"`
	CredentialID       string       `json:"credential_id"`
	Name               string       `json:"name"`
	Status             WorkerStatus `json:"status"`
	CurrentJob         *string      `json:"current_job,omitempty"`
	TotalJobsCompleted int          `json:"total_jobs_completed"`
	Blocked            bool         `json:"blocked"`
	IsVerified         bool         `json:"is_verified"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// IsAvailableForWork is the availability gate: the worker must be explicitly
// available, unblocked, verified, and not attached to a job.
func (w WorkerProfile) IsAvailableForWork() bool {
	return w.Status == WorkerAvailable && !w.Blocked && w.IsVerified && w.CurrentJob == nil
}

// CanAcceptNewContract double-checks the working flag on top of the gate,
// guarding the window between a read and a transition.
func (w WorkerProfile) CanAcceptNewContract() bool {
	return w.IsAvailableForWork() && w.Status != WorkerWorking
}

// StartWorking flips the worker onto a job. Callers must have already
// validated CanAcceptNewContract.
func (w *WorkerProfile) StartWorking(jobID string) {
	w.Status = WorkerWorking
	w.CurrentJob = &jobID
}

// BecomeAvailable frees the worker, called on completion submission and on
// contract cancellation.
func (w *WorkerProfile) BecomeAvailable() {
	w.Status = WorkerAvailable
	w.CurrentJob = nil
}

// SetNotAvailable is the worker's explicit opt-out.
func (w *WorkerProfile) SetNotAvailable() {
	w.Status = WorkerNotAvailable
	w.CurrentJob = nil
}

// ClientProfile is the job-poster side of the marketplace.
type ClientProfile struct {
	ID           string    `json:"id"`
	CredentialID string    `json:"credential_id"`
	Name         string    `json:"name"`
	CompanyName  string    `json:"company_name,omitempty"`
	Blocked      bool      `json:"blocked"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
