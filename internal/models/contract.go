package models

import "time"

// ContractStatus enumerates contract lifecycle states.
type ContractStatus string

const (
	ContractActive         ContractStatus = "active"
	ContractInProgress     ContractStatus = "in_progress"
	ContractAwaitingClient ContractStatus = "awaiting_client_confirmation"
	ContractCompleted      ContractStatus = "completed"
	ContractCancelled      ContractStatus = "cancelled"
)

// ContractType records which negotiation kind produced the contract.
type ContractType string

const (
	TypeJobApplication   ContractType = "job_application"
	TypeDirectInvitation ContractType = "direct_invitation"
)

// WorkContract is the binding agreement created once both parties agree.
// CreatedIP is stored for audit and must never be serialized to API clients.
type WorkContract struct {
	ID                string         `json:"id"`
	ClientID          string         `json:"client_id"`
	WorkerID          string         `json:"worker_id"`
	JobID             string         `json:"job_id"`
	NegotiationID     string         `json:"negotiation_id"`
	ContractType      ContractType   `json:"contract_type"`
	AgreedRate        float64        `json:"agreed_rate"`
	Status            ContractStatus `json:"contract_status"`
	StartDate         *time.Time     `json:"start_date,omitempty"`
	WorkerCompletedAt *time.Time     `json:"worker_completed_at,omitempty"`
	ClientConfirmedAt *time.Time     `json:"client_confirmed_at,omitempty"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
	ActualEndDate     *time.Time     `json:"actual_end_date,omitempty"`
	IsDeleted         bool           `json:"-"`
	CreatedIP         string         `json:"-"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// PartyRole returns the caller's role on this contract, or false if the
// caller is neither party.
func (c WorkContract) PartyRole(profileID string) (Role, bool) {
	switch profileID {
	case c.WorkerID:
		return RoleWorker, true
	case c.ClientID:
		return RoleClient, true
	}
	return "", false
}
