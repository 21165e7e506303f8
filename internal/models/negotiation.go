package models

import "time"

// Role identifies which side of a negotiation or contract an actor stands on.
type Role string

const (
	RoleWorker Role = "worker"
	RoleClient Role = "client"
)

// Counterpart returns the opposite role.
func (r Role) Counterpart() Role {
	if r == RoleWorker {
		return RoleClient
	}
	return RoleWorker
}

// NegotiationKind distinguishes worker-initiated applications from
// client-initiated invitations.
type NegotiationKind string

const (
	KindApplication NegotiationKind = "application"
	KindInvitation  NegotiationKind = "invitation"
)

// Receiver is the party that responds to a freshly created record: the client
// for an application, the worker for an invitation.
func (k NegotiationKind) Receiver() Role {
	if k == KindApplication {
		return RoleClient
	}
	return RoleWorker
}

// NegotiationStatus enumerates negotiation states.
type NegotiationStatus string

const (
	NegotiationPending      NegotiationStatus = "pending"
	NegotiationInDiscussion NegotiationStatus = "in_discussion"
	NegotiationClientAgreed NegotiationStatus = "client_agreed"
	NegotiationWorkerAgreed NegotiationStatus = "worker_agreed"
	NegotiationAccepted     NegotiationStatus = "accepted"
	NegotiationRejected     NegotiationStatus = "rejected"
)

// Terminal reports whether no further transition is permitted.
func (s NegotiationStatus) Terminal() bool {
	return s == NegotiationAccepted || s == NegotiationRejected
}

// Negotiation is an application or invitation progressing toward a contract.
// At most one WorkContract may ever result from a record.
type Negotiation struct {
	ID             string            `json:"id"`
	Kind           NegotiationKind   `json:"kind"`
	JobID          string            `json:"job_id"`
	WorkerID       string            `json:"worker_id"`
	ClientID       string            `json:"client_id"`
	Message        string            `json:"message"`
	ProposedRate   float64           `json:"proposed_rate"`
	DurationDays   *int              `json:"duration_days,omitempty"`
	Status         NegotiationStatus `json:"status"`
	RespondedAt    *time.Time        `json:"responded_at,omitempty"`
	ClientAgreedAt *time.Time        `json:"client_agreed_at,omitempty"`
	WorkerAgreedAt *time.Time        `json:"worker_agreed_at,omitempty"`
	ContractID     *string           `json:"contract_id,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// PartyRole returns the caller's role on this record, or false if the caller
// is neither party.
func (n Negotiation) PartyRole(profileID string) (Role, bool) {
	switch profileID {
	case n.WorkerID:
		return RoleWorker, true
	case n.ClientID:
		return RoleClient, true
	}
	return "", false
}

// AgreedBy reports whether the given role has already recorded agreement.
func (n Negotiation) AgreedBy(role Role) bool {
	if role == RoleClient {
		return n.ClientAgreedAt != nil
	}
	return n.WorkerAgreedAt != nil
}
