// Package engine implements the negotiation-to-contract lifecycle: the state
// machines for applications, invitations, and work contracts, plus the
// cross-entity invariants that keep a worker's availability, a job's status,
// and a contract's status consistent under concurrent updates.
package engine

import (
	"context"
	"time"

	"gigwork-engine/internal/models"
	"gigwork-engine/internal/notify"
	"gigwork-engine/internal/store"
)

// Store is the persistence contract. Multi-entity transitions are atomic:
// each method either applies all of its writes or none. Methods returning a
// boolean report whether the conditional fetch matched; false means the
// entity's state moved underneath the caller and nothing was written.
type Store interface {
	GetWorker(ctx context.Context, id string) (models.WorkerProfile, error)
	GetWorkerByCredential(ctx context.Context, credentialID string) (models.WorkerProfile, error)
	GetClient(ctx context.Context, id string) (models.ClientProfile, error)
	GetClientByCredential(ctx context.Context, credentialID string) (models.ClientProfile, error)
	SetWorkerAvailability(ctx context.Context, workerID string, status models.WorkerStatus) error
	IncrementJobsCompleted(ctx context.Context, workerID string) error
	GetJob(ctx context.Context, id string) (models.JobPosting, error)

	CreateNegotiation(ctx context.Context, n models.Negotiation) error
	GetNegotiation(ctx context.Context, id string) (models.Negotiation, error)
	TransitionNegotiation(ctx context.Context, t store.NegotiationTransition) (models.Negotiation, bool, error)
	AcceptNegotiation(ctx context.Context, p store.AcceptNegotiationParams) (models.WorkContract, bool, error)
	EnsureConversation(ctx context.Context, conv models.Conversation) (models.Conversation, error)

	GetContract(ctx context.Context, id string) (models.WorkContract, error)
	StartContractWork(ctx context.Context, contractID string, now time.Time) (models.WorkContract, bool, error)
	CompleteContractWork(ctx context.Context, contractID string, now time.Time) (models.WorkContract, bool, error)
	ConfirmContractCompletion(ctx context.Context, contractID string, now time.Time) (models.WorkContract, bool, error)
	CancelContract(ctx context.Context, contractID string, now time.Time) (models.WorkContract, bool, error)

	CreateReview(ctx context.Context, r models.Review) error
	RatingSummary(ctx context.Context, revieweeID string) (models.RatingSummary, error)
}

var (
	_ Store = (*store.Postgres)(nil)
	_ Store = (*store.Memory)(nil)
)

// Notifier receives events after the owning transaction has committed.
// Implementations must never fail the caller.
type Notifier interface {
	Emit(ctx context.Context, ev notify.Event)
}

// Engine wires the store and the notification sink.
type Engine struct {
	store    Store
	notifier Notifier
}

// New constructs the engine. notifier may be nil, which disables emission.
func New(st Store, notifier Notifier) *Engine {
	return &Engine{store: st, notifier: notifier}
}

func (e *Engine) emit(ctx context.Context, ev notify.Event) {
	if e.notifier == nil {
		return
	}
	e.notifier.Emit(ctx, ev)
}
