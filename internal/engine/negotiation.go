package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"gigwork-engine/internal/identity"
	"gigwork-engine/internal/lifecycle"
	"gigwork-engine/internal/models"
	"gigwork-engine/internal/notify"
	"gigwork-engine/internal/store"
	"gigwork-engine/internal/telemetry"
)

// ProposalParams carries the negotiated terms supplied at creation time.
type ProposalParams struct {
	JobID        string
	WorkerID     string // invitations only; ignored for applications
	Message      string
	ProposedRate float64
	DurationDays *int
}

// RespondAction is the receiving party's answer to a pending record.
type RespondAction string

const (
	ActionAccept RespondAction = "accept"
	ActionReject RespondAction = "reject"
)

// Apply creates a worker-initiated application against an open job.
func (e *Engine) Apply(ctx context.Context, actor identity.Party, p ProposalParams) (models.Negotiation, error) {
	if actor.Role() != models.RoleWorker {
		return models.Negotiation{}, validationf("only workers may apply to jobs")
	}
	if p.JobID == "" {
		return models.Negotiation{}, validationf("job_id is required")
	}
	if p.ProposedRate < 0 {
		return models.Negotiation{}, validationf("proposed_rate must not be negative")
	}

	job, err := e.store.GetJob(ctx, p.JobID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Negotiation{}, notFound()
	}
	if err != nil {
		return models.Negotiation{}, internal("load job", err)
	}
	if job.Status != models.JobOpen {
		return models.Negotiation{}, stateConflictf("job is %s, applications require an open job", job.Status)
	}

	n := models.Negotiation{
		ID:           uuid.New().String(),
		Kind:         models.KindApplication,
		JobID:        job.ID,
		WorkerID:     actor.ProfileID(),
		ClientID:     job.ClientID,
		Message:      p.Message,
		ProposedRate: p.ProposedRate,
		DurationDays: p.DurationDays,
		Status:       models.NegotiationPending,
		CreatedAt:    time.Now().UTC(),
	}
	n.UpdatedAt = n.CreatedAt
	if err := e.store.CreateNegotiation(ctx, n); err != nil {
		return models.Negotiation{}, internal("create application", err)
	}
	telemetry.NegotiationsCreated.Inc()
	e.emitNegotiation(ctx, n, "created")
	return n, nil
}

// Invite creates a client-initiated invitation for a worker on the client's
// own job.
func (e *Engine) Invite(ctx context.Context, actor identity.Party, p ProposalParams) (models.Negotiation, error) {
	if actor.Role() != models.RoleClient {
		return models.Negotiation{}, validationf("only clients may invite workers")
	}
	if p.JobID == "" || p.WorkerID == "" {
		return models.Negotiation{}, validationf("job_id and worker_id are required")
	}
	if p.ProposedRate < 0 {
		return models.Negotiation{}, validationf("proposed_rate must not be negative")
	}

	job, err := e.store.GetJob(ctx, p.JobID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Negotiation{}, notFound()
	}
	if err != nil {
		return models.Negotiation{}, internal("load job", err)
	}
	if job.ClientID != actor.ProfileID() {
		return models.Negotiation{}, notFound()
	}
	if job.Status != models.JobOpen {
		return models.Negotiation{}, stateConflictf("job is %s, invitations require an open job", job.Status)
	}
	if _, err := e.store.GetWorker(ctx, p.WorkerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Negotiation{}, notFound()
		}
		return models.Negotiation{}, internal("load worker", err)
	}

	n := models.Negotiation{
		ID:           uuid.New().String(),
		Kind:         models.KindInvitation,
		JobID:        job.ID,
		WorkerID:     p.WorkerID,
		ClientID:     actor.ProfileID(),
		Message:      p.Message,
		ProposedRate: p.ProposedRate,
		DurationDays: p.DurationDays,
		Status:       models.NegotiationPending,
		CreatedAt:    time.Now().UTC(),
	}
	n.UpdatedAt = n.CreatedAt
	if err := e.store.CreateNegotiation(ctx, n); err != nil {
		return models.Negotiation{}, internal("create invitation", err)
	}
	telemetry.NegotiationsCreated.Inc()
	e.emitNegotiation(ctx, n, "created")
	return n, nil
}

// GetNegotiation returns the record if the actor is one of its parties.
func (e *Engine) GetNegotiation(ctx context.Context, actor identity.Party, id string) (models.Negotiation, error) {
	n, err := e.loadNegotiation(ctx, id)
	if err != nil {
		return models.Negotiation{}, err
	}
	if _, ok := n.PartyRole(actor.ProfileID()); !ok {
		return models.Negotiation{}, notFound()
	}
	return n, nil
}

// Respond lets the receiving party accept or reject a pending record.
// Accept short-circuits straight to contract creation; reject is terminal.
func (e *Engine) Respond(ctx context.Context, actor identity.Party, id string, action RespondAction, clientIP string) (models.Negotiation, *models.WorkContract, error) {
	if action != ActionAccept && action != ActionReject {
		return models.Negotiation{}, nil, validationf("action must be accept or reject")
	}

	n, err := e.loadNegotiation(ctx, id)
	if err != nil {
		return models.Negotiation{}, nil, err
	}
	role, ok := n.PartyRole(actor.ProfileID())
	if !ok || role != n.Kind.Receiver() {
		return models.Negotiation{}, nil, notFound()
	}

	now := time.Now().UTC()
	if action == ActionReject {
		if _, err := lifecycle.NegotiationNext(n.Status, lifecycle.EventReject); err != nil {
			telemetry.StateConflicts.Inc()
			return models.Negotiation{}, nil, stateConflictf("negotiation is %s, respond requires pending", n.Status)
		}
		updated, matched, err := e.store.TransitionNegotiation(ctx, store.NegotiationTransition{
			ID:          id,
			From:        []models.NegotiationStatus{models.NegotiationPending},
			To:          models.NegotiationRejected,
			RespondedAt: &now,
		})
		if err != nil {
			return models.Negotiation{}, nil, internal("reject negotiation", err)
		}
		if !matched {
			return e.negotiationConflict(ctx, id, "respond")
		}
		e.emitNegotiation(ctx, updated, "rejected")
		return updated, nil, nil
	}

	if _, err := lifecycle.NegotiationNext(n.Status, lifecycle.EventAccept); err != nil {
		telemetry.StateConflicts.Inc()
		return models.Negotiation{}, nil, stateConflictf("negotiation is %s, respond requires pending", n.Status)
	}
	contract, matched, err := e.store.AcceptNegotiation(ctx, store.AcceptNegotiationParams{
		NegotiationID: id,
		From:          []models.NegotiationStatus{models.NegotiationPending},
		RespondedAt:   &now,
		Contract:      e.buildContract(n, clientIP, now),
	})
	if err != nil {
		return models.Negotiation{}, nil, internal("accept negotiation", err)
	}
	if !matched {
		return e.negotiationConflict(ctx, id, "respond")
	}
	updated, err := e.loadNegotiation(ctx, id)
	if err != nil {
		return models.Negotiation{}, nil, err
	}
	telemetry.ContractsCreated.Inc()
	e.emitNegotiation(ctx, updated, "accepted")
	e.emitContract(ctx, contract)
	return updated, &contract, nil
}

// StartDiscussion moves a pending record into discussion and guarantees a
// conversation channel exists between the parties. It returns the
// counterparty's profile id so the caller's messaging UI can attach.
func (e *Engine) StartDiscussion(ctx context.Context, actor identity.Party, id string) (models.Negotiation, string, error) {
	n, err := e.loadNegotiation(ctx, id)
	if err != nil {
		return models.Negotiation{}, "", err
	}
	role, ok := n.PartyRole(actor.ProfileID())
	if !ok || role != n.Kind.Receiver() {
		return models.Negotiation{}, "", notFound()
	}
	if _, err := lifecycle.NegotiationNext(n.Status, lifecycle.EventStartDiscussion); err != nil {
		telemetry.StateConflicts.Inc()
		return models.Negotiation{}, "", stateConflictf("negotiation is %s, discussion requires pending", n.Status)
	}

	updated, matched, err := e.store.TransitionNegotiation(ctx, store.NegotiationTransition{
		ID:   id,
		From: []models.NegotiationStatus{models.NegotiationPending},
		To:   models.NegotiationInDiscussion,
	})
	if err != nil {
		return models.Negotiation{}, "", internal("start discussion", err)
	}
	if !matched {
		n, _, err := e.negotiationConflict(ctx, id, "start discussion")
		return n, "", err
	}

	// Idempotent: an existing channel between the pair is reused.
	if _, err := e.store.EnsureConversation(ctx, models.Conversation{
		ID:        uuid.New().String(),
		ClientID:  updated.ClientID,
		WorkerID:  updated.WorkerID,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return models.Negotiation{}, "", internal("ensure conversation", err)
	}

	counterpart := updated.WorkerID
	if role == models.RoleWorker {
		counterpart = updated.ClientID
	}
	e.emitNegotiation(ctx, updated, "discussion_started")
	return updated, counterpart, nil
}

// MarkAgreement records one party's position during discussion. agreed=false
// is terminal rejection; agreed=true from the counterparty's agreed state
// finalizes the negotiation and creates exactly one contract. Re-agreement by
// the same party is a no-op.
func (e *Engine) MarkAgreement(ctx context.Context, actor identity.Party, id string, agreed bool, clientIP string) (models.Negotiation, *models.WorkContract, error) {
	discussing := []models.NegotiationStatus{
		models.NegotiationInDiscussion,
		models.NegotiationClientAgreed,
		models.NegotiationWorkerAgreed,
	}

	// The conditional writes below can lose a race with the counterparty;
	// re-reading and re-deciding converges in at most a few steps because the
	// machine only moves forward.
	for attempt := 0; attempt < 3; attempt++ {
		n, err := e.loadNegotiation(ctx, id)
		if err != nil {
			return models.Negotiation{}, nil, err
		}
		role, ok := n.PartyRole(actor.ProfileID())
		if !ok {
			return models.Negotiation{}, nil, notFound()
		}

		if !agreed {
			if _, err := lifecycle.NegotiationNext(n.Status, lifecycle.EventDisagree); err != nil {
				telemetry.StateConflicts.Inc()
				return models.Negotiation{}, nil, stateConflictf("negotiation is %s, agreement requires an open discussion", n.Status)
			}
			now := time.Now().UTC()
			updated, matched, err := e.store.TransitionNegotiation(ctx, store.NegotiationTransition{
				ID:          id,
				From:        discussing,
				To:          models.NegotiationRejected,
				RespondedAt: &now,
			})
			if err != nil {
				return models.Negotiation{}, nil, internal("reject negotiation", err)
			}
			if !matched {
				continue
			}
			e.emitNegotiation(ctx, updated, "rejected")
			return updated, nil, nil
		}

		// Same party re-confirming an agreement already on record: no-op.
		if n.AgreedBy(role) && (n.Status == models.NegotiationClientAgreed || n.Status == models.NegotiationWorkerAgreed || n.Status == models.NegotiationAccepted) {
			return n, nil, nil
		}

		event := lifecycle.AgreeEvent(role)
		next, err := lifecycle.NegotiationNext(n.Status, event)
		if err != nil {
			telemetry.StateConflicts.Inc()
			return models.Negotiation{}, nil, stateConflictf("negotiation is %s, agreement requires an open discussion", n.Status)
		}

		now := time.Now().UTC()
		if next != models.NegotiationAccepted {
			t := store.NegotiationTransition{ID: id, From: []models.NegotiationStatus{n.Status}, To: next}
			if role == models.RoleClient {
				t.ClientAgreedAt = &now
			} else {
				t.WorkerAgreedAt = &now
			}
			updated, matched, err := e.store.TransitionNegotiation(ctx, t)
			if err != nil {
				return models.Negotiation{}, nil, internal("record agreement", err)
			}
			if !matched {
				continue
			}
			e.emitNegotiation(ctx, updated, "agreement_recorded")
			return updated, nil, nil
		}

		// Both parties have now agreed: one contract, job hired, terminal record.
		p := store.AcceptNegotiationParams{
			NegotiationID: id,
			From:          []models.NegotiationStatus{n.Status},
			Contract:      e.buildContract(n, clientIP, now),
		}
		if role == models.RoleClient {
			p.ClientAgreedAt = &now
		} else {
			p.WorkerAgreedAt = &now
		}
		contract, matched, err := e.store.AcceptNegotiation(ctx, p)
		if err != nil {
			return models.Negotiation{}, nil, internal("finalize agreement", err)
		}
		if !matched {
			continue
		}
		updated, err := e.loadNegotiation(ctx, id)
		if err != nil {
			return models.Negotiation{}, nil, err
		}
		telemetry.ContractsCreated.Inc()
		e.emitNegotiation(ctx, updated, "accepted")
		e.emitContract(ctx, contract)
		return updated, &contract, nil
	}

	return e.negotiationConflict(ctx, id, "agreement")
}

func (e *Engine) loadNegotiation(ctx context.Context, id string) (models.Negotiation, error) {
	n, err := e.store.GetNegotiation(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.Negotiation{}, notFound()
	}
	if err != nil {
		return models.Negotiation{}, internal("load negotiation", err)
	}
	return n, nil
}

// negotiationConflict reports the record's current state after a conditional
// write found it already moved.
func (e *Engine) negotiationConflict(ctx context.Context, id, op string) (models.Negotiation, *models.WorkContract, error) {
	telemetry.StateConflicts.Inc()
	n, err := e.loadNegotiation(ctx, id)
	if err != nil {
		return models.Negotiation{}, nil, err
	}
	return models.Negotiation{}, nil, stateConflictf("negotiation is %s, %s no longer permitted", n.Status, op)
}

func (e *Engine) buildContract(n models.Negotiation, clientIP string, now time.Time) models.WorkContract {
	contractType := models.TypeJobApplication
	if n.Kind == models.KindInvitation {
		contractType = models.TypeDirectInvitation
	}
	return models.WorkContract{
		ID:            uuid.New().String(),
		ClientID:      n.ClientID,
		WorkerID:      n.WorkerID,
		JobID:         n.JobID,
		NegotiationID: n.ID,
		ContractType:  contractType,
		AgreedRate:    n.ProposedRate,
		Status:        models.ContractActive,
		CreatedIP:     clientIP,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (e *Engine) emitNegotiation(ctx context.Context, n models.Negotiation, suffix string) {
	e.emit(ctx, notify.Event{
		Name:       string(n.Kind) + ":" + suffix,
		Recipients: []string{n.ClientID, n.WorkerID},
		Payload: map[string]any{
			"negotiation_id": n.ID,
			"status":         n.Status,
			"job_id":         n.JobID,
		},
	})
}

func (e *Engine) emitContract(ctx context.Context, c models.WorkContract) {
	e.emit(ctx, notify.Event{
		Name:       notify.EventContractUpdated,
		Recipients: []string{c.ClientID, c.WorkerID},
		Payload: map[string]any{
			"contract_id": c.ID,
			"status":      c.Status,
		},
	})
}
