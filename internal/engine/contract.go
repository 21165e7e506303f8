package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"gigwork-engine/internal/identity"
	"gigwork-engine/internal/lifecycle"
	"gigwork-engine/internal/models"
	"gigwork-engine/internal/store"
	"gigwork-engine/internal/telemetry"
)

// GetContract returns the contract if the actor is one of its parties.
func (e *Engine) GetContract(ctx context.Context, actor identity.Party, id string) (models.WorkContract, error) {
	c, err := e.loadContract(ctx, id)
	if err != nil {
		return models.WorkContract{}, err
	}
	if _, ok := c.PartyRole(actor.ProfileID()); !ok {
		return models.WorkContract{}, notFound()
	}
	return c, nil
}

// StartWork moves an active contract to in_progress. Only the assigned worker
// may call it, and only while they pass the availability gate.
func (e *Engine) StartWork(ctx context.Context, actor identity.Party, id string) (models.WorkContract, error) {
	c, err := e.authorizeContract(ctx, actor, id, models.RoleWorker)
	if err != nil {
		return models.WorkContract{}, err
	}
	if _, err := lifecycle.ContractNext(c.Status, lifecycle.EventStartWork); err != nil {
		telemetry.StateConflicts.Inc()
		return models.WorkContract{}, stateConflictf("contract is %s, start requires active", c.Status)
	}

	worker, err := e.store.GetWorker(ctx, c.WorkerID)
	if err != nil {
		return models.WorkContract{}, internal("load worker", err)
	}
	if !worker.CanAcceptNewContract() {
		return models.WorkContract{}, workerUnavailable()
	}

	// The store re-checks both the contract status and the gate under lock;
	// this call is the race defense, the checks above exist for precise errors.
	updated, matched, err := e.store.StartContractWork(ctx, id, time.Now().UTC())
	if errors.Is(err, store.ErrWorkerUnavailable) {
		return models.WorkContract{}, workerUnavailable()
	}
	if err != nil {
		return models.WorkContract{}, internal("start contract work", err)
	}
	if !matched {
		return e.contractConflict(ctx, id, "start")
	}
	telemetry.ContractTransitions.Inc()
	e.emitContract(ctx, updated)
	return updated, nil
}

// CompleteWork is the worker's completion submission. The worker is freed
// immediately rather than at client confirmation: their labor is done pending
// sign-off, so capacity is not withheld while the client decides.
func (e *Engine) CompleteWork(ctx context.Context, actor identity.Party, id string) (models.WorkContract, error) {
	c, err := e.authorizeContract(ctx, actor, id, models.RoleWorker)
	if err != nil {
		return models.WorkContract{}, err
	}
	if _, err := lifecycle.ContractNext(c.Status, lifecycle.EventCompleteWork); err != nil {
		telemetry.StateConflicts.Inc()
		return models.WorkContract{}, stateConflictf("contract is %s, completion requires in_progress", c.Status)
	}

	updated, matched, err := e.store.CompleteContractWork(ctx, id, time.Now().UTC())
	if err != nil {
		return models.WorkContract{}, internal("complete contract work", err)
	}
	if !matched {
		return e.contractConflict(ctx, id, "completion")
	}
	telemetry.ContractTransitions.Inc()
	e.emitContract(ctx, updated)
	return updated, nil
}

// ConfirmWorkCompletion is the client's sign-off, closing the contract. The
// worker's completion counter is bumped afterwards, best-effort: a failure
// there is logged but never rolls back the confirmation.
func (e *Engine) ConfirmWorkCompletion(ctx context.Context, actor identity.Party, id string) (models.WorkContract, error) {
	c, err := e.authorizeContract(ctx, actor, id, models.RoleClient)
	if err != nil {
		return models.WorkContract{}, err
	}
	if _, err := lifecycle.ContractNext(c.Status, lifecycle.EventConfirm); err != nil {
		telemetry.StateConflicts.Inc()
		return models.WorkContract{}, stateConflictf("contract is %s, confirmation requires awaiting_client_confirmation", c.Status)
	}

	updated, matched, err := e.store.ConfirmContractCompletion(ctx, id, time.Now().UTC())
	if err != nil {
		return models.WorkContract{}, internal("confirm contract completion", err)
	}
	if !matched {
		return e.contractConflict(ctx, id, "confirmation")
	}

	if err := e.store.IncrementJobsCompleted(ctx, updated.WorkerID); err != nil {
		log.Printf("contract %s: increment jobs completed for worker %s: %v", updated.ID, updated.WorkerID, err)
	}

	telemetry.ContractTransitions.Inc()
	e.emitContract(ctx, updated)
	return updated, nil
}

// CancelContract tears down a contract before completion is submitted.
// Either assigned party may cancel; the worker is freed and the job reopens.
func (e *Engine) CancelContract(ctx context.Context, actor identity.Party, id string) (models.WorkContract, error) {
	c, err := e.loadContract(ctx, id)
	if err != nil {
		return models.WorkContract{}, err
	}
	if _, ok := c.PartyRole(actor.ProfileID()); !ok {
		return models.WorkContract{}, notFound()
	}
	if _, err := lifecycle.ContractNext(c.Status, lifecycle.EventCancel); err != nil {
		telemetry.StateConflicts.Inc()
		return models.WorkContract{}, stateConflictf("contract is %s, cancellation requires active or in_progress", c.Status)
	}

	updated, matched, err := e.store.CancelContract(ctx, id, time.Now().UTC())
	if err != nil {
		return models.WorkContract{}, internal("cancel contract", err)
	}
	if !matched {
		return e.contractConflict(ctx, id, "cancellation")
	}
	telemetry.ContractTransitions.Inc()
	e.emitContract(ctx, updated)
	return updated, nil
}

// authorizeContract loads the contract and verifies the actor holds the
// required role on it. Failures surface as not-found.
func (e *Engine) authorizeContract(ctx context.Context, actor identity.Party, id string, required models.Role) (models.WorkContract, error) {
	c, err := e.loadContract(ctx, id)
	if err != nil {
		return models.WorkContract{}, err
	}
	role, ok := c.PartyRole(actor.ProfileID())
	if !ok || role != required {
		return models.WorkContract{}, notFound()
	}
	return c, nil
}

func (e *Engine) loadContract(ctx context.Context, id string) (models.WorkContract, error) {
	c, err := e.store.GetContract(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.WorkContract{}, notFound()
	}
	if err != nil {
		return models.WorkContract{}, internal("load contract", err)
	}
	return c, nil
}

func (e *Engine) contractConflict(ctx context.Context, id, op string) (models.WorkContract, error) {
	telemetry.StateConflicts.Inc()
	c, err := e.loadContract(ctx, id)
	if err != nil {
		return models.WorkContract{}, err
	}
	return models.WorkContract{}, stateConflictf("contract is %s, %s no longer permitted", c.Status, op)
}
