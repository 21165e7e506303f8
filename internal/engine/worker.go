package engine

import (
	"context"
	"errors"

	"gigwork-engine/internal/identity"
	"gigwork-engine/internal/models"
	"gigwork-engine/internal/store"
	"gigwork-engine/internal/telemetry"
)

// SetWorkerAvailability is the worker's explicit opt-in/opt-out. A worker
// attached to a job cannot toggle; the contract engine owns that pair while
// work is in flight.
func (e *Engine) SetWorkerAvailability(ctx context.Context, actor identity.Party, available bool) (models.WorkerProfile, error) {
	if actor.Role() != models.RoleWorker {
		return models.WorkerProfile{}, validationf("only workers have an availability status")
	}
	w, err := e.store.GetWorker(ctx, actor.ProfileID())
	if errors.Is(err, store.ErrNotFound) {
		return models.WorkerProfile{}, notFound()
	}
	if err != nil {
		return models.WorkerProfile{}, internal("load worker", err)
	}
	if w.Status == models.WorkerWorking {
		telemetry.StateConflicts.Inc()
		return models.WorkerProfile{}, stateConflictf("worker is working, availability is managed by the active contract")
	}

	status := models.WorkerNotAvailable
	if available {
		status = models.WorkerAvailable
	}
	if err := e.store.SetWorkerAvailability(ctx, w.ID, status); err != nil {
		return models.WorkerProfile{}, internal("set worker availability", err)
	}
	w.Status = status
	w.CurrentJob = nil
	return w, nil
}
