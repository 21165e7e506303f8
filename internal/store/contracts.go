package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"gigwork-engine/internal/models"
)

const contractColumns = `id, client_id, worker_id, job_id, negotiation_id, contract_type, agreed_rate,
	contract_status, start_date, worker_completed_at, client_confirmed_at, completed_at, actual_end_date,
	is_deleted, created_ip, created_at, updated_at`

func scanContract(row pgx.Row) (models.WorkContract, error) {
	var c models.WorkContract
	var startDate, workerDone, clientConfirmed, completedAt, actualEnd pgtype.Timestamptz
	err := row.Scan(&c.ID, &c.ClientID, &c.WorkerID, &c.JobID, &c.NegotiationID, &c.ContractType,
		&c.AgreedRate, &c.Status, &startDate, &workerDone, &clientConfirmed, &completedAt,
		&actualEnd, &c.IsDeleted, &c.CreatedIP, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.WorkContract{}, ErrNotFound
	}
	if err != nil {
		return models.WorkContract{}, fmt.Errorf("scan contract: %w", err)
	}
	c.StartDate = timePtr(startDate)
	c.WorkerCompletedAt = timePtr(workerDone)
	c.ClientConfirmedAt = timePtr(clientConfirmed)
	c.CompletedAt = timePtr(completedAt)
	c.ActualEndDate = timePtr(actualEnd)
	return c, nil
}

// GetContract fetches a live (non-deleted) contract by id.
func (s *Postgres) GetContract(ctx context.Context, id string) (models.WorkContract, error) {
	return scanContract(s.pool.QueryRow(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE id = $1 AND NOT is_deleted`, id))
}

// lockContractInStatus is the conditional fetch: the row is selected by id and
// expected status together, under FOR UPDATE, so a stale caller sees not-found
// instead of mutating a moved row.
func lockContractInStatus(ctx context.Context, tx pgx.Tx, id string, from ...models.ContractStatus) (models.WorkContract, bool, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+contractColumns+`
		FROM contracts
		WHERE id = $1 AND contract_status = ANY($2) AND NOT is_deleted
		FOR UPDATE
	`, id, statusStrings(from))
	c, err := scanContract(row)
	if errors.Is(err, ErrNotFound) {
		return models.WorkContract{}, false, nil
	}
	if err != nil {
		return models.WorkContract{}, false, err
	}
	return c, true, nil
}

// StartContractWork moves an active contract to in_progress and, inside the
// same transaction, flips the worker to working and the job to in_progress.
// The availability gate is re-checked under lock; ErrWorkerUnavailable aborts
// the whole transition.
func (s *Postgres) StartContractWork(ctx context.Context, contractID string, now time.Time) (models.WorkContract, bool, error) {
	var out models.WorkContract
	matched := false
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		c, ok, err := lockContractInStatus(ctx, tx, contractID, models.ContractActive)
		if err != nil || !ok {
			return err
		}

		worker, err := scanWorker(tx.QueryRow(ctx,
			`SELECT `+workerColumns+` FROM workers WHERE id = $1 FOR UPDATE`, c.WorkerID))
		if err != nil {
			return err
		}
		if !worker.CanAcceptNewContract() {
			return ErrWorkerUnavailable
		}

		if _, err := tx.Exec(ctx, `
			UPDATE contracts SET contract_status = $2, start_date = $3, updated_at = NOW()
			WHERE id = $1
		`, c.ID, models.ContractInProgress, now); err != nil {
			return fmt.Errorf("start contract: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE workers SET status = $2, current_job = $3, updated_at = NOW()
			WHERE id = $1
		`, c.WorkerID, models.WorkerWorking, c.JobID); err != nil {
			return fmt.Errorf("mark worker working: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE job_postings SET status = $2, updated_at = NOW()
			WHERE id = $1
		`, c.JobID, models.JobInProgress); err != nil {
			return fmt.Errorf("mark job in progress: %w", err)
		}

		matched = true
		out = c
		out.Status = models.ContractInProgress
		out.StartDate = &now
		return nil
	})
	if err != nil {
		return models.WorkContract{}, false, err
	}
	return out, matched, nil
}

// CompleteContractWork moves an in_progress contract to awaiting client
// confirmation. The worker is freed immediately: their labor is done pending
// sign-off, so capacity is not withheld until the client acts.
func (s *Postgres) CompleteContractWork(ctx context.Context, contractID string, now time.Time) (models.WorkContract, bool, error) {
	var out models.WorkContract
	matched := false
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		c, ok, err := lockContractInStatus(ctx, tx, contractID, models.ContractInProgress)
		if err != nil || !ok {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE contracts SET contract_status = $2, worker_completed_at = $3, updated_at = NOW()
			WHERE id = $1
		`, c.ID, models.ContractAwaitingClient, now); err != nil {
			return fmt.Errorf("complete contract work: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE workers SET status = $2, current_job = NULL, updated_at = NOW()
			WHERE id = $1
		`, c.WorkerID, models.WorkerAvailable); err != nil {
			return fmt.Errorf("free worker: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE job_postings SET status = $2, updated_at = NOW()
			WHERE id = $1
		`, c.JobID, models.JobCompleted); err != nil {
			return fmt.Errorf("mark job completed: %w", err)
		}

		matched = true
		out = c
		out.Status = models.ContractAwaitingClient
		out.WorkerCompletedAt = &now
		return nil
	})
	if err != nil {
		return models.WorkContract{}, false, err
	}
	return out, matched, nil
}

// ConfirmContractCompletion is the client sign-off. The jobs-completed counter
// is deliberately not part of this transaction; callers bump it afterwards,
// best-effort.
func (s *Postgres) ConfirmContractCompletion(ctx context.Context, contractID string, now time.Time) (models.WorkContract, bool, error) {
	var out models.WorkContract
	matched := false
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		c, ok, err := lockContractInStatus(ctx, tx, contractID, models.ContractAwaitingClient)
		if err != nil || !ok {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE contracts
			SET contract_status = $2, client_confirmed_at = $3, completed_at = $3, actual_end_date = $3, updated_at = NOW()
			WHERE id = $1
		`, c.ID, models.ContractCompleted, now); err != nil {
			return fmt.Errorf("confirm contract: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE job_postings SET status = $2, updated_at = NOW()
			WHERE id = $1
		`, c.JobID, models.JobCompleted); err != nil {
			return fmt.Errorf("mark job completed: %w", err)
		}

		matched = true
		out = c
		out.Status = models.ContractCompleted
		out.ClientConfirmedAt = &now
		out.CompletedAt = &now
		out.ActualEndDate = &now
		return nil
	})
	if err != nil {
		return models.WorkContract{}, false, err
	}
	return out, matched, nil
}

// CancelContract tears down a not-yet-submitted contract: worker freed, job
// reopened with no hired worker.
func (s *Postgres) CancelContract(ctx context.Context, contractID string, now time.Time) (models.WorkContract, bool, error) {
	var out models.WorkContract
	matched := false
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		c, ok, err := lockContractInStatus(ctx, tx, contractID, models.ContractActive, models.ContractInProgress)
		if err != nil || !ok {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE contracts SET contract_status = $2, actual_end_date = $3, updated_at = NOW()
			WHERE id = $1
		`, c.ID, models.ContractCancelled, now); err != nil {
			return fmt.Errorf("cancel contract: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE workers SET status = $2, current_job = NULL, updated_at = NOW()
			WHERE id = $1
		`, c.WorkerID, models.WorkerAvailable); err != nil {
			return fmt.Errorf("free worker: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE job_postings SET status = $2, hired_worker = NULL, updated_at = NOW()
			WHERE id = $1
		`, c.JobID, models.JobOpen); err != nil {
			return fmt.Errorf("reopen job: %w", err)
		}

		matched = true
		out = c
		out.Status = models.ContractCancelled
		out.ActualEndDate = &now
		return nil
	})
	if err != nil {
		return models.WorkContract{}, false, err
	}
	return out, matched, nil
}
