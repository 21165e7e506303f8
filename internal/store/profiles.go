package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"gigwork-engine/internal/models"
)

const workerColumns = `id, credential_id, name, status, current_job, total_jobs_completed, blocked, is_verified, created_at, updated_at`

func scanWorker(row pgx.Row) (models.WorkerProfile, error) {
	var w models.WorkerProfile
	var currentJob pgtype.Text
	err := row.Scan(&w.ID, &w.CredentialID, &w.Name, &w.Status, &currentJob,
		&w.TotalJobsCompleted, &w.Blocked, &w.IsVerified, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.WorkerProfile{}, ErrNotFound
	}
	if err != nil {
		return models.WorkerProfile{}, fmt.Errorf("scan worker: %w", err)
	}
	w.CurrentJob = textPtr(currentJob)
	return w, nil
}

// GetWorker fetches a worker profile by id.
func (s *Postgres) GetWorker(ctx context.Context, id string) (models.WorkerProfile, error) {
	return scanWorker(s.pool.QueryRow(ctx,
		`SELECT `+workerColumns+` FROM workers WHERE id = $1`, id))
}

// GetWorkerByCredential resolves the worker profile for an authenticated credential.
func (s *Postgres) GetWorkerByCredential(ctx context.Context, credentialID string) (models.WorkerProfile, error) {
	return scanWorker(s.pool.QueryRow(ctx,
		`SELECT `+workerColumns+` FROM workers WHERE credential_id = $1`, credentialID))
}

// GetClient fetches a client profile by id.
func (s *Postgres) GetClient(ctx context.Context, id string) (models.ClientProfile, error) {
	return s.scanClient(s.pool.QueryRow(ctx, `
		SELECT id, credential_id, name, company_name, blocked, created_at, updated_at
		FROM clients WHERE id = $1
	`, id))
}

// GetClientByCredential resolves the client profile for an authenticated credential.
func (s *Postgres) GetClientByCredential(ctx context.Context, credentialID string) (models.ClientProfile, error) {
	return s.scanClient(s.pool.QueryRow(ctx, `
		SELECT id, credential_id, name, company_name, blocked, created_at, updated_at
		FROM clients WHERE credential_id = $1
	`, credentialID))
}

func (s *Postgres) scanClient(row pgx.Row) (models.ClientProfile, error) {
	var c models.ClientProfile
	err := row.Scan(&c.ID, &c.CredentialID, &c.Name, &c.CompanyName, &c.Blocked, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ClientProfile{}, ErrNotFound
	}
	if err != nil {
		return models.ClientProfile{}, fmt.Errorf("scan client: %w", err)
	}
	return c, nil
}

// SetWorkerAvailability is the worker's explicit availability toggle. The
// contract engine never uses this; its transitions flip the worker inside the
// same transaction as the contract write.
func (s *Postgres) SetWorkerAvailability(ctx context.Context, workerID string, status models.WorkerStatus) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE workers SET status = $2, current_job = NULL, updated_at = NOW()
		WHERE id = $1
	`, workerID, status)
	if err != nil {
		return fmt.Errorf("update worker availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementJobsCompleted bumps the completion counter. It runs outside the
// confirmation transaction: the count may lag or fail independently.
func (s *Postgres) IncrementJobsCompleted(ctx context.Context, workerID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE workers SET total_jobs_completed = total_jobs_completed + 1, updated_at = NOW()
		WHERE id = $1
	`, workerID)
	return err
}

// GetJob fetches a job posting by id.
func (s *Postgres) GetJob(ctx context.Context, id string) (models.JobPosting, error) {
	var j models.JobPosting
	var hired pgtype.Text
	err := s.pool.QueryRow(ctx, `
		SELECT id, client_id, description, location, price, category_id, status, hired_worker, created_at, updated_at
		FROM job_postings WHERE id = $1
	`, id).Scan(&j.ID, &j.ClientID, &j.Description, &j.Location, &j.Price, &j.CategoryID,
		&j.Status, &hired, &j.CreatedAt, &j.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.JobPosting{}, ErrNotFound
	}
	if err != nil {
		return models.JobPosting{}, fmt.Errorf("scan job posting: %w", err)
	}
	j.HiredWorker = textPtr(hired)
	return j, nil
}
