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

const negotiationColumns = `id, kind, job_id, worker_id, client_id, message, proposed_rate, duration_days,
	status, responded_at, client_agreed_at, worker_agreed_at, contract_id, created_at, updated_at`

func scanNegotiation(row pgx.Row) (models.Negotiation, error) {
	var n models.Negotiation
	var durationDays pgtype.Int4
	var respondedAt, clientAgreedAt, workerAgreedAt pgtype.Timestamptz
	var contractID pgtype.Text
	err := row.Scan(&n.ID, &n.Kind, &n.JobID, &n.WorkerID, &n.ClientID, &n.Message,
		&n.ProposedRate, &durationDays, &n.Status, &respondedAt, &clientAgreedAt,
		&workerAgreedAt, &contractID, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Negotiation{}, ErrNotFound
	}
	if err != nil {
		return models.Negotiation{}, fmt.Errorf("scan negotiation: %w", err)
	}
	n.DurationDays = intPtr(durationDays)
	n.RespondedAt = timePtr(respondedAt)
	n.ClientAgreedAt = timePtr(clientAgreedAt)
	n.WorkerAgreedAt = timePtr(workerAgreedAt)
	n.ContractID = textPtr(contractID)
	return n, nil
}

// CreateNegotiation inserts a pending application or invitation row.
func (s *Postgres) CreateNegotiation(ctx context.Context, n models.Negotiation) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO negotiations (id, kind, job_id, worker_id, client_id, message, proposed_rate, duration_days, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
	`, n.ID, n.Kind, n.JobID, n.WorkerID, n.ClientID, n.Message, n.ProposedRate, n.DurationDays, n.Status, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert negotiation: %w", err)
	}
	return nil
}

// GetNegotiation fetches a negotiation record by id.
func (s *Postgres) GetNegotiation(ctx context.Context, id string) (models.Negotiation, error) {
	return scanNegotiation(s.pool.QueryRow(ctx,
		`SELECT `+negotiationColumns+` FROM negotiations WHERE id = $1`, id))
}

// NegotiationTransition describes a conditional status move: the update only
// applies while the row is still in one of the From states.
type NegotiationTransition struct {
	ID             string
	From           []models.NegotiationStatus
	To             models.NegotiationStatus
	RespondedAt    *time.Time
	ClientAgreedAt *time.Time
	WorkerAgreedAt *time.Time
}

// TransitionNegotiation applies a conditional fetch-and-update. The boolean
// reports whether the row matched; false means the state moved underneath the
// caller and nothing was written.
func (s *Postgres) TransitionNegotiation(ctx context.Context, t NegotiationTransition) (models.Negotiation, bool, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE negotiations
		SET status = $3,
		    responded_at = COALESCE($4, responded_at),
		    client_agreed_at = COALESCE($5, client_agreed_at),
		    worker_agreed_at = COALESCE($6, worker_agreed_at),
		    updated_at = NOW()
		WHERE id = $1 AND status = ANY($2)
		RETURNING `+negotiationColumns,
		t.ID, statusStrings(t.From), t.To, t.RespondedAt, t.ClientAgreedAt, t.WorkerAgreedAt)
	n, err := scanNegotiation(row)
	if errors.Is(err, ErrNotFound) {
		return models.Negotiation{}, false, nil
	}
	if err != nil {
		return models.Negotiation{}, false, err
	}
	return n, true, nil
}

// AcceptNegotiationParams finalizes mutual agreement: the negotiation moves to
// its terminal accepted state, exactly one contract is inserted, and the job
// flips to hired — all in one transaction.
type AcceptNegotiationParams struct {
	NegotiationID  string
	From           []models.NegotiationStatus
	RespondedAt    *time.Time
	ClientAgreedAt *time.Time
	WorkerAgreedAt *time.Time
	Contract       models.WorkContract
}

// AcceptNegotiation performs the agreement-to-contract write. The boolean is
// false when the negotiation was no longer in an accepting state, which is how
// the second writer of a near-simultaneous agreement race is turned into a
// no-op instead of a duplicate contract.
func (s *Postgres) AcceptNegotiation(ctx context.Context, p AcceptNegotiationParams) (models.WorkContract, bool, error) {
	matched := false
	c := p.Contract
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE negotiations
			SET status = $3,
			    responded_at = COALESCE($4, responded_at),
			    client_agreed_at = COALESCE($5, client_agreed_at),
			    worker_agreed_at = COALESCE($6, worker_agreed_at),
			    contract_id = $7,
			    updated_at = NOW()
			WHERE id = $1 AND status = ANY($2) AND contract_id IS NULL
		`, p.NegotiationID, statusStrings(p.From), models.NegotiationAccepted,
			p.RespondedAt, p.ClientAgreedAt, p.WorkerAgreedAt, c.ID)
		if err != nil {
			return fmt.Errorf("finalize negotiation: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		matched = true

		_, err = tx.Exec(ctx, `
			INSERT INTO contracts (id, client_id, worker_id, job_id, negotiation_id, contract_type, agreed_rate, contract_status, created_ip, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		`, c.ID, c.ClientID, c.WorkerID, c.JobID, c.NegotiationID, c.ContractType,
			c.AgreedRate, models.ContractActive, c.CreatedIP, c.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert contract: %w", err)
		}

		_, err = tx.Exec(ctx, `
			UPDATE job_postings SET status = $2, hired_worker = $3, updated_at = NOW()
			WHERE id = $1
		`, c.JobID, models.JobHired, c.WorkerID)
		if err != nil {
			return fmt.Errorf("mark job hired: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.WorkContract{}, false, err
	}
	if !matched {
		return models.WorkContract{}, false, nil
	}
	c.Status = models.ContractActive
	c.UpdatedAt = c.CreatedAt
	return c, true, nil
}

// EnsureConversation guarantees a channel exists between the two parties,
// returning the existing one when present.
func (s *Postgres) EnsureConversation(ctx context.Context, conv models.Conversation) (models.Conversation, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO conversations (id, client_id, worker_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (client_id, worker_id) DO UPDATE SET client_id = EXCLUDED.client_id
		RETURNING id, client_id, worker_id, created_at
	`, conv.ID, conv.ClientID, conv.WorkerID, conv.CreatedAt)
	var out models.Conversation
	if err := row.Scan(&out.ID, &out.ClientID, &out.WorkerID, &out.CreatedAt); err != nil {
		return models.Conversation{}, fmt.Errorf("ensure conversation: %w", err)
	}
	return out, nil
}

func statusStrings[T ~string](in []T) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = string(v)
	}
	return out
}
