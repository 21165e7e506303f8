package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"gigwork-engine/internal/models"
)

// ErrDuplicateReview is returned when a role already reviewed a contract.
var ErrDuplicateReview = errors.New("review already exists for this contract and role")

// CreateReview inserts a review. The partial unique index on
// (contract_id, reviewer_type) over non-deleted rows enforces one review per
// role; a violation surfaces as ErrDuplicateReview.
func (s *Postgres) CreateReview(ctx context.Context, r models.Review) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO reviews (id, contract_id, reviewer_id, reviewer_type, reviewee_id, reviewee_type, rating, feedback, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, r.ID, r.ContractID, r.ReviewerID, r.ReviewerType, r.RevieweeID, r.RevieweeType, r.Rating, r.Feedback, r.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateReview
		}
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// RatingSummary recomputes the aggregate from non-deleted reviews. Nothing is
// cached; correctness always derives from the source rows.
func (s *Postgres) RatingSummary(ctx context.Context, revieweeID string) (models.RatingSummary, error) {
	sum := models.RatingSummary{RevieweeID: revieweeID}
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM reviews
		WHERE reviewee_id = $1 AND NOT is_deleted
	`, revieweeID).Scan(&sum.AverageRating, &sum.ReviewCount)
	if err != nil {
		return models.RatingSummary{}, fmt.Errorf("aggregate reviews: %w", err)
	}
	return sum, nil
}
