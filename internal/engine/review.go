package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"gigwork-engine/internal/identity"
	"gigwork-engine/internal/models"
	"gigwork-engine/internal/notify"
	"gigwork-engine/internal/store"
	"gigwork-engine/internal/telemetry"
)

// SubmitFeedback records a review on a completed contract. The client reviews
// the worker and vice versa; each role gets exactly one non-deleted review
// per contract.
func (e *Engine) SubmitFeedback(ctx context.Context, actor identity.Party, contractID string, rating int, feedback string) (models.Review, error) {
	if rating < 1 || rating > 5 {
		return models.Review{}, validationf("rating must be between 1 and 5")
	}

	c, err := e.loadContract(ctx, contractID)
	if err != nil {
		return models.Review{}, err
	}
	role, ok := c.PartyRole(actor.ProfileID())
	if !ok {
		return models.Review{}, notFound()
	}
	if c.Status != models.ContractCompleted {
		telemetry.StateConflicts.Inc()
		return models.Review{}, stateConflictf("contract is %s, feedback requires completed", c.Status)
	}

	revieweeID := c.WorkerID
	if role == models.RoleWorker {
		revieweeID = c.ClientID
	}
	r := models.Review{
		ID:           uuid.New().String(),
		ContractID:   c.ID,
		ReviewerID:   actor.ProfileID(),
		ReviewerType: role,
		RevieweeID:   revieweeID,
		RevieweeType: role.Counterpart(),
		Rating:       rating,
		Feedback:     feedback,
		CreatedAt:    time.Now().UTC(),
	}
	if err := e.store.CreateReview(ctx, r); err != nil {
		if errors.Is(err, store.ErrDuplicateReview) {
			return models.Review{}, &Error{Code: CodeReviewExists, Message: "a review from this role already exists for the contract"}
		}
		return models.Review{}, internal("create review", err)
	}

	telemetry.ReviewsSubmitted.Inc()
	e.emit(ctx, notify.Event{
		Name:       notify.EventReviewSubmitted,
		Recipients: []string{c.ClientID, c.WorkerID},
		Payload: map[string]any{
			"contract_id":   c.ID,
			"review_id":     r.ID,
			"reviewer_role": role,
		},
	})
	return r, nil
}

// RatingSummary recomputes the aggregate for a reviewee from all of their
// non-deleted reviews.
func (e *Engine) RatingSummary(ctx context.Context, revieweeID string) (models.RatingSummary, error) {
	if revieweeID == "" {
		return models.RatingSummary{}, validationf("reviewee id is required")
	}
	sum, err := e.store.RatingSummary(ctx, revieweeID)
	if err != nil {
		return models.RatingSummary{}, internal("aggregate reviews", err)
	}
	return sum, nil
}
