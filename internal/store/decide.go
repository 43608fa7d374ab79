package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oversightlabs/oversight/internal/models"
	"github.com/oversightlabs/oversight/internal/quorum"
)

// RecordDecision records one reviewer's verdict and applies the resulting
// state transition, if any. The whole sequence (lock request, validate,
// insert decision, aggregate, transition) runs in one transaction under the
// request's row lock. When two reviewers decide at overlapping times, both
// decisions are recorded (in lock order) and only the call whose complete
// decision set satisfies the quorum writes the terminal transition; the
// non-terminal precondition makes any later attempt fail with
// ErrAlreadyResolved instead of duplicating it.
//
// Returns the updated request and the transition written, which is nil when
// the verdict is still pending and the policy does not use in_review.
func (s *RequestStore) RecordDecision(
	ctx context.Context, orgID, requestID string, req models.DecideRequest,
) (*models.OversightRequest, *models.StateTransition, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, orgID)
	if err != nil {
		return nil, nil, fmt.Errorf("recording decision: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	r, err := lockRequest(ctx, tx, requestID)
	if err != nil {
		return nil, nil, err
	}

	if r.Status.Terminal() {
		return nil, nil, models.ErrAlreadyResolved
	}

	if r.Reviewers, err = loadReviewers(ctx, tx, requestID); err != nil {
		return nil, nil, err
	}

	if !r.EligibleReviewer(req.ReviewerID, req.Roles) {
		return nil, nil, models.ErrNotAuthorized
	}

	now := time.Now().UTC()

	_, err = tx.Exec(ctx, `
		INSERT INTO approval_decisions (request_id, reviewer_id, decision, weight, reason, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		requestID, req.ReviewerID, req.Decision, req.Weight, req.Reason, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, nil, models.ErrDuplicateDecision
		}

		return nil, nil, fmt.Errorf("inserting decision: %w", err)
	}

	// Recompute the verdict from the now-complete decision set.
	if r.Decisions, err = loadDecisions(ctx, tx, requestID); err != nil {
		return nil, nil, err
	}

	verdict := quorum.Evaluate(r.Policy, r.Reviewers, r.Decisions)

	var transition *models.StateTransition

	switch verdict {
	case quorum.VerdictApproved:
		transition, err = applyTransition(ctx, tx, r, models.StatusApproved, models.ActorUser, req.ReviewerID, "quorum satisfied", now)
	case quorum.VerdictRejected:
		transition, err = applyTransition(ctx, tx, r, models.StatusRejected, models.ActorUser, req.ReviewerID, req.Reason, now)
	case quorum.VerdictPending:
		if r.Status == models.StatusPending && r.Policy.UseInReview {
			transition, err = applyTransition(ctx, tx, r, models.StatusInReview, models.ActorUser, req.ReviewerID, "first decision recorded", now)
		}
	}
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("committing decision: %w", err)
	}

	return r, transition, nil
}

// CancelRequest withdraws a non-terminal request through the same serialized
// path as any other transition.
func (s *RequestStore) CancelRequest(
	ctx context.Context, orgID, requestID string, req models.CancelRequest,
) (*models.OversightRequest, *models.StateTransition, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, orgID)
	if err != nil {
		return nil, nil, fmt.Errorf("cancelling request: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	r, err := lockRequest(ctx, tx, requestID)
	if err != nil {
		return nil, nil, err
	}

	if r.Status.Terminal() {
		return nil, nil, models.ErrAlreadyResolved
	}

	transition, err := applyTransition(
		ctx, tx, r, models.StatusCancelled, models.ActorUser, req.ActorID, req.Reason, time.Now().UTC(),
	)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("committing cancellation: %w", err)
	}

	return r, transition, nil
}
