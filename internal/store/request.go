package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oversightlabs/oversight/internal/models"
)

// RequestStore owns the oversight request lifecycle: admission, decision
// recording, cancellation, escalation and expiry. Every mutation of a single
// request runs under a row lock (SELECT ... FOR UPDATE) spanning
// read-decisions, aggregation and the transition write, so concurrent
// operations on the same request are serialized and exactly one terminal
// transition can ever commit.
type RequestStore struct {
	Base
}

// NewRequestStore creates a RequestStore.
func NewRequestStore(base Base) *RequestStore {
	return &RequestStore{Base: base}
}

const requestColumns = `id, org_id, agent_id, action_type, action_data, description, justification,
	status, priority, amount, risk_score, risk_level, risk_factors, policy_snapshot,
	auto_approved, created_at, timeout_at, resolved_at`

// scanRequest scans one request row in requestColumns order.
func scanRequest(scan func(dest ...any) error) (*models.OversightRequest, error) {
	var (
		r           models.OversightRequest
		actionData  []byte
		riskFactors []byte
		policySnap  []byte
	)

	err := scan(
		&r.ID, &r.OrgID, &r.AgentID, &r.ActionType, &actionData, &r.Description, &r.Justification,
		&r.Status, &r.Priority, &r.Amount, &r.Risk.Score, &r.Risk.Level, &riskFactors, &policySnap,
		&r.AutoApproved, &r.CreatedAt, &r.TimeoutAt, &r.ResolvedAt,
	)
	if err != nil {
		return nil, err
	}

	if actionData != nil {
		if err := json.Unmarshal(actionData, &r.ActionData); err != nil {
			return nil, fmt.Errorf("unmarshaling action data: %w", err)
		}
	}

	if riskFactors != nil {
		if err := json.Unmarshal(riskFactors, &r.Risk.Factors); err != nil {
			return nil, fmt.Errorf("unmarshaling risk factors: %w", err)
		}
	}

	if err := json.Unmarshal(policySnap, &r.Policy); err != nil {
		return nil, fmt.Errorf("unmarshaling policy snapshot: %w", err)
	}

	return &r, nil
}

// marshalRequestJSON prepares the JSONB columns for insert.
func marshalRequestJSON(r *models.OversightRequest) (actionData, riskFactors, policySnap []byte, err error) {
	if r.ActionData != nil {
		if actionData, err = json.Marshal(r.ActionData); err != nil {
			return nil, nil, nil, fmt.Errorf("marshaling action data: %w", err)
		}
	}

	if r.Risk.Factors != nil {
		if riskFactors, err = json.Marshal(r.Risk.Factors); err != nil {
			return nil, nil, nil, fmt.Errorf("marshaling risk factors: %w", err)
		}
	}

	if policySnap, err = json.Marshal(r.Policy); err != nil {
		return nil, nil, nil, fmt.Errorf("marshaling policy snapshot: %w", err)
	}

	return actionData, riskFactors, policySnap, nil
}

// CreateRequest persists a new request, its required reviewer bindings, and
// the admission transition, atomically. The caller has already resolved the
// policy snapshot, status and timing fields; auto-approved requests arrive
// here already terminal.
func (s *RequestStore) CreateRequest(
	ctx context.Context, r *models.OversightRequest, actor models.ActorType, reason string,
) (*models.StateTransition, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, r.OrgID)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	actionData, riskFactors, policySnap, err := marshalRequestJSON(r)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO oversight_requests (id, org_id, agent_id, action_type, action_data, description,
			justification, status, priority, amount, risk_score, risk_level, risk_factors,
			policy_snapshot, auto_approved, created_at, timeout_at, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		r.ID, r.OrgID, r.AgentID, r.ActionType, actionData, r.Description,
		r.Justification, r.Status, r.Priority, r.Amount, r.Risk.Score, r.Risk.Level, riskFactors,
		policySnap, r.AutoApproved, r.CreatedAt, r.TimeoutAt, r.ResolvedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, models.ErrDuplicateKey
		}

		return nil, fmt.Errorf("inserting request: %w", err)
	}

	for i := range r.Reviewers {
		rev := &r.Reviewers[i]
		rev.RequestID = r.ID

		_, err = tx.Exec(ctx, `
			INSERT INTO required_reviewers (request_id, reviewer_id, role)
			VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING`,
			r.ID, rev.ReviewerID, rev.Role,
		)
		if err != nil {
			return nil, fmt.Errorf("inserting required reviewer: %w", err)
		}
	}

	transition := &models.StateTransition{
		RequestID:  r.ID,
		OrgID:      r.OrgID,
		FromStatus: models.StatusNone,
		ToStatus:   r.Status,
		ActorType:  actor,
		Reason:     reason,
		CreatedAt:  r.CreatedAt,
	}
	if err := insertTransition(ctx, tx, transition); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing create request: %w", err)
	}

	return transition, nil
}

// lockRequest loads a request row FOR UPDATE, holding the lock for the
// remainder of the transaction.
func lockRequest(ctx context.Context, tx pgx.Tx, requestID string) (*models.OversightRequest, error) {
	row := tx.QueryRow(ctx,
		"SELECT "+requestColumns+" FROM oversight_requests WHERE id = $1 FOR UPDATE",
		requestID,
	)

	r, err := scanRequest(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrRequestNotFound
		}

		return nil, fmt.Errorf("locking request: %w", err)
	}

	return r, nil
}

// loadReviewers fetches the required reviewer bindings for a request.
func loadReviewers(ctx context.Context, tx pgx.Tx, requestID string) ([]models.RequiredReviewer, error) {
	rows, err := tx.Query(ctx,
		"SELECT request_id, reviewer_id, role FROM required_reviewers WHERE request_id = $1",
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying required reviewers: %w", err)
	}
	defer rows.Close()

	var reviewers []models.RequiredReviewer
	for rows.Next() {
		var rev models.RequiredReviewer
		if err := rows.Scan(&rev.RequestID, &rev.ReviewerID, &rev.Role); err != nil {
			return nil, fmt.Errorf("scanning required reviewer: %w", err)
		}
		reviewers = append(reviewers, rev)
	}

	return reviewers, rows.Err()
}

// loadDecisions fetches all recorded decisions for a request, oldest first.
func loadDecisions(ctx context.Context, tx pgx.Tx, requestID string) ([]models.ApprovalDecision, error) {
	rows, err := tx.Query(ctx, `
		SELECT request_id, reviewer_id, decision, weight, reason, decided_at
		FROM approval_decisions WHERE request_id = $1 ORDER BY decided_at`,
		requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying decisions: %w", err)
	}
	defer rows.Close()

	var decisions []models.ApprovalDecision
	for rows.Next() {
		var d models.ApprovalDecision
		if err := rows.Scan(&d.RequestID, &d.ReviewerID, &d.Decision, &d.Weight, &d.Reason, &d.DecidedAt); err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		decisions = append(decisions, d)
	}

	return decisions, rows.Err()
}

// applyTransition writes the status change and its audit row. The caller
// holds the row lock and has validated the edge.
func applyTransition(
	ctx context.Context, tx pgx.Tx, r *models.OversightRequest,
	to models.RequestStatus, actor models.ActorType, actorID, reason string, now time.Time,
) (*models.StateTransition, error) {
	if !models.CanTransition(r.Status, to) {
		return nil, models.ErrInvalidTransition
	}

	var resolvedAt *time.Time
	if to.Terminal() {
		resolvedAt = &now
	}

	_, err := tx.Exec(ctx,
		"UPDATE oversight_requests SET status = $1, resolved_at = $2 WHERE id = $3",
		to, resolvedAt, r.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating request status: %w", err)
	}

	transition := &models.StateTransition{
		RequestID:  r.ID,
		OrgID:      r.OrgID,
		FromStatus: r.Status,
		ToStatus:   to,
		ActorType:  actor,
		ActorID:    actorID,
		Reason:     reason,
		CreatedAt:  now,
	}
	if err := insertTransition(ctx, tx, transition); err != nil {
		return nil, err
	}

	r.Status = to
	r.ResolvedAt = resolvedAt

	return transition, nil
}
