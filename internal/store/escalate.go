package store

import (
	"context"
	"fmt"
	"time"

	"github.com/oversightlabs/oversight/internal/models"
)

// activeStatuses is the status set the escalation monitor acts on.
const activeStatuses = "('pending', 'in_review', 'escalated')"

// DueExpirations returns requests whose timeout has passed and which are
// still unresolved. The scan runs from persisted state only, so a restarted
// monitor picks up exactly where the previous one left off.
func (s *RequestStore) DueExpirations(ctx context.Context, now time.Time, limit int) ([]models.MonitorCandidate, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx, `
		SELECT id, org_id FROM oversight_requests
		WHERE status IN `+activeStatuses+` AND timeout_at IS NOT NULL AND timeout_at <= $1
		ORDER BY timeout_at
		LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying due expirations: %w", err)
	}
	defer rows.Close()

	var due []models.MonitorCandidate
	for rows.Next() {
		var c models.MonitorCandidate
		if err := rows.Scan(&c.RequestID, &c.OrgID); err != nil {
			return nil, fmt.Errorf("scanning due expiration: %w", err)
		}
		due = append(due, c)
	}

	return due, rows.Err()
}

// ExpireRequest transitions one overdue request to expired. It re-checks
// eligibility under the row lock, so a second tick against the same request
// is a clean no-op: the method returns (nil, nil, nil) when the request has
// already left the eligible status set or the deadline moved.
func (s *RequestStore) ExpireRequest(
	ctx context.Context, orgID, requestID string, now time.Time,
) (*models.OversightRequest, *models.StateTransition, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, orgID)
	if err != nil {
		return nil, nil, fmt.Errorf("expiring request: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	r, err := lockRequest(ctx, tx, requestID)
	if err != nil {
		return nil, nil, err
	}

	if r.Status.Terminal() || r.TimeoutAt == nil || r.TimeoutAt.After(now) {
		return nil, nil, nil
	}

	transition, err := applyTransition(
		ctx, tx, r, models.StatusExpired, models.ActorSystem, "", "approval timeout reached", now,
	)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, fmt.Errorf("committing expiry: %w", err)
	}

	return r, transition, nil
}

// DueEscalations returns (rule, request) pairs whose trigger delay has
// elapsed and which have not fired for that request yet.
func (s *RequestStore) DueEscalations(ctx context.Context, now time.Time, limit int) ([]models.EscalationCandidate, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.Pool.Query(ctx, `
		SELECT r.id, r.org_id, e.id
		FROM oversight_requests r
		JOIN escalation_rules e ON e.org_id = r.org_id
			AND e.enabled
			AND (e.action_type = '' OR e.action_type = r.action_type)
		WHERE r.status IN `+activeStatuses+`
			AND r.created_at + make_interval(secs => e.trigger_after_secs) <= $1
			AND NOT EXISTS (
				SELECT 1 FROM escalation_firings f
				WHERE f.rule_id = e.id AND f.request_id = r.id
			)
		ORDER BY r.created_at
		LIMIT $2`,
		now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying due escalations: %w", err)
	}
	defer rows.Close()

	var due []models.EscalationCandidate
	for rows.Next() {
		var c models.EscalationCandidate
		if err := rows.Scan(&c.RequestID, &c.OrgID, &c.RuleID); err != nil {
			return nil, fmt.Errorf("scanning due escalation: %w", err)
		}
		due = append(due, c)
	}

	return due, rows.Err()
}

// ApplyEscalation fires one escalation rule against one request: it records
// the firing (the insert doubles as the at-most-once guard), adds the rule's
// target to the required reviewer set, optionally tightens the deadline, and
// transitions the request to escalated if it is not there already.
//
// Returns fired=false without error when the rule already fired for this
// request or the request has left the eligible status set.
func (s *RequestStore) ApplyEscalation(
	ctx context.Context, orgID, requestID string, rule models.EscalationRule, now time.Time,
) (r *models.OversightRequest, transition *models.StateTransition, fired bool, err error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, orgID)
	if err != nil {
		return nil, nil, false, fmt.Errorf("escalating request: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	r, err = lockRequest(ctx, tx, requestID)
	if err != nil {
		return nil, nil, false, err
	}

	if r.Status.Terminal() {
		return nil, nil, false, nil
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO escalation_firings (rule_id, request_id, fired_at)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`,
		rule.ID, requestID, now,
	)
	if err != nil {
		return nil, nil, false, fmt.Errorf("recording escalation firing: %w", err)
	}

	if tag.RowsAffected() == 0 {
		// Already fired on a previous tick.
		return nil, nil, false, nil
	}

	target := rule.Target()
	_, err = tx.Exec(ctx, `
		INSERT INTO required_reviewers (request_id, reviewer_id, role)
		VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`,
		requestID, target.ReviewerID, target.Role,
	)
	if err != nil {
		return nil, nil, false, fmt.Errorf("adding escalation reviewer: %w", err)
	}

	// The deadline may only move earlier, never later, and only through
	// this serialized path.
	if rule.TimeoutReduction > 0 && r.TimeoutAt != nil {
		tightened := r.TimeoutAt.Add(-rule.TimeoutReduction)
		if tightened.Before(now) {
			tightened = now
		}
		if tightened.Before(*r.TimeoutAt) {
			_, err = tx.Exec(ctx,
				"UPDATE oversight_requests SET timeout_at = $1 WHERE id = $2",
				tightened, requestID,
			)
			if err != nil {
				return nil, nil, false, fmt.Errorf("tightening timeout: %w", err)
			}
			r.TimeoutAt = &tightened
		}
	}

	if r.Status != models.StatusEscalated {
		transition, err = applyTransition(
			ctx, tx, r, models.StatusEscalated, models.ActorSystem, "", "escalation rule fired", now,
		)
		if err != nil {
			return nil, nil, false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, false, fmt.Errorf("committing escalation: %w", err)
	}

	return r, transition, true, nil
}
