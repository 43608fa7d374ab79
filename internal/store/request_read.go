package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/oversightlabs/oversight/internal/models"
)

// GetRequest returns a request with its reviewer bindings and decisions.
func (s *RequestStore) GetRequest(ctx context.Context, orgID, requestID string) (*models.OversightRequest, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, orgID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only transaction.

	row := tx.QueryRow(ctx,
		"SELECT "+requestColumns+" FROM oversight_requests WHERE id = $1 AND org_id = $2",
		requestID, orgID,
	)

	r, err := scanRequest(row.Scan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrRequestNotFound
		}

		return nil, fmt.Errorf("getting request: %w", err)
	}

	if r.Reviewers, err = loadReviewers(ctx, tx, requestID); err != nil {
		return nil, err
	}

	if r.Decisions, err = loadDecisions(ctx, tx, requestID); err != nil {
		return nil, err
	}

	return r, nil
}

// buildPendingFilter builds the WHERE clause and args for ListPending.
func buildPendingFilter(orgID string, opts models.ListPendingOpts) (where string, args []any, nextArg int) {
	conditions := []string{"org_id = $1"}
	args = append(args, orgID)
	argIdx := 2

	if opts.Status != "" {
		conditions = append(conditions, "status = $"+strconv.Itoa(argIdx))
		args = append(args, opts.Status)
		argIdx++
	} else {
		conditions = append(conditions, "status IN ('pending', 'in_review', 'escalated')")
	}

	if opts.AgentID != "" {
		conditions = append(conditions, "agent_id = $"+strconv.Itoa(argIdx))
		args = append(args, opts.AgentID)
		argIdx++
	}

	if opts.Priority != "" {
		conditions = append(conditions, "priority = $"+strconv.Itoa(argIdx))
		args = append(args, opts.Priority)
		argIdx++
	}

	return "WHERE " + strings.Join(conditions, " AND "), args, argIdx
}

// ListPending returns unresolved requests matching the filters, newest
// first. Returns requests, a has-more flag, and any error.
func (s *RequestStore) ListPending(
	ctx context.Context, orgID string, opts models.ListPendingOpts,
) ([]models.OversightRequest, bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, orgID)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only transaction.

	where, args, argIdx := buildPendingFilter(orgID, opts)

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := fmt.Sprintf(
		"SELECT "+requestColumns+" FROM oversight_requests %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		where, argIdx, argIdx+1,
	)
	args = append(args, limit+1, opts.Offset)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("querying pending requests: %w", err)
	}
	defer rows.Close()

	var requests []models.OversightRequest
	for rows.Next() {
		r, err := scanRequest(rows.Scan)
		if err != nil {
			return nil, false, fmt.Errorf("scanning pending request: %w", err)
		}
		requests = append(requests, *r)
	}

	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	hasMore := len(requests) > limit
	if hasMore {
		requests = requests[:limit]
	}

	return requests, hasMore, nil
}
