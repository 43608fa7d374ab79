package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/oversightlabs/oversight/internal/models"
)

// TransitionStore provides read access to the state_transitions audit trail.
// Writes go through insertTransition inside the owning transaction, so the
// audit row commits or rolls back together with the status change it records.
type TransitionStore struct {
	Base
}

// NewTransitionStore creates a TransitionStore.
func NewTransitionStore(base Base) *TransitionStore {
	return &TransitionStore{Base: base}
}

// insertTransition appends one audit record within the caller's transaction.
// The table's trigger forbids UPDATE and DELETE, so an insert is final.
func insertTransition(ctx context.Context, tx pgx.Tx, t *models.StateTransition) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO state_transitions (request_id, org_id, from_status, to_status, actor_type, actor_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		t.RequestID, t.OrgID, t.FromStatus, t.ToStatus, t.ActorType, t.ActorID, t.Reason, t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return fmt.Errorf("inserting state transition: %w", err)
	}

	return nil
}

// buildTransitionFilter builds WHERE clause and args from TransitionQueryOpts.
func buildTransitionFilter(opts models.TransitionQueryOpts) (where string, args []any, nextArg int) {
	var conditions []string
	argIdx := 1

	if opts.RequestID != "" {
		conditions = append(conditions, "request_id = $"+strconv.Itoa(argIdx))
		args = append(args, opts.RequestID)
		argIdx++
	}
	if opts.ToStatus != "" {
		conditions = append(conditions, "to_status = $"+strconv.Itoa(argIdx))
		args = append(args, opts.ToStatus)
		argIdx++
	}
	if opts.ActorType != "" {
		conditions = append(conditions, "actor_type = $"+strconv.Itoa(argIdx))
		args = append(args, opts.ActorType)
		argIdx++
	}
	if opts.Since != nil {
		conditions = append(conditions, "created_at >= $"+strconv.Itoa(argIdx))
		args = append(args, *opts.Since)
		argIdx++
	}

	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	return where, args, argIdx
}

// QueryTransitions returns audit records matching the given filters, oldest
// first within a request so the rows read as the request's history.
// Returns records, hasMore flag, and any error.
func (s *TransitionStore) QueryTransitions(
	ctx context.Context, orgID string, opts models.TransitionQueryOpts,
) ([]models.StateTransition, bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, orgID)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only transaction.

	where, args, argIdx := buildTransitionFilter(opts)

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	order := "created_at DESC, id DESC"
	if opts.RequestID != "" {
		order = "id ASC"
	}

	query := fmt.Sprintf(
		"SELECT id, request_id, org_id, from_status, to_status, actor_type, COALESCE(actor_id, ''), reason, created_at FROM state_transitions %s ORDER BY %s LIMIT $%d OFFSET $%d",
		where, order, argIdx, argIdx+1,
	)
	args = append(args, limit+1, opts.Offset)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("querying state transitions: %w", err)
	}
	defer rows.Close()

	var records []models.StateTransition
	for rows.Next() {
		var t models.StateTransition
		err := rows.Scan(
			&t.ID, &t.RequestID, &t.OrgID, &t.FromStatus, &t.ToStatus,
			&t.ActorType, &t.ActorID, &t.Reason, &t.CreatedAt,
		)
		if err != nil {
			return nil, false, fmt.Errorf("scanning state transition: %w", err)
		}
		records = append(records, t)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	hasMore := len(records) > limit
	if hasMore {
		records = records[:limit]
	}

	return records, hasMore, nil
}

// PurgeOldTransitions deletes audit records older than the retention window.
// Only transitions belonging to resolved requests are removed, so the history
// of anything still awaiting review stays intact. The append-only trigger on
// state_transitions blocks DELETE unless app.allow_audit_purge is set for the
// transaction, which keeps ad hoc deletes out while allowing retention sweeps.
func (s *TransitionStore) PurgeOldTransitions(ctx context.Context, orgID string, retentionDays int) (int, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, orgID)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit.

	if _, err := tx.Exec(ctx, "SELECT set_config('app.allow_audit_purge', 'on', true)"); err != nil {
		return 0, fmt.Errorf("enabling audit purge: %w", err)
	}

	tag, err := tx.Exec(ctx, `
		DELETE FROM state_transitions t
		USING oversight_requests r
		WHERE t.request_id = r.id
		  AND r.resolved_at IS NOT NULL
		  AND t.created_at < now() - make_interval(days => $1)`,
		retentionDays,
	)
	if err != nil {
		return 0, fmt.Errorf("purging state transitions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing audit purge: %w", err)
	}

	return int(tag.RowsAffected()), nil
}
