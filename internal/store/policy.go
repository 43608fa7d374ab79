package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oversightlabs/oversight/internal/models"
)

// PolicyStore provides data access for quorum configs, auto-approval rules
// and escalation rules. All three are read-mostly: the engine reads them at
// admission and on monitor ticks, operators write them rarely.
type PolicyStore struct {
	Base
}

// NewPolicyStore creates a PolicyStore.
func NewPolicyStore(base Base) *PolicyStore {
	return &PolicyStore{Base: base}
}

const quorumColumns = `id, org_id, name, required_approvals, required_weight, any_rejection_rejects,
	require_unanimous, use_in_review, action_type, min_amount, approval_timeout_secs,
	default_reviewers, created_at, updated_at`

func scanQuorumConfig(scan func(dest ...any) error) (*models.QuorumConfig, error) {
	var (
		c            models.QuorumConfig
		timeoutSecs  int64
		reviewersRaw []byte
	)

	err := scan(
		&c.ID, &c.OrgID, &c.Name, &c.RequiredApprovals, &c.RequiredWeight, &c.AnyRejectionRejects,
		&c.RequireUnanimous, &c.UseInReview, &c.ActionType, &c.MinAmount, &timeoutSecs,
		&reviewersRaw, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.ApprovalTimeout = time.Duration(timeoutSecs) * time.Second

	if reviewersRaw != nil {
		if err := json.Unmarshal(reviewersRaw, &c.DefaultReviewers); err != nil {
			return nil, fmt.Errorf("unmarshaling default reviewers: %w", err)
		}
	}

	return &c, nil
}

// ListQuorumConfigs returns all quorum configs for an organization.
func (s *PolicyStore) ListQuorumConfigs(ctx context.Context, orgID string) ([]models.QuorumConfig, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, orgID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only transaction.

	rows, err := tx.Query(ctx,
		"SELECT "+quorumColumns+" FROM quorum_configs WHERE org_id = $1 ORDER BY name",
		orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying quorum configs: %w", err)
	}
	defer rows.Close()

	var configs []models.QuorumConfig
	for rows.Next() {
		c, err := scanQuorumConfig(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning quorum config: %w", err)
		}
		configs = append(configs, *c)
	}

	return configs, rows.Err()
}

// CreateQuorumConfig inserts a new named policy.
func (s *PolicyStore) CreateQuorumConfig(ctx context.Context, orgID string, c *models.QuorumConfig) (*models.QuorumConfig, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, orgID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	var reviewersRaw []byte
	if c.DefaultReviewers != nil {
		if reviewersRaw, err = json.Marshal(c.DefaultReviewers); err != nil {
			return nil, fmt.Errorf("marshaling default reviewers: %w", err)
		}
	}

	if c.ID == "" {
		c.ID = uuid.New().String()
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO quorum_configs (id, org_id, name, required_approvals, required_weight,
			any_rejection_rejects, require_unanimous, use_in_review, action_type, min_amount,
			approval_timeout_secs, default_reviewers)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+quorumColumns,
		c.ID, orgID, c.Name, c.RequiredApprovals, c.RequiredWeight,
		c.AnyRejectionRejects, c.RequireUnanimous, c.UseInReview, c.ActionType, c.MinAmount,
		int64(c.ApprovalTimeout/time.Second), reviewersRaw,
	)

	created, err := scanQuorumConfig(row.Scan)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, models.ErrDuplicateKey
		}

		return nil, fmt.Errorf("inserting quorum config: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing quorum config: %w", err)
	}

	return created, nil
}

// ListAutoApprovalRules returns all auto-approval rules for an organization.
func (s *PolicyStore) ListAutoApprovalRules(ctx context.Context, orgID string) ([]models.AutoApprovalRule, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, orgID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only transaction.

	rows, err := tx.Query(ctx, `
		SELECT id, org_id, action_type, max_amount, allowed_resources, enabled, created_at
		FROM auto_approval_rules WHERE org_id = $1 ORDER BY created_at`,
		orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying auto-approval rules: %w", err)
	}
	defer rows.Close()

	var rules []models.AutoApprovalRule
	for rows.Next() {
		var (
			r            models.AutoApprovalRule
			resourcesRaw []byte
		)
		if err := rows.Scan(&r.ID, &r.OrgID, &r.ActionType, &r.MaxAmount, &resourcesRaw, &r.Enabled, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning auto-approval rule: %w", err)
		}
		if resourcesRaw != nil {
			if err := json.Unmarshal(resourcesRaw, &r.AllowedResources); err != nil {
				return nil, fmt.Errorf("unmarshaling allowed resources: %w", err)
			}
		}
		rules = append(rules, r)
	}

	return rules, rows.Err()
}

// CreateAutoApprovalRule inserts a new auto-approval rule.
func (s *PolicyStore) CreateAutoApprovalRule(ctx context.Context, orgID string, r *models.AutoApprovalRule) (*models.AutoApprovalRule, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, orgID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	var resourcesRaw []byte
	if r.AllowedResources != nil {
		if resourcesRaw, err = json.Marshal(r.AllowedResources); err != nil {
			return nil, fmt.Errorf("marshaling allowed resources: %w", err)
		}
	}

	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.OrgID = orgID

	err = tx.QueryRow(ctx, `
		INSERT INTO auto_approval_rules (id, org_id, action_type, max_amount, allowed_resources, enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		r.ID, orgID, r.ActionType, r.MaxAmount, resourcesRaw, r.Enabled,
	).Scan(&r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting auto-approval rule: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing auto-approval rule: %w", err)
	}

	return r, nil
}

const escalationColumns = `id, org_id, trigger_after_secs, target_role, target_user_id, channel,
	action_type, timeout_reduction_secs, enabled, created_at`

func scanEscalationRule(scan func(dest ...any) error) (*models.EscalationRule, error) {
	var (
		r             models.EscalationRule
		triggerSecs   int64
		reductionSecs int64
	)

	err := scan(
		&r.ID, &r.OrgID, &triggerSecs, &r.TargetRole, &r.TargetUserID, &r.Channel,
		&r.ActionType, &reductionSecs, &r.Enabled, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.TriggerAfter = time.Duration(triggerSecs) * time.Second
	r.TimeoutReduction = time.Duration(reductionSecs) * time.Second

	return &r, nil
}

// ListEscalationRules returns all escalation rules for an organization.
func (s *PolicyStore) ListEscalationRules(ctx context.Context, orgID string) ([]models.EscalationRule, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, orgID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only transaction.

	rows, err := tx.Query(ctx,
		"SELECT "+escalationColumns+" FROM escalation_rules WHERE org_id = $1 ORDER BY trigger_after_secs",
		orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying escalation rules: %w", err)
	}
	defer rows.Close()

	var rules []models.EscalationRule
	for rows.Next() {
		r, err := scanEscalationRule(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning escalation rule: %w", err)
		}
		rules = append(rules, *r)
	}

	return rules, rows.Err()
}

// GetEscalationRule returns one escalation rule by ID.
func (s *PolicyStore) GetEscalationRule(ctx context.Context, orgID, ruleID string) (*models.EscalationRule, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, orgID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only transaction.

	row := tx.QueryRow(ctx,
		"SELECT "+escalationColumns+" FROM escalation_rules WHERE id = $1 AND org_id = $2",
		ruleID, orgID,
	)

	r, err := scanEscalationRule(row.Scan)
	if err != nil {
		return nil, fmt.Errorf("getting escalation rule: %w", err)
	}

	return r, nil
}

// CreateEscalationRule inserts a new escalation rule.
func (s *PolicyStore) CreateEscalationRule(ctx context.Context, orgID string, r *models.EscalationRule) (*models.EscalationRule, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, orgID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.OrgID = orgID

	err = tx.QueryRow(ctx, `
		INSERT INTO escalation_rules (id, org_id, trigger_after_secs, target_role, target_user_id,
			channel, action_type, timeout_reduction_secs, enabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		r.ID, orgID, int64(r.TriggerAfter/time.Second), r.TargetRole, r.TargetUserID,
		r.Channel, r.ActionType, int64(r.TimeoutReduction/time.Second), r.Enabled,
	).Scan(&r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting escalation rule: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing escalation rule: %w", err)
	}

	return r, nil
}
