// Package store provides focused, single-concern data access stores for the
// oversight engine.
//
// Each store owns one domain (requests, policies, transitions, notifications)
// and embeds shared helpers (Pool, logger) via the Base struct. Stores never
// import each other; shared logic lives in this file. All single-request
// mutations go through RequestStore's row lock so that concurrent decisions,
// escalations and expirations on the same request are serialized.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/oversightlabs/oversight/internal/dbpool"
)

const defaultQueryTimeout = 30 * time.Second

// Base contains shared dependencies for all stores.
// Embed this in each store struct.
type Base struct {
	Pool *dbpool.Pool
	Log  *logrus.Logger
}

// withTimeout creates a context with the default query timeout.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, defaultQueryTimeout)
}

// setOrg sets the organization context for RLS policies within a transaction.
func setOrg(ctx context.Context, tx pgx.Tx, orgID string) error {
	if _, err := uuid.Parse(orgID); err != nil {
		return fmt.Errorf("invalid org ID format: %w", err)
	}

	_, err := tx.Exec(ctx, "SELECT set_config('app.org_id', $1, true)", orgID)
	if err != nil {
		return fmt.Errorf("setting org context: %w", err)
	}

	return nil
}

// beginTx starts a read-write transaction and sets the org context.
func (b *Base) beginTx(ctx context.Context, orgID string) (pgx.Tx, error) {
	tx, err := b.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	if err := setOrg(ctx, tx, orgID); err != nil {
		tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on setup failure.

		return nil, err
	}

	return tx, nil
}

// beginReadTx starts a read-only transaction and sets the org context.
func (b *Base) beginReadTx(ctx context.Context, orgID string) (pgx.Tx, error) {
	tx, err := b.Pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("beginning read transaction: %w", err)
	}

	if err := setOrg(ctx, tx, orgID); err != nil {
		tx.Rollback(ctx) //nolint:errcheck // best-effort rollback on setup failure.

		return nil, err
	}

	return tx, nil
}

// GetOrgByAPIKey looks up an organization ID by API key hash.
func (b *Base) GetOrgByAPIKey(ctx context.Context, apiKey string) (string, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	hash := sha256.Sum256([]byte(apiKey))
	apiKeyHash := hex.EncodeToString(hash[:])

	var orgID string

	err := b.Pool.QueryRow(ctx, "SELECT id FROM organizations WHERE api_key_hash = $1", apiKeyHash).Scan(&orgID)
	if err != nil {
		return "", fmt.Errorf("looking up org by API key: %w", err)
	}

	return orgID, nil
}
