package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/oversightlabs/oversight/internal/models"
)

// NotificationStore provides data access for notification channels and the
// delivery history table that backs dispatch idempotency.
type NotificationStore struct {
	Base
}

// NewNotificationStore creates a NotificationStore.
func NewNotificationStore(base Base) *NotificationStore {
	return &NotificationStore{Base: base}
}

// ListChannels returns an organization's notification channels.
func (s *NotificationStore) ListChannels(ctx context.Context, orgID string) ([]models.NotificationChannel, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, orgID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only transaction.

	rows, err := tx.Query(ctx, `
		SELECT id, org_id, name, kind, target, enabled, created_at
		FROM notification_channels WHERE org_id = $1 ORDER BY name`,
		orgID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying notification channels: %w", err)
	}
	defer rows.Close()

	var channels []models.NotificationChannel
	for rows.Next() {
		var c models.NotificationChannel
		if err := rows.Scan(&c.ID, &c.OrgID, &c.Name, &c.Kind, &c.Target, &c.Enabled, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification channel: %w", err)
		}
		channels = append(channels, c)
	}

	return channels, rows.Err()
}

// CreateChannel inserts a new notification channel.
func (s *NotificationStore) CreateChannel(ctx context.Context, orgID string, c *models.NotificationChannel) (*models.NotificationChannel, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, orgID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.OrgID = orgID

	err = tx.QueryRow(ctx, `
		INSERT INTO notification_channels (id, org_id, name, kind, target, enabled)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		c.ID, orgID, c.Name, c.Kind, c.Target, c.Enabled,
	).Scan(&c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, models.ErrDuplicateKey
		}

		return nil, fmt.Errorf("inserting notification channel: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing notification channel: %w", err)
	}

	return c, nil
}

// BeginDelivery claims an idempotency key by inserting a pending history row.
// It returns created=false when the key already exists, meaning the event was
// dispatched (or is being dispatched) before and must not be delivered again.
func (s *NotificationStore) BeginDelivery(ctx context.Context, rec *models.NotificationRecord) (created bool, err error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, rec.OrgID)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	var recipientsRaw []byte
	if rec.Recipients != nil {
		if recipientsRaw, err = json.Marshal(rec.Recipients); err != nil {
			return false, fmt.Errorf("marshaling recipients: %w", err)
		}
	}

	tag, err := tx.Exec(ctx, `
		INSERT INTO notification_history (org_id, request_id, channel, event_kind, recipients, idempotency_key, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (idempotency_key) DO NOTHING`,
		rec.OrgID, rec.RequestID, rec.Channel, rec.EventKind, recipientsRaw, rec.IdempotencyKey, models.DeliveryPending,
	)
	if err != nil {
		return false, fmt.Errorf("claiming idempotency key: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing delivery claim: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// MarkResult records the outcome of a delivery attempt against its
// idempotency key.
func (s *NotificationStore) MarkResult(ctx context.Context, orgID, idempotencyKey, status, errMsg string, attempts int) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginTx(ctx, orgID)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // best-effort rollback after commit.

	tag, err := tx.Exec(ctx, `
		UPDATE notification_history
		SET status = $1, error = $2, attempts = $3, updated_at = NOW()
		WHERE idempotency_key = $4 AND org_id = $5`,
		status, errMsg, attempts, idempotencyKey, orgID,
	)
	if err != nil {
		return fmt.Errorf("updating delivery result: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return models.ErrRequestNotFound
	}

	return tx.Commit(ctx)
}

// History returns delivery records for one request, oldest first.
func (s *NotificationStore) History(ctx context.Context, orgID, requestID string) ([]models.NotificationRecord, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tx, err := s.beginReadTx(ctx, orgID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // read-only transaction.

	rows, err := tx.Query(ctx, `
		SELECT id, org_id, request_id, channel, event_kind, recipients, idempotency_key, status, error, attempts, created_at, updated_at
		FROM notification_history
		WHERE org_id = $1 AND request_id = $2
		ORDER BY id`,
		orgID, requestID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying notification history: %w", err)
	}
	defer rows.Close()

	var records []models.NotificationRecord
	for rows.Next() {
		var (
			rec           models.NotificationRecord
			recipientsRaw []byte
		)
		err := rows.Scan(
			&rec.ID, &rec.OrgID, &rec.RequestID, &rec.Channel, &rec.EventKind, &recipientsRaw,
			&rec.IdempotencyKey, &rec.Status, &rec.Error, &rec.Attempts, &rec.CreatedAt, &rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning notification record: %w", err)
		}
		if recipientsRaw != nil {
			if err := json.Unmarshal(recipientsRaw, &rec.Recipients); err != nil {
				return nil, fmt.Errorf("unmarshaling recipients: %w", err)
			}
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}
