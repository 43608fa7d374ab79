package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/oversightlabs/oversight/internal/dbpool"
)

const (
	listenChannel    = "oversight_changes"
	readWakeInterval = 2 * time.Minute

	initialBackoff    = 1 * time.Second
	maxBackoff        = 30 * time.Second
	backoffMultiplier = 2
)

// validChannel matches safe PostgreSQL LISTEN channel names.
var validChannel = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Broadcaster is the slice of the WebSocket hub the bridge needs.
type Broadcaster interface {
	BroadcastEvent(eventType, orgID string, data json.RawMessage)
}

// NotifyBridge subscribes to PostgreSQL LISTEN/NOTIFY on the oversight_changes
// channel and forwards each payload to the WebSocket hub. The trigger on
// state_transitions emits one notification per audit row, so every status
// change a request goes through reaches connected reviewers.
type NotifyBridge struct {
	log  *logrus.Logger
	pool *dbpool.Pool
	hub  Broadcaster
}

// NewNotifyBridge creates a NotifyBridge wired to the given pool and hub.
func NewNotifyBridge(log *logrus.Logger, pool *dbpool.Pool, hub Broadcaster) *NotifyBridge {
	return &NotifyBridge{log: log, pool: pool, hub: hub}
}

// Start verifies database reachability and then launches the listen loop in
// a background goroutine. Reconnection after startup is the loop's problem,
// not the caller's.
func (b *NotifyBridge) Start(ctx context.Context) error {
	if !validChannel.MatchString(listenChannel) {
		return fmt.Errorf("notify bridge: invalid channel name %q", listenChannel)
	}

	if err := b.pool.HealthCheck(ctx); err != nil {
		return fmt.Errorf("notify bridge: database not reachable: %w", err)
	}

	go b.listen(ctx)

	return nil
}

// listen reconnects with capped exponential backoff whenever the LISTEN
// connection drops. Missed notifications during a gap are acceptable:
// dashboards recover via event replay on their own reconnect.
func (b *NotifyBridge) listen(ctx context.Context) {
	backoff := initialBackoff

	for ctx.Err() == nil {
		err := b.listenOnce(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}

		b.log.WithError(err).WithField("retry_in", backoff).
			Warn("notify bridge connection lost, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff = nextBackoff(backoff)
	}
}

// listenOnce holds a dedicated connection on LISTEN and forwards
// notifications until the connection fails or ctx is cancelled.
func (b *NotifyBridge) listenOnce(ctx context.Context) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	// LISTEN does not take a bind parameter, so the channel name is quoted
	// with pgx.Identifier and spliced into the statement.
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{listenChannel}.Sanitize()); err != nil {
		return fmt.Errorf("executing LISTEN: %w", err)
	}

	b.log.WithField("channel", listenChannel).Info("notify bridge listening")

	for {
		n, err := b.awaitNotification(ctx, conn)
		switch {
		case err == nil:
			b.forward(n)
		case errors.Is(err, context.Canceled), ctx.Err() != nil:
			return nil
		default:
			return err
		}
	}
}

// awaitNotification blocks until a notification arrives. The read deadline
// forces a periodic wakeup so ctx cancellation is noticed on an idle channel;
// deadline timeouts restart the wait.
func (b *NotifyBridge) awaitNotification(ctx context.Context, conn *pgxpool.Conn) (*pgconn.Notification, error) {
	for {
		if err := conn.Conn().PgConn().Conn().SetReadDeadline(time.Now().Add(readWakeInterval)); err != nil {
			return nil, fmt.Errorf("setting read deadline: %w", err)
		}

		n, err := conn.Conn().WaitForNotification(ctx)
		if err == nil {
			return n, nil
		}

		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() && ctx.Err() == nil {
			continue
		}

		return nil, fmt.Errorf("waiting for notification: %w", err)
	}
}

// forward pushes one notification payload to the hub. Payloads without an
// org_id cannot be routed and are dropped.
func (b *NotifyBridge) forward(n *pgconn.Notification) {
	b.log.WithFields(logrus.Fields{
		"channel": n.Channel,
		"pid":     n.PID,
	}).Debug("notification received")

	var payload struct {
		OrgID string `json:"org_id"`
		Type  string `json:"type,omitempty"`
	}
	if err := json.Unmarshal([]byte(n.Payload), &payload); err != nil || payload.OrgID == "" {
		b.log.Warn("dropping notification without org_id")
		return
	}

	eventType := payload.Type
	if eventType == "" {
		eventType = "request.transition"
	}

	b.hub.BroadcastEvent(eventType, payload.OrgID, json.RawMessage(n.Payload))
}

// nextBackoff doubles the delay up to maxBackoff, with jitter so a fleet
// of instances does not reconnect in lockstep.
func nextBackoff(current time.Duration) time.Duration {
	next := min(current*backoffMultiplier, maxBackoff)

	jitter := float64(next) * (0.75 + rand.Float64()*0.5) //nolint:gosec // jitter doesn't need crypto rand.

	return time.Duration(jitter)
}
