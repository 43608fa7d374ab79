package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oversightlabs/oversight/internal/metrics"
	"github.com/oversightlabs/oversight/internal/models"
)

// MonitorStore is the data-access interface the monitor depends on.
type MonitorStore interface {
	DueExpirations(ctx context.Context, now time.Time, limit int) ([]models.MonitorCandidate, error)
	DueEscalations(ctx context.Context, now time.Time, limit int) ([]models.EscalationCandidate, error)
	ExpireRequest(ctx context.Context, orgID, requestID string, now time.Time) (*models.OversightRequest, *models.StateTransition, error)
	ApplyEscalation(ctx context.Context, orgID, requestID string, rule models.EscalationRule, now time.Time) (*models.OversightRequest, *models.StateTransition, bool, error)
}

// RuleGetter loads one escalation rule.
type RuleGetter interface {
	GetEscalationRule(ctx context.Context, orgID, ruleID string) (*models.EscalationRule, error)
}

const (
	defaultMonitorInterval = 15 * time.Second
	monitorBatchSize       = 100
)

// Monitor periodically expires overdue requests and fires due escalation
// rules. Every scan works from persisted state, so a restarted monitor
// resumes where the previous one stopped; the per-request row lock and the
// firings table make ticks safe to overlap across instances.
type Monitor struct {
	store    MonitorStore
	rules    RuleGetter
	dispatch NotifyEnqueuer
	log      *logrus.Logger
	interval time.Duration
}

// NewMonitor creates a Monitor.
func NewMonitor(store MonitorStore, rules RuleGetter, dispatch NotifyEnqueuer, log *logrus.Logger, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = defaultMonitorInterval
	}

	return &Monitor{store: store, rules: rules, dispatch: dispatch, log: log, interval: interval}
}

// Run ticks until the context is cancelled. Call in a goroutine.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.log.WithField("interval", m.interval).Info("escalation monitor started")

	for {
		select {
		case <-ctx.Done():
			m.log.Info("escalation monitor stopped")
			return
		case <-ticker.C:
			m.Tick(ctx, time.Now().UTC())
		}
	}
}

// Tick runs one full scan: escalations first, so a request that is both due
// to escalate and due to expire still gets its reviewer set widened before
// the expiry lands in the audit trail.
func (m *Monitor) Tick(ctx context.Context, now time.Time) {
	m.fireEscalations(ctx, now)
	m.expireOverdue(ctx, now)
}

func (m *Monitor) expireOverdue(ctx context.Context, now time.Time) {
	due, err := m.store.DueExpirations(ctx, now, monitorBatchSize)
	if err != nil {
		m.log.WithError(err).Warn("expiry scan failed")
		return
	}

	for _, c := range due {
		r, transition, err := m.store.ExpireRequest(ctx, c.OrgID, c.RequestID, now)
		if err != nil {
			m.log.WithError(err).WithField("request_id", c.RequestID).Warn("expiring request failed")
			continue
		}
		if transition == nil {
			// Resolved between scan and lock.
			continue
		}

		metrics.RequestsResolved.WithLabelValues(string(models.StatusExpired)).Inc()
		m.log.WithFields(logrus.Fields{
			"request_id": c.RequestID,
			"org_id":     c.OrgID,
		}).Info("request expired")

		m.dispatch.Enqueue(NotificationJob{
			OrgID:      c.OrgID,
			Request:    *r,
			Event:      models.EventExpired,
			Recipients: reviewerRecipients(r.Reviewers),
		})
	}
}

func (m *Monitor) fireEscalations(ctx context.Context, now time.Time) {
	due, err := m.store.DueEscalations(ctx, now, monitorBatchSize)
	if err != nil {
		m.log.WithError(err).Warn("escalation scan failed")
		return
	}

	for _, c := range due {
		rule, err := m.rules.GetEscalationRule(ctx, c.OrgID, c.RuleID)
		if err != nil {
			m.log.WithError(err).WithField("rule_id", c.RuleID).Warn("loading escalation rule failed")
			continue
		}

		r, _, fired, err := m.store.ApplyEscalation(ctx, c.OrgID, c.RequestID, *rule, now)
		if err != nil {
			m.log.WithError(err).WithField("request_id", c.RequestID).Warn("applying escalation failed")
			continue
		}
		if !fired {
			// Another instance got there first, or the request resolved.
			continue
		}

		metrics.EscalationsFired.Inc()
		m.log.WithFields(logrus.Fields{
			"request_id": c.RequestID,
			"rule_id":    c.RuleID,
			"org_id":     c.OrgID,
		}).Info("escalation fired")

		m.dispatch.Enqueue(NotificationJob{
			OrgID:      c.OrgID,
			Request:    *r,
			Event:      models.EventEscalated,
			Recipients: reviewerRecipients(r.Reviewers),
		})
	}
}
