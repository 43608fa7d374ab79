package service

import (
	"context"
	"testing"
	"time"

	"github.com/oversightlabs/oversight/internal/models"
)

func noExpirations(_ context.Context, _ time.Time, _ int) ([]models.MonitorCandidate, error) {
	return nil, nil
}

func noEscalations(_ context.Context, _ time.Time, _ int) ([]models.EscalationCandidate, error) {
	return nil, nil
}

func TestMonitorTick_ExpiresOverdueRequests(t *testing.T) {
	expired := make(map[string]bool)

	store := &mockMonitorStore{
		dueEscalations: noEscalations,
		dueExpirations: func(_ context.Context, _ time.Time, _ int) ([]models.MonitorCandidate, error) {
			return []models.MonitorCandidate{
				{RequestID: "req-1", OrgID: "org-1"},
				{RequestID: "req-2", OrgID: "org-1"},
			}, nil
		},
		expireRequest: func(_ context.Context, _, requestID string, _ time.Time) (*models.OversightRequest, *models.StateTransition, error) {
			if requestID == "req-2" {
				// Resolved between scan and lock.
				return nil, nil, nil
			}
			expired[requestID] = true
			return &models.OversightRequest{ID: requestID, Status: models.StatusExpired},
				&models.StateTransition{ToStatus: models.StatusExpired, ActorType: models.ActorSystem},
				nil
		},
	}
	enq := &mockEnqueuer{}

	m := NewMonitor(store, &mockRuleGetter{}, enq, testLog(), time.Second)
	m.Tick(context.Background(), time.Now().UTC())

	if !expired["req-1"] {
		t.Error("req-1 not expired")
	}

	jobs := enq.captured()
	if len(jobs) != 1 || jobs[0].Event != models.EventExpired {
		t.Fatalf("jobs = %+v, want one expiry notification for req-1 only", jobs)
	}
}

func TestMonitorTick_FiresEscalations(t *testing.T) {
	rule := models.EscalationRule{
		ID: "rule-1", TriggerAfter: time.Minute, TargetRole: "lead", Channel: "ops", Enabled: true,
	}

	var appliedRule models.EscalationRule

	store := &mockMonitorStore{
		dueExpirations: noExpirations,
		dueEscalations: func(_ context.Context, _ time.Time, _ int) ([]models.EscalationCandidate, error) {
			return []models.EscalationCandidate{{RequestID: "req-1", OrgID: "org-1", RuleID: "rule-1"}}, nil
		},
		applyEscalation: func(_ context.Context, _, requestID string, r models.EscalationRule, _ time.Time) (*models.OversightRequest, *models.StateTransition, bool, error) {
			appliedRule = r
			return &models.OversightRequest{
					ID: requestID, Status: models.StatusEscalated,
					Reviewers: []models.RequiredReviewer{{Role: "lead"}},
				},
				&models.StateTransition{ToStatus: models.StatusEscalated, ActorType: models.ActorSystem},
				true, nil
		},
	}
	enq := &mockEnqueuer{}

	m := NewMonitor(store, &mockRuleGetter{rule: &rule}, enq, testLog(), time.Second)
	m.Tick(context.Background(), time.Now().UTC())

	if appliedRule.ID != "rule-1" {
		t.Errorf("applied rule = %q, want rule-1", appliedRule.ID)
	}

	jobs := enq.captured()
	if len(jobs) != 1 || jobs[0].Event != models.EventEscalated {
		t.Fatalf("jobs = %+v, want one escalation notification", jobs)
	}
	if len(jobs[0].Recipients) != 1 || jobs[0].Recipients[0] != "role:lead" {
		t.Errorf("recipients = %v, want the widened reviewer set", jobs[0].Recipients)
	}
}

func TestMonitorTick_SkipsAlreadyFired(t *testing.T) {
	rule := models.EscalationRule{ID: "rule-1", TriggerAfter: time.Minute, TargetRole: "lead", Channel: "ops", Enabled: true}

	store := &mockMonitorStore{
		dueExpirations: noExpirations,
		dueEscalations: func(_ context.Context, _ time.Time, _ int) ([]models.EscalationCandidate, error) {
			return []models.EscalationCandidate{{RequestID: "req-1", OrgID: "org-1", RuleID: "rule-1"}}, nil
		},
		applyEscalation: func(_ context.Context, _, _ string, _ models.EscalationRule, _ time.Time) (*models.OversightRequest, *models.StateTransition, bool, error) {
			return nil, nil, false, nil
		},
	}
	enq := &mockEnqueuer{}

	m := NewMonitor(store, &mockRuleGetter{rule: &rule}, enq, testLog(), time.Second)
	m.Tick(context.Background(), time.Now().UTC())

	if len(enq.captured()) != 0 {
		t.Error("unfired escalation must not notify")
	}
}
