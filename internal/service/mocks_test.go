package service

import (
	"context"
	"sync"
	"time"

	"github.com/oversightlabs/oversight/internal/models"
	"github.com/oversightlabs/oversight/internal/notify"
)

// mockRequestStore records calls and returns configured responses.
type mockRequestStore struct {
	mu    sync.Mutex
	calls []string

	createRequest  func(ctx context.Context, r *models.OversightRequest, actor models.ActorType, reason string) (*models.StateTransition, error)
	getRequest     func(ctx context.Context, orgID, requestID string) (*models.OversightRequest, error)
	listPending    func(ctx context.Context, orgID string, opts models.ListPendingOpts) ([]models.OversightRequest, bool, error)
	recordDecision func(ctx context.Context, orgID, requestID string, req models.DecideRequest) (*models.OversightRequest, *models.StateTransition, error)
	cancelRequest  func(ctx context.Context, orgID, requestID string, req models.CancelRequest) (*models.OversightRequest, *models.StateTransition, error)
}

func (m *mockRequestStore) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockRequestStore) CreateRequest(ctx context.Context, r *models.OversightRequest, actor models.ActorType, reason string) (*models.StateTransition, error) {
	m.record("CreateRequest")
	return m.createRequest(ctx, r, actor, reason)
}

func (m *mockRequestStore) GetRequest(ctx context.Context, orgID, requestID string) (*models.OversightRequest, error) {
	m.record("GetRequest")
	return m.getRequest(ctx, orgID, requestID)
}

func (m *mockRequestStore) ListPending(ctx context.Context, orgID string, opts models.ListPendingOpts) ([]models.OversightRequest, bool, error) {
	m.record("ListPending")
	return m.listPending(ctx, orgID, opts)
}

func (m *mockRequestStore) RecordDecision(ctx context.Context, orgID, requestID string, req models.DecideRequest) (*models.OversightRequest, *models.StateTransition, error) {
	m.record("RecordDecision")
	return m.recordDecision(ctx, orgID, requestID, req)
}

func (m *mockRequestStore) CancelRequest(ctx context.Context, orgID, requestID string, req models.CancelRequest) (*models.OversightRequest, *models.StateTransition, error) {
	m.record("CancelRequest")
	return m.cancelRequest(ctx, orgID, requestID, req)
}

// mockPolicySource serves a fixed policy set.
type mockPolicySource struct {
	set *PolicySet
	err error
}

func (m *mockPolicySource) Policies(_ context.Context, _ string) (*PolicySet, error) {
	return m.set, m.err
}

// mockPolicyLister serves fixed policy rows and counts loads.
type mockPolicyLister struct {
	mu      sync.Mutex
	loads   int
	configs []models.QuorumConfig
	rules   []models.AutoApprovalRule
}

func (m *mockPolicyLister) ListQuorumConfigs(_ context.Context, _ string) ([]models.QuorumConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	return m.configs, nil
}

func (m *mockPolicyLister) ListAutoApprovalRules(_ context.Context, _ string) ([]models.AutoApprovalRule, error) {
	return m.rules, nil
}

// mockEnqueuer captures dispatched notification jobs.
type mockEnqueuer struct {
	mu   sync.Mutex
	jobs []NotificationJob
}

func (m *mockEnqueuer) Enqueue(job NotificationJob) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
}

func (m *mockEnqueuer) captured() []NotificationJob {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]NotificationJob{}, m.jobs...)
}

// mockMonitorStore drives the monitor with configured scan results.
type mockMonitorStore struct {
	mu    sync.Mutex
	calls []string

	dueExpirations  func(ctx context.Context, now time.Time, limit int) ([]models.MonitorCandidate, error)
	dueEscalations  func(ctx context.Context, now time.Time, limit int) ([]models.EscalationCandidate, error)
	expireRequest   func(ctx context.Context, orgID, requestID string, now time.Time) (*models.OversightRequest, *models.StateTransition, error)
	applyEscalation func(ctx context.Context, orgID, requestID string, rule models.EscalationRule, now time.Time) (*models.OversightRequest, *models.StateTransition, bool, error)
}

func (m *mockMonitorStore) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

func (m *mockMonitorStore) DueExpirations(ctx context.Context, now time.Time, limit int) ([]models.MonitorCandidate, error) {
	m.record("DueExpirations")
	return m.dueExpirations(ctx, now, limit)
}

func (m *mockMonitorStore) DueEscalations(ctx context.Context, now time.Time, limit int) ([]models.EscalationCandidate, error) {
	m.record("DueEscalations")
	return m.dueEscalations(ctx, now, limit)
}

func (m *mockMonitorStore) ExpireRequest(ctx context.Context, orgID, requestID string, now time.Time) (*models.OversightRequest, *models.StateTransition, error) {
	m.record("ExpireRequest")
	return m.expireRequest(ctx, orgID, requestID, now)
}

func (m *mockMonitorStore) ApplyEscalation(ctx context.Context, orgID, requestID string, rule models.EscalationRule, now time.Time) (*models.OversightRequest, *models.StateTransition, bool, error) {
	m.record("ApplyEscalation")
	return m.applyEscalation(ctx, orgID, requestID, rule, now)
}

// mockRuleGetter serves a fixed escalation rule.
type mockRuleGetter struct {
	rule *models.EscalationRule
	err  error
}

func (m *mockRuleGetter) GetEscalationRule(_ context.Context, _, _ string) (*models.EscalationRule, error) {
	return m.rule, m.err
}

// mockDeliveryStore backs the dispatcher with an in-memory history table.
type mockDeliveryStore struct {
	mu       sync.Mutex
	channels []models.NotificationChannel
	listErr  error
	claimed  map[string]bool
	results  map[string]string
	attempts map[string]int
}

func newMockDeliveryStore(channels ...models.NotificationChannel) *mockDeliveryStore {
	return &mockDeliveryStore{
		channels: channels,
		claimed:  make(map[string]bool),
		results:  make(map[string]string),
		attempts: make(map[string]int),
	}
}

func (m *mockDeliveryStore) ListChannels(_ context.Context, _ string) ([]models.NotificationChannel, error) {
	return m.channels, m.listErr
}

func (m *mockDeliveryStore) BeginDelivery(_ context.Context, rec *models.NotificationRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.claimed[rec.IdempotencyKey] {
		return false, nil
	}
	m.claimed[rec.IdempotencyKey] = true
	return true, nil
}

func (m *mockDeliveryStore) MarkResult(_ context.Context, _, idempotencyKey, status, _ string, attempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[idempotencyKey] = status
	m.attempts[idempotencyKey] = attempts
	return nil
}

// mockSender counts sends and fails a configured number of times first.
type mockSender struct {
	mu        sync.Mutex
	sends     int
	failFirst int
	err       error
}

func (m *mockSender) Send(_ context.Context, _ string, _ notify.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sends++
	if m.sends <= m.failFirst {
		return m.err
	}
	return nil
}

func (m *mockSender) sendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sends
}
