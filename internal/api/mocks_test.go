package api_test

import (
	"context"

	"github.com/oversightlabs/oversight/internal/models"
)

// mockRequestService implements api.RequestService for testing.
type mockRequestService struct {
	admitFn  func(ctx context.Context, orgID string, req models.AdmitRequest) (*models.OversightRequest, error)
	decideFn func(ctx context.Context, orgID, requestID string, req models.DecideRequest) (*models.OversightRequest, error)
	cancelFn func(ctx context.Context, orgID, requestID string, req models.CancelRequest) (*models.OversightRequest, error)
	getFn    func(ctx context.Context, orgID, requestID string) (*models.OversightRequest, error)
	listFn   func(ctx context.Context, orgID string, opts models.ListPendingOpts) ([]models.OversightRequest, bool, error)
}

func (m *mockRequestService) Admit(ctx context.Context, orgID string, req models.AdmitRequest) (*models.OversightRequest, error) {
	return m.admitFn(ctx, orgID, req)
}

func (m *mockRequestService) Decide(ctx context.Context, orgID, requestID string, req models.DecideRequest) (*models.OversightRequest, error) {
	return m.decideFn(ctx, orgID, requestID, req)
}

func (m *mockRequestService) Cancel(ctx context.Context, orgID, requestID string, req models.CancelRequest) (*models.OversightRequest, error) {
	return m.cancelFn(ctx, orgID, requestID, req)
}

func (m *mockRequestService) Get(ctx context.Context, orgID, requestID string) (*models.OversightRequest, error) {
	return m.getFn(ctx, orgID, requestID)
}

func (m *mockRequestService) ListPending(ctx context.Context, orgID string, opts models.ListPendingOpts) ([]models.OversightRequest, bool, error) {
	return m.listFn(ctx, orgID, opts)
}

// mockPolicyService implements api.PolicyService for testing.
type mockPolicyService struct {
	listQuorumFn   func(ctx context.Context, orgID string) ([]models.QuorumConfig, error)
	createQuorumFn func(ctx context.Context, orgID string, cfg models.QuorumConfig) (*models.QuorumConfig, error)
	listAutoFn     func(ctx context.Context, orgID string) ([]models.AutoApprovalRule, error)
	createAutoFn   func(ctx context.Context, orgID string, rule models.AutoApprovalRule) (*models.AutoApprovalRule, error)
	listEscFn      func(ctx context.Context, orgID string) ([]models.EscalationRule, error)
	createEscFn    func(ctx context.Context, orgID string, rule models.EscalationRule) (*models.EscalationRule, error)
}

func (m *mockPolicyService) ListQuorumConfigs(ctx context.Context, orgID string) ([]models.QuorumConfig, error) {
	return m.listQuorumFn(ctx, orgID)
}

func (m *mockPolicyService) CreateQuorumConfig(ctx context.Context, orgID string, cfg models.QuorumConfig) (*models.QuorumConfig, error) {
	return m.createQuorumFn(ctx, orgID, cfg)
}

func (m *mockPolicyService) ListAutoApprovalRules(ctx context.Context, orgID string) ([]models.AutoApprovalRule, error) {
	return m.listAutoFn(ctx, orgID)
}

func (m *mockPolicyService) CreateAutoApprovalRule(ctx context.Context, orgID string, rule models.AutoApprovalRule) (*models.AutoApprovalRule, error) {
	return m.createAutoFn(ctx, orgID, rule)
}

func (m *mockPolicyService) ListEscalationRules(ctx context.Context, orgID string) ([]models.EscalationRule, error) {
	return m.listEscFn(ctx, orgID)
}

func (m *mockPolicyService) CreateEscalationRule(ctx context.Context, orgID string, rule models.EscalationRule) (*models.EscalationRule, error) {
	return m.createEscFn(ctx, orgID, rule)
}

// mockAuditService implements api.AuditService for testing.
type mockAuditService struct {
	queryFn func(ctx context.Context, orgID string, opts models.TransitionQueryOpts) ([]models.StateTransition, bool, error)
	purgeFn func(ctx context.Context, orgID string, retentionDays int) (int, error)
}

func (m *mockAuditService) QueryTransitions(ctx context.Context, orgID string, opts models.TransitionQueryOpts) ([]models.StateTransition, bool, error) {
	return m.queryFn(ctx, orgID, opts)
}

func (m *mockAuditService) PurgeOldTransitions(ctx context.Context, orgID string, retentionDays int) (int, error) {
	return m.purgeFn(ctx, orgID, retentionDays)
}

// mockNotificationService implements api.NotificationService for testing.
type mockNotificationService struct {
	listChannelsFn  func(ctx context.Context, orgID string) ([]models.NotificationChannel, error)
	createChannelFn func(ctx context.Context, orgID string, ch *models.NotificationChannel) (*models.NotificationChannel, error)
	historyFn       func(ctx context.Context, orgID, requestID string) ([]models.NotificationRecord, error)
}

func (m *mockNotificationService) ListChannels(ctx context.Context, orgID string) ([]models.NotificationChannel, error) {
	return m.listChannelsFn(ctx, orgID)
}

func (m *mockNotificationService) CreateChannel(ctx context.Context, orgID string, ch *models.NotificationChannel) (*models.NotificationChannel, error) {
	return m.createChannelFn(ctx, orgID, ch)
}

func (m *mockNotificationService) History(ctx context.Context, orgID, requestID string) ([]models.NotificationRecord, error) {
	return m.historyFn(ctx, orgID, requestID)
}
