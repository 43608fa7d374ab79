// Package domain defines the canonical service interfaces shared across API
// layers (REST, WebSocket, client). Consumers should depend on these
// interfaces rather than re-declaring equivalent ones.
package domain

import (
	"context"

	"github.com/oversightlabs/oversight/internal/models"
)

// RequestService defines the oversight request lifecycle operations.
type RequestService interface {
	Admit(ctx context.Context, orgID string, req models.AdmitRequest) (*models.OversightRequest, error)
	Decide(ctx context.Context, orgID, requestID string, req models.DecideRequest) (*models.OversightRequest, error)
	Cancel(ctx context.Context, orgID, requestID string, req models.CancelRequest) (*models.OversightRequest, error)
	Get(ctx context.Context, orgID, requestID string) (*models.OversightRequest, error)
	ListPending(ctx context.Context, orgID string, opts models.ListPendingOpts) ([]models.OversightRequest, bool, error)
}

// PolicyService defines approval policy administration.
type PolicyService interface {
	ListQuorumConfigs(ctx context.Context, orgID string) ([]models.QuorumConfig, error)
	CreateQuorumConfig(ctx context.Context, orgID string, cfg models.QuorumConfig) (*models.QuorumConfig, error)
	ListAutoApprovalRules(ctx context.Context, orgID string) ([]models.AutoApprovalRule, error)
	CreateAutoApprovalRule(ctx context.Context, orgID string, rule models.AutoApprovalRule) (*models.AutoApprovalRule, error)
	ListEscalationRules(ctx context.Context, orgID string) ([]models.EscalationRule, error)
	CreateEscalationRule(ctx context.Context, orgID string, rule models.EscalationRule) (*models.EscalationRule, error)
}

// AuditService defines audit trail queries and retention.
type AuditService interface {
	QueryTransitions(ctx context.Context, orgID string, opts models.TransitionQueryOpts) ([]models.StateTransition, bool, error)
	PurgeOldTransitions(ctx context.Context, orgID string, retentionDays int) (int, error)
}

// NotificationService defines notification channel administration and
// delivery history queries.
type NotificationService interface {
	ListChannels(ctx context.Context, orgID string) ([]models.NotificationChannel, error)
	CreateChannel(ctx context.Context, orgID string, ch *models.NotificationChannel) (*models.NotificationChannel, error)
	History(ctx context.Context, orgID, requestID string) ([]models.NotificationRecord, error)
}
