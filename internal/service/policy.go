package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/oversightlabs/oversight/internal/domain"
	"github.com/oversightlabs/oversight/internal/models"
)

// PolicyStore is the data-access interface PolicyAdminService depends on.
type PolicyStore interface {
	PolicyLister
	CreateQuorumConfig(ctx context.Context, orgID string, cfg *models.QuorumConfig) (*models.QuorumConfig, error)
	CreateAutoApprovalRule(ctx context.Context, orgID string, rule *models.AutoApprovalRule) (*models.AutoApprovalRule, error)
	ListEscalationRules(ctx context.Context, orgID string) ([]models.EscalationRule, error)
	CreateEscalationRule(ctx context.Context, orgID string, rule *models.EscalationRule) (*models.EscalationRule, error)
}

// Invalidator drops cached policy state after a write.
type Invalidator interface {
	Invalidate(ctx context.Context, orgID string)
}

// Compile-time check: *PolicyAdminService must satisfy domain.PolicyService.
var _ domain.PolicyService = (*PolicyAdminService)(nil)

// PolicyAdminService manages quorum configs, auto-approval rules and
// escalation rules. Every write invalidates the admission policy cache.
type PolicyAdminService struct {
	store PolicyStore
	cache Invalidator
	log   *logrus.Logger
}

// NewPolicyAdminService creates a PolicyAdminService.
func NewPolicyAdminService(store PolicyStore, cache Invalidator, log *logrus.Logger) *PolicyAdminService {
	return &PolicyAdminService{store: store, cache: cache, log: log}
}

// ListQuorumConfigs returns the org's quorum configs (pass-through).
func (s *PolicyAdminService) ListQuorumConfigs(ctx context.Context, orgID string) ([]models.QuorumConfig, error) {
	return s.store.ListQuorumConfigs(ctx, orgID)
}

// CreateQuorumConfig validates and persists a new quorum config.
func (s *PolicyAdminService) CreateQuorumConfig(ctx context.Context, orgID string, cfg models.QuorumConfig) (*models.QuorumConfig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	created, err := s.store.CreateQuorumConfig(ctx, orgID, &cfg)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, orgID)
	s.log.WithFields(logrus.Fields{"name": created.Name, "org_id": orgID}).Info("quorum config created")

	return created, nil
}

// ListAutoApprovalRules returns the org's auto-approval rules (pass-through).
func (s *PolicyAdminService) ListAutoApprovalRules(ctx context.Context, orgID string) ([]models.AutoApprovalRule, error) {
	return s.store.ListAutoApprovalRules(ctx, orgID)
}

// CreateAutoApprovalRule validates and persists a new auto-approval rule.
func (s *PolicyAdminService) CreateAutoApprovalRule(ctx context.Context, orgID string, rule models.AutoApprovalRule) (*models.AutoApprovalRule, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	created, err := s.store.CreateAutoApprovalRule(ctx, orgID, &rule)
	if err != nil {
		return nil, err
	}

	s.cache.Invalidate(ctx, orgID)
	s.log.WithFields(logrus.Fields{"rule_id": created.ID, "org_id": orgID}).Info("auto-approval rule created")

	return created, nil
}

// ListEscalationRules returns the org's escalation rules (pass-through).
func (s *PolicyAdminService) ListEscalationRules(ctx context.Context, orgID string) ([]models.EscalationRule, error) {
	return s.store.ListEscalationRules(ctx, orgID)
}

// CreateEscalationRule validates and persists a new escalation rule. The
// monitor reads rules from storage on every tick, so no cache is involved.
func (s *PolicyAdminService) CreateEscalationRule(ctx context.Context, orgID string, rule models.EscalationRule) (*models.EscalationRule, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	created, err := s.store.CreateEscalationRule(ctx, orgID, &rule)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"rule_id": created.ID, "org_id": orgID}).Info("escalation rule created")

	return created, nil
}
