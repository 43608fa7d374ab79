package client

import "context"

// PolicyService handles approval policy administration.
type PolicyService struct {
	c *Client
}

type quorumListResponse struct {
	Configs []QuorumConfig `json:"configs"`
}

type autoApprovalListResponse struct {
	Rules []AutoApprovalRule `json:"rules"`
}

type escalationListResponse struct {
	Rules []EscalationRule `json:"rules"`
}

// ListQuorumConfigs returns all quorum configs for the organization.
func (s *PolicyService) ListQuorumConfigs(ctx context.Context) ([]QuorumConfig, error) {
	var resp quorumListResponse
	if err := s.c.get(ctx, "/api/v1/policies/quorum", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Configs, nil
}

// CreateQuorumConfig creates a quorum config.
func (s *PolicyService) CreateQuorumConfig(ctx context.Context, cfg *QuorumConfig) (*QuorumConfig, error) {
	var created QuorumConfig
	if err := s.c.post(ctx, "/api/v1/policies/quorum", cfg, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListAutoApprovalRules returns all auto-approval rules for the organization.
func (s *PolicyService) ListAutoApprovalRules(ctx context.Context) ([]AutoApprovalRule, error) {
	var resp autoApprovalListResponse
	if err := s.c.get(ctx, "/api/v1/policies/auto-approval", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rules, nil
}

// CreateAutoApprovalRule creates an auto-approval rule.
func (s *PolicyService) CreateAutoApprovalRule(ctx context.Context, rule *AutoApprovalRule) (*AutoApprovalRule, error) {
	var created AutoApprovalRule
	if err := s.c.post(ctx, "/api/v1/policies/auto-approval", rule, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListEscalationRules returns all escalation rules for the organization.
func (s *PolicyService) ListEscalationRules(ctx context.Context) ([]EscalationRule, error) {
	var resp escalationListResponse
	if err := s.c.get(ctx, "/api/v1/policies/escalation", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Rules, nil
}

// CreateEscalationRule creates an escalation rule.
func (s *PolicyService) CreateEscalationRule(ctx context.Context, rule *EscalationRule) (*EscalationRule, error) {
	var created EscalationRule
	if err := s.c.post(ctx, "/api/v1/policies/escalation", rule, &created); err != nil {
		return nil, err
	}
	return &created, nil
}
