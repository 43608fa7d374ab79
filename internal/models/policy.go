package models

import (
	"encoding/json"
	"time"
)

// QuorumConfig is a named approval policy. Exactly one config resolves per
// request at admission time; the most specific match wins
// (action type + amount tier > action type > organization default).
type QuorumConfig struct {
	ID    string `json:"id"`
	OrgID string `json:"-"`
	Name  string `json:"name"`

	RequiredApprovals int `json:"required_approvals"`
	// RequiredWeight, when > 0, switches aggregation from approval counting
	// to weight summing.
	RequiredWeight      int  `json:"required_weight,omitempty"`
	AnyRejectionRejects bool `json:"any_rejection_rejects"`
	RequireUnanimous    bool `json:"require_unanimous"`
	// UseInReview moves a request from pending to in_review on its first
	// recorded decision. Policies that do not distinguish the intermediate
	// state leave requests in pending until resolution.
	UseInReview bool `json:"use_in_review"`

	// ActionType, when set, binds this config to one action kind.
	ActionType ActionType `json:"action_type,omitempty"`
	// MinAmount, when > 0, makes this a tiered config that only matches
	// requests at or above the threshold.
	MinAmount float64 `json:"min_amount,omitempty"`

	// ApprovalTimeout of zero means requests under this policy never expire.
	ApprovalTimeout time.Duration `json:"approval_timeout,omitempty"`

	// DefaultReviewers seeds a request's required reviewer set.
	DefaultReviewers []RequiredReviewer `json:"default_reviewers,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UnmarshalJSON applies the documented default stance: a payload that omits
// any_rejection_rejects gets true, the conservative setting. An explicit
// false is honored.
func (c *QuorumConfig) UnmarshalJSON(data []byte) error {
	type plain QuorumConfig

	aux := struct {
		AnyRejectionRejects *bool `json:"any_rejection_rejects"`
		*plain
	}{plain: (*plain)(c)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	c.AnyRejectionRejects = aux.AnyRejectionRejects == nil || *aux.AnyRejectionRejects

	return nil
}

// Validate checks config consistency.
func (c *QuorumConfig) Validate() error {
	if c.Name == "" {
		return ErrMissingPolicyName
	}

	if c.RequiredApprovals < 1 && c.RequiredWeight < 1 && !c.RequireUnanimous {
		return ErrEmptyQuorum
	}

	if c.ActionType != "" && !c.ActionType.Valid() {
		return ErrInvalidActionType
	}

	if c.MinAmount < 0 {
		return ErrNegativeAmount
	}

	if c.MinAmount > 0 && c.ActionType == "" {
		return ErrTierWithoutAction
	}

	return nil
}

// AutoApprovalRule resolves low-risk, low-value actions without human
// review. A request matching a rule is created directly in the approved
// terminal state with no reviewers and no notifications.
type AutoApprovalRule struct {
	ID         string     `json:"id"`
	OrgID      string     `json:"-"`
	ActionType ActionType `json:"action_type"`
	// MaxAmount of zero means any amount qualifies.
	MaxAmount float64 `json:"max_amount,omitempty"`
	// AllowedResources, when non-empty, restricts the rule to action data
	// whose "resource" field (symbol, table, endpoint) is in the list.
	AllowedResources []string  `json:"allowed_resources,omitempty"`
	Enabled          bool      `json:"enabled"`
	CreatedAt        time.Time `json:"created_at"`
}

// Matches reports whether the rule admits the given action without review.
// Elevated risk always disqualifies, regardless of amount or resource.
func (r *AutoApprovalRule) Matches(actionType ActionType, amount float64, resource string, risk RiskLevel) bool {
	if !r.Enabled || r.ActionType != actionType {
		return false
	}

	if risk.Elevated() {
		return false
	}

	if r.MaxAmount > 0 && amount > r.MaxAmount {
		return false
	}

	if len(r.AllowedResources) > 0 {
		found := false
		for _, allowed := range r.AllowedResources {
			if allowed == resource {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	return true
}

// Validate checks rule consistency.
func (r *AutoApprovalRule) Validate() error {
	if !r.ActionType.Valid() {
		return ErrInvalidActionType
	}

	if r.MaxAmount < 0 {
		return ErrNegativeAmount
	}

	return nil
}
