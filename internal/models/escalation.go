package models

import "time"

// EscalationRule broadens the reviewer set for a still-pending request after
// a configured delay. Multiple rules may apply to one request; each fires
// independently, at most once per request.
type EscalationRule struct {
	ID    string `json:"id"`
	OrgID string `json:"-"`

	TriggerAfter time.Duration `json:"trigger_after"`
	// TargetRole or TargetUserID identifies who is pulled into the review.
	TargetRole   string `json:"target_role,omitempty"`
	TargetUserID string `json:"target_user_id,omitempty"`
	Channel      string `json:"channel"`
	// ActionType, when set, limits the rule to one action kind.
	ActionType ActionType `json:"action_type,omitempty"`
	// TimeoutReduction optionally shortens the remaining timeout when the
	// rule fires. Zero leaves the deadline untouched.
	TimeoutReduction time.Duration `json:"timeout_reduction,omitempty"`
	Enabled          bool          `json:"enabled"`
	CreatedAt        time.Time     `json:"created_at"`
}

// MonitorCandidate pairs a request with its organization for the monitor's
// cross-org expiry scans.
type MonitorCandidate struct {
	RequestID string
	OrgID     string
}

// EscalationCandidate is a (rule, request) pair whose trigger delay has
// elapsed and which has not fired yet.
type EscalationCandidate struct {
	RequestID string
	OrgID     string
	RuleID    string
}

// AppliesTo reports whether the rule covers a request of the given action
// type created at the given time, as of now.
func (r *EscalationRule) AppliesTo(actionType ActionType, createdAt, now time.Time) bool {
	if !r.Enabled {
		return false
	}

	if r.ActionType != "" && r.ActionType != actionType {
		return false
	}

	return now.Sub(createdAt) >= r.TriggerAfter
}

// Target returns the reviewer binding the rule adds to a request.
func (r *EscalationRule) Target() RequiredReviewer {
	return RequiredReviewer{ReviewerID: r.TargetUserID, Role: r.TargetRole}
}

// Validate checks rule consistency.
func (r *EscalationRule) Validate() error {
	if r.TriggerAfter <= 0 {
		return ErrInvalidTriggerDelay
	}

	if r.TargetRole == "" && r.TargetUserID == "" {
		return ErrMissingEscalationTarget
	}

	if r.Channel == "" {
		return ErrMissingChannel
	}

	if r.ActionType != "" && !r.ActionType.Valid() {
		return ErrInvalidActionType
	}

	return nil
}
