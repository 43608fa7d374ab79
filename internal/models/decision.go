package models

import "time"

// Decision is a reviewer's verdict on a request.
type Decision string

// Decision kinds. Abstain and request_info count as "reviewer has decided"
// for unanimity purposes but carry no weight toward either side.
const (
	DecisionApprove     Decision = "approve"
	DecisionReject      Decision = "reject"
	DecisionAbstain     Decision = "abstain"
	DecisionRequestInfo Decision = "request_info"
	DecisionEscalate    Decision = "escalate"
)

// Valid reports whether d is a known decision kind.
func (d Decision) Valid() bool {
	switch d {
	case DecisionApprove, DecisionReject, DecisionAbstain, DecisionRequestInfo, DecisionEscalate:
		return true
	}

	return false
}

// ApprovalDecision is one reviewer's recorded verdict on one request.
// At most one decision exists per (request, reviewer) pair; a second call
// from the same reviewer is rejected, never overwritten.
type ApprovalDecision struct {
	RequestID  string    `json:"request_id"`
	ReviewerID string    `json:"reviewer_id"`
	Decision   Decision  `json:"decision"`
	Weight     int       `json:"weight"`
	Reason     string    `json:"reason,omitempty"`
	DecidedAt  time.Time `json:"decided_at"`
}

// DecideRequest is the payload for recording a decision.
type DecideRequest struct {
	ReviewerID string `json:"reviewer_id"`
	// Roles carried by the reviewer, used for role-based eligibility.
	Roles    []string `json:"roles,omitempty"`
	Decision Decision `json:"decision"`
	Reason   string   `json:"reason,omitempty"`
	// Weight defaults to 1 when omitted.
	Weight int `json:"weight,omitempty"`
}

// Validate checks decision payload constraints. Rejections must carry a
// non-empty reason.
func (r *DecideRequest) Validate() error {
	if r.ReviewerID == "" {
		return ErrMissingReviewerID
	}

	if !r.Decision.Valid() {
		return ErrInvalidDecision
	}

	if r.Decision == DecisionReject && r.Reason == "" {
		return ErrReasonRequired
	}

	if r.Weight == 0 {
		r.Weight = 1
	}

	if r.Weight < 1 {
		return ErrInvalidWeight
	}

	return nil
}

// CancelRequest is the payload for withdrawing a request.
type CancelRequest struct {
	ActorID string `json:"actor_id"`
	Reason  string `json:"reason"`
}

// Validate checks cancellation payload constraints.
func (r *CancelRequest) Validate() error {
	if r.ActorID == "" {
		return ErrMissingActorID
	}

	if r.Reason == "" {
		return ErrReasonRequired
	}

	return nil
}
