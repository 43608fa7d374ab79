package models

import "errors"

// Sentinel errors for admission validation. Validation failures are rejected
// before any state mutation.
var (
	ErrMissingAgentID     = errors.New("agent_id is required")
	ErrMissingDescription = errors.New("description is required")
	ErrInvalidActionType  = errors.New("unknown action type")
	ErrInvalidPriority    = errors.New("unknown priority")
	ErrInvalidRiskLevel   = errors.New("unknown risk level")
	ErrInvalidRiskScore   = errors.New("risk score must be non-negative")
	ErrNegativeAmount     = errors.New("amount must be non-negative")
)

// Sentinel errors for decision recording. Conflict errors (duplicate
// decision, already resolved) are distinct from validation errors so callers
// can render "already decided" rather than "bad input".
var (
	ErrRequestNotFound   = errors.New("oversight request not found")
	ErrAlreadyResolved   = errors.New("request already resolved")
	ErrNotAuthorized     = errors.New("reviewer not authorized for this request")
	ErrDuplicateDecision = errors.New("reviewer has already decided on this request")
	ErrReasonRequired    = errors.New("reason is required")
	ErrMissingReviewerID = errors.New("reviewer_id is required")
	ErrMissingActorID    = errors.New("actor_id is required")
	ErrInvalidDecision   = errors.New("unknown decision")
	ErrInvalidWeight     = errors.New("weight must be at least 1")
)

// ErrNoPolicyMatch is fatal to admission: a request must never be created
// without a bound quorum policy.
var ErrNoPolicyMatch = errors.New("no quorum policy matches this request")

// Sentinel errors for policy and rule configuration.
var (
	ErrMissingPolicyName       = errors.New("policy name is required")
	ErrEmptyQuorum             = errors.New("policy must require approvals, weight, or unanimity")
	ErrTierWithoutAction       = errors.New("amount tier requires an action type binding")
	ErrInvalidTriggerDelay     = errors.New("trigger_after must be positive")
	ErrMissingEscalationTarget = errors.New("escalation rule needs a target role or user")
	ErrMissingChannel          = errors.New("notification channel is required")
	ErrMissingChannelTarget    = errors.New("webhook channel requires a target URL")
	ErrUnknownChannelKind      = errors.New("unknown notification channel kind")
)

// ErrInvalidTransition indicates an attempted illegal state machine edge.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrDuplicateKey indicates a unique constraint violation (maps to HTTP 409 Conflict).
var ErrDuplicateKey = errors.New("duplicate key")
