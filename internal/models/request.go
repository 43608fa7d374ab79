// Package models defines data types for the oversight approval workflow engine.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ActionType enumerates the kinds of agent actions that can be submitted
// for oversight.
type ActionType string

// Supported action types.
const (
	ActionTransaction   ActionType = "transaction"
	ActionDataAccess    ActionType = "data_access"
	ActionExternalAPI   ActionType = "external_api"
	ActionCodeExecution ActionType = "code_execution"
	ActionCommunication ActionType = "communication"
)

// Valid reports whether t is one of the enumerated action types.
func (t ActionType) Valid() bool {
	switch t {
	case ActionTransaction, ActionDataAccess, ActionExternalAPI, ActionCodeExecution, ActionCommunication:
		return true
	}

	return false
}

// RequestStatus is the lifecycle state of an oversight request.
type RequestStatus string

// Request lifecycle states. Approved, rejected, expired and cancelled are
// terminal: no transition leaves them. StatusNone is the pseudo-state a
// request transitions out of at admission; no request ever holds it.
const (
	StatusNone      RequestStatus = "none"
	StatusPending   RequestStatus = "pending"
	StatusInReview  RequestStatus = "in_review"
	StatusEscalated RequestStatus = "escalated"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusExpired   RequestStatus = "expired"
	StatusCancelled RequestStatus = "cancelled"
)

// Terminal reports whether s is a terminal state.
func (s RequestStatus) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusExpired, StatusCancelled:
		return true
	}

	return false
}

// Priority orders requests in reviewer queues.
type Priority string

// Priority levels.
const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}

	return false
}

// RiskLevel classifies a risk assessment. The engine treats it as supplied
// data; it never computes risk itself.
type RiskLevel string

// Risk levels, lowest to highest.
const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Elevated reports whether the level disqualifies a request from
// auto-approval.
func (l RiskLevel) Elevated() bool {
	return l == RiskHigh || l == RiskCritical
}

// RiskAssessment is the caller-supplied risk evaluation of an action.
type RiskAssessment struct {
	Score   float64   `json:"score"`
	Level   RiskLevel `json:"level"`
	Factors []string  `json:"factors,omitempty"`
}

// Validate checks the assessment carries a score and a known level.
func (r *RiskAssessment) Validate() error {
	switch r.Level {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
	default:
		return ErrInvalidRiskLevel
	}

	if r.Score < 0 {
		return ErrInvalidRiskScore
	}

	return nil
}

// RequiredReviewer binds a request to a reviewer eligible to decide on it,
// either by user ID or by role. Either field may be empty but not both.
type RequiredReviewer struct {
	RequestID  string `json:"request_id"`
	ReviewerID string `json:"reviewer_id,omitempty"`
	Role       string `json:"role,omitempty"`
}

// Matches reports whether the given reviewer satisfies this binding.
func (r *RequiredReviewer) Matches(reviewerID string, roles []string) bool {
	if r.ReviewerID != "" && r.ReviewerID == reviewerID {
		return true
	}

	if r.Role != "" {
		for _, role := range roles {
			if role == r.Role {
				return true
			}
		}
	}

	return false
}

// OversightRequest is one agent-proposed action awaiting human review.
//
// ResolvedAt is set if and only if Status is terminal. TimeoutAt, once set,
// is never changed; a nil TimeoutAt means the request never times out.
type OversightRequest struct {
	ID            string         `json:"id"`
	OrgID         string         `json:"-"`
	AgentID       string         `json:"agent_id"`
	ActionType    ActionType     `json:"action_type"`
	ActionData    map[string]any `json:"action_data,omitempty"`
	Description   string         `json:"description"`
	Justification string         `json:"justification,omitempty"`
	Status        RequestStatus  `json:"status"`
	Priority      Priority       `json:"priority"`
	Risk          RiskAssessment `json:"risk_assessment"`
	Amount        float64        `json:"amount,omitempty"`
	// Policy is the quorum config captured at admission. Later edits to the
	// stored config never affect an in-flight request.
	Policy       QuorumConfig       `json:"policy"`
	AutoApproved bool               `json:"auto_approval_attempted"`
	Reviewers    []RequiredReviewer `json:"required_reviewers,omitempty"`
	Decisions    []ApprovalDecision `json:"decisions,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	TimeoutAt    *time.Time         `json:"timeout_at,omitempty"`
	ResolvedAt   *time.Time         `json:"resolved_at,omitempty"`
}

// EligibleReviewer reports whether the reviewer may decide on this request.
func (r *OversightRequest) EligibleReviewer(reviewerID string, roles []string) bool {
	for i := range r.Reviewers {
		if r.Reviewers[i].Matches(reviewerID, roles) {
			return true
		}
	}

	return false
}

// AdmitRequest is the payload for submitting an action for oversight.
type AdmitRequest struct {
	AgentID       string         `json:"agent_id"`
	ActionType    ActionType     `json:"action_type"`
	ActionData    map[string]any `json:"action_data,omitempty"`
	Description   string         `json:"description"`
	Justification string         `json:"justification,omitempty"`
	Priority      Priority       `json:"priority,omitempty"`
	Risk          RiskAssessment `json:"risk_assessment"`
	// Amount is used for policy tier resolution and auto-approval ceilings.
	// Zero means "no monetary value".
	Amount float64 `json:"amount,omitempty"`
	// Reviewers lets the caller pin specific reviewers or roles in addition
	// to the resolved policy's defaults.
	Reviewers []RequiredReviewer `json:"required_reviewers,omitempty"`
}

// Validate checks required admission fields and fills defaults.
func (r *AdmitRequest) Validate() error {
	if r.AgentID == "" {
		return ErrMissingAgentID
	}

	if !r.ActionType.Valid() {
		return ErrInvalidActionType
	}

	if r.Description == "" {
		return ErrMissingDescription
	}

	if r.Priority == "" {
		r.Priority = PriorityMedium
	}

	if !r.Priority.Valid() {
		return ErrInvalidPriority
	}

	if r.Amount < 0 {
		return ErrNegativeAmount
	}

	return r.Risk.Validate()
}

// ListPendingOpts holds filters for listing unresolved requests.
type ListPendingOpts struct {
	AgentID  string
	Status   RequestStatus
	Priority Priority
	Limit    int
	Offset   int
}

// NewRequestID returns a fresh request identifier.
func NewRequestID() string {
	return uuid.New().String()
}
