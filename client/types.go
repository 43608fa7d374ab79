package client

import "time"

// Request lifecycle states.
const (
	StatusPending   = "pending"
	StatusInReview  = "in_review"
	StatusEscalated = "escalated"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
)

// Decision kinds.
const (
	DecisionApprove     = "approve"
	DecisionReject      = "reject"
	DecisionAbstain     = "abstain"
	DecisionRequestInfo = "request_info"
	DecisionEscalate    = "escalate"
)

// RiskAssessment is the caller-supplied risk evaluation of an action.
type RiskAssessment struct {
	Score   float64  `json:"score"`
	Level   string   `json:"level"`
	Factors []string `json:"factors,omitempty"`
}

// RequiredReviewer names a reviewer eligible to decide on a request, by
// user ID or by role.
type RequiredReviewer struct {
	RequestID  string `json:"request_id,omitempty"`
	ReviewerID string `json:"reviewer_id,omitempty"`
	Role       string `json:"role,omitempty"`
}

// ApprovalDecision is one reviewer's recorded verdict on one request.
type ApprovalDecision struct {
	RequestID  string    `json:"request_id"`
	ReviewerID string    `json:"reviewer_id"`
	Decision   string    `json:"decision"`
	Weight     int       `json:"weight"`
	Reason     string    `json:"reason,omitempty"`
	DecidedAt  time.Time `json:"decided_at"`
}

// QuorumConfig is an approval policy matched to requests at admission.
type QuorumConfig struct {
	ID                  string             `json:"id"`
	Name                string             `json:"name"`
	RequiredApprovals   int                `json:"required_approvals"`
	RequiredWeight      int                `json:"required_weight,omitempty"`
	AnyRejectionRejects bool               `json:"any_rejection_rejects"`
	RequireUnanimous    bool               `json:"require_unanimous"`
	UseInReview         bool               `json:"use_in_review"`
	ActionType          string             `json:"action_type,omitempty"`
	MinAmount           float64            `json:"min_amount,omitempty"`
	ApprovalTimeout     time.Duration      `json:"approval_timeout,omitempty"`
	DefaultReviewers    []RequiredReviewer `json:"default_reviewers,omitempty"`
	CreatedAt           time.Time          `json:"created_at"`
	UpdatedAt           time.Time          `json:"updated_at"`
}

// AutoApprovalRule lets low-risk requests bypass human review.
type AutoApprovalRule struct {
	ID               string    `json:"id"`
	ActionType       string    `json:"action_type"`
	MaxAmount        float64   `json:"max_amount,omitempty"`
	AllowedResources []string  `json:"allowed_resources,omitempty"`
	Enabled          bool      `json:"enabled"`
	CreatedAt        time.Time `json:"created_at"`
}

// EscalationRule raises unattended requests after a configured delay.
type EscalationRule struct {
	ID               string        `json:"id"`
	TriggerAfter     time.Duration `json:"trigger_after"`
	TargetRole       string        `json:"target_role,omitempty"`
	TargetUserID     string        `json:"target_user_id,omitempty"`
	Channel          string        `json:"channel"`
	ActionType       string        `json:"action_type,omitempty"`
	TimeoutReduction time.Duration `json:"timeout_reduction,omitempty"`
	Enabled          bool          `json:"enabled"`
	CreatedAt        time.Time     `json:"created_at"`
}

// OversightRequest is an agent action awaiting (or past) human review.
type OversightRequest struct {
	ID            string             `json:"id"`
	AgentID       string             `json:"agent_id"`
	ActionType    string             `json:"action_type"`
	ActionData    map[string]any     `json:"action_data,omitempty"`
	Description   string             `json:"description"`
	Justification string             `json:"justification,omitempty"`
	Status        string             `json:"status"`
	Priority      string             `json:"priority"`
	Risk          RiskAssessment     `json:"risk_assessment"`
	Amount        float64            `json:"amount,omitempty"`
	Policy        QuorumConfig       `json:"policy"`
	AutoApproved  bool               `json:"auto_approval_attempted"`
	Reviewers     []RequiredReviewer `json:"required_reviewers,omitempty"`
	Decisions     []ApprovalDecision `json:"decisions,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	TimeoutAt     *time.Time         `json:"timeout_at,omitempty"`
	ResolvedAt    *time.Time         `json:"resolved_at,omitempty"`
}

// AdmitRequest is the payload for submitting an action for oversight.
type AdmitRequest struct {
	AgentID       string             `json:"agent_id"`
	ActionType    string             `json:"action_type"`
	ActionData    map[string]any     `json:"action_data,omitempty"`
	Description   string             `json:"description"`
	Justification string             `json:"justification,omitempty"`
	Priority      string             `json:"priority,omitempty"`
	Risk          RiskAssessment     `json:"risk_assessment"`
	Amount        float64            `json:"amount,omitempty"`
	Reviewers     []RequiredReviewer `json:"required_reviewers,omitempty"`
}

// DecideRequest is the payload for recording a reviewer decision.
type DecideRequest struct {
	ReviewerID string   `json:"reviewer_id"`
	Roles      []string `json:"roles,omitempty"`
	Decision   string   `json:"decision"`
	Reason     string   `json:"reason,omitempty"`
	Weight     int      `json:"weight,omitempty"`
}

// CancelRequest is the payload for withdrawing a pending request.
type CancelRequest struct {
	ActorID string `json:"actor_id"`
	Reason  string `json:"reason"`
}

// StateTransition is one append-only audit trail entry.
type StateTransition struct {
	ID         int64     `json:"id"`
	RequestID  string    `json:"request_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	ActorType  string    `json:"actor_type"`
	ActorID    string    `json:"actor_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// NotificationChannel is a configured delivery endpoint.
type NotificationChannel struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Target    string    `json:"target,omitempty"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// NotificationRecord is one delivery attempt in the notification history.
type NotificationRecord struct {
	ID             int64     `json:"id"`
	RequestID      string    `json:"request_id"`
	Channel        string    `json:"channel"`
	EventKind      string    `json:"event_kind"`
	Recipients     []string  `json:"recipients"`
	IdempotencyKey string    `json:"idempotency_key"`
	Status         string    `json:"status"`
	Error          string    `json:"error,omitempty"`
	Attempts       int       `json:"attempts"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// ListRequestsOptions filters and paginates the request list.
type ListRequestsOptions struct {
	AgentID  string
	Status   string
	Priority string
	Limit    int
	Offset   int
}

// AuditQueryOptions filters and paginates the audit trail.
type AuditQueryOptions struct {
	RequestID string
	ToStatus  string
	ActorType string
	Since     time.Time
	Limit     int
	Offset    int
}

// HealthResponse is the liveness check payload.
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	Database      string  `json:"database"`
	WSClients     int     `json:"ws_clients"`
	UptimeSeconds float64 `json:"uptime_seconds"`
}

// StatsResponse holds per-status request counts and the average time from
// submission to resolution.
type StatsResponse struct {
	Pending              int     `json:"pending"`
	InReview             int     `json:"in_review"`
	Escalated            int     `json:"escalated"`
	Approved             int     `json:"approved"`
	Rejected             int     `json:"rejected"`
	Expired              int     `json:"expired"`
	Cancelled            int     `json:"cancelled"`
	AvgResolutionSeconds float64 `json:"avg_resolution_seconds"`
}
