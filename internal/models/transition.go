package models

import "time"

// ActorType identifies who drove a state transition.
type ActorType string

// Actor types. System covers the escalation monitor and admission; policy
// covers auto-approval.
const (
	ActorSystem ActorType = "system"
	ActorUser   ActorType = "user"
	ActorPolicy ActorType = "policy"
)

// StateTransition is one append-only audit record of a status change.
// Rows are never updated or deleted.
type StateTransition struct {
	ID         int64         `json:"id"`
	RequestID  string        `json:"request_id"`
	OrgID      string        `json:"-"`
	FromStatus RequestStatus `json:"from_status"`
	ToStatus   RequestStatus `json:"to_status"`
	ActorType  ActorType     `json:"actor_type"`
	// ActorID is empty for system-driven transitions.
	ActorID   string    `json:"actor_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// TransitionQueryOpts holds filters for querying the audit trail.
type TransitionQueryOpts struct {
	RequestID string
	ToStatus  RequestStatus
	ActorType ActorType
	Since     *time.Time
	Limit     int
	Offset    int
}

// transitions maps each non-terminal state to the states it may enter.
// Terminal states have no outgoing edges.
var transitions = map[RequestStatus][]RequestStatus{
	StatusPending:   {StatusInReview, StatusEscalated, StatusApproved, StatusRejected, StatusExpired, StatusCancelled},
	StatusInReview:  {StatusEscalated, StatusApproved, StatusRejected, StatusExpired, StatusCancelled},
	StatusEscalated: {StatusApproved, StatusRejected, StatusExpired, StatusCancelled},
}

// CanTransition reports whether from → to is a legal state machine edge.
func CanTransition(from, to RequestStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}

	return false
}
