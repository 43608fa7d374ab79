// Package notify implements the delivery transports behind notification
// channels. The dispatcher owns idempotency, retry and history; a Sender
// only moves one message to one endpoint.
package notify

import (
	"context"

	"github.com/oversightlabs/oversight/internal/models"
)

// Message is one human-facing notification about a request.
type Message struct {
	Event       models.EventKind     `json:"event"`
	RequestID   string               `json:"request_id"`
	OrgID       string               `json:"-"`
	AgentID     string               `json:"agent_id,omitempty"`
	ActionType  models.ActionType    `json:"action_type,omitempty"`
	Description string               `json:"description,omitempty"`
	Status      models.RequestStatus `json:"status,omitempty"`
	Priority    models.Priority      `json:"priority,omitempty"`
	Recipients  []string             `json:"recipients,omitempty"`
}

// Sender delivers one message to one channel endpoint.
type Sender interface {
	Send(ctx context.Context, target string, msg Message) error
}

// Registry maps channel kinds ("log", "webhook") to their senders.
type Registry map[string]Sender
