package models

import "time"

// EventKind enumerates notifiable engine events.
type EventKind string

// Notifiable event kinds.
const (
	EventRequestCreated   EventKind = "request_created"
	EventReminder         EventKind = "reminder"
	EventDecisionRecorded EventKind = "decision_recorded"
	EventEscalated        EventKind = "escalated"
	EventExpired          EventKind = "expired"
)

// Valid reports whether k is a known event kind.
func (k EventKind) Valid() bool {
	switch k {
	case EventRequestCreated, EventReminder, EventDecisionRecorded, EventEscalated, EventExpired:
		return true
	}

	return false
}

// Notification delivery statuses.
const (
	DeliveryPending = "pending"
	DeliverySent    = "sent"
	DeliveryFailed  = "failed"
)

// NotificationChannel is an org-configured delivery target. The transport
// itself (email, chat, pager) lives behind the notify.Channel port; this row
// only names the channel and its endpoint.
type NotificationChannel struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"-"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"` // "log" or "webhook"
	Target    string    `json:"target,omitempty"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks channel consistency.
func (c *NotificationChannel) Validate() error {
	if c.Name == "" {
		return ErrMissingChannel
	}

	switch c.Kind {
	case "log":
	case "webhook":
		if c.Target == "" {
			return ErrMissingChannelTarget
		}
	default:
		return ErrUnknownChannelKind
	}

	return nil
}

// NotificationRecord is one attempted delivery. IdempotencyKey is
// deterministic (request + event + channel) so a retried send after a
// transient failure never produces a duplicate human-visible notification.
type NotificationRecord struct {
	ID             int64     `json:"id"`
	OrgID          string    `json:"-"`
	RequestID      string    `json:"request_id"`
	Channel        string    `json:"channel"`
	EventKind      EventKind `json:"event_kind"`
	Recipients     []string  `json:"recipients"`
	IdempotencyKey string    `json:"idempotency_key"`
	Status         string    `json:"status"`
	Error          string    `json:"error,omitempty"`
	Attempts       int       `json:"attempts"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// DeliveryReceipt acknowledges a dispatched notification.
type DeliveryReceipt struct {
	IdempotencyKey string    `json:"idempotency_key"`
	Status         string    `json:"status"`
	DeliveredAt    time.Time `json:"delivered_at"`
}
