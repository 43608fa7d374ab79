package api

import (
	"github.com/oversightlabs/oversight/internal/domain"
)

// Handlers depend on the canonical service interfaces from the domain
// package rather than re-declaring their own. Aliases keep the handler
// constructors readable.
type (
	// RequestService drives the oversight request lifecycle.
	RequestService = domain.RequestService

	// PolicyService administers quorum configs, auto-approval rules and
	// escalation rules.
	PolicyService = domain.PolicyService

	// AuditService queries and prunes the state transition trail.
	AuditService = domain.AuditService

	// NotificationService administers channels and exposes delivery history.
	NotificationService = domain.NotificationService
)
