// Package service provides business logic between API handlers and data stores.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oversightlabs/oversight/internal/domain"
	"github.com/oversightlabs/oversight/internal/metrics"
	"github.com/oversightlabs/oversight/internal/models"
	"github.com/oversightlabs/oversight/internal/quorum"
)

// RequestStore is the data-access interface OversightService depends on.
type RequestStore interface {
	CreateRequest(ctx context.Context, r *models.OversightRequest, actor models.ActorType, reason string) (*models.StateTransition, error)
	GetRequest(ctx context.Context, orgID, requestID string) (*models.OversightRequest, error)
	ListPending(ctx context.Context, orgID string, opts models.ListPendingOpts) ([]models.OversightRequest, bool, error)
	RecordDecision(ctx context.Context, orgID, requestID string, req models.DecideRequest) (*models.OversightRequest, *models.StateTransition, error)
	CancelRequest(ctx context.Context, orgID, requestID string, req models.CancelRequest) (*models.OversightRequest, *models.StateTransition, error)
}

// PolicySource yields the current policy set for an organization.
type PolicySource interface {
	Policies(ctx context.Context, orgID string) (*PolicySet, error)
}

// NotifyEnqueuer enqueues notification dispatch jobs.
type NotifyEnqueuer interface {
	Enqueue(job NotificationJob)
}

// Compile-time check: *OversightService must satisfy domain.RequestService.
var _ domain.RequestService = (*OversightService)(nil)

// OversightService implements the request lifecycle: admission with policy
// resolution and auto-approval, decision recording, cancellation and reads.
type OversightService struct {
	store      RequestStore
	policies   PolicySource
	dispatcher NotifyEnqueuer
	log        *logrus.Logger
}

// NewOversightService creates an OversightService.
func NewOversightService(store RequestStore, policies PolicySource, dispatcher NotifyEnqueuer, log *logrus.Logger) *OversightService {
	return &OversightService{store: store, policies: policies, dispatcher: dispatcher, log: log}
}

// Admit accepts an agent action for oversight. The resolved quorum config is
// snapshotted onto the request, reviewers are seeded from the config plus any
// caller-pinned bindings, and the timeout deadline is fixed once here. A
// matching auto-approval rule short-circuits the whole flow: the request is
// created already approved, with no reviewers and no notifications.
func (s *OversightService) Admit(ctx context.Context, orgID string, req models.AdmitRequest) (*models.OversightRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	ps, err := s.policies.Policies(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("loading policies: %w", err)
	}

	now := time.Now().UTC()

	if rule := matchAutoApproval(ps.AutoRules, req); rule != nil {
		return s.admitAutoApproved(ctx, orgID, req, rule, now)
	}

	cfg, err := quorum.Resolve(ps.Configs, req.ActionType, req.Amount)
	if err != nil {
		return nil, err
	}

	r := &models.OversightRequest{
		ID:            models.NewRequestID(),
		OrgID:         orgID,
		AgentID:       req.AgentID,
		ActionType:    req.ActionType,
		ActionData:    req.ActionData,
		Description:   req.Description,
		Justification: req.Justification,
		Status:        models.StatusPending,
		Priority:      req.Priority,
		Risk:          req.Risk,
		Amount:        req.Amount,
		Policy:        *cfg,
		Reviewers:     mergeReviewers(cfg.DefaultReviewers, req.Reviewers),
		CreatedAt:     now,
	}

	if cfg.ApprovalTimeout > 0 {
		deadline := now.Add(cfg.ApprovalTimeout)
		r.TimeoutAt = &deadline
	}

	if _, err := s.store.CreateRequest(ctx, r, models.ActorSystem, "request admitted"); err != nil {
		return nil, err
	}

	metrics.RequestsAdmitted.WithLabelValues(string(r.ActionType)).Inc()

	s.log.WithFields(logrus.Fields{
		"request_id":  r.ID,
		"agent_id":    r.AgentID,
		"action_type": r.ActionType,
		"policy":      cfg.Name,
	}).Info("request admitted")

	s.dispatcher.Enqueue(NotificationJob{
		OrgID:      orgID,
		Request:    *r,
		Event:      models.EventRequestCreated,
		Recipients: reviewerRecipients(r.Reviewers),
	})

	return r, nil
}

// admitAutoApproved creates a request directly in the approved terminal state.
func (s *OversightService) admitAutoApproved(
	ctx context.Context, orgID string, req models.AdmitRequest, rule *models.AutoApprovalRule, now time.Time,
) (*models.OversightRequest, error) {
	r := &models.OversightRequest{
		ID:            models.NewRequestID(),
		OrgID:         orgID,
		AgentID:       req.AgentID,
		ActionType:    req.ActionType,
		ActionData:    req.ActionData,
		Description:   req.Description,
		Justification: req.Justification,
		Status:        models.StatusApproved,
		Priority:      req.Priority,
		Risk:          req.Risk,
		Amount:        req.Amount,
		Policy:        models.QuorumConfig{Name: "auto-approval"},
		AutoApproved:  true,
		CreatedAt:     now,
		ResolvedAt:    &now,
	}

	reason := "auto-approval rule " + rule.ID + " matched"

	if _, err := s.store.CreateRequest(ctx, r, models.ActorPolicy, reason); err != nil {
		return nil, err
	}

	metrics.RequestsAdmitted.WithLabelValues(string(r.ActionType)).Inc()
	metrics.RequestsResolved.WithLabelValues(string(models.StatusApproved)).Inc()

	s.log.WithFields(logrus.Fields{
		"request_id":  r.ID,
		"agent_id":    r.AgentID,
		"action_type": r.ActionType,
		"rule_id":     rule.ID,
	}).Info("request auto-approved")

	return r, nil
}

// Decide records one reviewer's verdict and returns the updated request.
func (s *OversightService) Decide(ctx context.Context, orgID, requestID string, req models.DecideRequest) (*models.OversightRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r, transition, err := s.store.RecordDecision(ctx, orgID, requestID, req)
	if err != nil {
		return nil, err
	}

	metrics.DecisionsRecorded.WithLabelValues(string(req.Decision)).Inc()

	if transition != nil && transition.ToStatus.Terminal() {
		metrics.RequestsResolved.WithLabelValues(string(transition.ToStatus)).Inc()

		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"status":     transition.ToStatus,
			"reviewer":   req.ReviewerID,
		}).Info("request resolved")

		s.dispatcher.Enqueue(NotificationJob{
			OrgID:      orgID,
			Request:    *r,
			Event:      models.EventDecisionRecorded,
			Recipients: reviewerRecipients(r.Reviewers),
		})
	}

	return r, nil
}

// Cancel withdraws a non-terminal request.
func (s *OversightService) Cancel(ctx context.Context, orgID, requestID string, req models.CancelRequest) (*models.OversightRequest, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r, transition, err := s.store.CancelRequest(ctx, orgID, requestID, req)
	if err != nil {
		return nil, err
	}

	metrics.RequestsResolved.WithLabelValues(string(transition.ToStatus)).Inc()

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"actor":      req.ActorID,
	}).Info("request cancelled")

	return r, nil
}

// Get returns a request with its reviewers and decisions (pass-through).
func (s *OversightService) Get(ctx context.Context, orgID, requestID string) (*models.OversightRequest, error) {
	return s.store.GetRequest(ctx, orgID, requestID)
}

// ListPending returns unresolved requests for reviewer queues (pass-through).
func (s *OversightService) ListPending(ctx context.Context, orgID string, opts models.ListPendingOpts) ([]models.OversightRequest, bool, error) {
	return s.store.ListPending(ctx, orgID, opts)
}

// matchAutoApproval returns the first enabled rule admitting the action, or
// nil when human review is required.
func matchAutoApproval(rules []models.AutoApprovalRule, req models.AdmitRequest) *models.AutoApprovalRule {
	resource, _ := req.ActionData["resource"].(string)

	for i := range rules {
		if rules[i].Matches(req.ActionType, req.Amount, resource, req.Risk.Level) {
			return &rules[i]
		}
	}

	return nil
}

// mergeReviewers combines policy defaults with caller-pinned bindings,
// dropping exact duplicates.
func mergeReviewers(defaults, pinned []models.RequiredReviewer) []models.RequiredReviewer {
	merged := make([]models.RequiredReviewer, 0, len(defaults)+len(pinned))
	seen := make(map[string]bool)

	for _, r := range append(append([]models.RequiredReviewer{}, defaults...), pinned...) {
		key := r.ReviewerID + "\x00" + r.Role
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, r)
	}

	return merged
}

// reviewerRecipients renders reviewer bindings as notification recipients.
func reviewerRecipients(reviewers []models.RequiredReviewer) []string {
	recipients := make([]string, 0, len(reviewers))
	for _, r := range reviewers {
		switch {
		case r.ReviewerID != "":
			recipients = append(recipients, r.ReviewerID)
		case r.Role != "":
			recipients = append(recipients, "role:"+r.Role)
		}
	}

	return recipients
}
