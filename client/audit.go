package client

import (
	"context"
	"net/url"
	"strconv"
	"time"
)

// AuditService queries the append-only state transition trail.
type AuditService struct {
	c *Client
}

type auditQueryResponse struct {
	Transitions []StateTransition `json:"transitions"`
	HasMore     bool              `json:"has_more"`
}

// PurgeResult reports the outcome of a retention sweep.
type PurgeResult struct {
	Deleted       int `json:"deleted"`
	RetentionDays int `json:"retention_days"`
}

// Query returns state transitions matching the given filters.
func (s *AuditService) Query(ctx context.Context, opts *AuditQueryOptions) ([]StateTransition, bool, error) {
	params := url.Values{}
	if opts != nil {
		if opts.RequestID != "" {
			params.Set("request_id", opts.RequestID)
		}
		if opts.ToStatus != "" {
			params.Set("to_status", opts.ToStatus)
		}
		if opts.ActorType != "" {
			params.Set("actor_type", opts.ActorType)
		}
		if !opts.Since.IsZero() {
			params.Set("since", opts.Since.Format(time.RFC3339))
		}
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
		if opts.Offset > 0 {
			params.Set("offset", strconv.Itoa(opts.Offset))
		}
	}
	var resp auditQueryResponse
	if err := s.c.get(ctx, "/api/v1/audit", params, &resp); err != nil {
		return nil, false, err
	}
	return resp.Transitions, resp.HasMore, nil
}

// Purge deletes transitions of resolved requests older than the retention
// window and returns how many rows were removed.
func (s *AuditService) Purge(ctx context.Context, retentionDays int) (*PurgeResult, error) {
	params := url.Values{}
	if retentionDays > 0 {
		params.Set("retention_days", strconv.Itoa(retentionDays))
	}
	var result PurgeResult
	if err := s.c.del(ctx, "/api/v1/audit", params, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
