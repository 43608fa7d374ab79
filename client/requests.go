package client

import (
	"context"
	"net/url"
	"strconv"
)

// RequestService handles oversight request lifecycle operations.
type RequestService struct {
	c *Client
}

// requestListResponse wraps the paginated request list response.
type requestListResponse struct {
	Requests []OversightRequest `json:"requests"`
	HasMore  bool               `json:"has_more"`
}

// deliveriesResponse wraps the notification history response.
type deliveriesResponse struct {
	Deliveries []NotificationRecord `json:"deliveries"`
}

// Admit submits an agent action for oversight. The matched policy decides
// whether the request auto-approves or enters the pending queue.
func (s *RequestService) Admit(ctx context.Context, req *AdmitRequest) (*OversightRequest, error) {
	var r OversightRequest
	if err := s.c.post(ctx, "/api/v1/requests", req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Get returns a single request by ID.
func (s *RequestService) Get(ctx context.Context, id string) (*OversightRequest, error) {
	var r OversightRequest
	if err := s.c.get(ctx, "/api/v1/requests/"+url.PathEscape(id), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// List returns requests with optional filtering and pagination. Without a
// status filter the server returns open requests only.
func (s *RequestService) List(ctx context.Context, opts *ListRequestsOptions) ([]OversightRequest, bool, error) {
	params := url.Values{}
	if opts != nil {
		if opts.AgentID != "" {
			params.Set("agent_id", opts.AgentID)
		}
		if opts.Status != "" {
			params.Set("status", opts.Status)
		}
		if opts.Priority != "" {
			params.Set("priority", opts.Priority)
		}
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
		if opts.Offset > 0 {
			params.Set("offset", strconv.Itoa(opts.Offset))
		}
	}
	var resp requestListResponse
	if err := s.c.get(ctx, "/api/v1/requests", params, &resp); err != nil {
		return nil, false, err
	}
	return resp.Requests, resp.HasMore, nil
}

// Decide records a reviewer's verdict on a request and returns the request
// with its possibly-updated status.
func (s *RequestService) Decide(ctx context.Context, id string, req *DecideRequest) (*OversightRequest, error) {
	var r OversightRequest
	if err := s.c.post(ctx, "/api/v1/requests/"+url.PathEscape(id)+"/decisions", req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Cancel withdraws an unresolved request.
func (s *RequestService) Cancel(ctx context.Context, id string, req *CancelRequest) (*OversightRequest, error) {
	var r OversightRequest
	if err := s.c.post(ctx, "/api/v1/requests/"+url.PathEscape(id)+"/cancel", req, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Transitions returns the audit trail of a request, oldest first.
func (s *RequestService) Transitions(ctx context.Context, id string) ([]StateTransition, error) {
	var resp struct {
		Transitions []StateTransition `json:"transitions"`
	}
	if err := s.c.get(ctx, "/api/v1/requests/"+url.PathEscape(id)+"/transitions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Transitions, nil
}

// Notifications returns the delivery history for a request.
func (s *RequestService) Notifications(ctx context.Context, id string) ([]NotificationRecord, error) {
	var resp deliveriesResponse
	if err := s.c.get(ctx, "/api/v1/requests/"+url.PathEscape(id)+"/notifications", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Deliveries, nil
}
