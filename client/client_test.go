package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestServer creates a test server that routes to the given handler map.
// Keys are "METHOD /path", values are handler funcs.
func newTestServer(t *testing.T, routes map[string]http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	mux := http.NewServeMux()
	for pattern, handler := range routes {
		mux.HandleFunc(pattern, handler)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	c := New(srv.URL, WithAPIKey("test-key"))
	return srv, c
}

func jsonResponse(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func TestHealth(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/health": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, HealthResponse{Status: "ok", Version: "0.3.0"})
		},
	})
	resp, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("got status %q, want ok", resp.Status)
	}
	if resp.Version != "0.3.0" {
		t.Errorf("got version %q, want 0.3.0", resp.Version)
	}
}

func TestStats(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/stats": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, StatsResponse{Pending: 4, Approved: 12, AvgResolutionSeconds: 93.5})
		},
	})
	resp, err := c.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats() error: %v", err)
	}
	if resp.Pending != 4 || resp.Approved != 12 {
		t.Errorf("got pending=%d approved=%d", resp.Pending, resp.Approved)
	}
}

func TestRequestLifecycle(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/requests": func(w http.ResponseWriter, r *http.Request) {
			var req AdmitRequest
			json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
			jsonResponse(w, 201, OversightRequest{
				ID:         "req-1",
				AgentID:    req.AgentID,
				ActionType: req.ActionType,
				Status:     StatusPending,
			})
		},
		"GET /api/v1/requests": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, map[string]any{
				"requests": []OversightRequest{{ID: "req-1", Status: StatusPending}},
				"has_more": true,
			})
		},
		"GET /api/v1/requests/req-1": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, OversightRequest{ID: "req-1", Status: StatusInReview})
		},
		"POST /api/v1/requests/req-1/decisions": func(w http.ResponseWriter, r *http.Request) {
			var req DecideRequest
			json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
			status := StatusInReview
			if req.Decision == DecisionApprove {
				status = StatusApproved
			}
			jsonResponse(w, 200, OversightRequest{ID: "req-1", Status: status})
		},
		"POST /api/v1/requests/req-1/cancel": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, OversightRequest{ID: "req-1", Status: StatusCancelled})
		},
	})

	ctx := context.Background()

	created, err := c.Requests.Admit(ctx, &AdmitRequest{
		AgentID:     "agent-7",
		ActionType:  "transaction",
		Description: "wire transfer",
		Risk:        RiskAssessment{Score: 0.4, Level: "medium"},
	})
	if err != nil {
		t.Fatalf("Admit error: %v", err)
	}
	if created.ID != "req-1" || created.AgentID != "agent-7" {
		t.Errorf("Admit: got %+v", created)
	}

	reqs, hasMore, err := c.Requests.List(ctx, &ListRequestsOptions{Status: StatusPending, Limit: 10})
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(reqs) != 1 || !hasMore {
		t.Errorf("List: got %d requests, hasMore=%v", len(reqs), hasMore)
	}

	got, err := c.Requests.Get(ctx, "req-1")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if got.Status != StatusInReview {
		t.Errorf("Get: got status %q", got.Status)
	}

	decided, err := c.Requests.Decide(ctx, "req-1", &DecideRequest{
		ReviewerID: "alice",
		Decision:   DecisionApprove,
	})
	if err != nil {
		t.Fatalf("Decide error: %v", err)
	}
	if decided.Status != StatusApproved {
		t.Errorf("Decide: got status %q", decided.Status)
	}

	cancelled, err := c.Requests.Cancel(ctx, "req-1", &CancelRequest{ActorID: "agent-7", Reason: "no longer needed"})
	if err != nil {
		t.Fatalf("Cancel error: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("Cancel: got status %q", cancelled.Status)
	}
}

func TestPolicies(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/policies/quorum": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, map[string]any{"configs": []QuorumConfig{{ID: "q1", Name: "two-person"}}})
		},
		"POST /api/v1/policies/quorum": func(w http.ResponseWriter, r *http.Request) {
			var cfg QuorumConfig
			json.NewDecoder(r.Body).Decode(&cfg) //nolint:errcheck
			cfg.ID = "q2"
			jsonResponse(w, 201, cfg)
		},
		"GET /api/v1/policies/escalation": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, map[string]any{"rules": []EscalationRule{{ID: "e1", Channel: "log"}}})
		},
	})

	ctx := context.Background()

	configs, err := c.Policies.ListQuorumConfigs(ctx)
	if err != nil {
		t.Fatalf("ListQuorumConfigs error: %v", err)
	}
	if len(configs) != 1 || configs[0].Name != "two-person" {
		t.Errorf("ListQuorumConfigs: got %+v", configs)
	}

	created, err := c.Policies.CreateQuorumConfig(ctx, &QuorumConfig{Name: "finance", RequiredApprovals: 2})
	if err != nil {
		t.Fatalf("CreateQuorumConfig error: %v", err)
	}
	if created.ID != "q2" || created.RequiredApprovals != 2 {
		t.Errorf("CreateQuorumConfig: got %+v", created)
	}

	rules, err := c.Policies.ListEscalationRules(ctx)
	if err != nil {
		t.Fatalf("ListEscalationRules error: %v", err)
	}
	if len(rules) != 1 || rules[0].Channel != "log" {
		t.Errorf("ListEscalationRules: got %+v", rules)
	}
}

func TestAuditQuery(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/audit": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("request_id"); got != "req-1" {
				t.Errorf("request_id param: got %q", got)
			}
			jsonResponse(w, 200, map[string]any{
				"transitions": []StateTransition{{ID: 1, RequestID: "req-1", ToStatus: StatusApproved}},
				"has_more":    false,
			})
		},
		"DELETE /api/v1/audit": func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("retention_days"); got != "30" {
				t.Errorf("retention_days param: got %q", got)
			}
			jsonResponse(w, 200, PurgeResult{Deleted: 17, RetentionDays: 30})
		},
	})

	ctx := context.Background()

	transitions, hasMore, err := c.Audit.Query(ctx, &AuditQueryOptions{RequestID: "req-1"})
	if err != nil {
		t.Fatalf("Query error: %v", err)
	}
	if len(transitions) != 1 || hasMore {
		t.Errorf("Query: got %d transitions, hasMore=%v", len(transitions), hasMore)
	}

	result, err := c.Audit.Purge(ctx, 30)
	if err != nil {
		t.Fatalf("Purge error: %v", err)
	}
	if result.Deleted != 17 {
		t.Errorf("Purge: got deleted=%d", result.Deleted)
	}
}

func TestNotificationChannels(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/notifications/channels": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, map[string]any{"channels": []NotificationChannel{{ID: "ch1", Kind: "webhook"}}})
		},
		"POST /api/v1/notifications/channels": func(w http.ResponseWriter, r *http.Request) {
			var ch NotificationChannel
			json.NewDecoder(r.Body).Decode(&ch) //nolint:errcheck
			ch.ID = "ch2"
			jsonResponse(w, 201, ch)
		},
		"GET /api/v1/requests/req-1/notifications": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 200, map[string]any{
				"deliveries": []NotificationRecord{{ID: 1, RequestID: "req-1", Status: "sent"}},
			})
		},
	})

	ctx := context.Background()

	channels, err := c.Notifications.ListChannels(ctx)
	if err != nil {
		t.Fatalf("ListChannels error: %v", err)
	}
	if len(channels) != 1 || channels[0].Kind != "webhook" {
		t.Errorf("ListChannels: got %+v", channels)
	}

	created, err := c.Notifications.CreateChannel(ctx, &NotificationChannel{Name: "ops", Kind: "webhook", Target: "https://example.com/hook"})
	if err != nil {
		t.Fatalf("CreateChannel error: %v", err)
	}
	if created.ID != "ch2" {
		t.Errorf("CreateChannel: got %+v", created)
	}

	deliveries, err := c.Requests.Notifications(ctx, "req-1")
	if err != nil {
		t.Fatalf("Notifications error: %v", err)
	}
	if len(deliveries) != 1 || deliveries[0].Status != "sent" {
		t.Errorf("Notifications: got %+v", deliveries)
	}
}

func TestAPIErrors(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/requests/missing": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 404, map[string]string{"code": "not_found", "message": "request not found"})
		},
		"POST /api/v1/requests/req-1/decisions": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 409, map[string]string{"code": "conflict", "message": "reviewer already decided"})
		},
		"POST /api/v1/requests": func(w http.ResponseWriter, _ *http.Request) {
			jsonResponse(w, 422, map[string]string{"code": "no_policy_match", "message": "no quorum policy matches"})
		},
	})

	ctx := context.Background()

	_, err := c.Requests.Get(ctx, "missing")
	if !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}

	_, err = c.Requests.Decide(ctx, "req-1", &DecideRequest{ReviewerID: "alice", Decision: DecisionApprove})
	if !IsConflict(err) {
		t.Errorf("expected conflict, got %v", err)
	}

	_, err = c.Requests.Admit(ctx, &AdmitRequest{AgentID: "a", ActionType: "transaction", Description: "x"})
	if !IsNoPolicyMatch(err) {
		t.Errorf("expected no policy match, got %v", err)
	}

	var apiErr *APIError
	_, err = c.Requests.Get(ctx, "missing")
	if e, ok := err.(*APIError); ok {
		apiErr = e
	}
	if apiErr == nil || apiErr.Code != "not_found" {
		t.Errorf("expected structured APIError, got %v", err)
	}
}

func TestAuthHeaderSent(t *testing.T) {
	_, c := newTestServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/health": func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
				t.Errorf("Authorization header: got %q", got)
			}
			jsonResponse(w, 200, HealthResponse{Status: "ok"})
		},
	})
	if _, err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health() error: %v", err)
	}
}
