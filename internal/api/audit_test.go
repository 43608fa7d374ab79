package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/oversightlabs/oversight/internal/api"
	"github.com/oversightlabs/oversight/internal/models"
)

func TestAuditHandler_Query(t *testing.T) {
	var gotOpts models.TransitionQueryOpts
	svc := &mockAuditService{
		queryFn: func(_ context.Context, _ string, opts models.TransitionQueryOpts) ([]models.StateTransition, bool, error) {
			gotOpts = opts
			return []models.StateTransition{{
				ID:         1,
				RequestID:  "r1",
				FromStatus: models.StatusNone,
				ToStatus:   models.StatusPending,
				ActorType:  models.ActorSystem,
			}}, false, nil
		},
	}

	r := newTestRouter()
	r.GET("/audit", api.NewAuditHandler(svc, testLogger()).Query)

	w := doRequest(r, http.MethodGet, "/audit?request_id=r1&to_status=pending", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", w.Code, w.Body.String())
	}

	if gotOpts.RequestID != "r1" || gotOpts.ToStatus != models.StatusPending {
		t.Errorf("unexpected opts: %+v", gotOpts)
	}

	var resp struct {
		Transitions []models.StateTransition `json:"transitions"`
		HasMore     bool                     `json:"has_more"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Transitions) != 1 {
		t.Errorf("expected 1 transition, got %d", len(resp.Transitions))
	}
}

func TestAuditHandler_QueryBadSince(t *testing.T) {
	svc := &mockAuditService{
		queryFn: func(context.Context, string, models.TransitionQueryOpts) ([]models.StateTransition, bool, error) {
			t.Fatal("service should not be called")
			return nil, false, nil
		},
	}

	r := newTestRouter()
	r.GET("/audit", api.NewAuditHandler(svc, testLogger()).Query)

	w := doRequest(r, http.MethodGet, "/audit?since=yesterday", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400", w.Code)
	}
}

func TestAuditHandler_Purge(t *testing.T) {
	var gotDays int
	svc := &mockAuditService{
		purgeFn: func(_ context.Context, _ string, retentionDays int) (int, error) {
			gotDays = retentionDays
			return 7, nil
		},
	}

	r := newTestRouter()
	r.DELETE("/audit", api.NewAuditHandler(svc, testLogger()).Purge)

	w := doRequest(r, http.MethodDelete, "/audit?retention_days=30", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", w.Code, w.Body.String())
	}
	if gotDays != 30 {
		t.Errorf("expected retention 30, got %d", gotDays)
	}

	w = doRequest(r, http.MethodDelete, "/audit?retention_days=0", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400 for non-positive retention", w.Code)
	}
}

func TestAuditHandler_RequestTrail(t *testing.T) {
	var gotOpts models.TransitionQueryOpts
	svc := &mockAuditService{
		queryFn: func(_ context.Context, _ string, opts models.TransitionQueryOpts) ([]models.StateTransition, bool, error) {
			gotOpts = opts
			return []models.StateTransition{
				{ID: 1, RequestID: "r1", FromStatus: models.StatusNone, ToStatus: models.StatusPending, ActorType: models.ActorSystem},
				{ID: 2, RequestID: "r1", FromStatus: models.StatusPending, ToStatus: models.StatusApproved, ActorType: models.ActorUser},
			}, false, nil
		},
	}

	r := newTestRouter()
	r.GET("/requests/:id/transitions", api.NewAuditHandler(svc, testLogger()).RequestTrail)

	w := doRequest(r, http.MethodGet, "/requests/r1/transitions", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", w.Code, w.Body.String())
	}

	if gotOpts.RequestID != "r1" {
		t.Errorf("expected request_id r1, got %q", gotOpts.RequestID)
	}
	if gotOpts.Limit != 100 {
		t.Errorf("expected default limit 100, got %d", gotOpts.Limit)
	}

	var resp struct {
		Transitions []models.StateTransition `json:"transitions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Transitions) != 2 {
		t.Errorf("expected 2 transitions, got %d", len(resp.Transitions))
	}
}
