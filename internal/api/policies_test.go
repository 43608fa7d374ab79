package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/oversightlabs/oversight/internal/api"
	"github.com/oversightlabs/oversight/internal/models"
)

func TestPolicyHandler_CreateQuorumConfig(t *testing.T) {
	svc := &mockPolicyService{
		createQuorumFn: func(_ context.Context, _ string, cfg models.QuorumConfig) (*models.QuorumConfig, error) {
			cfg.ID = "q1"
			return &cfg, nil
		},
	}

	r := newTestRouter()
	r.POST("/policies/quorum", api.NewPolicyHandler(svc, testLogger()).CreateQuorumConfig)

	// The payload omits any_rejection_rejects; the created config must carry
	// the documented default.
	body := `{"name": "wire-transfers", "required_approvals": 2}`
	w := doRequest(r, http.MethodPost, "/policies/quorum", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("got %d, want 201: %s", w.Code, w.Body.String())
	}

	var resp models.QuorumConfig
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Name != "wire-transfers" || resp.RequiredApprovals != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if !resp.AnyRejectionRejects {
		t.Error("any_rejection_rejects = false, want the default true when omitted")
	}
}

func TestPolicyHandler_CreateQuorumConfigErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		svcErr   error
		wantCode int
	}{
		{"malformed json", "{", nil, http.StatusBadRequest},
		{"validation failure", `{"name": ""}`, models.ErrMissingPolicyName, http.StatusBadRequest},
		{"duplicate name", `{"name": "dup", "required_approvals": 1}`, models.ErrDuplicateKey, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPolicyService{
				createQuorumFn: func(context.Context, string, models.QuorumConfig) (*models.QuorumConfig, error) {
					return nil, tt.svcErr
				},
			}

			r := newTestRouter()
			r.POST("/policies/quorum", api.NewPolicyHandler(svc, testLogger()).CreateQuorumConfig)

			w := doRequest(r, http.MethodPost, "/policies/quorum", tt.body)
			if w.Code != tt.wantCode {
				t.Errorf("got %d, want %d: %s", w.Code, tt.wantCode, w.Body.String())
			}
		})
	}
}

func TestPolicyHandler_ListQuorumConfigs(t *testing.T) {
	svc := &mockPolicyService{
		listQuorumFn: func(context.Context, string) ([]models.QuorumConfig, error) {
			return []models.QuorumConfig{{ID: "q1", Name: "default"}}, nil
		},
	}

	r := newTestRouter()
	r.GET("/policies/quorum", api.NewPolicyHandler(svc, testLogger()).ListQuorumConfigs)

	w := doRequest(r, http.MethodGet, "/policies/quorum", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", w.Code)
	}

	var resp struct {
		Configs []models.QuorumConfig `json:"configs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Configs) != 1 || resp.Configs[0].Name != "default" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestPolicyHandler_CreateEscalationRule(t *testing.T) {
	svc := &mockPolicyService{
		createEscFn: func(_ context.Context, _ string, rule models.EscalationRule) (*models.EscalationRule, error) {
			rule.ID = "e1"
			return &rule, nil
		},
	}

	r := newTestRouter()
	r.POST("/policies/escalation", api.NewPolicyHandler(svc, testLogger()).CreateEscalationRule)

	body := `{"trigger_after": 1800000000000, "target_role": "risk-officer", "channel": "ops-log", "enabled": true}`
	w := doRequest(r, http.MethodPost, "/policies/escalation", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("got %d, want 201: %s", w.Code, w.Body.String())
	}

	var resp models.EscalationRule
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.TargetRole != "risk-officer" || resp.TriggerAfter != 30*time.Minute {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestPolicyHandler_CreateAutoApprovalRule(t *testing.T) {
	svc := &mockPolicyService{
		createAutoFn: func(_ context.Context, _ string, rule models.AutoApprovalRule) (*models.AutoApprovalRule, error) {
			rule.ID = "a1"
			return &rule, nil
		},
	}

	r := newTestRouter()
	r.POST("/policies/auto-approval", api.NewPolicyHandler(svc, testLogger()).CreateAutoApprovalRule)

	body := `{"action_type": "transaction", "max_amount": 100, "enabled": true}`
	w := doRequest(r, http.MethodPost, "/policies/auto-approval", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("got %d, want 201: %s", w.Code, w.Body.String())
	}
}
