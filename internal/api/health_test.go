package api_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/oversightlabs/oversight/internal/api"
)

func TestHealthHandler_LivenessWithoutPool(t *testing.T) {
	h := api.NewHealthHandler(nil, nil, testLogger(), "test-version")

	r := gin.New()
	r.GET("/health", h.Liveness)

	w := doRequest(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want 200", w.Code)
	}

	var resp struct {
		Status   string `json:"status"`
		Version  string `json:"version"`
		Database string `json:"database"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}

	if resp.Status != "ok" {
		t.Errorf("expected status ok, got %s", resp.Status)
	}
	if resp.Version != "test-version" {
		t.Errorf("expected version test-version, got %s", resp.Version)
	}
	if resp.Database != "not_configured" {
		t.Errorf("expected database not_configured, got %s", resp.Database)
	}
}
