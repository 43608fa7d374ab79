package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/oversightlabs/oversight/internal/api"
	"github.com/oversightlabs/oversight/internal/models"
)

func TestNotificationHandler_CreateChannel(t *testing.T) {
	svc := &mockNotificationService{
		createChannelFn: func(_ context.Context, _ string, ch *models.NotificationChannel) (*models.NotificationChannel, error) {
			ch.ID = "c1"
			return ch, nil
		},
	}

	r := newTestRouter()
	r.POST("/notifications/channels", api.NewNotificationHandler(svc, testLogger()).CreateChannel)

	body := `{"name": "ops-webhook", "kind": "webhook", "target": "https://hooks.internal/oversight", "enabled": true}`
	w := doRequest(r, http.MethodPost, "/notifications/channels", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("got %d, want 201: %s", w.Code, w.Body.String())
	}

	var resp models.NotificationChannel
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.ID != "c1" || resp.Kind != "webhook" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestNotificationHandler_CreateChannelValidation(t *testing.T) {
	svc := &mockNotificationService{
		createChannelFn: func(context.Context, string, *models.NotificationChannel) (*models.NotificationChannel, error) {
			t.Fatal("service should not be called")
			return nil, nil
		},
	}

	r := newTestRouter()
	r.POST("/notifications/channels", api.NewNotificationHandler(svc, testLogger()).CreateChannel)

	// Webhook channel without a target URL.
	body := `{"name": "bad", "kind": "webhook"}`
	w := doRequest(r, http.MethodPost, "/notifications/channels", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestNotificationHandler_History(t *testing.T) {
	svc := &mockNotificationService{
		historyFn: func(_ context.Context, _, requestID string) ([]models.NotificationRecord, error) {
			return []models.NotificationRecord{{
				ID:        1,
				RequestID: requestID,
				Channel:   "ops-log",
				EventKind: models.EventRequestCreated,
				Status:    "sent",
				Attempts:  1,
			}}, nil
		},
	}

	r := newTestRouter()
	r.GET("/requests/:id/notifications", api.NewNotificationHandler(svc, testLogger()).History)

	w := doRequest(r, http.MethodGet, "/requests/r1/notifications", "")
	if w.Code != http.StatusOK {
		t.Fatalf("got %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Deliveries []models.NotificationRecord `json:"deliveries"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Deliveries) != 1 || resp.Deliveries[0].Channel != "ops-log" {
		t.Errorf("unexpected response: %+v", resp)
	}
}
