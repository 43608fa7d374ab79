package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/oversightlabs/oversight/internal/models"
	"github.com/oversightlabs/oversight/internal/store"
)

func TestChannels(t *testing.T) {
	base, orgID := setupTestBase(t)
	s := store.NewNotificationStore(base)
	ctx := context.Background()

	ch := &models.NotificationChannel{
		Name:    "ops-webhook",
		Kind:    "webhook",
		Target:  "https://hooks.example.com/oversight",
		Enabled: true,
	}

	if _, err := s.CreateChannel(ctx, orgID, ch); err != nil {
		t.Fatalf("CreateChannel: %v", err)
	}

	_, err := s.CreateChannel(ctx, orgID, &models.NotificationChannel{Name: "ops-webhook", Kind: "log"})
	if !errors.Is(err, models.ErrDuplicateKey) {
		t.Errorf("duplicate channel error = %v, want ErrDuplicateKey", err)
	}

	channels, err := s.ListChannels(ctx, orgID)
	if err != nil {
		t.Fatalf("ListChannels: %v", err)
	}
	if len(channels) != 1 {
		t.Errorf("channels = %d, want 1", len(channels))
	}
}

func TestBeginDelivery_IdempotencyKey(t *testing.T) {
	base, orgID := setupTestBase(t)
	requests := store.NewRequestStore(base)
	s := store.NewNotificationStore(base)
	ctx := context.Background()

	r := mustCreateRequest(t, requests, orgID)

	rec := &models.NotificationRecord{
		OrgID:          orgID,
		RequestID:      r.ID,
		Channel:        "ops-webhook",
		EventKind:      models.EventRequestCreated,
		Recipients:     []string{"alice", "bob"},
		IdempotencyKey: r.ID + ":request_created:ops-webhook",
	}

	created, err := s.BeginDelivery(ctx, rec)
	if err != nil {
		t.Fatalf("BeginDelivery: %v", err)
	}
	if !created {
		t.Fatal("created = false on first claim")
	}

	// A redelivery attempt with the same key is refused.
	created, err = s.BeginDelivery(ctx, rec)
	if err != nil {
		t.Fatalf("second BeginDelivery: %v", err)
	}
	if created {
		t.Error("created = true on duplicate claim")
	}

	if err := s.MarkResult(ctx, orgID, rec.IdempotencyKey, models.DeliverySent, "", 1); err != nil {
		t.Fatalf("MarkResult: %v", err)
	}

	history, err := s.History(ctx, orgID, r.ID)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history = %d rows, want 1", len(history))
	}
	if history[0].Status != models.DeliverySent || history[0].Attempts != 1 {
		t.Errorf("history = %+v, want sent with one attempt", history[0])
	}
}
