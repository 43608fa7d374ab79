package service

import (
	"context"
	"errors"
	"testing"

	"github.com/oversightlabs/oversight/internal/models"
	"github.com/oversightlabs/oversight/internal/notify"
)

func testJob() NotificationJob {
	return NotificationJob{
		OrgID: "org-1",
		Request: models.OversightRequest{
			ID: "req-1", AgentID: "agent-7", Status: models.StatusPending,
		},
		Event:      models.EventRequestCreated,
		Recipients: []string{"alice"},
	}
}

func webhookChannel() models.NotificationChannel {
	return models.NotificationChannel{
		Name: "ops", Kind: "webhook", Target: "https://hooks.example.com/x", Enabled: true,
	}
}

func TestDispatcher_DeliversOncePerEventAndChannel(t *testing.T) {
	store := newMockDeliveryStore(webhookChannel())
	sender := &mockSender{}
	d := NewDispatcher(store, notify.Registry{"webhook": sender}, testLog(), 10)

	job := testJob()
	d.process(job)
	d.process(job)

	if got := sender.sendCount(); got != 1 {
		t.Errorf("sends = %d, want 1 for a repeated event", got)
	}

	key := "req-1:request_created:ops"
	if store.results[key] != models.DeliverySent {
		t.Errorf("result = %s, want sent", store.results[key])
	}
	if store.attempts[key] != 1 {
		t.Errorf("attempts = %d, want 1", store.attempts[key])
	}
}

func TestDispatcher_RetriesTransientFailures(t *testing.T) {
	store := newMockDeliveryStore(webhookChannel())
	sender := &mockSender{failFirst: 2, err: errors.New("503 from endpoint")}
	d := NewDispatcher(store, notify.Registry{"webhook": sender}, testLog(), 10)

	d.process(testJob())

	if got := sender.sendCount(); got != 3 {
		t.Errorf("sends = %d, want 2 failures then success", got)
	}

	key := "req-1:request_created:ops"
	if store.results[key] != models.DeliverySent {
		t.Errorf("result = %s, want sent after retries", store.results[key])
	}
	if store.attempts[key] != 3 {
		t.Errorf("attempts = %d, want 3", store.attempts[key])
	}
}

func TestDispatcher_RecordsExhaustedFailure(t *testing.T) {
	store := newMockDeliveryStore(webhookChannel())
	sender := &mockSender{failFirst: 10, err: errors.New("endpoint down")}
	d := NewDispatcher(store, notify.Registry{"webhook": sender}, testLog(), 10)

	d.process(testJob())

	key := "req-1:request_created:ops"
	if store.results[key] != models.DeliveryFailed {
		t.Errorf("result = %s, want failed after exhausted retries", store.results[key])
	}
}

func TestDispatcher_SkipsDisabledAndUnknownChannels(t *testing.T) {
	disabled := webhookChannel()
	disabled.Name = "muted"
	disabled.Enabled = false

	pager := models.NotificationChannel{Name: "pager", Kind: "pager", Target: "x", Enabled: true}

	store := newMockDeliveryStore(disabled, pager)
	sender := &mockSender{}
	d := NewDispatcher(store, notify.Registry{"webhook": sender}, testLog(), 10)

	d.process(testJob())

	if got := sender.sendCount(); got != 0 {
		t.Errorf("sends = %d, want 0", got)
	}

	// Unknown kinds fail loudly in history instead of vanishing.
	key := "req-1:request_created:pager"
	if store.results[key] != models.DeliveryFailed {
		t.Errorf("pager result = %s, want failed", store.results[key])
	}
}

func TestDispatcher_RunDrainsOnShutdown(t *testing.T) {
	store := newMockDeliveryStore(webhookChannel())
	sender := &mockSender{}
	d := NewDispatcher(store, notify.Registry{"webhook": sender}, testLog(), 10)

	d.Enqueue(testJob())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()
	<-done

	if got := sender.sendCount(); got != 1 {
		t.Errorf("sends = %d, want the queued job drained on shutdown", got)
	}
}
