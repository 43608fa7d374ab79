package service

import (
	"context"
	"time"

	"github.com/avast/retry-go/v5"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/oversightlabs/oversight/internal/metrics"
	"github.com/oversightlabs/oversight/internal/models"
	"github.com/oversightlabs/oversight/internal/notify"
)

// NotificationJob asks the dispatcher to notify an org's channels about one
// request event.
type NotificationJob struct {
	OrgID      string
	Request    models.OversightRequest
	Event      models.EventKind
	Recipients []string
}

// DeliveryStore is the data-access interface the dispatcher depends on.
type DeliveryStore interface {
	ListChannels(ctx context.Context, orgID string) ([]models.NotificationChannel, error)
	BeginDelivery(ctx context.Context, rec *models.NotificationRecord) (bool, error)
	MarkResult(ctx context.Context, orgID, idempotencyKey, status, errMsg string, attempts int) error
}

const (
	dispatchQueueSize  = 1000
	deliveryAttempts   = 3
	deliveryTimeout    = 15 * time.Second
	breakerGraceWindow = 30 * time.Second
)

// Dispatcher buffers notification jobs and delivers them via a single worker
// goroutine. Each (request, event, channel) triple is claimed in the
// delivery history before sending, so a redispatched event is dropped
// instead of notifying humans twice. Transient send failures are retried
// with backoff; a channel that keeps failing trips its circuit breaker and
// is skipped until the breaker half-opens.
type Dispatcher struct {
	store    DeliveryStore
	senders  notify.Registry
	log      *logrus.Logger
	jobs     chan NotificationJob
	breakers map[string]*gobreaker.CircuitBreaker
}

// NewDispatcher creates a Dispatcher with the given queue capacity.
func NewDispatcher(store DeliveryStore, senders notify.Registry, log *logrus.Logger, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = dispatchQueueSize
	}

	return &Dispatcher{
		store:    store,
		senders:  senders,
		log:      log,
		jobs:     make(chan NotificationJob, queueSize),
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

// Enqueue adds a dispatch job. Non-blocking; drops the job if the queue is
// full. Undelivered events are recoverable: the request's history still
// holds every transition.
func (d *Dispatcher) Enqueue(job NotificationJob) {
	select {
	case d.jobs <- job:
		metrics.NotifyQueueDepth.Set(float64(len(d.jobs)))
	default:
		d.log.WithFields(logrus.Fields{
			"request_id": job.Request.ID,
			"event":      job.Event,
		}).Warn("notification queue full, dropping job")
	}
}

// Run processes dispatch jobs until the context is cancelled, then drains
// remaining jobs. Call in a goroutine.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return
		case job := <-d.jobs:
			d.process(job)
			metrics.NotifyQueueDepth.Set(float64(len(d.jobs)))
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case job := <-d.jobs:
			d.process(job)
		default:
			return
		}
	}
}

// process fans one job out to every enabled channel of the org.
func (d *Dispatcher) process(job NotificationJob) {
	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()

	channels, err := d.store.ListChannels(ctx, job.OrgID)
	if err != nil {
		d.log.WithError(err).WithField("org_id", job.OrgID).Warn("listing channels failed, dropping notification")
		return
	}

	for _, ch := range channels {
		if !ch.Enabled {
			continue
		}
		d.deliver(ctx, job, ch)
	}
}

// deliver claims the idempotency key and pushes the message through one
// channel with retry and circuit breaking.
func (d *Dispatcher) deliver(ctx context.Context, job NotificationJob, ch models.NotificationChannel) {
	rec := &models.NotificationRecord{
		OrgID:          job.OrgID,
		RequestID:      job.Request.ID,
		Channel:        ch.Name,
		EventKind:      job.Event,
		Recipients:     job.Recipients,
		IdempotencyKey: job.Request.ID + ":" + string(job.Event) + ":" + ch.Name,
	}

	created, err := d.store.BeginDelivery(ctx, rec)
	if err != nil {
		d.log.WithError(err).WithField("channel", ch.Name).Warn("delivery claim failed")
		return
	}
	if !created {
		// Already delivered (or in flight) for this event.
		return
	}

	sender, ok := d.senders[ch.Kind]
	if !ok {
		d.markResult(ctx, rec, models.DeliveryFailed, "unknown channel kind "+ch.Kind, 0)
		return
	}

	msg := notify.Message{
		Event:       job.Event,
		RequestID:   job.Request.ID,
		OrgID:       job.OrgID,
		AgentID:     job.Request.AgentID,
		ActionType:  job.Request.ActionType,
		Description: job.Request.Description,
		Status:      job.Request.Status,
		Priority:    job.Request.Priority,
		Recipients:  job.Recipients,
	}

	attempts := 0

	_, err = d.breaker(ch.Name).Execute(func() (any, error) {
		r := retry.New(
			retry.Context(ctx),
			retry.Attempts(deliveryAttempts),
		)

		return nil, r.Do(func() error {
			attempts++
			return sender.Send(ctx, ch.Target, msg)
		})
	})
	if err != nil {
		metrics.NotificationsSent.WithLabelValues("failed").Inc()
		d.log.WithError(err).WithFields(logrus.Fields{
			"channel":    ch.Name,
			"request_id": job.Request.ID,
			"event":      job.Event,
		}).Warn("notification delivery failed")
		d.markResult(ctx, rec, models.DeliveryFailed, err.Error(), attempts)
		return
	}

	metrics.NotificationsSent.WithLabelValues("sent").Inc()
	d.markResult(ctx, rec, models.DeliverySent, "", attempts)
}

func (d *Dispatcher) markResult(ctx context.Context, rec *models.NotificationRecord, status, errMsg string, attempts int) {
	if err := d.store.MarkResult(ctx, rec.OrgID, rec.IdempotencyKey, status, errMsg, attempts); err != nil {
		d.log.WithError(err).WithField("key", rec.IdempotencyKey).Warn("recording delivery result failed")
	}
}

// breaker returns the channel's circuit breaker, creating it on first use.
// Run and drain execute on one goroutine, so no locking is needed.
func (d *Dispatcher) breaker(channel string) *gobreaker.CircuitBreaker {
	cb, ok := d.breakers[channel]
	if !ok {
		cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "notify-" + channel,
			Timeout: breakerGraceWindow,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
		})
		d.breakers[channel] = cb
	}

	return cb
}
