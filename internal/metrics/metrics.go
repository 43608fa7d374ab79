// Package metrics defines Prometheus metrics for the oversight engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "oversight_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oversight_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oversight_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	RequestsAdmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oversight_requests_admitted_total",
			Help: "Oversight requests admitted, by action type",
		},
		[]string{"action_type"},
	)

	RequestsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oversight_requests_resolved_total",
			Help: "Oversight requests resolved, by terminal status",
		},
		[]string{"status"},
	)

	DecisionsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oversight_decisions_total",
			Help: "Reviewer decisions recorded, by kind",
		},
		[]string{"decision"},
	)

	EscalationsFired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "oversight_escalations_fired_total",
			Help: "Escalation rule firings",
		},
	)

	NotifyQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "oversight_notify_queue_depth",
			Help: "Current notification dispatch queue depth",
		},
	)

	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oversight_notifications_total",
			Help: "Notification deliveries, by outcome",
		},
		[]string{"outcome"},
	)

	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "oversight_websocket_connections",
			Help: "Active WebSocket connections",
		},
	)

	PendingRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "oversight_pending_requests",
			Help: "Unresolved oversight requests at last stats sample",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		RequestsAdmitted, RequestsResolved, DecisionsRecorded,
		EscalationsFired, NotifyQueueDepth, NotificationsSent,
		WSConnections, PendingRequests,
	)
}
