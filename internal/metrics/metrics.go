// Package metrics registers the Prometheus collectors for the data layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheLookups counts query cache lookups by table and result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavespace_cache_lookups_total",
			Help: "Query cache lookups by table and result",
		},
		[]string{"table", "result"},
	)

	// BackendCallDuration times every backend call.
	BackendCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wavespace_backend_call_duration_seconds",
			Help:    "Backend call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
		},
		[]string{"operation", "table", "status"},
	)

	// ActiveSubscriptions is the number of open data manager subscriptions.
	// Only the data layer moves it, whichever Realtime carries the channels.
	ActiveSubscriptions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wavespace_realtime_subscriptions",
			Help: "Open data manager subscriptions",
		},
	)

	// RealtimeEvents counts change events delivered to data manager subscriptions.
	RealtimeEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavespace_realtime_events_total",
			Help: "Realtime change events received",
		},
		[]string{"table", "event"},
	)

	// UnreadNotifications mirrors the signed-in user's unread counter.
	UnreadNotifications = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wavespace_unread_notifications",
			Help: "Unread notifications of the signed-in user",
		},
	)
)

// RecordCacheLookup counts one cache lookup.
func RecordCacheLookup(table, result string) {
	CacheLookups.WithLabelValues(table, result).Inc()
}

// RecordBackendCall observes one backend call.
func RecordBackendCall(operation, table string, err error, d time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	BackendCallDuration.WithLabelValues(operation, table, status).Observe(d.Seconds())
}

// RecordRealtimeEvent counts one change event.
func RecordRealtimeEvent(table, event string) {
	RealtimeEvents.WithLabelValues(table, event).Inc()
}
