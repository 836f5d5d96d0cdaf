// Package observability provides tracing and metrics instrumentation.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DatabaseQueryLatency tracks repository query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "haven_db_query_duration_seconds",
		Help:    "Database query latency by operation and table",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// WebSocketConnectionsTotal counts websocket connections accepted.
	WebSocketConnectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "haven_websocket_connections_total",
		Help: "Total number of accepted websocket connections",
	})

	// WebSocketConnectionsActive tracks currently connected websocket clients.
	WebSocketConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "haven_websocket_connections_active",
		Help: "Currently connected websocket clients",
	})

	// WebSocketEventsTotal counts events broadcast to websocket clients by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "haven_websocket_events_total",
		Help: "Total websocket events broadcast by event type",
	}, []string{"event"})

	// WebSocketBackpressureDrops counts messages dropped because a client
	// send buffer was full or closed.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "haven_websocket_backpressure_drops_total",
		Help: "Messages dropped due to websocket backpressure by hub and reason",
	}, []string{"hub", "reason"})

	// OutboxQueueDepth tracks the number of pending outbox notifications.
	OutboxQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "haven_outbox_pending",
		Help: "Number of outbox notifications waiting for delivery",
	})
)

// TrackQuery returns a func suitable for deferring that observes query latency.
//
//	defer observability.TrackQuery("select", "support_tickets")()
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
