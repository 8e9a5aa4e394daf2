package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Hub metrics
var (
	// HubConnectedClients tracks the current number of registered connections
	HubConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hub_connected_clients",
			Help: "Current number of registered client connections",
		},
	)

	// HubConnectionsTotal tracks total registrations since start
	HubConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_connections_total",
			Help: "Total client registrations",
		},
	)

	// HubEvictionsTotal tracks connection evictions by reason
	HubEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_evictions_total",
			Help: "Total connection evictions by reason",
		},
		[]string{"reason"},
	)

	// HubEventsTotal tracks outbound events by kind and delivery status
	HubEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hub_events_total",
			Help: "Outbound events by kind (unicast/broadcast) and status",
		},
		[]string{"kind", "status"},
	)

	// HubPingTicksTotal tracks liveness ping broadcasts
	HubPingTicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "hub_ping_ticks_total",
			Help: "Total liveness ping broadcasts",
		},
	)

	// HubBroadcastDuration tracks the duration of a full broadcast pass
	HubBroadcastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hub_broadcast_duration_seconds",
			Help:    "Duration of a full broadcast write pass in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)
)

// Stream endpoint metrics
var (
	// StreamRejectionsTotal tracks rejected stream connections by reason
	StreamRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_rejections_total",
			Help: "Stream connections rejected by limiters, by reason",
		},
		[]string{"reason"},
	)

	// StreamConnectionDuration tracks how long streams stay open
	StreamConnectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stream_connection_duration_seconds",
			Help:    "Lifetime of client streams in seconds",
			Buckets: []float64{1, 10, 60, 300, 900, 3600, 14400},
		},
	)
)
