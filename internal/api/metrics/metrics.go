// Package metrics defines and registers all custom Prometheus metrics for the
// courier tracking backend. It is the single source of truth for metric
// names, labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "courier"

// ── Realtime channel metrics ──────────────────────────────────────────────────

// WSConnectionsActive tracks the number of currently admitted websocket
// connections.
var WSConnectionsActive = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ws_connections_active",
		Help:      "Number of currently admitted realtime connections.",
	},
)

// WSEventsReceivedTotal counts inbound channel events by event name.
// Unrecognised event names are labelled "unknown".
var WSEventsReceivedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_events_received_total",
		Help:      "Total number of inbound realtime events, by event name.",
	},
	[]string{"event"},
)

// WSBroadcastsTotal counts room broadcasts by outbound event name.
var WSBroadcastsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_broadcasts_total",
		Help:      "Total number of room broadcasts published, by event name.",
	},
	[]string{"event"},
)

// WSSendQueueDropsTotal counts connections disconnected because their
// outbound queue overflowed.
var WSSendQueueDropsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_send_queue_drops_total",
		Help:      "Total number of connections dropped due to outbound queue overflow.",
	},
)

// WSAuthFailuresTotal counts rejected channel handshakes.
// Label:
//   - reason: "no_token", "invalid_token", or "unknown_subject"
var WSAuthFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ws_auth_failures_total",
		Help:      "Total number of realtime handshakes rejected during authentication.",
	},
	[]string{"reason"},
)

// ── Parcel metrics ────────────────────────────────────────────────────────────

// ParcelsBookedTotal counts newly booked parcels.
// Label:
//   - type: "small", "medium", or "large"
var ParcelsBookedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "parcels_booked_total",
		Help:      "Total number of parcels booked, by parcel type.",
	},
	[]string{"type"},
)

// StatusUpdatesTotal counts parcel status changes applied through the
// realtime channel.
var StatusUpdatesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_updates_total",
		Help:      "Total number of parcel status updates applied, by new status.",
	},
	[]string{"status"},
)
