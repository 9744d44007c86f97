package metrics

import "github.com/prometheus/client_golang/prometheus"

// Broadcast holds the fan-out and connection lifecycle metrics.
type Broadcast struct {
	ActiveConnections  prometheus.Gauge
	ConnectionsOpened  prometheus.Counter
	ConnectionsClosed  *prometheus.CounterVec
	HandshakesRejected *prometheus.CounterVec
	EventsPublished    *prometheus.CounterVec
	DeliveryFailures   *prometheus.CounterVec
	FanoutDuration     prometheus.Histogram
	FanoutWidth        prometheus.Histogram
	SendDuration       prometheus.Histogram
	PingFailures       prometheus.Counter
}

func NewBroadcast(reg prometheus.Registerer) *Broadcast {
	m := &Broadcast{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of open WebSocket connections.",
		}),
		ConnectionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections_opened_total",
			Help:      "Connections that completed the handshake.",
		}),
		ConnectionsClosed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections_closed_total",
			Help:      "Connections released, by close reason.",
		}, []string{"reason"}),
		HandshakesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "handshakes_rejected_total",
			Help:      "Connections that never reached the open state.",
		}, []string{"reason"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "events_published_total",
			Help:      "Events accepted by the bus, by kind.",
		}, []string{"kind"}),
		DeliveryFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "delivery_failures_total",
			Help:      "Per-connection delivery failures, by reason.",
		}, []string{"reason"}),
		FanoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "fanout_duration_seconds",
			Help:      "Time to enqueue one event into every mailbox.",
			Buckets:   []float64{.00001, .00005, .0001, .0005, .001, .005, .01, .05},
		}),
		FanoutWidth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "fanout_width",
			Help:      "Number of connections in the snapshot of each publish.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		}),
		SendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "send_duration_seconds",
			Help:      "Time spent writing one message to a socket.",
			Buckets:   prometheus.DefBuckets,
		}),
		PingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "ping_failures_total",
			Help:      "Keepalive pings that could not be written.",
		}),
	}

	reg.MustRegister(
		m.ActiveConnections,
		m.ConnectionsOpened,
		m.ConnectionsClosed,
		m.HandshakesRejected,
		m.EventsPublished,
		m.DeliveryFailures,
		m.FanoutDuration,
		m.FanoutWidth,
		m.SendDuration,
		m.PingFailures,
	)
	return m
}
