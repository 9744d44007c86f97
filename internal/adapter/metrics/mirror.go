package metrics

import "github.com/prometheus/client_golang/prometheus"

// Mirror tracks the optional Redis event mirror.
type Mirror struct {
	Published    prometheus.Counter
	Dropped      prometheus.Counter
	Failed       prometheus.Counter
	BreakerState *prometheus.GaugeVec
}

func NewMirror(reg prometheus.Registerer) *Mirror {
	m := &Mirror{
		Published: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "published_total",
			Help:      "Events published to Redis.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "dropped_total",
			Help:      "Events dropped because the mirror queue was full.",
		}),
		Failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "failed_total",
			Help:      "Events that could not be published to Redis.",
		}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mirror",
			Name:      "circuit_breaker_state",
			Help:      "Redis circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"component"}),
	}

	reg.MustRegister(m.Published, m.Dropped, m.Failed, m.BreakerState)
	return m
}
