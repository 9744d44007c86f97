package metrics

import "github.com/prometheus/client_golang/prometheus"

type Tasks struct {
	Created  prometheus.Counter
	Rejected *prometheus.CounterVec
	Stored   prometheus.Gauge
}

func NewTasks(reg prometheus.Registerer) *Tasks {
	m := &Tasks{
		Created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "created_total",
			Help:      "Tasks created.",
		}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "rejected_total",
			Help:      "Create requests rejected by validation, by reason.",
		}, []string{"reason"}),
		Stored: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "stored",
			Help:      "Tasks currently held in memory.",
		}),
	}

	reg.MustRegister(m.Created, m.Rejected, m.Stored)
	return m
}
