package repository

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts repository operations and tracks index sizes.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	operations *prometheus.CounterVec
	indexed    *prometheus.GaugeVec
}

// NewMetrics creates repository metrics and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "todolist",
				Subsystem: "repository",
				Name:      "operations_total",
				Help:      "Repository operations by entity set, operation and result.",
			},
			[]string{"entity", "op", "result"},
		),
		indexed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "todolist",
				Subsystem: "repository",
				Name:      "indexed_entities",
				Help:      "Number of IDs in each entity set's index.",
			},
			[]string{"entity"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.operations, m.indexed)
	}
	return m
}

func (m *Metrics) observe(entity, op string, err error) {
	if m == nil {
		return
	}
	result := "success"
	switch {
	case errors.Is(err, ErrInvalidEntity):
		result = "rejected"
	case err != nil:
		result = "error"
	}
	m.operations.WithLabelValues(entity, op, result).Inc()
}

func (m *Metrics) setIndexed(entity string, n int) {
	if m == nil {
		return
	}
	m.indexed.WithLabelValues(entity).Set(float64(n))
}
