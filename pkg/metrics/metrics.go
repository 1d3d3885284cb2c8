// Package metrics counts workspace operations on a Prometheus registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OK      = "ok"
	Failed  = "failed"
	Partial = "partial"
)

// Metrics holds the operation counters.
type Metrics struct {
	Operations   *prometheus.CounterVec
	ItemsCreated *prometheus.CounterVec
	ItemsSkipped *prometheus.CounterVec
}

// New registers the counters on reg. A nil reg uses a private registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pointyard",
			Name:      "operations_total",
			Help:      "Workspace operations by name and outcome.",
		}, []string{"op", "outcome"}),
		ItemsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pointyard",
			Name:      "items_created_total",
			Help:      "Scene items created by operation.",
		}, []string{"op"}),
		ItemsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pointyard",
			Name:      "items_skipped_total",
			Help:      "Selected items an operation could not process.",
		}, []string{"op"}),
	}
}

// Observe records one run of op. A nil receiver is a no-op.
func (m *Metrics) Observe(op string, created, skipped int, err error) {
	if m == nil {
		return
	}
	outcome := OK
	switch {
	case err != nil:
		outcome = Failed
	case skipped > 0:
		outcome = Partial
	}
	m.Operations.WithLabelValues(op, outcome).Inc()
	if created > 0 {
		m.ItemsCreated.WithLabelValues(op).Add(float64(created))
	}
	if skipped > 0 {
		m.ItemsSkipped.WithLabelValues(op).Add(float64(skipped))
	}
}

// Snapshot flattens every counter in g into "name{label=value,...}" keys.
func Snapshot(g prometheus.Gatherer) (map[string]float64, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			key := mf.GetName()
			if labels := m.GetLabel(); len(labels) > 0 {
				key += "{"
				for i, l := range labels {
					if i > 0 {
						key += ","
					}
					key += l.GetName() + "=" + l.GetValue()
				}
				key += "}"
			}
			if c := m.GetCounter(); c != nil {
				out[key] = c.GetValue()
			} else if gg := m.GetGauge(); gg != nil {
				out[key] = gg.GetValue()
			}
		}
	}
	return out, nil
}
