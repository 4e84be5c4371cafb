// Package metrics exposes the Prometheus counters for incident handling.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smittevern"

// Metrics groups the service collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	ReportsReceived    prometheus.Counter
	Transitions        *prometheus.CounterVec
	CascadeResolved    prometheus.Counter
	NeighborsGenerated prometheus.Counter
	Broadcasts         prometheus.Counter
	Deliveries         *prometheus.CounterVec
}

// New creates and registers all collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ReportsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reports_received_total",
			Help:      "Sickness reports accepted at intake.",
		}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incident_transitions_total",
			Help:      "Incident status transitions by target status.",
		}, []string{"to"}),
		CascadeResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cascade_resolved_total",
			Help:      "Neighbor alerts resolved by a primary incident cascade.",
		}),
		NeighborsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "neighbor_alerts_generated_total",
			Help:      "Neighbor alerts created from primary incidents.",
		}),
		Broadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zone_broadcasts_total",
			Help:      "Zone notification broadcasts recorded.",
		}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zone_deliveries_total",
			Help:      "Zone notification mail attempts by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ReportsReceived,
		m.Transitions,
		m.CascadeResolved,
		m.NeighborsGenerated,
		m.Broadcasts,
		m.Deliveries,
	)
	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// OrNew returns m, or a fresh Metrics when m is nil
func OrNew(m *Metrics) *Metrics {
	if m == nil {
		return New()
	}
	return m
}
