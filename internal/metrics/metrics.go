// Package metrics exposes client-side counters for navigation and mutations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the client's collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Mutations   *prometheus.CounterVec
	Rejected    *prometheus.CounterVec
	Navigations *prometheus.CounterVec
	Gateway     *prometheus.CounterVec

	reg *prometheus.Registry
}

// New builds collectors registered on a private registry.
func New() *Metrics {
	m := &Metrics{
		Mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleamarket",
			Name:      "mutations_total",
			Help:      "Settled mutations by kind and outcome (confirmed, failed).",
		}, []string{"kind", "outcome"}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleamarket",
			Name:      "mutations_rejected_total",
			Help:      "Mutations rejected locally because one of the same kind was in flight.",
		}, []string{"kind"}),
		Navigations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleamarket",
			Name:      "navigations_total",
			Help:      "Screen transitions by destination kind.",
		}, []string{"screen"}),
		Gateway: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleamarket",
			Name:      "gateway_requests_total",
			Help:      "Remote gateway calls by operation and error class.",
		}, []string{"op", "result"}),
		reg: prometheus.NewRegistry(),
	}
	m.reg.MustRegister(m.Mutations, m.Rejected, m.Navigations, m.Gateway)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the collectors in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) Mutation(kind, outcome string) {
	if m == nil {
		return
	}
	m.Mutations.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Reject(kind string) {
	if m == nil {
		return
	}
	m.Rejected.WithLabelValues(kind).Inc()
}

func (m *Metrics) Navigate(screen string) {
	if m == nil {
		return
	}
	m.Navigations.WithLabelValues(screen).Inc()
}

func (m *Metrics) Request(op, result string) {
	if m == nil {
		return
	}
	m.Gateway.WithLabelValues(op, result).Inc()
}
