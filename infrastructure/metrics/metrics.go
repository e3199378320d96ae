// Package metrics provides Prometheus metrics collection for kernel activity
package metrics

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for a kernel instance.
// Collectors register on a private registry so concurrent kernels in one
// process (common in tests) do not collide.
type Metrics struct {
	registry *prometheus.Registry

	// Kernel operation metrics
	OperationsTotal *prometheus.CounterVec
	BreaksTotal     *prometheus.CounterVec

	// Ledger metrics
	LedgerEntriesTotal prometheus.Counter

	// Evaluator metrics
	EvaluationsTotal *prometheus.CounterVec

	// Bus metrics
	RequestsTotal *prometheus.CounterVec

	// World metrics
	WorldsTotal prometheus.Counter
}

// New creates a Metrics instance with all collectors registered on a
// fresh private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	return NewWithRegistry(registry)
}

// NewWithRegistry creates a Metrics instance registered on the given registry.
func NewWithRegistry(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: registry,

		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_operations_total",
				Help: "Total number of kernel operations by terminal status",
			},
			[]string{"operation", "status"},
		),
		BreaksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kernel_breaks_total",
				Help: "Total number of kernel breaks by recorded reason",
			},
			[]string{"reason"},
		),
		LedgerEntriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ledger_entries_total",
				Help: "Total number of entries appended to the ledger",
			},
		),
		EvaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "evaluations_total",
				Help: "Total number of expression evaluations by status",
			},
			[]string{"status"},
		),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "requests_total",
				Help: "Total number of bus requests by lifecycle status",
			},
			[]string{"status"},
		),
		WorldsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "worlds_total",
				Help: "Total number of worlds created",
			},
		),
	}

	registry.MustRegister(
		m.OperationsTotal,
		m.BreaksTotal,
		m.LedgerEntriesTotal,
		m.EvaluationsTotal,
		m.RequestsTotal,
		m.WorldsTotal,
	)

	return m
}

// Registry exposes the private registry for embedding hosts.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordOperation increments the operation counter.
func (m *Metrics) RecordOperation(operation, status string) {
	m.OperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordBreak increments the break counter.
func (m *Metrics) RecordBreak(reason string) {
	m.BreaksTotal.WithLabelValues(reason).Inc()
}

// RecordEvaluation increments the evaluation counter.
func (m *Metrics) RecordEvaluation(status string) {
	m.EvaluationsTotal.WithLabelValues(status).Inc()
}

// RecordRequest increments the request counter.
func (m *Metrics) RecordRequest(status string) {
	m.RequestsTotal.WithLabelValues(status).Inc()
}

// Dump renders the gathered metric families as sorted plain text.
// There is no HTTP exposition surface; a host (or the CLI at end of run)
// calls this to report counters.
func (m *Metrics) Dump() (string, error) {
	families, err := m.registry.Gather()
	if err != nil {
		return "", fmt.Errorf("gather metrics: %w", err)
	}

	var buf bytes.Buffer
	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			labels := ""
			for _, pair := range metric.GetLabel() {
				if labels != "" {
					labels += ","
				}
				labels += fmt.Sprintf("%s=%s", pair.GetName(), pair.GetValue())
			}
			value := metric.GetCounter().GetValue()
			if labels != "" {
				fmt.Fprintf(&buf, "%s{%s} %g\n", family.GetName(), labels, value)
			} else {
				fmt.Fprintf(&buf, "%s %g\n", family.GetName(), value)
			}
		}
	}
	return buf.String(), nil
}
