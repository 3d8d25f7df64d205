// Package telemetry provides logging setup and per-run probe accounting for the
// smoke-test harness.
//
// # Probe Metrics
//
// Every run owns a fresh Prometheus registry (never the default one) holding:
//
//   - smoke_probe_results_total{section, result}: one increment per executed probe,
//     result is "passed" or "failed". Skipped sections never touch it.
//   - smoke_probe_duration_seconds{section}: wall time of each probe's HTTP call.
//
// The registry is not served or pushed anywhere. The closing summary banner reads
// its totals back through Gather so the printed counts and the recorded outcomes
// come from one place.
package telemetry

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const (
	probeResultsName  = "smoke_probe_results_total"
	probeDurationName = "smoke_probe_duration_seconds"

	resultPassed = "passed"
	resultFailed = "failed"
)

// ProbeMetrics records probe outcomes for a single run.
type ProbeMetrics struct {
	registry *prometheus.Registry

	results  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// Totals is the aggregate outcome of a run as read back from the registry.
type Totals struct {
	Passed int
	Failed int
}

// Total returns the number of probes that were executed.
func (t Totals) Total() int { return t.Passed + t.Failed }

// NewProbeMetrics creates the counters on a private registry.
func NewProbeMetrics() *ProbeMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &ProbeMetrics{
		registry: reg,
		results: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: probeResultsName,
				Help: "Number of executed probes, by section and result.",
			},
			[]string{"section", "result"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    probeDurationName,
				Help:    "Latency of probe HTTP calls, by section.",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"section"},
		),
	}
}

// Observe records one executed probe.
func (m *ProbeMetrics) Observe(section string, passed bool, elapsed time.Duration) {
	result := resultFailed
	if passed {
		result = resultPassed
	}
	m.results.WithLabelValues(section, result).Inc()
	m.duration.WithLabelValues(section).Observe(elapsed.Seconds())
}

// Gatherer exposes the run's registry.
func (m *ProbeMetrics) Gatherer() prometheus.Gatherer { return m.registry }

// Totals sums smoke_probe_results_total across sections.
func (m *ProbeMetrics) Totals() (Totals, error) {
	mfs, err := m.registry.Gather()
	if err != nil {
		return Totals{}, fmt.Errorf("gather probe metrics: %w", err)
	}

	var totals Totals
	for _, mf := range mfs {
		if mf.GetName() != probeResultsName {
			continue
		}
		for _, metric := range mf.GetMetric() {
			n := int(metric.GetCounter().GetValue())
			switch labelValue(metric, "result") {
			case resultPassed:
				totals.Passed += n
			case resultFailed:
				totals.Failed += n
			}
		}
	}
	return totals, nil
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
