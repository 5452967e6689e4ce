// Package metrics exposes maintenance run metrics in Prometheus format.
package metrics

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lockplane/idxmaint/internal/executor"
	"github.com/lockplane/idxmaint/internal/resultlog"
)

const (
	namespace = "idxmaint"
	subsystem = "run"
)

// Metrics contains all maintenance run metrics
type Metrics struct {
	// Per-attempt metrics, fed by executor events
	AttemptsTotal   *prometheus.CounterVec
	AttemptDuration *prometheus.HistogramVec

	// Per-run metrics, set from the summary
	PlansQueued      *prometheus.GaugeVec
	PlansUnprocessed *prometheus.GaugeVec
	BudgetExhausted  *prometheus.GaugeVec
	LastRunSeconds   *prometheus.GaugeVec
	LastRunTimestamp *prometheus.GaugeVec

	registry  *prometheus.Registry
	container string
}

// New creates metrics for one container on a private registry
func New(container string) (*Metrics, error) {
	labels := []string{"container"}

	m := &Metrics{
		AttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "attempts_total",
				Help:      "Maintenance commands attempted, by action and status",
			},
			append(labels, "action", "mode", "status"),
		),
		AttemptDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "attempt_duration_seconds",
				Help:      "Wall-clock duration of maintenance commands",
				Buckets:   prometheus.ExponentialBuckets(0.1, 4, 10),
			},
			append(labels, "action"),
		),
		PlansQueued: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "plans_queued",
				Help:      "Plans queued in the last run",
			},
			labels,
		),
		PlansUnprocessed: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "plans_unprocessed",
				Help:      "Plans left in the queue when the last run stopped",
			},
			labels,
		),
		BudgetExhausted: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "budget_exhausted",
				Help:      "1 if the last run stopped because its time budget ran out",
			},
			labels,
		),
		LastRunSeconds: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "last_duration_seconds",
				Help:      "Elapsed time of the last run",
			},
			labels,
		),
		LastRunTimestamp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "last_start_timestamp_seconds",
				Help:      "Unix time the last run started",
			},
			labels,
		),
		registry:  prometheus.NewRegistry(),
		container: container,
	}

	if err := m.Register(m.registry); err != nil {
		return nil, err
	}
	return m, nil
}

// Register registers all metrics with the provided registry
func (m *Metrics) Register(registry prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.AttemptsTotal,
		m.AttemptDuration,
		m.PlansQueued,
		m.PlansUnprocessed,
		m.BudgetExhausted,
		m.LastRunSeconds,
		m.LastRunTimestamp,
	}

	var errs []error
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Observe implements executor.Observer. Only terminal events carry a result.
func (m *Metrics) Observe(e executor.Event) {
	if !e.State.Terminal() || e.Result == nil {
		return
	}
	r := e.Result
	action := r.Action.String()
	m.AttemptsTotal.WithLabelValues(m.container, action, r.Mode.String(), r.Status()).Inc()
	m.AttemptDuration.WithLabelValues(m.container, action).Observe(float64(r.DurationMillis) / 1000)
}

// RecordSummary sets the per-run gauges
func (m *Metrics) RecordSummary(s resultlog.RunSummary) {
	m.PlansQueued.WithLabelValues(m.container).Set(float64(s.Queued))
	m.PlansUnprocessed.WithLabelValues(m.container).Set(float64(s.Unprocessed))
	m.LastRunSeconds.WithLabelValues(m.container).Set(s.Elapsed.Seconds())

	exhausted := 0.0
	if s.BudgetExhausted {
		exhausted = 1
	}
	m.BudgetExhausted.WithLabelValues(m.container).Set(exhausted)

	if !s.StartedAt.IsZero() {
		m.LastRunTimestamp.WithLabelValues(m.container).Set(float64(s.StartedAt.Unix()))
	}
}

// Gatherer returns the private registry
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteTextfile writes the metrics in text exposition format, for the
// node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

var _ executor.Observer = (*Metrics)(nil)
