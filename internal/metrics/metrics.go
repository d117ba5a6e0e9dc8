package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics wraps Prometheus collectors for unit-sentinel.
type Metrics struct {
	registry                 *prometheus.Registry
	cycleDurationSeconds     prometheus.Histogram
	unitsTotal               *prometheus.GaugeVec
	unitStatesTotal          *prometheus.GaugeVec
	alertsTotal              *prometheus.CounterVec
	managerErrorsTotal       prometheus.Counter
	lastSuccessfulCycleGauge prometheus.Gauge
}

// New initializes a Metrics registry with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		cycleDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "unit_sentinel_cycle_duration_seconds",
			Help:    "Duration of unit evaluation cycles in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		unitsTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "unit_sentinel_units_total",
			Help: "Units observed in the last cycle by target and severity.",
		}, []string{"target", "severity"}),
		unitStatesTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "unit_sentinel_unit_states_total",
			Help: "Units observed in the last cycle by target and load state bucket.",
		}, []string{"target", "state"}),
		alertsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unit_sentinel_alerts_total",
			Help: "Total transition alerts emitted by target and severity.",
		}, []string{"target", "severity"}),
		managerErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "unit_sentinel_manager_errors_total",
			Help: "Total systemd manager query failures after retries.",
		}),
		lastSuccessfulCycleGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "unit_sentinel_last_successful_cycle_timestamp",
			Help: "Unix timestamp of the last successful cycle.",
		}),
	}

	registry.MustRegister(
		m.cycleDurationSeconds,
		m.unitsTotal,
		m.unitStatesTotal,
		m.alertsTotal,
		m.managerErrorsTotal,
		m.lastSuccessfulCycleGauge,
	)

	return m
}

// Handler returns a Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCycleDuration records the duration of a completed cycle.
func (m *Metrics) ObserveCycleDuration(duration time.Duration) {
	if m == nil {
		return
	}
	m.cycleDurationSeconds.Observe(duration.Seconds())
}

// SetUnitsTotal sets the unit gauge for the given target/severity.
func (m *Metrics) SetUnitsTotal(target string, severity string, value int) {
	if m == nil {
		return
	}
	m.unitsTotal.WithLabelValues(target, severity).Set(float64(value))
}

// SetUnitStatesTotal sets the unit gauge for the given target/state.
func (m *Metrics) SetUnitStatesTotal(target string, state string, value int) {
	if m == nil {
		return
	}
	m.unitStatesTotal.WithLabelValues(target, state).Set(float64(value))
}

// IncAlertsTotal increments the alerts counter for the given target/severity.
func (m *Metrics) IncAlertsTotal(target string, severity string) {
	if m == nil {
		return
	}
	m.alertsTotal.WithLabelValues(target, severity).Inc()
}

// IncManagerErrors increments the systemd manager error counter.
func (m *Metrics) IncManagerErrors() {
	if m == nil {
		return
	}
	m.managerErrorsTotal.Inc()
}

// SetLastSuccessfulCycleTimestamp sets the last successful cycle time.
func (m *Metrics) SetLastSuccessfulCycleTimestamp(t time.Time) {
	if m == nil {
		return
	}
	m.lastSuccessfulCycleGauge.Set(float64(t.Unix()))
}
