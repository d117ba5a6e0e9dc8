package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsUpdates(t *testing.T) {
	m := New()

	m.ObserveCycleDuration(2 * time.Second)
	m.SetUnitsTotal("default", "ok", 3)
	m.SetUnitsTotal("default", "critical", 1)
	m.SetUnitStatesTotal("default", "loaded", 4)
	m.SetUnitStatesTotal("default", "masked", 1)
	m.IncAlertsTotal("default", "critical")
	m.IncManagerErrors()
	m.SetLastSuccessfulCycleTimestamp(time.Unix(100, 0))

	if got := testutil.ToFloat64(m.unitsTotal.WithLabelValues("default", "ok")); got != 3 {
		t.Fatalf("expected ok units 3, got %v", got)
	}
	if got := testutil.ToFloat64(m.unitsTotal.WithLabelValues("default", "critical")); got != 1 {
		t.Fatalf("expected critical units 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.unitStatesTotal.WithLabelValues("default", "loaded")); got != 4 {
		t.Fatalf("expected loaded units 4, got %v", got)
	}
	if got := testutil.ToFloat64(m.unitStatesTotal.WithLabelValues("default", "masked")); got != 1 {
		t.Fatalf("expected masked units 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.alertsTotal.WithLabelValues("default", "critical")); got != 1 {
		t.Fatalf("expected alerts 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.managerErrorsTotal); got != 1 {
		t.Fatalf("expected manager errors 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.lastSuccessfulCycleGauge); got != 100 {
		t.Fatalf("expected last successful cycle 100, got %v", got)
	}
	if count := testutil.CollectAndCount(m.cycleDurationSeconds); count == 0 {
		t.Fatalf("expected cycle duration histogram to be collected")
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	m.ObserveCycleDuration(time.Second)
	m.SetUnitsTotal("default", "ok", 1)
	m.SetUnitStatesTotal("default", "loaded", 1)
	m.IncAlertsTotal("default", "critical")
	m.IncManagerErrors()
	m.SetLastSuccessfulCycleTimestamp(time.Now())

	if m.Handler() == nil {
		t.Fatal("expected fallback handler for nil metrics")
	}
}
