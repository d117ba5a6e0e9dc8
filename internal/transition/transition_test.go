package transition

import (
	"testing"

	"github.com/opsgate/unit-sentinel/internal/check"
	"github.com/opsgate/unit-sentinel/internal/nagios"
	"github.com/opsgate/unit-sentinel/internal/state"
)

func TestDetect_FirstRunOnlyReportsTrouble(t *testing.T) {
	report := check.Report{
		Units: []check.UnitResult{
			{Name: "ok.service", Severity: nagios.OK, Health: check.HealthActive},
			{Name: "bad.service", Severity: nagios.Critical, Health: check.HealthFailed,
				Description: "bad.service loaded but failed(failed)"},
		},
	}

	transitions := Detect(nil, report)

	if len(transitions) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(transitions))
	}
	tr := transitions[0]
	if tr.Name != "bad.service" {
		t.Fatalf("expected transition for bad.service, got %s", tr.Name)
	}
	if tr.Previous != nagios.Unknown || tr.Current != nagios.Critical {
		t.Fatalf("expected UNKNOWN -> CRITICAL, got %v -> %v", tr.Previous, tr.Current)
	}
	if tr.Health != nil {
		t.Fatalf("expected no health delta on first sighting, got %+v", tr.Health)
	}
}

func TestDetect_NoChangeIsQuiet(t *testing.T) {
	prev := &state.TargetSnapshot{
		Units: map[string]state.UnitRecord{
			"api.service": {Severity: nagios.Critical, Health: 0},
		},
	}
	report := check.Report{
		Units: []check.UnitResult{
			{Name: "api.service", Severity: nagios.Critical, Health: check.HealthFailed},
		},
	}

	if transitions := Detect(prev, report); len(transitions) != 0 {
		t.Fatalf("expected no transitions, got %d", len(transitions))
	}
}

func TestDetect_SeverityChangeCarriesHealthDelta(t *testing.T) {
	prev := &state.TargetSnapshot{
		Units: map[string]state.UnitRecord{
			"api.service": {Severity: nagios.OK, Health: 1},
		},
	}
	report := check.Report{
		Units: []check.UnitResult{
			{Name: "api.service", Severity: nagios.Critical, Health: check.HealthFailed,
				Description: "api.service loaded but failed(failed)"},
		},
	}

	transitions := Detect(prev, report)
	if len(transitions) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(transitions))
	}
	tr := transitions[0]
	if tr.Previous != nagios.OK || tr.Current != nagios.Critical {
		t.Fatalf("expected OK -> CRITICAL, got %v -> %v", tr.Previous, tr.Current)
	}
	if tr.Health == nil || tr.Health.Previous != 1 || tr.Health.Current != 0 || tr.Health.Delta != -1 {
		t.Fatalf("unexpected health change: %+v", tr.Health)
	}
}

func TestDetect_RecoveryNotifies(t *testing.T) {
	prev := &state.TargetSnapshot{
		Units: map[string]state.UnitRecord{
			"api.service": {Severity: nagios.Critical, Health: 0},
		},
	}
	report := check.Report{
		Units: []check.UnitResult{
			{Name: "api.service", Severity: nagios.OK, Health: check.HealthActive,
				Description: "api.service loaded and active(running)"},
		},
	}

	transitions := Detect(prev, report)
	if len(transitions) != 1 {
		t.Fatalf("expected recovery transition, got %d", len(transitions))
	}
	if transitions[0].Current != nagios.OK {
		t.Fatalf("expected recovery to OK, got %v", transitions[0].Current)
	}
}

func TestDetect_NewUnitMidWatch(t *testing.T) {
	prev := &state.TargetSnapshot{
		Units: map[string]state.UnitRecord{
			"existing.service": {Severity: nagios.OK, Health: 1},
		},
	}
	report := check.Report{
		Units: []check.UnitResult{
			{Name: "existing.service", Severity: nagios.OK, Health: check.HealthActive},
			{Name: "new-ok.service", Severity: nagios.OK, Health: check.HealthActive},
			{Name: "new-bad.service", Severity: nagios.Critical, Health: check.HealthFailed},
		},
	}

	transitions := Detect(prev, report)
	if len(transitions) != 1 {
		t.Fatalf("expected 1 transition, got %d", len(transitions))
	}
	if transitions[0].Name != "new-bad.service" {
		t.Fatalf("expected new-bad.service, got %s", transitions[0].Name)
	}
	if transitions[0].Previous != nagios.Unknown {
		t.Fatalf("expected UNKNOWN previous for unseen unit, got %v", transitions[0].Previous)
	}
}

func TestDetect_SortsByName(t *testing.T) {
	report := check.Report{
		Units: []check.UnitResult{
			{Name: "zeta.service", Severity: nagios.Critical, Health: check.HealthFailed},
			{Name: "alpha.service", Severity: nagios.Warning, Health: check.HealthChanging},
			{Name: "mid.service", Severity: nagios.Critical, Health: check.HealthFailed},
		},
	}

	transitions := Detect(nil, report)
	if len(transitions) != 3 {
		t.Fatalf("expected 3 transitions, got %d", len(transitions))
	}
	want := []string{"alpha.service", "mid.service", "zeta.service"}
	for i, name := range want {
		if transitions[i].Name != name {
			t.Fatalf("transitions[%d] = %s, want %s", i, transitions[i].Name, name)
		}
	}
}

func TestDetect_VanishedUnitIsQuiet(t *testing.T) {
	prev := &state.TargetSnapshot{
		Units: map[string]state.UnitRecord{
			"gone.service":    {Severity: nagios.OK, Health: 1},
			"staying.service": {Severity: nagios.OK, Health: 1},
		},
	}
	report := check.Report{
		Units: []check.UnitResult{
			{Name: "staying.service", Severity: nagios.OK, Health: check.HealthActive},
		},
	}

	if transitions := Detect(prev, report); len(transitions) != 0 {
		t.Fatalf("vanished units must not emit transitions, got %d", len(transitions))
	}
}
