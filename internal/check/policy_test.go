package check

import (
	"testing"

	"github.com/opsgate/unit-sentinel/internal/nagios"
	"github.com/opsgate/unit-sentinel/internal/systemd"
)

func TestExplicitSeverity(t *testing.T) {
	cases := []struct {
		value HealthValue
		want  nagios.Severity
	}{
		{HealthNotLoaded, nagios.Critical},
		{HealthInactiveOther, nagios.Critical},
		{HealthNotLoadedError, nagios.Critical},
		{HealthFailed, nagios.Critical},
		{HealthActive, nagios.OK},
		{HealthInactiveDead, nagios.Critical},
		{HealthChanging, nagios.Warning},
		{HealthUnknown, nagios.Unknown},
		{HealthValue(-4), nagios.Unknown},
	}

	for _, tc := range cases {
		if got := ModeExplicit.Severity(tc.value); got != tc.want {
			t.Errorf("ModeExplicit.Severity(%v) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

func TestAutoSeverity(t *testing.T) {
	cases := []struct {
		value HealthValue
		want  nagios.Severity
	}{
		{HealthNotLoaded, nagios.OK},
		{HealthInactiveOther, nagios.Critical},
		{HealthNotLoadedError, nagios.Critical},
		{HealthFailed, nagios.Critical},
		{HealthActive, nagios.OK},
		{HealthInactiveDead, nagios.OK},
		{HealthChanging, nagios.Warning},
		{HealthUnknown, nagios.Unknown},
		{HealthValue(7), nagios.Unknown},
	}

	for _, tc := range cases {
		if got := ModeAuto.Severity(tc.value); got != tc.want {
			t.Errorf("ModeAuto.Severity(%v) = %v, want %v", tc.value, got, tc.want)
		}
	}
}

// The modes must disagree exactly on the states a discovery sweep
// tolerates: units that are absent or at rest.
func TestModesDivergeOnlyOnRestingStates(t *testing.T) {
	all := []HealthValue{
		HealthUnknown, HealthNotLoaded, HealthInactiveOther, HealthNotLoadedError,
		HealthFailed, HealthActive, HealthInactiveDead, HealthChanging,
	}

	for _, value := range all {
		explicit := ModeExplicit.Severity(value)
		auto := ModeAuto.Severity(value)
		diverges := value == HealthNotLoaded || value == HealthInactiveDead
		if diverges && explicit == auto {
			t.Errorf("modes agree on %v, want divergence", value)
		}
		if !diverges && explicit != auto {
			t.Errorf("modes diverge on %v: explicit=%v auto=%v", value, explicit, auto)
		}
	}
}

func TestBounds(t *testing.T) {
	cases := []struct {
		name     string
		mode     Mode
		value    HealthValue
		wantWarn int
		wantCrit int
	}{
		{"explicit active is ok", ModeExplicit, HealthActive, 2, 2},
		{"explicit changing pins warn", ModeExplicit, HealthChanging, 3, 4},
		{"explicit failed pins crit", ModeExplicit, HealthFailed, 1, 0},
		{"explicit not-loaded pins crit", ModeExplicit, HealthNotLoaded, -2, -3},
		{"explicit inactive-dead pins crit", ModeExplicit, HealthInactiveDead, 3, 2},
		{"auto not-loaded is ok", ModeAuto, HealthNotLoaded, -2, -2},
		{"auto inactive-dead is ok", ModeAuto, HealthInactiveDead, 3, 3},
		{"auto failed pins crit", ModeAuto, HealthFailed, 1, 0},
		{"auto unknown leaves both above", ModeAuto, HealthUnknown, -4, -4},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			warn, crit := tc.mode.Bounds(tc.value)
			if warn != tc.wantWarn || crit != tc.wantCrit {
				t.Fatalf("%v.Bounds(%v) = (%d, %d), want (%d, %d)",
					tc.mode, tc.value, warn, crit, tc.wantWarn, tc.wantCrit)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	running := systemd.UnitStatus{Name: "nginx.service", LoadState: "loaded", ActiveState: "active", SubState: "running"}
	if got := Describe(running, nagios.OK); got != "nginx.service loaded and active(running)" {
		t.Errorf("Describe(ok) = %q", got)
	}

	failed := systemd.UnitStatus{Name: "nginx.service", LoadState: "loaded", ActiveState: "failed", SubState: "failed"}
	if got := Describe(failed, nagios.Critical); got != "nginx.service loaded but failed(failed)" {
		t.Errorf("Describe(critical) = %q", got)
	}

	masked := systemd.UnitStatus{Name: "cups.service", LoadState: "masked", ActiveState: "inactive", SubState: "dead"}
	if got := Describe(masked, nagios.OK); got != "cups.service masked and inactive(dead)" {
		t.Errorf("Describe(auto ok) = %q", got)
	}
}

func TestModeString(t *testing.T) {
	if ModeExplicit.String() != "explicit" || ModeAuto.String() != "auto" {
		t.Fatalf("mode names changed: %q, %q", ModeExplicit, ModeAuto)
	}
}
