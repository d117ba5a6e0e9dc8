package check

import (
	"fmt"

	"github.com/opsgate/unit-sentinel/internal/nagios"
	"github.com/opsgate/unit-sentinel/internal/systemd"
)

// Mode selects which severity table judges a health value.
type Mode int

const (
	// ModeExplicit is the policy for a unit the operator named: anything
	// short of running is critical, because somebody asked for this unit
	// specifically.
	ModeExplicit Mode = iota
	// ModeAuto is the policy for a discovery sweep: units nobody asked
	// about may sit unloaded or dead without raising an alert, but a
	// failed or half-stopped unit still pages.
	ModeAuto
)

func (m Mode) String() string {
	switch m {
	case ModeExplicit:
		return "explicit"
	case ModeAuto:
		return "auto"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Severity maps a health value to its monitoring severity under this
// mode. The mapping is total: values outside the table land on Unknown.
func (m Mode) Severity(value HealthValue) nagios.Severity {
	switch m {
	case ModeExplicit:
		switch value {
		case HealthActive:
			return nagios.OK
		case HealthChanging:
			return nagios.Warning
		case HealthNotLoaded, HealthInactiveOther, HealthNotLoadedError,
			HealthFailed, HealthInactiveDead:
			return nagios.Critical
		}
	case ModeAuto:
		switch value {
		case HealthNotLoaded, HealthActive, HealthInactiveDead:
			return nagios.OK
		case HealthChanging:
			return nagios.Warning
		case HealthInactiveOther, HealthNotLoadedError, HealthFailed:
			return nagios.Critical
		}
	}
	return nagios.Unknown
}

// Bounds derives the warning and critical thresholds published next to a
// unit's health value. Each threshold sits one above the current value
// unless the unit's own severity pins it to the value itself, so the
// plugin line and a range recheck agree on the verdict.
func (m Mode) Bounds(value HealthValue) (warn, crit int) {
	warn = int(value) + 1
	crit = int(value) + 1
	switch m.Severity(value) {
	case nagios.Warning:
		warn = int(value)
	case nagios.Critical:
		crit = int(value)
	}
	return warn, crit
}

// Describe renders the human-readable unit line. "and" joins the state
// and the verdict when the unit is judged healthy, "but" when it is not:
//
//	nginx.service loaded and active(running)
//	nginx.service loaded but failed(failed)
func Describe(status systemd.UnitStatus, severity nagios.Severity) string {
	conj := "but"
	if severity == nagios.OK {
		conj = "and"
	}
	return fmt.Sprintf("%s %s %s %s(%s)",
		status.Name, status.LoadState, conj, status.ActiveState, status.SubState)
}
