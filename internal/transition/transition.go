package transition

import (
	"sort"

	"github.com/opsgate/unit-sentinel/internal/check"
	"github.com/opsgate/unit-sentinel/internal/nagios"
	"github.com/opsgate/unit-sentinel/internal/state"
)

// HealthChange captures the health value movement behind a transition.
type HealthChange struct {
	Previous int `json:"previous"`
	Current  int `json:"current"`
	Delta    int `json:"delta"`
}

// UnitTransition captures a unit's severity change between runs.
type UnitTransition struct {
	Name        string          `json:"name"`
	Previous    nagios.Severity `json:"previous"`
	Current     nagios.Severity `json:"current"`
	Description string          `json:"description"`
	Health      *HealthChange   `json:"health,omitempty"`
}

// Detect compares a previous snapshot with the current report and emits
// transitions worth notifying. On the first run only units already in
// trouble notify, so a fresh deployment does not announce every healthy
// unit. A unit with no prior record reports Previous as Unknown.
func Detect(prev *state.TargetSnapshot, report check.Report) []UnitTransition {
	prevUnits := map[string]state.UnitRecord{}
	if prev != nil && prev.Units != nil {
		prevUnits = prev.Units
	}
	firstRun := prev == nil || len(prevUnits) == 0

	transitions := make([]UnitTransition, 0)
	for _, unit := range report.Units {
		prevRecord, hadPrev := prevUnits[unit.Name]
		previous := nagios.Unknown
		if hadPrev {
			previous = prevRecord.Severity
		}

		if firstRun {
			if unit.Severity == nagios.OK {
				continue
			}
		} else if hadPrev {
			if previous == unit.Severity {
				continue
			}
		} else if unit.Severity == nagios.OK {
			continue
		}

		transitions = append(transitions, UnitTransition{
			Name:        unit.Name,
			Previous:    previous,
			Current:     unit.Severity,
			Description: unit.Description,
			Health:      buildHealthChange(prevRecord, unit, hadPrev),
		})
	}

	// Sort by unit name for deterministic output
	sort.Slice(transitions, func(i, j int) bool {
		return transitions[i].Name < transitions[j].Name
	})

	return transitions
}

func buildHealthChange(prev state.UnitRecord, current check.UnitResult, hadPrev bool) *HealthChange {
	// A unit with no history has no meaningful delta to report.
	if !hadPrev {
		return nil
	}
	return &HealthChange{
		Previous: prev.Health,
		Current:  int(current.Health),
		Delta:    int(current.Health) - prev.Health,
	}
}
