package check

import (
	"fmt"

	"github.com/opsgate/unit-sentinel/internal/systemd"
)

// Load states with dedicated counter buckets.
const (
	loadStateLoaded   = "loaded"
	loadStateMasked   = "masked"
	loadStateNotFound = "not-found"
)

// HealthValue is the signed ordinal summarizing a unit's load/active/sub
// state triple. The numeric codes are part of the external contract:
// monitoring systems graph and threshold them, so they never change.
type HealthValue int

const (
	// HealthUnknown marks an active state outside the known vocabulary.
	HealthUnknown HealthValue = -5
	// HealthNotLoaded marks a unit whose definition is not loaded,
	// whatever the reason (not-found, masked, error).
	HealthNotLoaded HealthValue = -3
	// HealthInactiveOther marks a loaded, inactive unit in a substate
	// other than "dead".
	HealthInactiveOther HealthValue = -2
	// HealthNotLoadedError is a reserved slot between NotLoaded and
	// Failed. No classification path produces it; the code stays so the
	// published ordinal scale keeps its shape.
	HealthNotLoadedError HealthValue = -1
	// HealthFailed marks a loaded unit in active state "failed".
	HealthFailed HealthValue = 0
	// HealthActive marks a loaded, running unit.
	HealthActive HealthValue = 1
	// HealthInactiveDead marks a loaded unit at rest: inactive with
	// substate "dead".
	HealthInactiveDead HealthValue = 2
	// HealthChanging marks a loaded unit moving between states.
	HealthChanging HealthValue = 3
)

// String returns a stable name for logs and debug output.
func (v HealthValue) String() string {
	switch v {
	case HealthUnknown:
		return "unknown"
	case HealthNotLoaded:
		return "not-loaded"
	case HealthInactiveOther:
		return "inactive-other"
	case HealthNotLoadedError:
		return "not-loaded-error"
	case HealthFailed:
		return "failed"
	case HealthActive:
		return "active"
	case HealthInactiveDead:
		return "inactive-dead"
	case HealthChanging:
		return "changing"
	default:
		return fmt.Sprintf("health(%d)", int(v))
	}
}

// Classify reduces a unit snapshot to its health value. The load state
// gates everything: a unit that is not loaded classifies as NotLoaded no
// matter what its active state claims. Active states outside the known
// vocabulary classify as Unknown rather than failing, since systemd
// grows new active states faster than new load states.
func Classify(status systemd.UnitStatus) HealthValue {
	if status.LoadState != loadStateLoaded {
		return HealthNotLoaded
	}

	switch status.ActiveState {
	case "failed":
		return HealthFailed
	case "active":
		return HealthActive
	case "inactive":
		if status.SubState == "dead" {
			return HealthInactiveDead
		}
		return HealthInactiveOther
	case "activating", "deactivating", "reloading":
		return HealthChanging
	default:
		return HealthUnknown
	}
}
