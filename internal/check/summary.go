package check

import (
	"fmt"

	"github.com/opsgate/unit-sentinel/internal/nagios"
)

// summarize picks the top-line text for a sweep. Exactly one examined
// unit uses its own description; otherwise an OK fleet gets the counter
// breakdown, a single unit at the worst severity gets its description,
// and several units there collapse into a count.
func summarize(units []UnitResult, overall nagios.Severity, counters Counters, tally Tally) string {
	if len(units) == 1 {
		return units[0].Description
	}

	if overall == nagios.OK {
		return fmt.Sprintf("%d units ok (%d actives, %d inactives, %d masked, %d not-found)",
			tally.OK, counters.Active, counters.Inactive(), counters.Masked, counters.NotFound)
	}

	if tally.count(overall) == 1 {
		for _, unit := range units {
			if unit.Severity == overall {
				return unit.Description
			}
		}
	}
	return fmt.Sprintf("%d %s units", tally.count(overall), overall.Label())
}
