package nagios

import (
	"fmt"
	"strings"
)

// Severity is the four-valued verdict consumed by the monitoring system.
// The numeric value doubles as the plugin exit code.
type Severity int

const (
	OK Severity = iota
	Warning
	Critical
	Unknown
)

// String returns the uppercase label used in plugin output.
func (s Severity) String() string {
	switch s {
	case OK:
		return "OK"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Label returns the lowercase form used in tallies and metric labels.
func (s Severity) Label() string {
	return strings.ToLower(s.String())
}

// ExitCode maps the severity onto the plugin exit convention:
// OK=0, WARNING=1, CRITICAL=2, UNKNOWN=3.
func (s Severity) ExitCode() int {
	if s < OK || s > Unknown {
		return int(Unknown)
	}
	return int(s)
}

// MarshalText renders the lowercase label so severities stay readable in
// persisted state and webhook payloads.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.Label()), nil
}

// UnmarshalText accepts either label case.
func (s *Severity) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "ok":
		*s = OK
	case "warning":
		*s = Warning
	case "critical":
		*s = Critical
	case "unknown":
		*s = Unknown
	default:
		return fmt.Errorf("unrecognized severity %q", text)
	}
	return nil
}

// rank orders severities for aggregation. CRITICAL outranks WARNING,
// WARNING outranks UNKNOWN, and OK ranks last: a fleet with one failed
// unit and one unclassifiable unit must still page as CRITICAL.
func (s Severity) rank() int {
	switch s {
	case Critical:
		return 3
	case Warning:
		return 2
	case Unknown:
		return 1
	default:
		return 0
	}
}

// Worst returns the more severe of a and b under the aggregation order.
func Worst(a, b Severity) Severity {
	if b.rank() > a.rank() {
		return b
	}
	return a
}
