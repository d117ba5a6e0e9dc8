package nagios

import (
	"strconv"
	"strings"
)

// PerfData is a single performance-data sample: a labeled integer with
// optional warning and critical thresholds.
type PerfData struct {
	Label   string
	Value   int
	Warn    int
	Crit    int
	HasWarn bool
	HasCrit bool
}

// String renders the sample as label=value;warn;crit. Labels containing
// characters the perfdata grammar reserves are single-quoted, with
// embedded quotes doubled.
func (p PerfData) String() string {
	var b strings.Builder
	b.WriteString(quoteLabel(p.Label))
	b.WriteByte('=')
	b.WriteString(strconv.Itoa(p.Value))
	if p.HasWarn || p.HasCrit {
		b.WriteByte(';')
		if p.HasWarn {
			b.WriteString(strconv.Itoa(p.Warn))
		}
		if p.HasCrit {
			b.WriteByte(';')
			b.WriteString(strconv.Itoa(p.Crit))
		}
	}
	return b.String()
}

func quoteLabel(label string) string {
	if !strings.ContainsAny(label, " ='\"") {
		return label
	}
	return "'" + strings.ReplaceAll(label, "'", "''") + "'"
}
