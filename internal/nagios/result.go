package nagios

import (
	"fmt"
	"strings"
)

// StatusLine assembles the single-line plugin output. The summary follows
// the service label and severity, and any perfdata samples go after the
// pipe separator.
//
//	SYSTEMD CRITICAL - nginx.service loaded but failed(failed) | nginx.service=0;1;0
func StatusLine(service string, severity Severity, summary string, perf []PerfData) string {
	line := fmt.Sprintf("%s %s - %s", service, severity, summary)
	if len(perf) == 0 {
		return line
	}
	samples := make([]string, 0, len(perf))
	for _, p := range perf {
		samples = append(samples, p.String())
	}
	return line + " | " + strings.Join(samples, " ")
}
