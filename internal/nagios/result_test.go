package nagios

import "testing"

func TestPerfDataString(t *testing.T) {
	cases := []struct {
		name string
		perf PerfData
		want string
	}{
		{
			name: "bare value",
			perf: PerfData{Label: "units_checked", Value: 12},
			want: "units_checked=12",
		},
		{
			name: "both thresholds",
			perf: PerfData{Label: "nginx.service", Value: 1, Warn: 2, Crit: 2, HasWarn: true, HasCrit: true},
			want: "nginx.service=1;2;2",
		},
		{
			name: "critical pinned to value",
			perf: PerfData{Label: "nginx.service", Value: 0, Warn: 1, Crit: 0, HasWarn: true, HasCrit: true},
			want: "nginx.service=0;1;0",
		},
		{
			name: "negative health value",
			perf: PerfData{Label: "ghost.service", Value: -3, Warn: -2, Crit: -3, HasWarn: true, HasCrit: true},
			want: "ghost.service=-3;-2;-3",
		},
		{
			name: "warn only",
			perf: PerfData{Label: "latency", Value: 5, Warn: 10, HasWarn: true},
			want: "latency=5;10",
		},
		{
			name: "crit only",
			perf: PerfData{Label: "latency", Value: 5, Crit: 10, HasCrit: true},
			want: "latency=5;;10",
		},
		{
			name: "label with spaces",
			perf: PerfData{Label: "odd label", Value: 7},
			want: "'odd label'=7",
		},
		{
			name: "label with quote",
			perf: PerfData{Label: "it's", Value: 7},
			want: "'it''s'=7",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.perf.String(); got != tc.want {
				t.Fatalf("PerfData.String() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestStatusLine(t *testing.T) {
	got := StatusLine("SYSTEMD", OK, "nginx.service loaded and active(running)", nil)
	want := "SYSTEMD OK - nginx.service loaded and active(running)"
	if got != want {
		t.Fatalf("StatusLine() = %q, want %q", got, want)
	}
}

func TestStatusLineWithPerfData(t *testing.T) {
	perf := []PerfData{
		{Label: "nginx.service", Value: 1, Warn: 2, Crit: 2, HasWarn: true, HasCrit: true},
		{Label: "units_checked", Value: 1},
	}

	got := StatusLine("SYSTEMD", Critical, "2 critical units", perf)
	want := "SYSTEMD CRITICAL - 2 critical units | nginx.service=1;2;2 units_checked=1"
	if got != want {
		t.Fatalf("StatusLine() = %q, want %q", got, want)
	}
}
