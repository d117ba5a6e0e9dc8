package check

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/opsgate/unit-sentinel/internal/nagios"
	"github.com/opsgate/unit-sentinel/internal/systemd"
)

const defaultFetchConcurrency = 4

// Counters tallies load-state buckets over one run. A fresh value is
// built per run and not read until every examined unit is in.
type Counters struct {
	Checked  int
	Loaded   int
	Masked   int
	NotFound int
	Active   int
}

// observe files one unit snapshot into the buckets. A load state outside
// the bucket vocabulary is a hard failure: it means the manager grew a
// state this tool does not know how to count, and a silently wrong tally
// is worse than no tally.
func (c *Counters) observe(status systemd.UnitStatus) error {
	c.Checked++
	switch status.LoadState {
	case loadStateLoaded:
		c.Loaded++
		if status.ActiveState == "active" {
			c.Active++
		}
	case loadStateMasked:
		c.Masked++
	case loadStateNotFound:
		c.NotFound++
	default:
		return &UnrecognizedLoadStateError{Unit: status.Name, LoadState: status.LoadState}
	}
	return nil
}

// Inactive derives the loaded-but-not-active count.
func (c Counters) Inactive() int {
	return c.Loaded - c.Active
}

// UnrecognizedLoadStateError aborts a sweep when a unit reports a load
// state outside the counted vocabulary.
type UnrecognizedLoadStateError struct {
	Unit      string
	LoadState string
}

func (e *UnrecognizedLoadStateError) Error() string {
	return fmt.Sprintf("unit %s reports unrecognized load state %q", e.Unit, e.LoadState)
}

// Tally counts final severities across the examined units.
type Tally struct {
	OK       int
	Warning  int
	Critical int
	Unknown  int
	All      int
}

func (t *Tally) observe(severity nagios.Severity) {
	t.All++
	switch severity {
	case nagios.OK:
		t.OK++
	case nagios.Warning:
		t.Warning++
	case nagios.Critical:
		t.Critical++
	default:
		t.Unknown++
	}
}

// count returns the number of units that landed on severity.
func (t Tally) count(severity nagios.Severity) int {
	switch severity {
	case nagios.OK:
		return t.OK
	case nagios.Warning:
		return t.Warning
	case nagios.Critical:
		return t.Critical
	default:
		return t.Unknown
	}
}

// UnitResult is one unit's evaluation. Both policy verdicts are always
// computed and reported; Severity carries the one matching the request
// shape and Description is rendered against it.
type UnitResult struct {
	Name        string
	Status      systemd.UnitStatus
	Health      HealthValue
	Auto        nagios.Severity
	Explicit    nagios.Severity
	Severity    nagios.Severity
	Description string
}

// Report is the outcome of one evaluation run.
type Report struct {
	Mode        Mode
	Severity    nagios.Severity
	Summary     string
	Units       []UnitResult
	Counters    Counters
	Tally       Tally
	Fingerprint string
	PerfData    []nagios.PerfData
}

// Evaluator drives discovery, classification, and aggregation against a
// manager client.
type Evaluator struct {
	client      systemd.Client
	logger      zerolog.Logger
	concurrency int
}

// Option customizes an Evaluator.
type Option func(*Evaluator)

// WithFetchConcurrency bounds the parallel unit snapshot fetches per run.
func WithFetchConcurrency(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewEvaluator builds an Evaluator over the given manager client.
func NewEvaluator(client systemd.Client, logger zerolog.Logger, opts ...Option) *Evaluator {
	e := &Evaluator{
		client:      client,
		logger:      logger,
		concurrency: defaultFetchConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NormalizeUnitName appends the .service suffix to bare names. A name
// already carrying any suffix passes through untouched.
func NormalizeUnitName(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return name + ".service"
}

// EvaluateUnit checks one operator-named unit under the explicit policy.
// A lookup failure travels up as an error rather than classifying the
// unit, since "the manager cannot resolve this name" and "this unit is
// not loaded" are different findings.
func (e *Evaluator) EvaluateUnit(ctx context.Context, name string) (Report, error) {
	unit := NormalizeUnitName(name)

	status, err := e.client.GetUnitStatus(ctx, unit)
	if err != nil {
		return Report{}, err
	}

	result := evaluateSnapshot(status, ModeExplicit)
	e.logUnit(result)

	report := Report{
		Mode:        ModeExplicit,
		Severity:    result.Severity,
		Summary:     result.Description,
		Units:       []UnitResult{result},
		Fingerprint: Fingerprint([]string{result.Name}),
	}
	report.Tally.observe(result.Severity)
	report.PerfData = perfData(report.Units, ModeExplicit, nil)
	return report, nil
}

// EvaluateFleet sweeps every unit matching pattern under the
// auto-discovery policy. A nil pattern falls back to DefaultFilter.
func (e *Evaluator) EvaluateFleet(ctx context.Context, pattern *regexp.Regexp) (Report, error) {
	if pattern == nil {
		pattern = defaultFilterPattern
	}

	names, err := NewDiscovery(e.client).Units(ctx, pattern)
	if err != nil {
		return Report{}, err
	}

	statuses, err := e.fetchStatuses(ctx, names)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Mode:     ModeAuto,
		Severity: nagios.OK,
		Units:    make([]UnitResult, 0, len(statuses)),
	}
	for _, status := range statuses {
		if err := report.Counters.observe(status); err != nil {
			return Report{}, err
		}
		result := evaluateSnapshot(status, ModeAuto)
		e.logUnit(result)
		report.Units = append(report.Units, result)
		report.Tally.observe(result.Severity)
		report.Severity = nagios.Worst(report.Severity, result.Severity)
	}

	report.Summary = summarize(report.Units, report.Severity, report.Counters, report.Tally)
	report.Fingerprint = Fingerprint(names)
	report.PerfData = perfData(report.Units, ModeAuto, &report.Counters)

	e.logger.Debug().
		Int("units", report.Counters.Checked).
		Str("severity", report.Severity.String()).
		Str("fingerprint", report.Fingerprint).
		Msg("fleet sweep complete")
	return report, nil
}

// fetchStatuses reads every unit snapshot, in parallel up to the
// configured bound. Results come back in input order, and any failure
// aborts the whole batch so no partial fleet gets aggregated.
func (e *Evaluator) fetchStatuses(ctx context.Context, names []string) ([]systemd.UnitStatus, error) {
	statuses := make([]systemd.UnitStatus, len(names))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.concurrency)
	for i, name := range names {
		i, name := i, name
		group.Go(func() error {
			status, err := e.client.GetUnitStatus(groupCtx, name)
			if err != nil {
				return err
			}
			statuses[i] = status
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return statuses, nil
}

func (e *Evaluator) logUnit(result UnitResult) {
	e.logger.Debug().
		Str("unit", result.Name).
		Str("load_state", result.Status.LoadState).
		Str("active_state", result.Status.ActiveState).
		Str("sub_state", result.Status.SubState).
		Int("health", int(result.Health)).
		Str("auto", result.Auto.Label()).
		Str("explicit", result.Explicit.Label()).
		Msg("unit evaluated")
}

// evaluateSnapshot classifies one snapshot and judges it under both
// policy tables. verdictMode picks which verdict fills Severity and
// shapes the description.
func evaluateSnapshot(status systemd.UnitStatus, verdictMode Mode) UnitResult {
	health := Classify(status)
	auto := ModeAuto.Severity(health)
	explicit := ModeExplicit.Severity(health)

	severity := auto
	if verdictMode == ModeExplicit {
		severity = explicit
	}

	return UnitResult{
		Name:        status.Name,
		Status:      status,
		Health:      health,
		Auto:        auto,
		Explicit:    explicit,
		Severity:    severity,
		Description: Describe(status, severity),
	}
}

// perfData renders one sample per unit plus the run counters when
// present. Thresholds come from the verdict mode's table.
func perfData(units []UnitResult, mode Mode, counters *Counters) []nagios.PerfData {
	samples := make([]nagios.PerfData, 0, len(units)+5)
	for _, unit := range units {
		warn, crit := mode.Bounds(unit.Health)
		samples = append(samples, nagios.PerfData{
			Label:   unit.Name,
			Value:   int(unit.Health),
			Warn:    warn,
			Crit:    crit,
			HasWarn: true,
			HasCrit: true,
		})
	}
	if counters != nil {
		samples = append(samples,
			nagios.PerfData{Label: "units_checked", Value: counters.Checked},
			nagios.PerfData{Label: "units_loaded", Value: counters.Loaded},
			nagios.PerfData{Label: "units_masked", Value: counters.Masked},
			nagios.PerfData{Label: "units_not_found", Value: counters.NotFound},
			nagios.PerfData{Label: "units_active", Value: counters.Active},
		)
	}
	return samples
}

var defaultFilterPattern = regexp.MustCompile(DefaultFilter)
