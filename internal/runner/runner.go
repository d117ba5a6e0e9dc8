package runner

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/opsgate/unit-sentinel/internal/check"
	"github.com/opsgate/unit-sentinel/internal/healthcheck"
	"github.com/opsgate/unit-sentinel/internal/metrics"
	"github.com/opsgate/unit-sentinel/internal/nagios"
	"github.com/opsgate/unit-sentinel/internal/notify"
	"github.com/opsgate/unit-sentinel/internal/state"
	"github.com/opsgate/unit-sentinel/internal/transition"
)

// Ticker is the minimal interface needed for driving the runner loop.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t timeTicker) Stop() {
	t.ticker.Stop()
}

// Evaluator is the slice of check.Evaluator the runner drives each
// cycle. Kept narrow so tests can substitute canned reports.
type Evaluator interface {
	EvaluateUnit(ctx context.Context, name string) (check.Report, error)
	EvaluateFleet(ctx context.Context, pattern *regexp.Regexp) (check.Report, error)
}

var _ Evaluator = (*check.Evaluator)(nil)

// Runner drives the periodic evaluation loop for one watch target.
type Runner struct {
	logger        zerolog.Logger
	pollInterval  time.Duration
	tickerFactory func(time.Duration) Ticker
	runOnce       func(context.Context) error
	evaluator     Evaluator
	target        string
	unit          string
	filter        *regexp.Regexp
	cycleTimeout  time.Duration
	stateStore    state.Store
	stateMu       *sync.Mutex
	collector     *metrics.Metrics
	tracker       *healthcheck.Tracker
	notifier      notify.Notifier
	lastSnapshot  *state.TargetSnapshot
}

// Option customizes runner behavior.
type Option func(*Runner)

// WithTickerFactory overrides how tickers are created.
func WithTickerFactory(factory func(time.Duration) Ticker) Option {
	return func(r *Runner) {
		r.tickerFactory = factory
	}
}

// WithRunOnce overrides the single-cycle execution step.
func WithRunOnce(runOnce func(context.Context) error) Option {
	return func(r *Runner) {
		r.runOnce = runOnce
	}
}

// WithEvaluator sets the evaluator used by the default RunOnce.
func WithEvaluator(evaluator Evaluator) Option {
	return func(r *Runner) {
		r.evaluator = evaluator
	}
}

// WithTargetName names this runner's watch target in logs, state, and
// metrics.
func WithTargetName(name string) Option {
	return func(r *Runner) {
		r.target = name
	}
}

// WithUnit pins the runner to a single named unit instead of a
// discovery sweep.
func WithUnit(unit string) Option {
	return func(r *Runner) {
		r.unit = unit
	}
}

// WithFilter sets the unit name pattern for discovery sweeps.
func WithFilter(filter *regexp.Regexp) Option {
	return func(r *Runner) {
		r.filter = filter
	}
}

// WithCycleTimeout bounds how long a single cycle may take.
func WithCycleTimeout(timeout time.Duration) Option {
	return func(r *Runner) {
		r.cycleTimeout = timeout
	}
}

// WithStateStore enables state persistence for transition detection.
// The lock is shared between runners writing to the same store.
func WithStateStore(store state.Store, lock *sync.Mutex) Option {
	return func(r *Runner) {
		r.stateStore = store
		r.stateMu = lock
	}
}

// WithMetrics publishes cycle outcomes to the given collectors.
func WithMetrics(collector *metrics.Metrics) Option {
	return func(r *Runner) {
		r.collector = collector
	}
}

// WithTracker reports cycle completion for health endpoints.
func WithTracker(tracker *healthcheck.Tracker) Option {
	return func(r *Runner) {
		r.tracker = tracker
	}
}

// WithNotifier delivers detected transitions after each cycle.
func WithNotifier(notifier notify.Notifier) Option {
	return func(r *Runner) {
		r.notifier = notifier
	}
}

// New constructs a Runner with the given logger and poll interval.
func New(logger zerolog.Logger, pollInterval time.Duration, opts ...Option) *Runner {
	r := &Runner{
		logger:       logger,
		pollInterval: pollInterval,
		tickerFactory: func(d time.Duration) Ticker {
			return timeTicker{ticker: time.NewTicker(d)}
		},
	}
	r.runOnce = r.defaultRunOnce

	for _, opt := range opts {
		opt(r)
	}
	if r.stateStore != nil && r.stateMu == nil {
		r.stateMu = &sync.Mutex{}
	}

	return r
}

// Run starts the evaluation loop and blocks until the context is
// canceled.
func (r *Runner) Run(ctx context.Context) error {
	if r.pollInterval <= 0 {
		return errors.New("poll interval must be greater than zero")
	}

	// Run immediately on startup
	if err := r.RunOnce(ctx); err != nil {
		r.logger.Error().Err(err).Msg("initial run cycle failed")
	}

	ticker := r.tickerFactory(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("runner stopped")
			return nil
		case <-ticker.C():
			if err := r.RunOnce(ctx); err != nil {
				r.logger.Error().Err(err).Msg("run cycle failed")
			}
		}
	}
}

// RunOnce executes a single cycle of the runner.
func (r *Runner) RunOnce(ctx context.Context) error {
	return r.runOnce(ctx)
}

func (r *Runner) defaultRunOnce(ctx context.Context) error {
	if r.evaluator == nil {
		return nil
	}

	runCtx := ctx
	if r.cycleTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.cycleTimeout)
		defer cancel()
	}

	key := r.targetKey()
	runID := uuid.NewString()
	started := time.Now()

	report, err := r.evaluate(runCtx)
	if err != nil {
		r.collector.IncManagerErrors()
		return wrapCycle(key, "evaluate", err)
	}

	now := time.Now().UTC()
	duration := time.Since(started)

	r.publishMetrics(key, report, duration, now)
	r.tracker.RecordCycle(key, duration, report.Tally.All)

	event := r.logger.Info().
		Str("target", key).
		Str("run_id", runID).
		Str("severity", report.Severity.Label()).
		Int("units", report.Tally.All).
		Dur("duration", duration).
		Str("summary", report.Summary)
	if r.unit != "" {
		event = event.Str("unit", r.unit)
	}
	event.Msg("evaluation cycle complete")

	prev, err := r.persistSnapshot(runCtx, key, snapshotFromReport(runID, now, report))
	if err != nil {
		return wrapCycle(key, "persist", err)
	}

	if prev != nil && prev.Fingerprint != report.Fingerprint {
		r.logger.Info().
			Str("target", key).
			Str("previous_fingerprint", prev.Fingerprint).
			Str("fingerprint", report.Fingerprint).
			Msg("watched unit set changed")
	}

	transitions := transition.Detect(prev, report)
	for _, change := range transitions {
		r.logTransition(key, change)
		r.collector.IncAlertsTotal(key, change.Current.Label())
	}

	if len(transitions) > 0 && r.notifier != nil {
		if err := r.notifier.Notify(runCtx, key, transitions); err != nil {
			return wrapCycle(key, "notify", err)
		}
	}

	return nil
}

func (r *Runner) evaluate(ctx context.Context) (check.Report, error) {
	if r.unit != "" {
		return r.evaluator.EvaluateUnit(ctx, r.unit)
	}
	return r.evaluator.EvaluateFleet(ctx, r.filter)
}

// persistSnapshot stores the new snapshot and returns the one it
// replaced. Without a store the previous snapshot lives in memory, so
// transition detection still works across cycles within one process.
func (r *Runner) persistSnapshot(ctx context.Context, key string, snapshot state.TargetSnapshot) (*state.TargetSnapshot, error) {
	if r.stateStore == nil {
		prev := r.lastSnapshot
		r.lastSnapshot = &snapshot
		return prev, nil
	}

	var prev *state.TargetSnapshot
	err := r.withStateLock(func() error {
		loaded, err := r.stateStore.Load(ctx)
		if err != nil {
			return err
		}
		if existing, ok := loaded.Targets[key]; ok {
			existingCopy := existing
			prev = &existingCopy
		}

		if loaded.Targets == nil {
			loaded.Targets = map[string]state.TargetSnapshot{}
		}
		loaded.Targets[key] = snapshot

		return r.stateStore.Save(ctx, loaded)
	})
	if err != nil {
		return nil, err
	}
	return prev, nil
}

func (r *Runner) publishMetrics(key string, report check.Report, duration time.Duration, now time.Time) {
	r.collector.ObserveCycleDuration(duration)
	r.collector.SetUnitsTotal(key, nagios.OK.Label(), report.Tally.OK)
	r.collector.SetUnitsTotal(key, nagios.Warning.Label(), report.Tally.Warning)
	r.collector.SetUnitsTotal(key, nagios.Critical.Label(), report.Tally.Critical)
	r.collector.SetUnitsTotal(key, nagios.Unknown.Label(), report.Tally.Unknown)
	if r.unit == "" {
		r.collector.SetUnitStatesTotal(key, "loaded", report.Counters.Loaded)
		r.collector.SetUnitStatesTotal(key, "masked", report.Counters.Masked)
		r.collector.SetUnitStatesTotal(key, "not-found", report.Counters.NotFound)
		r.collector.SetUnitStatesTotal(key, "active", report.Counters.Active)
	}
	r.collector.SetLastSuccessfulCycleTimestamp(now)
}

func (r *Runner) logTransition(key string, change transition.UnitTransition) {
	event := r.logger.Info()
	switch change.Current {
	case nagios.Critical:
		event = r.logger.Error()
	case nagios.Warning:
		event = r.logger.Warn()
	}

	event = event.
		Str("target", key).
		Str("unit", change.Name).
		Str("previous", change.Previous.Label()).
		Str("current", change.Current.Label()).
		Str("description", change.Description)
	if change.Health != nil {
		event = event.
			Int("health_previous", change.Health.Previous).
			Int("health_current", change.Health.Current).
			Int("health_delta", change.Health.Delta)
	}
	event.Msg("unit transition detected")
}

func (r *Runner) withStateLock(fn func() error) error {
	if r.stateMu == nil {
		return fn()
	}
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	return fn()
}

func (r *Runner) targetKey() string {
	if r.target != "" {
		return r.target
	}
	return "default"
}

func snapshotFromReport(runID string, now time.Time, report check.Report) state.TargetSnapshot {
	units := make(map[string]state.UnitRecord, len(report.Units))
	for _, unit := range report.Units {
		units[unit.Name] = state.UnitRecord{
			Severity:    unit.Severity,
			Health:      int(unit.Health),
			Description: unit.Description,
		}
	}
	return state.TargetSnapshot{
		RunID:       runID,
		Fingerprint: report.Fingerprint,
		Severity:    report.Severity,
		Summary:     report.Summary,
		Units:       units,
		EvaluatedAt: now,
	}
}
