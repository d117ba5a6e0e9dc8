package coordinator

import (
	"context"
	"regexp"
	"sync"

	"github.com/rs/zerolog"

	"github.com/opsgate/unit-sentinel/internal/check"
	"github.com/opsgate/unit-sentinel/internal/config"
	"github.com/opsgate/unit-sentinel/internal/healthcheck"
	"github.com/opsgate/unit-sentinel/internal/metrics"
	"github.com/opsgate/unit-sentinel/internal/notify"
	"github.com/opsgate/unit-sentinel/internal/runner"
	"github.com/opsgate/unit-sentinel/internal/state"
	"github.com/opsgate/unit-sentinel/internal/systemd"
)

// Coordinator manages multiple Runner instances, one per watch target.
// It spawns runners in parallel and waits for context cancellation.
// All runners share one manager client, one state store, and one
// notifier.
type Coordinator struct {
	logger       zerolog.Logger
	cfg          config.Config
	targets      []config.WatchTarget
	client       systemd.Client
	stateStore   state.Store
	stateMu      sync.Mutex
	notifier     notify.Notifier
	collector    *metrics.Metrics
	tracker      *healthcheck.Tracker
	runners      map[string]*runner.Runner
	runnerErrors map[string]error
	mu           sync.RWMutex
}

// Option customizes coordinator wiring.
type Option func(*Coordinator)

// WithStateStore shares a state store across all runners.
func WithStateStore(store state.Store) Option {
	return func(c *Coordinator) {
		c.stateStore = store
	}
}

// WithNotifier shares a notifier across all runners.
func WithNotifier(notifier notify.Notifier) Option {
	return func(c *Coordinator) {
		c.notifier = notifier
	}
}

// WithMetrics shares a metrics collector across all runners.
func WithMetrics(collector *metrics.Metrics) Option {
	return func(c *Coordinator) {
		c.collector = collector
	}
}

// WithTracker shares a cycle tracker across all runners.
func WithTracker(tracker *healthcheck.Tracker) Option {
	return func(c *Coordinator) {
		c.tracker = tracker
	}
}

// New constructs a Coordinator for the given configuration and watch
// targets.
func New(logger zerolog.Logger, cfg config.Config, targets []config.WatchTarget, client systemd.Client, opts ...Option) *Coordinator {
	c := &Coordinator{
		logger:       logger,
		cfg:          cfg,
		targets:      targets,
		client:       client,
		runners:      make(map[string]*runner.Runner),
		runnerErrors: make(map[string]error),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run starts all runners in parallel and blocks until context is canceled.
// Returns nil on clean shutdown; logs any per-runner errors internally.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info().
		Int("targets", len(c.targets)).
		Msg("starting coordinator")

	var wg sync.WaitGroup
	for _, target := range c.targets {
		wg.Add(1)
		go c.spawnRunner(ctx, &wg, target)
	}

	// Wait for all runners to exit (via context cancellation or error)
	wg.Wait()
	c.logger.Info().Msg("all runners stopped")

	c.mu.RLock()
	defer c.mu.RUnlock()
	for target, err := range c.runnerErrors {
		if err != nil {
			c.logger.Error().Err(err).Str("target", target).Msg("runner error")
		}
	}

	return nil
}

// spawnRunner creates and runs a single Runner for the given watch target.
func (c *Coordinator) spawnRunner(ctx context.Context, wg *sync.WaitGroup, target config.WatchTarget) {
	defer wg.Done()

	targetLogger := c.logger.With().Str("target", target.Name).Logger()

	// Per-target timeout override or global default
	timeout := c.cfg.Timeout
	if target.Timeout > 0 {
		timeout = target.Timeout
	}

	evaluator := check.NewEvaluator(c.client, targetLogger,
		check.WithFetchConcurrency(c.cfg.FetchConcurrency))

	opts := []runner.Option{
		runner.WithEvaluator(evaluator),
		runner.WithTargetName(target.Name),
		runner.WithCycleTimeout(timeout),
		runner.WithMetrics(c.collector),
		runner.WithTracker(c.tracker),
		runner.WithNotifier(c.notifier),
	}

	if target.Unit != "" {
		opts = append(opts, runner.WithUnit(target.Unit))
	} else {
		pattern, err := c.compileFilter(target)
		if err != nil {
			targetLogger.Error().Err(err).Msg("failed to compile unit filter")
			c.recordError(target.Name, err)
			return
		}
		opts = append(opts, runner.WithFilter(pattern))
	}

	if c.stateStore != nil {
		opts = append(opts, runner.WithStateStore(c.stateStore, &c.stateMu))
	}

	r := runner.New(targetLogger, c.cfg.PollInterval, opts...)

	c.mu.Lock()
	c.runners[target.Name] = r
	c.mu.Unlock()

	targetLogger.Info().Msg("runner started")

	if err := r.Run(ctx); err != nil {
		targetLogger.Error().Err(err).Msg("runner exited with error")
		c.recordError(target.Name, err)
	} else {
		targetLogger.Info().Msg("runner exited cleanly")
	}
}

func (c *Coordinator) compileFilter(target config.WatchTarget) (*regexp.Regexp, error) {
	filter := target.Filter
	if filter == "" {
		filter = c.cfg.Filter
	}
	if filter == "" {
		filter = check.DefaultFilter
	}
	return regexp.Compile(filter)
}

// recordError records a per-target error for later reporting.
func (c *Coordinator) recordError(targetName string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runnerErrors[targetName] = err
}

// GetRunners returns a copy of the runners map for testing.
func (c *Coordinator) GetRunners() map[string]*runner.Runner {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]*runner.Runner, len(c.runners))
	for k, v := range c.runners {
		result[k] = v
	}
	return result
}
