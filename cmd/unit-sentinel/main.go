package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	flag "github.com/spf13/pflag"

	"github.com/opsgate/unit-sentinel/internal/check"
	"github.com/opsgate/unit-sentinel/internal/config"
	"github.com/opsgate/unit-sentinel/internal/coordinator"
	"github.com/opsgate/unit-sentinel/internal/healthcheck"
	"github.com/opsgate/unit-sentinel/internal/logging"
	"github.com/opsgate/unit-sentinel/internal/metrics"
	"github.com/opsgate/unit-sentinel/internal/nagios"
	"github.com/opsgate/unit-sentinel/internal/notify"
	"github.com/opsgate/unit-sentinel/internal/server"
	"github.com/opsgate/unit-sentinel/internal/state"
	"github.com/opsgate/unit-sentinel/internal/systemd"
)

// serviceLabel prefixes every plugin status line.
const serviceLabel = "SYSTEMD"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := flag.NewFlagSet("unit-sentinel", flag.ContinueOnError)
	filter := flags.StringP("filter", "f", check.DefaultFilter, "regular expression selecting units to sweep")
	timeoutSeconds := flags.IntP("timeout", "t", 10, "manager call timeout in seconds")
	verbosity := flags.CountP("verbose", "v", "increase diagnostic verbosity")
	watch := flags.Bool("watch", false, "run as a monitoring daemon instead of a one-shot check")
	dryRun := flags.Bool("dry-run", false, "log notifications instead of delivering them")

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Println(nagios.StatusLine(serviceLabel, nagios.Unknown, err.Error(), nil))
		return nagios.Unknown.ExitCode()
	}

	logger := logging.NewVerbose(*verbosity)

	if *watch {
		return runWatch(logger, *dryRun)
	}
	return runCheck(logger, flags.Args(), *filter, time.Duration(*timeoutSeconds)*time.Second)
}

// runCheck performs a one-shot evaluation and prints a plugin status
// line on stdout. Naming a unit checks that unit under the explicit
// policy; otherwise every unit matching the filter is swept.
func runCheck(logger zerolog.Logger, positional []string, filter string, timeout time.Duration) int {
	if len(positional) > 1 {
		fmt.Println(nagios.StatusLine(serviceLabel, nagios.Unknown, "at most one unit may be named", nil))
		return nagios.Unknown.ExitCode()
	}

	pattern, err := regexp.Compile(filter)
	if err != nil {
		fmt.Println(nagios.StatusLine(serviceLabel, nagios.Unknown, fmt.Sprintf("invalid filter: %v", err), nil))
		return nagios.Unknown.ExitCode()
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := systemd.NewDBusClient(ctx, busFromEnv(), timeout)
	if err != nil {
		fmt.Println(nagios.StatusLine(serviceLabel, nagios.Unknown, fmt.Sprintf("cannot connect to systemd: %v", err), nil))
		return nagios.Unknown.ExitCode()
	}
	defer client.Close()

	evaluator := check.NewEvaluator(client, logger)

	var report check.Report
	if len(positional) == 1 {
		report, err = evaluator.EvaluateUnit(ctx, positional[0])
	} else {
		report, err = evaluator.EvaluateFleet(ctx, pattern)
	}
	if err != nil {
		fmt.Println(nagios.StatusLine(serviceLabel, nagios.Unknown, err.Error(), nil))
		return nagios.Unknown.ExitCode()
	}

	fmt.Println(nagios.StatusLine(serviceLabel, report.Severity, report.Summary, report.PerfData))
	return report.Severity.ExitCode()
}

// runWatch runs the polling daemon until SIGINT or SIGTERM.
func runWatch(logger zerolog.Logger, dryRun bool) int {
	cfg, err := config.Load()
	if err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return 1
	}

	targets, err := config.LoadTargetsFile(cfg.TargetsFile)
	if err != nil {
		logger.Error().Err(err).Msg("invalid targets file")
		return 1
	}
	if len(targets) == 0 {
		targets = []config.WatchTarget{{Name: "default", Filter: cfg.Filter}}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := systemd.BusSystem
	if cfg.Bus == "user" {
		bus = systemd.BusUser
	}
	client, err := systemd.NewDBusClient(ctx, bus, cfg.Timeout)
	if err != nil {
		logger.Error().Err(err).Msg("cannot connect to systemd")
		return 1
	}
	defer client.Close()

	if err := client.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("systemd manager not responding")
		return 1
	}

	store, closeStore, err := buildStateStore(logger, cfg)
	if err != nil {
		logger.Error().Err(err).Msg("cannot open state store")
		return 1
	}
	if closeStore != nil {
		defer closeStore()
	}

	notifier, err := buildNotifier(logger, cfg, dryRun)
	if err != nil {
		logger.Error().Err(err).Msg("cannot build notifier")
		return 1
	}

	collector := metrics.New()
	tracker := healthcheck.NewTracker()
	server.Start(ctx, logger, cfg.PollInterval, tracker, collector, cfg.HealthPort, cfg.MetricsPort)

	opts := []coordinator.Option{
		coordinator.WithMetrics(collector),
		coordinator.WithTracker(tracker),
		coordinator.WithNotifier(notifier),
	}
	if store != nil {
		opts = append(opts, coordinator.WithStateStore(store))
	}

	logger.Info().
		Int("targets", len(targets)).
		Str("bus", cfg.Bus).
		Dur("poll_interval", cfg.PollInterval).
		Bool("dry_run", dryRun).
		Msg("unit-sentinel starting")

	coord := coordinator.New(logger, cfg, targets, client, opts...)
	if err := coord.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("coordinator failed")
		return 1
	}

	logger.Info().Msg("unit-sentinel stopped")
	return 0
}

func buildStateStore(logger zerolog.Logger, cfg config.Config) (state.Store, func(), error) {
	if cfg.StatePath == "" {
		return nil, nil, nil
	}
	if cfg.StateBackend == config.StateBackendSQLite {
		store, err := state.NewSQLiteStore(cfg.StatePath, logger)
		if err != nil {
			return nil, nil, err
		}
		closeStore := func() {
			if err := store.Close(); err != nil {
				logger.Warn().Err(err).Msg("closing state store failed")
			}
		}
		return store, closeStore, nil
	}
	return state.NewFileStore(cfg.StatePath, logger), nil, nil
}

func buildNotifier(logger zerolog.Logger, cfg config.Config, dryRun bool) (notify.Notifier, error) {
	if dryRun {
		return notify.NewDryRun(logger), nil
	}

	var sinks []notify.Notifier
	if cfg.SlackWebhookURL != "" {
		sinks = append(sinks, notify.NewSlackNotifier(logger, cfg.SlackWebhookURL))
	}
	webhook, err := notify.NewWebhookNotifier(logger, cfg.WebhookURL, cfg.WebhookTemplate)
	if err != nil {
		return nil, err
	}
	// The nil check matters: appending a typed nil pointer would make
	// the interface non-nil.
	if webhook != nil {
		sinks = append(sinks, webhook)
	}
	return notify.NewMulti(sinks...), nil
}

// busFromEnv picks the manager bus for one-shot checks. Watch mode
// reads the same variable through config.Load.
func busFromEnv() systemd.Bus {
	if strings.EqualFold(strings.TrimSpace(os.Getenv("US_BUS")), "user") {
		return systemd.BusUser
	}
	return systemd.BusSystem
}
