package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envPollInterval     = "US_POLL_INTERVAL"
	envFilter           = "US_FILTER"
	envBus              = "US_BUS"
	envFetchConcurrency = "US_FETCH_CONCURRENCY"
	envTimeout          = "US_TIMEOUT"
	envHealthPort       = "US_HEALTH_PORT"
	envMetricsPort      = "US_METRICS_PORT"
	envStatePath        = "US_STATE_PATH"
	envStateBackend     = "US_STATE_BACKEND"
	envSlackWebhookURL  = "US_SLACK_WEBHOOK_URL"
	envWebhookURL       = "US_WEBHOOK_URL"
	envWebhookTemplate  = "US_WEBHOOK_TEMPLATE"
	envTargetsFile      = "US_TARGETS_FILE"
)

const (
	defaultPollInterval     = 30 * time.Second
	defaultFilter           = `^.*\.service$`
	defaultBus              = "system"
	defaultFetchConcurrency = 4
	defaultTimeout          = 10 * time.Second
)

// State store backends.
const (
	StateBackendFile   = "file"
	StateBackendSQLite = "sqlite"
)

// Config describes watch-mode runtime configuration loaded from the
// environment.
type Config struct {
	PollInterval     time.Duration
	Filter           string
	Bus              string
	FetchConcurrency int
	Timeout          time.Duration
	HealthPort       int
	MetricsPort      int
	StatePath        string
	StateBackend     string
	SlackWebhookURL  string
	WebhookURL       string
	WebhookTemplate  string
	TargetsFile      string
}

// Load reads configuration from environment variables and a local .env
// file if present. Existing environment variables take precedence over
// values in .env.
func Load() (Config, error) {
	if err := loadDotEnvIfPresent(".env"); err != nil {
		return Config{}, err
	}

	cfg := Config{
		PollInterval:     defaultPollInterval,
		Filter:           defaultFilter,
		Bus:              defaultBus,
		FetchConcurrency: defaultFetchConcurrency,
		Timeout:          defaultTimeout,
		StateBackend:     StateBackendFile,
	}

	if value, ok := lookupTrimmed(envPollInterval); ok {
		interval, err := parsePositiveDuration(value, envPollInterval)
		if err != nil {
			return Config{}, err
		}
		cfg.PollInterval = interval
	}

	if value, ok := lookupTrimmed(envTimeout); ok {
		timeout, err := parsePositiveDuration(value, envTimeout)
		if err != nil {
			return Config{}, err
		}
		cfg.Timeout = timeout
	}

	if value, ok := lookupTrimmed(envFilter); ok && value != "" {
		cfg.Filter = value
	}
	if _, err := regexp.Compile(cfg.Filter); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", envFilter, err)
	}

	if value, ok := lookupTrimmed(envBus); ok {
		cfg.Bus = value
	}
	if cfg.Bus != "system" && cfg.Bus != "user" {
		return Config{}, fmt.Errorf("%s must be \"system\" or \"user\", got %q", envBus, cfg.Bus)
	}

	if value, ok := lookupTrimmed(envFetchConcurrency); ok {
		n, err := strconv.Atoi(value)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", envFetchConcurrency, err)
		}
		if n < 1 {
			return Config{}, fmt.Errorf("%s must be at least 1", envFetchConcurrency)
		}
		cfg.FetchConcurrency = n
	}

	var err error
	if cfg.HealthPort, err = lookupPort(envHealthPort); err != nil {
		return Config{}, err
	}
	if cfg.MetricsPort, err = lookupPort(envMetricsPort); err != nil {
		return Config{}, err
	}

	if value, ok := lookupTrimmed(envStatePath); ok {
		cfg.StatePath = value
	}
	if value, ok := lookupTrimmed(envStateBackend); ok {
		cfg.StateBackend = value
	}
	switch cfg.StateBackend {
	case StateBackendFile:
	case StateBackendSQLite:
		if cfg.StatePath == "" {
			return Config{}, fmt.Errorf("%s is required when %s=%s", envStatePath, envStateBackend, StateBackendSQLite)
		}
	default:
		return Config{}, fmt.Errorf("%s must be %q or %q, got %q",
			envStateBackend, StateBackendFile, StateBackendSQLite, cfg.StateBackend)
	}

	if value, ok := lookupTrimmed(envSlackWebhookURL); ok {
		cfg.SlackWebhookURL = value
	}
	if cfg.SlackWebhookURL != "" {
		if err := validateURL(cfg.SlackWebhookURL, envSlackWebhookURL); err != nil {
			return Config{}, err
		}
	}

	if value, ok := lookupTrimmed(envWebhookURL); ok {
		cfg.WebhookURL = value
	}
	if cfg.WebhookURL != "" {
		if err := validateURL(cfg.WebhookURL, envWebhookURL); err != nil {
			return Config{}, err
		}
	}

	if value, ok := lookupTrimmed(envWebhookTemplate); ok {
		cfg.WebhookTemplate = value
	}

	if value, ok := lookupTrimmed(envTargetsFile); ok {
		cfg.TargetsFile = value
	}

	return cfg, nil
}

func lookupTrimmed(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(value), true
}

func lookupPort(key string) (int, error) {
	value, ok := lookupTrimmed(key)
	if !ok || value == "" {
		return 0, nil
	}
	port, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if port < 0 || port > 65535 {
		return 0, fmt.Errorf("%s must be between 0 and 65535", key)
	}
	return port, nil
}

func parsePositiveDuration(value, name string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be greater than zero", name)
	}
	return d, nil
}

func loadDotEnvIfPresent(path string) error {
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}

	var pathErr *os.PathError
	if errors.As(err, &pathErr) && errors.Is(pathErr.Err, os.ErrNotExist) {
		return nil
	}

	return err
}

func validateURL(value, name string) error {
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid %s: must include scheme and host", name)
	}
	return nil
}
