package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/opsgate/unit-sentinel/internal/healthcheck"
	"github.com/opsgate/unit-sentinel/internal/metrics"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// Start launches the health and metrics HTTP listeners as configured.
// A port of zero disables that listener; when both are given the same
// port they share one server. Listeners drain when ctx is cancelled.
func Start(ctx context.Context, logger zerolog.Logger, pollInterval time.Duration, tracker *healthcheck.Tracker, collector *metrics.Metrics, healthPort, metricsPort int) {
	if healthPort == 0 && metricsPort == 0 {
		return
	}

	if healthPort > 0 && healthPort == metricsPort {
		mux := http.NewServeMux()
		addHealthRoutes(mux, tracker, pollInterval)
		addMetricsRoute(mux, collector)
		serve(ctx, logger, mux, healthPort, "health/metrics")
		return
	}

	if healthPort > 0 {
		mux := http.NewServeMux()
		addHealthRoutes(mux, tracker, pollInterval)
		serve(ctx, logger, mux, healthPort, "health")
	}

	if metricsPort > 0 {
		mux := http.NewServeMux()
		addMetricsRoute(mux, collector)
		serve(ctx, logger, mux, metricsPort, "metrics")
	}
}

func addHealthRoutes(mux *http.ServeMux, tracker *healthcheck.Tracker, pollInterval time.Duration) {
	mux.HandleFunc("/healthz", healthcheck.HealthHandler(tracker, pollInterval))
	mux.HandleFunc("/readyz", healthcheck.ReadyHandler(tracker))
}

func addMetricsRoute(mux *http.ServeMux, collector *metrics.Metrics) {
	if collector == nil {
		return
	}
	mux.Handle("/metrics", collector.Handler())
}

func serve(ctx context.Context, logger zerolog.Logger, handler http.Handler, port int, label string) {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		logger.Info().Str("server", label).Int("port", port).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Str("server", label).Int("port", port).Msg("http server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Str("server", label).Int("port", port).Msg("http server shutdown failed")
		}
	}()
}
