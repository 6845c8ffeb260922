// Package main implements the fieldbus demo binary: a small reactive
// pipeline (simulated sensor, statistics sink) wired through the framework,
// with optional Prometheus exposition.
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360/fieldbus/app"
	"github.com/c360/fieldbus/component"
	"github.com/c360/fieldbus/config"
	"github.com/c360/fieldbus/metric"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "fieldbus"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := loadConfiguration(cliCfg.ConfigPath)
	if err != nil {
		return err
	}
	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	metrics := metric.NewRegistry()
	if cliCfg.MetricsPort > 0 {
		serveMetrics(cliCfg.MetricsPort, metrics, logger)
	}

	a, err := app.New(cfg, app.WithLogger(logger), app.WithMetrics(metrics))
	if err != nil {
		return err
	}

	ids := component.NewIDSequence()
	if err := a.Register(
		newSensorSource(ids.Next("Sensor"), 50),
		newStatsSink(ids.Next("Stats"), logger),
	); err != nil {
		return err
	}

	if err := a.Start(); err != nil {
		return err
	}
	logger.Info("pipeline running", "app", a.ID())

	return waitAndStop(a, cliCfg.RunFor, logger)
}

func loadConfiguration(path string) (config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// serveMetrics exposes the Prometheus registry on /metrics.
func serveMetrics(port int, metrics *metric.Registry, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		metrics.PrometheusRegistry(), promhttp.HandlerOpts{}))
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("metrics server listening", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "error", err)
		}
	}()
}

// waitAndStop blocks until a signal, the optional deadline, or an internal
// shutdown, then stops the application.
func waitAndStop(a *app.Application, runFor time.Duration, logger *slog.Logger) error {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	var deadline <-chan time.Time
	if runFor > 0 {
		timer := time.NewTimer(runFor)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case sig := <-signals:
		logger.Info("signal received", "signal", sig.String())
	case <-deadline:
		logger.Info("run duration elapsed")
	case <-a.Done():
	}

	if err := a.Stop(); err != nil {
		return err
	}
	if a.HasErrorOccurred() {
		return fmt.Errorf("pipeline stopped after component failure")
	}
	return nil
}
