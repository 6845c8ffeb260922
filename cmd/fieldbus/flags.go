package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath  string
	LogLevel    string
	LogFormat   string
	MetricsPort int
	RunFor      time.Duration
	ShowVersion bool
	ShowHelp    bool
	Validate    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("FIELDBUS_CONFIG", ""),
		"Path to configuration file, empty for defaults (env: FIELDBUS_CONFIG)")

	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("FIELDBUS_CONFIG", ""),
		"Path to configuration file, empty for defaults (env: FIELDBUS_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("FIELDBUS_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: FIELDBUS_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("FIELDBUS_LOG_FORMAT", "json"),
		"Log format: json, text (env: FIELDBUS_LOG_FORMAT)")

	flag.IntVar(&cfg.MetricsPort, "metrics-port",
		getEnvInt("FIELDBUS_METRICS_PORT", 0),
		"Prometheus metrics port, 0 to disable (env: FIELDBUS_METRICS_PORT)")

	flag.DurationVar(&cfg.RunFor, "run-for",
		getEnvDuration("FIELDBUS_RUN_FOR", 0),
		"Stop the demo pipeline after this duration, 0 to run until signalled (env: FIELDBUS_RUN_FOR)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version and exit")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help and exit")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Parse()
	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}
	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port %d", cfg.MetricsPort)
	}
	return nil
}

func printHelp() {
	fmt.Printf("%s - reactive component framework demo\n\n", appName)
	fmt.Println("Usage:")
	flag.PrintDefaults()
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
