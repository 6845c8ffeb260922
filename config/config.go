// Package config holds the framework timing configuration: dispatcher poll
// interval, shutdown drain behavior, runner stop timeouts and the metric
// averaging interval.
//
// All fields have working defaults; a YAML file can override any subset.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360/fieldbus/errors"
)

// Config is the framework timing configuration.
type Config struct {
	// PollInterval bounds how long the dispatcher blocks waiting for the
	// next event, so it stays responsive to shutdown.
	PollInterval time.Duration `yaml:"poll_interval"`

	// DrainTimeout bounds shutdown phase 2: if the queue has not quiesced
	// within this time, shutdown proceeds anyway with a warning.
	DrainTimeout time.Duration `yaml:"drain_timeout"`

	// DrainQuietPeriod is how long the queue must stay empty and unread
	// before it counts as drained.
	DrainQuietPeriod time.Duration `yaml:"drain_quiet_period"`

	// RunnerStopTimeout bounds the wait for each runner during shutdown
	// phase 3. A runner that does not exit in time is logged as an error
	// and abandoned.
	RunnerStopTimeout time.Duration `yaml:"runner_stop_timeout"`

	// MetricInterval is the averaging window for the framework's duration
	// and fps metric events.
	MetricInterval time.Duration `yaml:"metric_interval"`

	// LogLevel sets the slog level: debug, info, warn or error.
	LogLevel string `yaml:"log_level"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		PollInterval:      100 * time.Millisecond,
		DrainTimeout:      5 * time.Second,
		DrainQuietPeriod:  time.Second,
		RunnerStopTimeout: 5 * time.Second,
		MetricInterval:    time.Second,
		LogLevel:          "info",
	}
}

// Load reads a YAML configuration file over the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, errors.WrapInvalid(errors.ErrMissingConfig, "config", "Load",
				"read "+path)
		}
		return Config{}, errors.Wrap(err, "config", "Load", "read file")
	}
	return Parse(data)
}

// Parse applies YAML configuration bytes over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.WrapInvalid(err, "config", "Parse", "yaml unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks all fields for usable values.
func (c Config) Validate() error {
	if c.PollInterval <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"poll_interval must be positive")
	}
	if c.DrainTimeout <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"drain_timeout must be positive")
	}
	if c.DrainQuietPeriod <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"drain_quiet_period must be positive")
	}
	if c.RunnerStopTimeout <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"runner_stop_timeout must be positive")
	}
	if c.MetricInterval <= 0 {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"metric_interval must be positive")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel into a slog.Level.
func (c Config) SlogLevel() (slog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, errors.WrapInvalid(
			fmt.Errorf("unknown log level %q", c.LogLevel),
			"config", "SlogLevel", "log level parse")
	}
}
