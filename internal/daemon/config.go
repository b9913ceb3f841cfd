package daemon

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aquaguardian/aquaboard/internal/dashboard"
	"github.com/aquaguardian/aquaboard/internal/export"
	"github.com/aquaguardian/aquaboard/internal/metric"
	"github.com/aquaguardian/aquaboard/internal/scheduler"
	"github.com/aquaguardian/aquaboard/internal/session"
	"github.com/aquaguardian/aquaboard/internal/sink"
	"github.com/aquaguardian/aquaboard/internal/source"
)

// Config is the top-level configuration for the aquaboard daemon.
type Config struct {
	// LogLevel sets the logging verbosity (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// Backend configures the reporting API client.
	Backend source.Config `yaml:"backend"`

	// Kinds lists the metric kinds polled each cycle. Defaults to the
	// seven dashboard kinds.
	Kinds []string `yaml:"kinds"`

	// Params sets the timeline, trend and history windows.
	Params metric.Params `yaml:"params"`

	// RefreshInterval is the time between aggregation cycles.
	// Defaults to 30s.
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// ClockInterval is the tick of the presentational clock.
	// Defaults to 1s.
	ClockInterval time.Duration `yaml:"clock_interval"`

	// Scheduler selects the timer implementation (ticker, wallclock).
	Scheduler scheduler.Kind `yaml:"scheduler"`

	// Session locates the signed-in user store.
	Session session.Config `yaml:"session"`

	// Sinks configures snapshot export.
	Sinks sink.Config `yaml:"sinks"`

	// Health configures the metrics and status server.
	Health export.HealthConfig `yaml:"health"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	kinds := metric.DashboardKinds()
	names := make([]string, 0, len(kinds))

	for _, k := range kinds {
		names = append(names, k.String())
	}

	return &Config{
		LogLevel: "info",
		Backend: source.Config{
			BaseURL: source.DefaultBaseURL,
			Timeout: 10 * time.Second,
		},
		Kinds:           names,
		Params:          metric.DefaultParams(),
		RefreshInterval: dashboard.DefaultRefreshInterval,
		ClockInterval:   dashboard.DefaultClockInterval,
		Scheduler:       scheduler.KindTicker,
		Session: session.Config{
			Path: session.DefaultPath(),
		},
		Health: export.HealthConfig{
			Addr: ":9090",
		},
	}
}

// LoadConfig reads a YAML file over the defaults, applies the environment
// and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	cfg.Backend.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for required fields and consistency.
func (c *Config) Validate() error {
	if _, err := c.ParsedKinds(); err != nil {
		return err
	}

	if c.RefreshInterval <= 0 {
		return errors.New("refresh_interval must be positive")
	}

	if c.ClockInterval <= 0 {
		return errors.New("clock_interval must be positive")
	}

	if _, err := scheduler.New(c.Scheduler); err != nil {
		return err
	}

	if c.Sinks.History.Enabled {
		if err := c.Sinks.History.ClickHouse.Validate(); err != nil {
			return fmt.Errorf("sinks.history: %w", err)
		}
	}

	if c.Sinks.Stream.Enabled {
		httpCfg := c.Sinks.Stream.HTTP
		httpCfg.Enabled = true
		httpCfg.ApplyDefaults()

		if err := httpCfg.Validate(); err != nil {
			return fmt.Errorf("sinks.stream: %w", err)
		}
	}

	return nil
}

// ParsedKinds returns the configured kinds in order.
func (c *Config) ParsedKinds() ([]metric.Kind, error) {
	if len(c.Kinds) == 0 {
		return nil, errors.New("kinds must list at least one metric kind")
	}

	kinds, err := metric.ParseKinds(c.Kinds)
	if err != nil {
		return nil, fmt.Errorf("kinds: %w", err)
	}

	return kinds, nil
}
