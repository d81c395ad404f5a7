// Package config loads the browserd server configuration from
// defaults, an optional YAML file and BROWSERD_* environment
// overrides, in that order.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mstoykov/envconfig"
	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from human-readable
// strings ("90s", "5m") in both YAML documents and environment values.
type Duration time.Duration

func (d Duration) String() string { return time.Duration(d).String() }

// Std returns the plain time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalText implements encoding.TextUnmarshaler, which envconfig
// uses for environment overrides.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	return d.UnmarshalText([]byte(node.Value))
}

// Config holds the browserd server configuration.
type Config struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string `yaml:"listen_addr" envconfig:"BROWSERD_LISTEN_ADDR"`

	// MaxSessions caps concurrently live browser sessions.
	MaxSessions int `yaml:"max_sessions" envconfig:"BROWSERD_MAX_SESSIONS"`

	// IdleTimeout is how long a session may sit without activity
	// before the sweep reclaims it.
	IdleTimeout Duration `yaml:"idle_timeout" envconfig:"BROWSERD_IDLE_TIMEOUT"`

	// SweepInterval is how often the idle sweep runs.
	SweepInterval Duration `yaml:"sweep_interval" envconfig:"BROWSERD_SWEEP_INTERVAL"`

	// LockWait bounds how long an action waits for a busy session.
	LockWait Duration `yaml:"lock_wait" envconfig:"BROWSERD_LOCK_WAIT"`

	// ActionTimeout is the default driver timeout for element actions.
	ActionTimeout Duration `yaml:"action_timeout" envconfig:"BROWSERD_ACTION_TIMEOUT"`

	// NavTimeout is the default driver timeout for navigation.
	NavTimeout Duration `yaml:"navigation_timeout" envconfig:"BROWSERD_NAVIGATION_TIMEOUT"`

	// DefaultHeadless applies when a visit request states no headless
	// preference. Constrained environments force headless regardless.
	DefaultHeadless bool `yaml:"default_headless" envconfig:"BROWSERD_DEFAULT_HEADLESS"`

	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level" envconfig:"BROWSERD_LOG_LEVEL"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:      ":8000",
		MaxSessions:     5,
		IdleTimeout:     Duration(5 * time.Minute),
		SweepInterval:   Duration(30 * time.Second),
		LockWait:        Duration(10 * time.Second),
		ActionTimeout:   Duration(5 * time.Second),
		NavTimeout:      Duration(30 * time.Second),
		DefaultHeadless: true,
		LogLevel:        "info",
	}
}

// Load builds the effective configuration. path may be empty, in which
// case only defaults and environment overrides apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := envconfig.Process("", &cfg); err != nil {
		return cfg, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}
	if c.MaxSessions <= 0 {
		return fmt.Errorf("max_sessions must be positive, got %d", c.MaxSessions)
	}
	for name, d := range map[string]Duration{
		"idle_timeout":       c.IdleTimeout,
		"sweep_interval":     c.SweepInterval,
		"lock_wait":          c.LockWait,
		"action_timeout":     c.ActionTimeout,
		"navigation_timeout": c.NavTimeout,
	} {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	return nil
}
