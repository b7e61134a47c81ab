// Package config loads the YAML configuration for Naina and applies
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Session checkpoint backends.
const (
	SessionBackendJSON   = "json"
	SessionBackendSQLite = "sqlite"
	SessionBackendNone   = "none"
)

// Config is the full runtime configuration.
type Config struct {
	Sessions       SessionsConfig  `yaml:"sessions"`
	Provider       ProviderConfig  `yaml:"provider"`
	Signal         SignalConfig    `yaml:"signal"`
	Log            LogConfig       `yaml:"log"`
	KeepAlive      KeepAliveConfig `yaml:"keepalive"`
	StateDir       string          `yaml:"state_dir"`
	ModerationFile string          `yaml:"moderation_file"`
	Approver       string          `yaml:"approver"`
	PersonasDir    string          `yaml:"personas_dir"`
	Admins         []string        `yaml:"admins"`
	Dispatch       DispatchConfig  `yaml:"dispatch"`
}

// SessionsConfig controls transcript checkpoints.
type SessionsConfig struct {
	Backend            string `yaml:"backend"`
	File               string `yaml:"file"`
	CheckpointInterval string `yaml:"checkpoint_interval"`
}

// ProviderConfig configures the generation backends.
type ProviderConfig struct {
	Model        string `yaml:"model"`
	Timeout      string `yaml:"timeout"`
	PrimaryKey   string `yaml:"primary_key"`
	SecondaryKey string `yaml:"secondary_key"`
}

// SignalConfig configures the signal-cli transport.
type SignalConfig struct {
	Socket  string `yaml:"socket"`
	Account string `yaml:"account"`
}

// DispatchConfig bounds concurrent handling.
type DispatchConfig struct {
	RatePeriod   string `yaml:"rate_period"`
	MaxInFlight  int    `yaml:"max_in_flight"`
	RateCapacity int    `yaml:"rate_capacity"`
	RateRefill   int    `yaml:"rate_refill"`
}

// KeepAliveConfig configures the heartbeat to the approver.
type KeepAliveConfig struct {
	Interval string `yaml:"interval"`
	Enabled  bool   `yaml:"enabled"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		StateDir:       "state",
		ModerationFile: "admin_data.json",
		Sessions: SessionsConfig{
			Backend:            SessionBackendJSON,
			File:               "sessions.json",
			CheckpointInterval: "2m",
		},
		Provider: ProviderConfig{
			Model:   "gemini-2.5-flash",
			Timeout: "60s",
		},
		Signal: SignalConfig{
			Socket: "/var/run/signal-cli/socket",
		},
		Dispatch: DispatchConfig{
			MaxInFlight:  8,
			RateCapacity: 5,
			RateRefill:   1,
			RatePeriod:   "3s",
		},
		KeepAlive: KeepAliveConfig{
			Enabled:  true,
			Interval: "10m",
		},
		Log: LogConfig{
			Level: "info",
			JSON:  true,
		},
	}
}

// Load reads path, falling back to defaults when it does not exist, then
// applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path) // #nosec G304 - path is a CLI flag
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Provider.PrimaryKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY_BACKUP"); key != "" {
		c.Provider.SecondaryKey = key
	}
	if approver := os.Getenv("NAINA_APPROVER"); approver != "" {
		c.Approver = approver
	}
	if dir := os.Getenv("NAINA_STATE_DIR"); dir != "" {
		c.StateDir = dir
	}
	if account := os.Getenv("SIGNAL_ACCOUNT"); account != "" {
		c.Signal.Account = account
	}
	if debug := os.Getenv("NAINA_DEBUG"); debug == "1" || strings.EqualFold(debug, "true") {
		c.Log.Level = "debug"
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	var errs []error

	switch c.Sessions.Backend {
	case SessionBackendJSON, SessionBackendSQLite, SessionBackendNone:
	default:
		errs = append(errs, fmt.Errorf("unknown session backend %q", c.Sessions.Backend))
	}

	for name, value := range map[string]string{
		"sessions.checkpoint_interval": c.Sessions.CheckpointInterval,
		"provider.timeout":             c.Provider.Timeout,
		"dispatch.rate_period":         c.Dispatch.RatePeriod,
		"keepalive.interval":           c.KeepAlive.Interval,
	} {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %w", name, err))
		} else if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}

	if c.Dispatch.MaxInFlight < 0 || c.Dispatch.RateCapacity < 0 || c.Dispatch.RateRefill < 0 {
		errs = append(errs, errors.New("dispatch limits must not be negative"))
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("unknown log level %q", c.Log.Level))
	}

	return errors.Join(errs...)
}

// duration parses value, returning fallback when it is empty or invalid.
func duration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// CheckpointInterval returns the session checkpoint period.
func (c *Config) CheckpointInterval() time.Duration {
	return duration(c.Sessions.CheckpointInterval, 2*time.Minute)
}

// ProviderTimeout returns the per-attempt provider timeout.
func (c *Config) ProviderTimeout() time.Duration {
	return duration(c.Provider.Timeout, 60*time.Second)
}

// RatePeriod returns the token refill period.
func (c *Config) RatePeriod() time.Duration {
	return duration(c.Dispatch.RatePeriod, 3*time.Second)
}

// KeepAliveInterval returns the heartbeat period.
func (c *Config) KeepAliveInterval() time.Duration {
	return duration(c.KeepAlive.Interval, 10*time.Minute)
}

// ModerationPath returns the moderation document location.
func (c *Config) ModerationPath() string {
	return c.resolve(c.ModerationFile)
}

// SessionsPath returns the session checkpoint location.
func (c *Config) SessionsPath() string {
	return c.resolve(c.Sessions.File)
}

func (c *Config) resolve(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.StateDir, name)
}
