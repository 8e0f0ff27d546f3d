package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/giantswarm/duolaunch/internal/sentinel"
)

// ErrInvalidConfig wraps every configuration problem: a missing or
// unreadable file, a parse error, a bad environment override, or a value
// that fails validation.
const ErrInvalidConfig = sentinel.Error("invalid configuration")

// DefaultPath is the configuration file used when none is given.
const DefaultPath = "launcher.yaml"

// PortPlaceholder is replaced by the service port in service arguments.
const PortPlaceholder = "{port}"

// Environment variables that override the file.
const (
	EnvServicePath    = "DUOLAUNCH_SERVICE_PATH"
	EnvServicePort    = "DUOLAUNCH_SERVICE_PORT"
	EnvForegroundPath = "DUOLAUNCH_FOREGROUND_PATH"
	EnvLogLevel       = "DUOLAUNCH_LOG_LEVEL"
)

// Config is the launcher configuration as read from YAML.
type Config struct {
	Service    ServiceConfig    `yaml:"service"`
	Foreground ForegroundConfig `yaml:"foreground"`
	Shutdown   ShutdownConfig   `yaml:"shutdown"`
	Probe      ProbeConfig      `yaml:"probe"`
	Logging    LoggingConfig    `yaml:"logging"`

	// LockFile guards against two launchers in the same directory.
	LockFile string `yaml:"lock_file"`
	// HistoryDB is the SQLite session history. Empty disables history.
	HistoryDB string `yaml:"history_db"`

	// baseDir anchors relative paths. Set by Load; empty means the
	// current working directory.
	baseDir string
}

// ServiceConfig describes the background service (TorrServer).
type ServiceConfig struct {
	Name                  string   `yaml:"name"`
	Path                  string   `yaml:"path"`
	Args                  []string `yaml:"args"`
	Dir                   string   `yaml:"dir"`
	Port                  int      `yaml:"port"`
	StartupTimeoutSeconds int      `yaml:"startup_timeout_seconds"`

	// GracePeriodSeconds overrides shutdown.grace_period_seconds for the
	// service. Zero means the shared value.
	GracePeriodSeconds int `yaml:"grace_period_seconds"`
}

// ForegroundConfig describes the interactive application (Lampa).
type ForegroundConfig struct {
	Name string   `yaml:"name"`
	Path string   `yaml:"path"`
	Args []string `yaml:"args"`
	Dir  string   `yaml:"dir"`

	// GracePeriodSeconds overrides shutdown.grace_period_seconds for the
	// foreground. Zero means the shared value.
	GracePeriodSeconds int `yaml:"grace_period_seconds"`
}

// ShutdownConfig holds shutdown timings. GracePeriodSeconds applies to any
// process that does not set its own.
type ShutdownConfig struct {
	GracePeriodSeconds int `yaml:"grace_period_seconds"`
	BudgetSeconds      int `yaml:"budget_seconds"`
}

// ProbeConfig tunes service readiness probing.
type ProbeConfig struct {
	Host          string `yaml:"host"`
	IntervalMS    int    `yaml:"interval_ms"`
	DialTimeoutMS int    `yaml:"dial_timeout_ms"`
}

// LoggingConfig selects the log sink.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	File      string `yaml:"file"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

// Defaults returns the configuration used for every key the file omits.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:                  "torrserver",
			Path:                  "./torrserver/torrserver",
			Args:                  []string{"--port", PortPlaceholder},
			Port:                  8090,
			StartupTimeoutSeconds: 30,
		},
		Foreground: ForegroundConfig{
			Name: "lampa",
			Path: "./lampa/lampa",
		},
		Shutdown: ShutdownConfig{
			GracePeriodSeconds: 5,
			BudgetSeconds:      10,
		},
		Probe: ProbeConfig{
			Host:          "127.0.0.1",
			IntervalMS:    100,
			DialTimeoutMS: 200,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			File:      "launcher.log",
			MaxSizeMB: 1,
		},
		LockFile: ".duolaunch.lock",
	}
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides, and validates the result. The file is required. Unknown keys
// are rejected so typos do not silently fall back to defaults.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: configuration file not found: %s", ErrInvalidConfig, path)
		}
		return nil, fmt.Errorf("%w: read %s: %w", ErrInvalidConfig, path, err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve config path: %w", ErrInvalidConfig, err)
	}
	cfg.baseDir = filepath.Dir(absPath)

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrInvalidConfig, path, err)
	}

	if err := ApplyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnvOverrides maps DUOLAUNCH_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(EnvServicePath); v != "" {
		cfg.Service.Path = v
	}
	if v := os.Getenv(EnvServicePort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, EnvServicePort, v)
		}
		cfg.Service.Port = port
	}
	if v := os.Getenv(EnvForegroundPath); v != "" {
		cfg.Foreground.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

// BaseDir returns the directory relative paths are resolved against.
func (c *Config) BaseDir() string {
	return c.baseDir
}

// resolvePath anchors a relative path at the config directory.
func (c *Config) resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || c.baseDir == "" {
		return p
	}
	return filepath.Join(c.baseDir, p)
}
