package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Accepted logging values.
var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"text", "json"}
)

// Validate checks c for structural correctness and reports every problem at
// once. The returned error wraps ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error

	errs = append(errs, c.validateService()...)
	errs = append(errs, c.validateForeground()...)

	if c.Service.Name != "" && c.Service.Name == c.Foreground.Name {
		errs = append(errs, fmt.Errorf("service.name and foreground.name must differ, both are %q", c.Service.Name))
	}
	if c.Shutdown.GracePeriodSeconds <= 0 {
		errs = append(errs, fmt.Errorf("shutdown.grace_period_seconds must be positive, got %d", c.Shutdown.GracePeriodSeconds))
	}
	if c.Shutdown.BudgetSeconds <= 0 {
		errs = append(errs, fmt.Errorf("shutdown.budget_seconds must be positive, got %d", c.Shutdown.BudgetSeconds))
	}
	if c.Probe.Host == "" {
		errs = append(errs, errors.New("probe.host must not be empty"))
	}
	if c.Probe.IntervalMS <= 0 {
		errs = append(errs, fmt.Errorf("probe.interval_ms must be positive, got %d", c.Probe.IntervalMS))
	}
	if c.Probe.DialTimeoutMS <= 0 {
		errs = append(errs, fmt.Errorf("probe.dial_timeout_ms must be positive, got %d", c.Probe.DialTimeoutMS))
	}

	errs = append(errs, c.validateLogging()...)

	if c.LockFile == "" {
		errs = append(errs, errors.New("lock_file must not be empty"))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) validateService() []error {
	var errs []error
	s := c.Service
	if s.Name == "" {
		errs = append(errs, errors.New("service.name must not be empty"))
	}
	if s.Path == "" {
		errs = append(errs, errors.New("service.path must not be empty"))
	}
	if s.Port <= 0 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("service.port must be in 1..65535, got %d", s.Port))
	}
	if s.StartupTimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("service.startup_timeout_seconds must be positive, got %d", s.StartupTimeoutSeconds))
	}
	if s.GracePeriodSeconds < 0 {
		errs = append(errs, fmt.Errorf("service.grace_period_seconds must not be negative, got %d", s.GracePeriodSeconds))
	}
	return errs
}

func (c *Config) validateForeground() []error {
	var errs []error
	if c.Foreground.Name == "" {
		errs = append(errs, errors.New("foreground.name must not be empty"))
	}
	if c.Foreground.Path == "" {
		errs = append(errs, errors.New("foreground.path must not be empty"))
	}
	if c.Foreground.GracePeriodSeconds < 0 {
		errs = append(errs, fmt.Errorf("foreground.grace_period_seconds must not be negative, got %d", c.Foreground.GracePeriodSeconds))
	}
	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error
	l := c.Logging
	if !slices.Contains(validLevels, strings.ToLower(l.Level)) {
		errs = append(errs, fmt.Errorf("logging.level must be one of %s, got %q", strings.Join(validLevels, "|"), l.Level))
	}
	if !slices.Contains(validFormats, strings.ToLower(l.Format)) {
		errs = append(errs, fmt.Errorf("logging.format must be one of %s, got %q", strings.Join(validFormats, "|"), l.Format))
	}
	if l.File != "" && l.MaxSizeMB <= 0 {
		errs = append(errs, fmt.Errorf("logging.max_size_mb must be positive when logging.file is set, got %d", l.MaxSizeMB))
	}
	return errs
}
