package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/giantswarm/duolaunch/internal/process"
)

// Resolved is a validated configuration in the form the launcher consumes:
// absolute-or-anchored paths, substituted arguments, and durations.
type Resolved struct {
	Service    process.Spec
	Foreground process.Spec

	ProbeHost        string
	ProbeInterval    time.Duration
	ProbeDialTimeout time.Duration
	ShutdownBudget   time.Duration

	LockFile  string
	HistoryDB string // empty when history is disabled
	LogFile   string // empty when file logging is disabled
}

// Resolve converts c into process specs and timings. Call Validate first;
// Resolve does not re-check values.
func (c *Config) Resolve() Resolved {
	port := strconv.Itoa(c.Service.Port)

	args := make([]string, len(c.Service.Args))
	for i, a := range c.Service.Args {
		args[i] = strings.ReplaceAll(a, PortPlaceholder, port)
	}

	return Resolved{
		Service: process.Spec{
			Name:           c.Service.Name,
			Path:           c.resolvePath(c.Service.Path),
			Args:           args,
			Dir:            c.resolvePath(c.Service.Dir),
			Role:           process.RoleService,
			Port:           c.Service.Port,
			StartupTimeout: time.Duration(c.Service.StartupTimeoutSeconds) * time.Second,
			GracePeriod:    c.gracePeriod(c.Service.GracePeriodSeconds),
		},
		Foreground: process.Spec{
			Name:        c.Foreground.Name,
			Path:        c.resolvePath(c.Foreground.Path),
			Args:        append([]string(nil), c.Foreground.Args...),
			Dir:         c.resolvePath(c.Foreground.Dir),
			Role:        process.RoleForeground,
			GracePeriod: c.gracePeriod(c.Foreground.GracePeriodSeconds),
		},
		ProbeHost:        c.Probe.Host,
		ProbeInterval:    time.Duration(c.Probe.IntervalMS) * time.Millisecond,
		ProbeDialTimeout: time.Duration(c.Probe.DialTimeoutMS) * time.Millisecond,
		ShutdownBudget:   time.Duration(c.Shutdown.BudgetSeconds) * time.Second,
		LockFile:         c.resolvePath(c.LockFile),
		HistoryDB:        c.resolvePath(c.HistoryDB),
		LogFile:          c.resolvePath(c.Logging.File),
	}
}

// gracePeriod returns a per-process grace period, falling back to the
// shared shutdown value when seconds is zero.
func (c *Config) gracePeriod(seconds int) time.Duration {
	if seconds == 0 {
		seconds = c.Shutdown.GracePeriodSeconds
	}
	return time.Duration(seconds) * time.Second
}
