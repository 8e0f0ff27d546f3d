package duolaunch

import (
	"log/slog"
	"time"

	"github.com/giantswarm/duolaunch/internal/process"
	"github.com/giantswarm/duolaunch/internal/session"
)

// sessionConfig collects option values for NewSession. It stays unexported
// so internal/process and internal/session types never leak into the
// option signatures.
type sessionConfig struct {
	serviceName    string
	serviceBinary  string
	serviceArgs    []string
	serviceDir     string
	servicePort    int
	startupTimeout time.Duration

	foregroundName   string
	foregroundBinary string
	foregroundArgs   []string
	foregroundDir    string

	serviceGracePeriod    time.Duration
	foregroundGracePeriod time.Duration
	shutdownBudget        time.Duration

	probeHost        string
	probeInterval    time.Duration
	probeDialTimeout time.Duration

	logger *slog.Logger
}

// defaultSessionConfig returns a sessionConfig populated with all default
// values. Binaries have no default and must be set with options.
func defaultSessionConfig() sessionConfig {
	return sessionConfig{
		serviceName:           DefaultServiceName,
		servicePort:           DefaultServicePort,
		startupTimeout:        DefaultStartupTimeout,
		foregroundName:        DefaultForegroundName,
		serviceGracePeriod:    DefaultGracePeriod,
		foregroundGracePeriod: DefaultGracePeriod,
		shutdownBudget:        DefaultShutdownBudget,
		probeHost:             DefaultProbeHost,
		probeInterval:         DefaultProbeInterval,
		probeDialTimeout:      DefaultProbeDialTimeout,
	}
}

// toSessionConfig converts the collected options into the session package's
// configuration. Args slices are copied so later caller mutation has no
// effect on the specs.
func (c sessionConfig) toSessionConfig() session.Config {
	return session.Config{
		Service: process.Spec{
			Name:           c.serviceName,
			Path:           c.serviceBinary,
			Args:           append([]string(nil), c.serviceArgs...),
			Dir:            c.serviceDir,
			Role:           process.RoleService,
			Port:           c.servicePort,
			StartupTimeout: c.startupTimeout,
			GracePeriod:    c.serviceGracePeriod,
		},
		Foreground: process.Spec{
			Name:        c.foregroundName,
			Path:        c.foregroundBinary,
			Args:        append([]string(nil), c.foregroundArgs...),
			Dir:         c.foregroundDir,
			Role:        process.RoleForeground,
			GracePeriod: c.foregroundGracePeriod,
		},
		ProbeHost:        c.probeHost,
		ProbeInterval:    c.probeInterval,
		ProbeDialTimeout: c.probeDialTimeout,
		ShutdownBudget:   c.shutdownBudget,
		Logger:           c.logger,
	}
}
