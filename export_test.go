package duolaunch

import (
	"log/slog"
	"time"
)

// ConfigSnapshot holds a copy of sessionConfig fields for test assertions.
// Exported only via export_test.go so that the _test package can verify
// option closures actually mutate the config without accessing internals.
type ConfigSnapshot struct {
	ServiceName      string
	ServiceBinary    string
	ServiceArgs      []string
	ServiceDir       string
	ServicePort      int
	StartupTimeout   time.Duration
	ForegroundName   string
	ForegroundBinary string
	ForegroundArgs   []string
	ForegroundDir    string
	ShutdownBudget   time.Duration
	ProbeHost        string
	ProbeInterval    time.Duration
	ProbeDialTimeout time.Duration
	Logger           *slog.Logger

	ServiceGracePeriod    time.Duration
	ForegroundGracePeriod time.Duration
}

// ApplyOptionsForTesting creates a default sessionConfig, applies the given
// options, and returns a ConfigSnapshot of the result.
func ApplyOptionsForTesting(opts ...Option) ConfigSnapshot {
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	return ConfigSnapshot{
		ServiceName:      cfg.serviceName,
		ServiceBinary:    cfg.serviceBinary,
		ServiceArgs:      cfg.serviceArgs,
		ServiceDir:       cfg.serviceDir,
		ServicePort:      cfg.servicePort,
		StartupTimeout:   cfg.startupTimeout,
		ForegroundName:   cfg.foregroundName,
		ForegroundBinary: cfg.foregroundBinary,
		ForegroundArgs:   cfg.foregroundArgs,
		ForegroundDir:    cfg.foregroundDir,
		ShutdownBudget:   cfg.shutdownBudget,
		ProbeHost:        cfg.probeHost,
		ProbeInterval:    cfg.probeInterval,
		ProbeDialTimeout: cfg.probeDialTimeout,
		Logger:           cfg.logger,

		ServiceGracePeriod:    cfg.serviceGracePeriod,
		ForegroundGracePeriod: cfg.foregroundGracePeriod,
	}
}

// GracePeriodsForTesting returns the grace periods NewSession would hand to
// the service and foreground specs.
func GracePeriodsForTesting(opts ...Option) (service, foreground time.Duration) {
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	sc := cfg.toSessionConfig()
	return sc.Service.GracePeriod, sc.Foreground.GracePeriod
}

// SessionSpecsForTesting returns the service and foreground arguments that
// NewSession would hand to the process layer.
func SessionSpecsForTesting(opts ...Option) (serviceArgs, foregroundArgs []string) {
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	sc := cfg.toSessionConfig()
	return sc.Service.Args, sc.Foreground.Args
}
