package duolaunch

import "time"

// Default configuration values for NewSession.
// These constants are exported so callers can build custom values relative
// to them (e.g., 2 * DefaultGracePeriod).
const (
	// DefaultServiceName is the name the service process logs under.
	DefaultServiceName = "torrserver"

	// DefaultForegroundName is the name the foreground process logs under.
	DefaultForegroundName = "lampa"

	// DefaultServicePort is the TCP port probed for service readiness.
	DefaultServicePort = 8090

	// DefaultStartupTimeout is how long the service may take to accept
	// connections on its port before startup fails.
	DefaultStartupTimeout = 30 * time.Second

	// DefaultGracePeriod is how long each process gets between SIGTERM and
	// SIGKILL during shutdown.
	DefaultGracePeriod = 5 * time.Second

	// DefaultShutdownBudget caps the whole shutdown. Processes still alive
	// when it runs out are killed regardless of their grace period.
	DefaultShutdownBudget = 10 * time.Second

	// DefaultProbeHost is the host dialed by the readiness probe.
	DefaultProbeHost = "127.0.0.1"

	// DefaultProbeInterval is the pause between readiness attempts.
	DefaultProbeInterval = 100 * time.Millisecond

	// DefaultProbeDialTimeout bounds a single readiness connection attempt.
	DefaultProbeDialTimeout = 200 * time.Millisecond
)
