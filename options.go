package duolaunch

import (
	"fmt"
	"log/slog"
	"time"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive[T int | time.Duration](name string, v T) {
	if v <= 0 {
		panic(fmt.Sprintf("duolaunch: %s must be greater than 0, got %v", name, v))
	}
}

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("duolaunch: %s must not be empty", name))
	}
}

// Option configures a Session during construction via NewSession.
// Each With* function returns an Option that sets a specific field.
//
// Several With* functions panic on invalid input (empty paths, out-of-range
// ports, non-positive durations). Option values are normally constants or
// already-validated configuration, so an invalid value is a programmer
// error. Runtime problems (a missing binary, a busy port) are reported by
// Session.Start instead.
type Option func(*sessionConfig)

// WithServiceBinary sets the path of the service executable. Required.
//
// Panics if path is empty.
func WithServiceBinary(path string) Option {
	requireNonEmpty("service binary path", path)
	return func(c *sessionConfig) {
		c.serviceBinary = path
	}
}

// WithServiceArgs sets the arguments passed to the service, not including
// argv[0]. The slice is copied.
func WithServiceArgs(args ...string) Option {
	args = append([]string(nil), args...)
	return func(c *sessionConfig) {
		c.serviceArgs = args
	}
}

// WithServiceName sets the name the service logs under.
//
// Default: "torrserver".
//
// Panics if name is empty.
func WithServiceName(name string) Option {
	requireNonEmpty("service name", name)
	return func(c *sessionConfig) {
		c.serviceName = name
	}
}

// WithServiceDir sets the service working directory. An empty value means
// the directory containing the service binary.
func WithServiceDir(dir string) Option {
	return func(c *sessionConfig) {
		c.serviceDir = dir
	}
}

// WithServicePort sets the TCP port probed for service readiness.
//
// Default: 8090.
//
// Panics if port is outside 1..65535.
func WithServicePort(port int) Option {
	if port <= 0 || port > 65535 {
		panic(fmt.Sprintf("duolaunch: service port must be in 1..65535, got %d", port))
	}
	return func(c *sessionConfig) {
		c.servicePort = port
	}
}

// WithStartupTimeout sets how long the service may take to accept
// connections before Start fails with ErrServiceNotReady.
//
// Default: 30s.
//
// Panics if d <= 0.
func WithStartupTimeout(d time.Duration) Option {
	requirePositive("startup timeout", d)
	return func(c *sessionConfig) {
		c.startupTimeout = d
	}
}

// WithForegroundBinary sets the path of the foreground executable. Required.
//
// Panics if path is empty.
func WithForegroundBinary(path string) Option {
	requireNonEmpty("foreground binary path", path)
	return func(c *sessionConfig) {
		c.foregroundBinary = path
	}
}

// WithForegroundArgs sets the arguments passed to the foreground process.
// The slice is copied.
func WithForegroundArgs(args ...string) Option {
	args = append([]string(nil), args...)
	return func(c *sessionConfig) {
		c.foregroundArgs = args
	}
}

// WithForegroundName sets the name the foreground process logs under.
//
// Default: "lampa".
//
// Panics if name is empty.
func WithForegroundName(name string) Option {
	requireNonEmpty("foreground name", name)
	return func(c *sessionConfig) {
		c.foregroundName = name
	}
}

// WithForegroundDir sets the foreground working directory. An empty value
// means the directory containing the foreground binary.
func WithForegroundDir(dir string) Option {
	return func(c *sessionConfig) {
		c.foregroundDir = dir
	}
}

// WithGracePeriod sets how long each process gets between SIGTERM and
// SIGKILL during shutdown. It sets both per-process values; a later
// WithServiceGracePeriod or WithForegroundGracePeriod overrides one of them.
//
// Default: 5s.
//
// Panics if d <= 0.
func WithGracePeriod(d time.Duration) Option {
	requirePositive("grace period", d)
	return func(c *sessionConfig) {
		c.serviceGracePeriod = d
		c.foregroundGracePeriod = d
	}
}

// WithServiceGracePeriod sets the service's time between SIGTERM and SIGKILL.
//
// Default: 5s.
//
// Panics if d <= 0.
func WithServiceGracePeriod(d time.Duration) Option {
	requirePositive("service grace period", d)
	return func(c *sessionConfig) {
		c.serviceGracePeriod = d
	}
}

// WithForegroundGracePeriod sets the foreground's time between SIGTERM and
// SIGKILL.
//
// Default: 5s.
//
// Panics if d <= 0.
func WithForegroundGracePeriod(d time.Duration) Option {
	requirePositive("foreground grace period", d)
	return func(c *sessionConfig) {
		c.foregroundGracePeriod = d
	}
}

// WithShutdownBudget caps the total time Shutdown may take. When it runs
// out, remaining processes are killed even if their grace period has not
// elapsed.
//
// Default: 10s.
//
// Panics if d <= 0.
func WithShutdownBudget(d time.Duration) Option {
	requirePositive("shutdown budget", d)
	return func(c *sessionConfig) {
		c.shutdownBudget = d
	}
}

// WithProbeHost sets the host the readiness probe dials.
//
// Default: "127.0.0.1".
//
// Panics if host is empty.
func WithProbeHost(host string) Option {
	requireNonEmpty("probe host", host)
	return func(c *sessionConfig) {
		c.probeHost = host
	}
}

// WithProbeInterval sets the pause between readiness attempts.
//
// Default: 100ms.
//
// Panics if d <= 0.
func WithProbeInterval(d time.Duration) Option {
	requirePositive("probe interval", d)
	return func(c *sessionConfig) {
		c.probeInterval = d
	}
}

// WithProbeDialTimeout bounds a single readiness connection attempt.
//
// Default: 200ms.
//
// Panics if d <= 0.
func WithProbeDialTimeout(d time.Duration) Option {
	requirePositive("probe dial timeout", d)
	return func(c *sessionConfig) {
		c.probeDialTimeout = d
	}
}

// WithLogger sets the logger used by the session and both processes.
// A nil logger means slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *sessionConfig) {
		c.logger = l
	}
}
