package probe

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/giantswarm/duolaunch/internal/netutil"
)

// Defaults applied by WaitUntilReady when the corresponding Config field is zero.
const (
	DefaultHost        = "127.0.0.1"
	DefaultInterval    = 100 * time.Millisecond
	DefaultDialTimeout = 200 * time.Millisecond
)

// Config configures WaitUntilReady.
type Config struct {
	Name string // process name, for logs and errors
	Host string // defaults to DefaultHost
	Port int

	// Timeout is the overall readiness deadline.
	Timeout time.Duration
	// Interval is the pause between failed attempts.
	Interval time.Duration
	// DialTimeout bounds each individual connection attempt so a hung
	// attempt cannot consume the overall deadline unnoticed.
	DialTimeout time.Duration

	Logger        *slog.Logger
	ProcessExited <-chan struct{}
}

// WaitUntilReady repeatedly attempts a TCP connection to Host:Port until one
// succeeds or Timeout elapses. It fails with an error wrapping
// ErrReadinessTimeout when the port never opens and ErrProcessExited when
// ProcessExited closes first.
func WaitUntilReady(ctx context.Context, cfg Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("probe %s: port must be in 1..65535, got %d", cfg.Name, cfg.Port)
	}
	host := cfg.Host
	if host == "" {
		host = DefaultHost
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = DefaultInterval
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = DefaultDialTimeout
	}
	if dialTimeout < 0 {
		return fmt.Errorf("probe %s: dial timeout must be positive, got %s", cfg.Name, dialTimeout)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	target := netutil.Addr(host, cfg.Port)
	log.Info("waiting for service readiness", "name", cfg.Name, "target", target, "timeout", cfg.Timeout)

	return Poll(ctx, PollConfig{
		Interval:      interval,
		Timeout:       cfg.Timeout,
		Name:          cfg.Name,
		Target:        target,
		Logger:        log,
		ProcessExited: cfg.ProcessExited,
	}, func(pollCtx context.Context, _ int) (bool, error) {
		return netutil.PortOpen(pollCtx, host, cfg.Port, dialTimeout), nil
	})
}
