package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"k8s.io/apimachinery/pkg/util/wait"
)

// Sentinel errors returned by Poll for invalid configuration and process
// lifecycle conditions. Callers can match these with errors.Is through
// wrapped error chains.
var (
	// ErrIntervalNotPositive indicates a non-positive poll interval.
	ErrIntervalNotPositive = errors.New("interval must be positive")

	// ErrTimeoutNotPositive indicates a non-positive timeout.
	ErrTimeoutNotPositive = errors.New("timeout must be positive")

	// ErrProcessExited indicates the process exited before becoming ready.
	ErrProcessExited = errors.New("process exited before becoming ready")

	// ErrReadinessTimeout indicates the overall deadline elapsed before the
	// check reported ready. The probed process may still be running.
	ErrReadinessTimeout = errors.New("readiness timeout")
)

// Check reports whether the probed target is ready.
// The context is canceled when the polling loop times out or the caller
// cancels, so checks doing I/O can exit promptly.
// The attempt parameter is 1-based (first call receives attempt=1).
// It returns true when ready, false to continue polling.
// The error return is for fatal errors that should abort polling.
type Check func(ctx context.Context, attempt int) (ready bool, err error)

// PollConfig configures Poll.
type PollConfig struct {
	Interval      time.Duration   // Pause between failed attempts
	Timeout       time.Duration   // Overall deadline
	Name          string          // For logging (e.g., "torrserver")
	Target        string          // What is probed, for logging and errors (e.g., "127.0.0.1:8090")
	Logger        *slog.Logger    // Optional logger (defaults to slog.Default())
	ProcessExited <-chan struct{} // If non-nil, abort immediately when closed (process died)
}

// Poll calls check until it returns true, returns an error, or the timeout
// elapses. The first attempt runs immediately; after that attempts are
// spaced by Interval. A timeout yields an error wrapping ErrReadinessTimeout.
// Cancellation of ctx by the caller yields ctx.Err() instead.
func Poll(ctx context.Context, cfg PollConfig, check Check) error {
	if cfg.Name == "" {
		return errors.New("poll: name must not be empty")
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("poll %s: %w", cfg.Name, ErrIntervalNotPositive)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("poll %s: %w", cfg.Name, ErrTimeoutNotPositive)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	began := time.Now()

	// PollUntilContextTimeout invokes the condition sequentially, so attempt
	// needs no synchronization.
	attempt := 0
	err := wait.PollUntilContextTimeout(ctx, cfg.Interval, cfg.Timeout, true,
		func(pollCtx context.Context) (bool, error) {
			// A process that died (e.g. port bind failure) will never
			// become ready.
			if cfg.ProcessExited != nil {
				select {
				case <-cfg.ProcessExited:
					return false, fmt.Errorf("process %s: %w", cfg.Name, ErrProcessExited)
				default:
				}
			}

			attempt++
			ready, err := check(pollCtx, attempt)
			if err != nil {
				return false, err
			}
			if ready {
				log.Debug("probe succeeded", "name", cfg.Name, "target", cfg.Target,
					"attempt", attempt, "elapsed", time.Since(began))
			}
			return ready, nil
		})

	switch {
	case err == nil:
		return nil
	case wait.Interrupted(err) && ctx.Err() == nil:
		return fmt.Errorf("%s not ready on %s after %s (%d attempts): %w",
			cfg.Name, cfg.Target, cfg.Timeout, attempt, ErrReadinessTimeout)
	case ctx.Err() != nil:
		return fmt.Errorf("poll %s: %w", cfg.Name, ctx.Err())
	default:
		return fmt.Errorf("poll %s on %s: %w", cfg.Name, cfg.Target, err)
	}
}
