package process

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/giantswarm/duolaunch/internal/sentinel"
)

// ErrKillUnconfirmed is returned by Stop when SIGKILL was sent but the
// process was not reaped within killConfirmTimeout.
const ErrKillUnconfirmed = sentinel.Error("process did not exit after SIGKILL")

// DefaultGracePeriod is the grace period used by Close when it has to stop
// a process that the owner forgot to stop.
const DefaultGracePeriod = 5 * time.Second

// killConfirmTimeout is the hard upper bound for waiting on the exit signal
// after SIGKILL has been sent (or after the process has already exited).
// SIGKILL cannot be caught, so the process should be reaped almost
// immediately; the bound only guards against a Wait stuck in the kernel.
const killConfirmTimeout = 10 * time.Second

// StopOutcome records how Stop ended a process.
type StopOutcome int

const (
	// StopNoop means the process was not alive, so nothing was sent.
	StopNoop StopOutcome = iota
	// StopGraceful means the process exited within its grace period after SIGTERM.
	StopGraceful
	// StopForced means the grace period (or the caller's context) ran out
	// and the process was killed with SIGKILL.
	StopForced
)

// String returns the outcome name used in log attributes.
func (o StopOutcome) String() string {
	switch o {
	case StopNoop:
		return "noop"
	case StopGraceful:
		return "graceful"
	case StopForced:
		return "forced"
	default:
		return fmt.Sprintf("StopOutcome(%d)", int(o))
	}
}

// awaitExit waits for exited to close, with timeout as a hard upper bound.
// Reports whether the process exited in time.
func awaitExit(exited <-chan struct{}, timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-exited:
		return true
	case <-t.C:
		return false
	}
}

// terminate runs the SIGTERM-then-SIGKILL sequence against proc. exited must
// be closed by the single goroutine that reaps proc.
//
// Shutdown flow:
//  1. Send SIGTERM. If the process is already gone, report StopNoop.
//  2. Wait for exit, the grace period, or ctx, whichever comes first.
//  3. On grace expiry or ctx done, send SIGKILL and wait up to
//     killConfirmTimeout for the reaper to observe the exit.
//
// Worst-case blocking is min(grace, ctx) + killConfirmTimeout.
func terminate(ctx context.Context, proc *os.Process, exited <-chan struct{}, grace time.Duration) (StopOutcome, error) {
	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			if !awaitExit(exited, killConfirmTimeout) {
				return StopNoop, fmt.Errorf("timed out reaping finished process: %w", ErrKillUnconfirmed)
			}
			return StopNoop, nil
		}
		// SIGTERM is unsupported on some platforms; go straight to kill.
		return forceKill(proc, exited)
	}

	graceTimer := time.NewTimer(grace)
	defer graceTimer.Stop()

	select {
	case <-exited:
		return StopGraceful, nil
	case <-graceTimer.C:
	case <-ctx.Done():
	}
	return forceKill(proc, exited)
}

// forceKill sends SIGKILL unless the process exited in the meantime.
func forceKill(proc *os.Process, exited <-chan struct{}) (StopOutcome, error) {
	select {
	case <-exited:
		// Exited between the grace timer firing and now.
		return StopGraceful, nil
	default:
	}

	// Kill after the reaper finished returns os.ErrProcessDone, which is harmless.
	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return StopForced, fmt.Errorf("kill pid %d: %w", proc.Pid, err)
	}
	if !awaitExit(exited, killConfirmTimeout) {
		return StopForced, fmt.Errorf("pid %d: %w", proc.Pid, ErrKillUnconfirmed)
	}
	return StopForced, nil
}

// expectSignalExit interprets an error from cmd.Wait after a termination
// signal was sent. Exits caused by SIGTERM or SIGKILL are what a stop asks
// for and are treated as clean.
func expectSignalExit(err error, name string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			sig := status.Signal()
			if sig == syscall.SIGTERM || sig == syscall.SIGKILL {
				return nil
			}
		}
	}
	return fmt.Errorf("%s: %w", name, err)
}
