package duolaunch

import (
	"context"

	"github.com/giantswarm/duolaunch/internal/session"
)

// Result describes how the foreground process ended. ExitCode is -1 when
// the foreground was killed by a signal or the wait was interrupted.
type Result = session.Result

// StopReport records what Shutdown did to one process.
type StopReport = session.StopReport

// Session runs one service/foreground pair.
//
// Callers must follow this lifecycle ordering:
//
//	NewSession → Start → Wait → Shutdown
//
// Run combines Start and Wait. Shutdown must be called on every path,
// including after a failed Start, because processes started before the
// failure keep running until then.
type Session interface {
	// Start spawns the service, waits until its port accepts connections,
	// then spawns the foreground. It returns once the foreground runs.
	//
	// Returns an error wrapping ErrServiceStartup, ErrServiceNotReady, or
	// ErrForegroundStartup. A second call returns ErrAlreadyStarted.
	Start(ctx context.Context) error

	// Wait blocks until the foreground exits. Canceling ctx ends the wait
	// with Result.Interrupted set and a nil error.
	Wait(ctx context.Context) (Result, error)

	// Run is Start followed by Wait.
	Run(ctx context.Context) (Result, error)

	// Shutdown stops both processes concurrently, SIGTERM first and SIGKILL
	// after the grace period, all within the shutdown budget. Processes
	// never started or already exited are skipped. Safe to call more than
	// once; later calls return the first call's reports.
	Shutdown() []StopReport
}
