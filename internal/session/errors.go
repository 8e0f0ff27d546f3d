package session

import "github.com/giantswarm/duolaunch/internal/sentinel"

// Startup failures. Each wraps the underlying cause, so errors.Is also
// matches process.ErrSpawn, probe.ErrReadinessTimeout, or
// probe.ErrProcessExited as appropriate.
const (
	// ErrServiceStartup means the service process could not be spawned.
	ErrServiceStartup = sentinel.Error("service startup failed")

	// ErrServiceNotReady means the service was spawned but never accepted
	// connections on its port. It is distinct from ErrServiceStartup.
	ErrServiceNotReady = sentinel.Error("service not ready")

	// ErrForegroundStartup means the foreground process could not be spawned
	// after the service became ready.
	ErrForegroundStartup = sentinel.Error("foreground startup failed")
)

// ErrShutdownEscalation marks a stop that needed SIGKILL because the grace
// period or the shutdown budget ran out. It is reported, never returned.
const ErrShutdownEscalation = sentinel.Error("graceful stop timed out; process killed")

// ErrAlreadyStarted is returned by Start on a session that was started before.
const ErrAlreadyStarted = sentinel.Error("session already started")

// ErrInterrupted is returned by Start when ctx was canceled before the
// service became ready. It is an interrupt, not a startup failure, so it
// does not wrap ErrServiceNotReady. Run turns it into Result.Interrupted.
const ErrInterrupted = sentinel.Error("startup interrupted")
