package duolaunch

import (
	"github.com/giantswarm/duolaunch/internal/config"
	"github.com/giantswarm/duolaunch/internal/envcheck"
	"github.com/giantswarm/duolaunch/internal/lock"
	"github.com/giantswarm/duolaunch/internal/probe"
	"github.com/giantswarm/duolaunch/internal/process"
	"github.com/giantswarm/duolaunch/internal/session"
)

// Sentinel errors for error inspection with errors.Is.
// These are immutable constants safe for use in wrapped error chain comparison.
const (
	// ErrServiceStartup is returned by Start when the service process could
	// not be spawned. The chain also matches ErrSpawn.
	ErrServiceStartup = session.ErrServiceStartup

	// ErrServiceNotReady is returned by Start when the service was spawned
	// but never accepted connections. The chain also matches either
	// ErrReadinessTimeout or ErrProcessExited.
	ErrServiceNotReady = session.ErrServiceNotReady

	// ErrForegroundStartup is returned by Start when the foreground process
	// could not be spawned after the service became ready.
	ErrForegroundStartup = session.ErrForegroundStartup

	// ErrInterrupted is returned by Start when its context was canceled
	// before the service became ready. Run reports it as an interrupted
	// Result instead, and ExitCode maps it to ExitOK.
	ErrInterrupted = session.ErrInterrupted

	// ErrAlreadyStarted is returned by Start on a session started before.
	ErrAlreadyStarted = session.ErrAlreadyStarted

	// ErrShutdownEscalation marks a process that had to be killed during
	// shutdown. It appears in StopReport.Escalation, never as a return value.
	ErrShutdownEscalation = session.ErrShutdownEscalation

	// ErrSpawn means the operating system could not create a process.
	ErrSpawn = process.ErrSpawn

	// ErrInvalidConfig wraps every configuration problem.
	ErrInvalidConfig = config.ErrInvalidConfig

	// ErrEnvironment wraps every failed pre-start environment check.
	ErrEnvironment = envcheck.ErrEnvironment

	// ErrLocked is returned when another launcher holds the session lock.
	ErrLocked = lock.ErrLocked
)

// Readiness errors. These are variables because the probe package creates
// them with errors.New; compare with errors.Is only.
var (
	// ErrReadinessTimeout means the service port stayed closed for the whole
	// startup timeout.
	ErrReadinessTimeout = probe.ErrReadinessTimeout

	// ErrProcessExited means the service exited while readiness was probed.
	ErrProcessExited = probe.ErrProcessExited
)
