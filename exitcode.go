package duolaunch

import "errors"

// Launcher exit codes returned by ExitCode.
const (
	// ExitOK is a normal completion, including an interrupted session.
	ExitOK = 0
	// ExitFailure is any error not covered by a more specific code.
	ExitFailure = 1
	// ExitConfig is a configuration, environment, or session lock problem.
	ExitConfig = 2
	// ExitStartup is a failure to spawn a process or to see the service
	// become ready.
	ExitStartup = 3
)

// ExitCode maps an error returned by the launcher to a process exit code, so
// upstream restart logic can tell configuration problems from startup races.
func ExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, ErrInterrupted):
		return ExitOK
	case errors.Is(err, ErrInvalidConfig),
		errors.Is(err, ErrEnvironment),
		errors.Is(err, ErrLocked):
		return ExitConfig
	case errors.Is(err, ErrServiceStartup),
		errors.Is(err, ErrServiceNotReady),
		errors.Is(err, ErrForegroundStartup):
		return ExitStartup
	default:
		return ExitFailure
	}
}
