package process

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"time"
)

// Role tells the orchestrator what to wait on for a process: readiness of
// its TCP port (RoleService) or its exit (RoleForeground).
type Role int

const (
	// RoleService is a background process that must accept TCP connections
	// on Spec.Port before the session can proceed.
	RoleService Role = iota + 1

	// RoleForeground is the interactive process whose exit ends the session.
	RoleForeground
)

// IsValid reports whether r is a recognized Role value.
func (r Role) IsValid() bool {
	switch r {
	case RoleService, RoleForeground:
		return true
	default:
		return false
	}
}

// String returns the lower-case role name used in log attributes.
func (r Role) String() string {
	switch r {
	case RoleService:
		return "service"
	case RoleForeground:
		return "foreground"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// Spec describes how to launch one process. It is built once from resolved
// configuration and treated as immutable; NewHandle keeps its own copy of
// Args.
type Spec struct {
	// Name identifies the process in logs and errors (e.g. "torrserver").
	Name string
	// Path is the executable to run.
	Path string
	// Args are passed to the executable, not including argv[0].
	Args []string
	// Dir is the working directory. Empty means the executable's parent.
	Dir string
	// Role selects readiness probing (service) or exit waiting (foreground).
	Role Role

	// Port is the TCP port probed for readiness. Service only.
	Port int
	// StartupTimeout bounds readiness probing. Service only.
	StartupTimeout time.Duration

	// GracePeriod is how long Stop waits after SIGTERM before SIGKILL.
	GracePeriod time.Duration
}

// WorkDir returns the directory the process is started in.
func (s Spec) WorkDir() string {
	if s.Dir != "" {
		return s.Dir
	}
	return filepath.Dir(s.Path)
}

// Validate checks the Spec and reports every problem at once.
func (s Spec) Validate() error {
	var errs []error

	if s.Name == "" {
		errs = append(errs, errors.New("name must not be empty"))
	}
	if s.Path == "" {
		errs = append(errs, errors.New("executable path must not be empty"))
	}
	if !s.Role.IsValid() {
		errs = append(errs, fmt.Errorf("invalid role: %v", s.Role))
	}
	if s.Role == RoleService {
		if s.Port <= 0 || s.Port > 65535 {
			errs = append(errs, fmt.Errorf("service port must be in 1..65535, got %d", s.Port))
		}
		if s.StartupTimeout <= 0 {
			errs = append(errs, fmt.Errorf("startup timeout must be greater than 0, got %s", s.StartupTimeout))
		}
	}
	if s.GracePeriod <= 0 {
		errs = append(errs, fmt.Errorf("grace period must be greater than 0, got %s", s.GracePeriod))
	}

	return errors.Join(errs...)
}

// clone returns a copy of s that shares no memory with it.
func (s Spec) clone() Spec {
	s.Args = slices.Clone(s.Args)
	return s
}
