package envcheck

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/duolaunch/internal/fileutil"
	"github.com/giantswarm/duolaunch/internal/netutil"
	"github.com/giantswarm/duolaunch/internal/process"
	"github.com/giantswarm/duolaunch/internal/sentinel"
)

// ErrEnvironment wraps every failed environment check.
const ErrEnvironment = sentinel.Error("environment validation failed")

// DefaultPortTimeout bounds the connection attempt that detects a port
// already in use.
const DefaultPortTimeout = time.Second

// Params selects what Validate checks.
type Params struct {
	Service    process.Spec
	Foreground process.Spec

	// ProbeHost is where the service port is checked. Empty means 127.0.0.1.
	ProbeHost string
	// PortTimeout bounds the in-use check. Zero means DefaultPortTimeout.
	PortTimeout time.Duration
	// WorkDir must be writable. Empty means the current directory.
	WorkDir string

	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger
}

// Validator runs the environment checks.
type Validator struct {
	params Params
	log    *slog.Logger
}

// New creates a Validator. It performs no I/O.
func New(p Params) *Validator {
	if p.ProbeHost == "" {
		p.ProbeHost = "127.0.0.1"
	}
	if p.PortTimeout <= 0 {
		p.PortTimeout = DefaultPortTimeout
	}
	if p.WorkDir == "" {
		p.WorkDir = "."
	}
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Validator{params: p, log: log}
}

// Validate runs every check concurrently and returns all failures joined and
// wrapped with ErrEnvironment, or nil when the environment is usable.
func (v *Validator) Validate(ctx context.Context) error {
	v.log.Info("validating environment")
	p := v.params

	checks := []func(context.Context) error{
		func(context.Context) error { return checkExecutable(p.Service) },
		func(context.Context) error { return checkExecutable(p.Foreground) },
		v.checkPortFree,
		func(context.Context) error { return fileutil.CheckWritable(p.WorkDir) },
	}
	results := make([]error, len(checks))

	// Checks never return their error to the group, so a failing check
	// does not cancel the others and all problems are reported.
	var g errgroup.Group
	for i, check := range checks {
		i := i
		check := check
		g.Go(func() error {
			results[i] = check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	if err := errors.Join(results...); err != nil {
		return fmt.Errorf("%w: %w", ErrEnvironment, err)
	}
	v.log.Debug("environment validation passed")
	return nil
}

// checkExecutable verifies that spec.Path is a regular file the launcher can
// execute.
func checkExecutable(spec process.Spec) error {
	info, err := os.Stat(spec.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s executable not found: %s", spec.Name, spec.Path)
		}
		return fmt.Errorf("%s executable: %w", spec.Name, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s executable is a directory: %s", spec.Name, spec.Path)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		return fmt.Errorf("%s file is not executable: %s", spec.Name, spec.Path)
	}
	return nil
}

// checkPortFree fails when something already accepts connections on the
// service port, which would make the readiness probe succeed against the
// wrong process.
func (v *Validator) checkPortFree(ctx context.Context) error {
	p := v.params
	if netutil.PortOpen(ctx, p.ProbeHost, p.Service.Port, p.PortTimeout) {
		return fmt.Errorf("port already in use: %s", netutil.Addr(p.ProbeHost, p.Service.Port))
	}
	v.log.Debug("service port is available", "port", p.Service.Port)
	return nil
}
