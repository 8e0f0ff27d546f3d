package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/giantswarm/duolaunch/internal/probe"
	"github.com/giantswarm/duolaunch/internal/process"
)

// DefaultShutdownBudget caps the total time Shutdown may take.
const DefaultShutdownBudget = 10 * time.Second

// Config holds everything a session needs. Service and Foreground must carry
// RoleService and RoleForeground respectively.
type Config struct {
	Service    process.Spec
	Foreground process.Spec

	// Readiness probing of the service port. Zero values use the probe
	// package defaults.
	ProbeHost        string
	ProbeInterval    time.Duration
	ProbeDialTimeout time.Duration

	// ShutdownBudget bounds Shutdown as a whole, independent of the
	// per-process grace periods. Zero means DefaultShutdownBudget.
	ShutdownBudget time.Duration

	// Logger (optional, defaults to slog.Default())
	Logger *slog.Logger
}

// validate checks the role assignment and timings and returns every
// violation at once. The specs themselves are validated by process.NewHandle.
func (c Config) validate() error {
	var errs []error

	if c.Service.Role != process.RoleService {
		errs = append(errs, fmt.Errorf("service spec must have role %s, got %s", process.RoleService, c.Service.Role))
	}
	if c.Foreground.Role != process.RoleForeground {
		errs = append(errs, fmt.Errorf("foreground spec must have role %s, got %s", process.RoleForeground, c.Foreground.Role))
	}
	if c.ShutdownBudget < 0 {
		errs = append(errs, fmt.Errorf("shutdown budget must not be negative, got %s", c.ShutdownBudget))
	}
	if c.ProbeInterval < 0 {
		errs = append(errs, fmt.Errorf("probe interval must not be negative, got %s", c.ProbeInterval))
	}
	if c.ProbeDialTimeout < 0 {
		errs = append(errs, fmt.Errorf("probe dial timeout must not be negative, got %s", c.ProbeDialTimeout))
	}

	return errors.Join(errs...)
}

// Result describes how the foreground process ended.
type Result struct {
	// ExitCode is the foreground exit code, or process.ExitCodeUnknown when
	// it was killed by a signal or the wait was interrupted.
	ExitCode int
	// Started and Ended bracket the foreground run.
	Started time.Time
	Ended   time.Time
	// Interrupted is set when the wait ended because the caller's context
	// was canceled (e.g. SIGINT to the launcher) rather than by the
	// foreground exiting.
	Interrupted bool
}

// Duration returns how long the foreground ran.
func (r Result) Duration() time.Duration {
	if r.Started.IsZero() || r.Ended.IsZero() {
		return 0
	}
	return r.Ended.Sub(r.Started)
}

// StopReport records what Shutdown did to one process.
type StopReport struct {
	Name    string
	Role    process.Role
	Outcome process.StopOutcome
	// Err is set when the stop could not be confirmed.
	Err     error
	Elapsed time.Duration
}

// Escalation returns an error wrapping ErrShutdownEscalation when the
// process had to be killed, and nil otherwise.
func (r StopReport) Escalation() error {
	if r.Outcome != process.StopForced {
		return nil
	}
	return fmt.Errorf("%s after %s: %w", r.Name, r.Elapsed.Round(time.Millisecond), ErrShutdownEscalation)
}

// member is one process owned by the session, as seen by Shutdown.
type member struct {
	name  string
	role  process.Role
	grace time.Duration
	proc  process.Stoppable
}

// Session is one run of the service/foreground pair. A Session is
// single-use: Start at most once, Shutdown always.
type Session struct {
	// Immutable after New.
	cfg        Config
	log        *slog.Logger
	service    *process.Handle
	foreground *process.Handle

	// members in shutdown order; both are stopped concurrently, the order
	// only fixes the order of the reports.
	members []member

	started      atomic.Bool
	shuttingDown atomic.Bool

	shutdownOnce sync.Once
	reports      []StopReport
}

// New validates cfg and creates both process handles. It does not start
// anything.
func New(cfg Config) (*Session, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid session config: %w", err)
	}
	if cfg.ShutdownBudget == 0 {
		cfg.ShutdownBudget = DefaultShutdownBudget
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	service, err := process.NewHandle(cfg.Service, log)
	if err != nil {
		return nil, err
	}
	foreground, err := process.NewHandle(cfg.Foreground, log)
	if err != nil {
		return nil, err
	}

	return &Session{
		cfg:        cfg,
		log:        log,
		service:    service,
		foreground: foreground,
		members: []member{
			{name: cfg.Foreground.Name, role: process.RoleForeground, grace: cfg.Foreground.GracePeriod, proc: foreground},
			{name: cfg.Service.Name, role: process.RoleService, grace: cfg.Service.GracePeriod, proc: service},
		},
	}, nil
}

// Service returns the service process handle.
func (s *Session) Service() *process.Handle { return s.service }

// Foreground returns the foreground process handle.
func (s *Session) Foreground() *process.Handle { return s.foreground }

// Start runs the startup sequence: spawn the service, wait for its port,
// spawn the foreground. It returns as soon as the foreground is running.
// ctx bounds readiness probing in addition to the service startup timeout.
//
// On failure the error wraps ErrServiceStartup, ErrServiceNotReady, or
// ErrForegroundStartup. Canceling ctx during the readiness wait returns
// ErrInterrupted instead. Processes started before the failure keep running
// until Shutdown.
func (s *Session) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	startTime := time.Now()
	svc := s.cfg.Service

	// 1. Service process
	if err := s.service.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrServiceStartup, err)
	}

	// 2. Readiness
	err := probe.WaitUntilReady(ctx, probe.Config{
		Name:          svc.Name,
		Host:          s.cfg.ProbeHost,
		Port:          svc.Port,
		Timeout:       svc.StartupTimeout,
		Interval:      s.cfg.ProbeInterval,
		DialTimeout:   s.cfg.ProbeDialTimeout,
		Logger:        s.log,
		ProcessExited: s.service.Exited(),
	})
	if err != nil {
		if ctx.Err() != nil {
			s.log.Info("startup interrupted while waiting for the service", "process", svc.Name, "cause", context.Cause(ctx))
			return fmt.Errorf("%w: %w", ErrInterrupted, ctx.Err())
		}
		return fmt.Errorf("%w: %w", ErrServiceNotReady, err)
	}
	s.log.Info("service ready", "process", svc.Name, "port", svc.Port, "elapsed", time.Since(startTime))

	// 3. Foreground process
	if err := s.foreground.Start(); err != nil {
		return fmt.Errorf("%w: %w", ErrForegroundStartup, err)
	}

	s.log.Debug("session started", "elapsed", time.Since(startTime))
	return nil
}

// Wait blocks until the foreground process exits. There is no timeout: the
// session lasts as long as the user keeps the foreground open. Canceling ctx
// ends the wait early with Result.Interrupted set and a nil error, which is
// how an interrupt of the launcher reaches the shutdown path.
//
// An exit of the service while the foreground still runs is logged as a
// warning; the session still ends only when the foreground does.
func (s *Session) Wait(ctx context.Context) (Result, error) {
	watchDone := make(chan struct{})
	defer close(watchDone)
	go s.watchService(watchDone)

	code, err := s.foreground.Wait(ctx)
	res := Result{
		ExitCode: code,
		Started:  s.foreground.StartedAt(),
		Ended:    time.Now(),
	}

	switch {
	case err == nil:
		s.log.Info("foreground exited", "process", s.cfg.Foreground.Name, "exit_code", code, "duration", res.Duration())
		return res, nil
	case ctx.Err() != nil && errors.Is(err, ctx.Err()):
		res.Interrupted = true
		s.log.Info("session interrupted; shutting down", "cause", context.Cause(ctx))
		return res, nil
	default:
		return res, fmt.Errorf("wait for %s: %w", s.cfg.Foreground.Name, err)
	}
}

// Run is Start followed by Wait. An interrupt during startup is reported
// like one during the wait: Result.Interrupted set and a nil error.
func (s *Session) Run(ctx context.Context) (Result, error) {
	if err := s.Start(ctx); err != nil {
		if errors.Is(err, ErrInterrupted) {
			return Result{ExitCode: process.ExitCodeUnknown, Interrupted: true}, nil
		}
		return Result{ExitCode: process.ExitCodeUnknown}, err
	}
	return s.Wait(ctx)
}

// watchService logs an unexpected service exit until done is closed.
func (s *Session) watchService(done <-chan struct{}) {
	select {
	case <-s.service.Exited():
	case <-done:
		return
	}
	if s.shuttingDown.Load() {
		return
	}
	select {
	case <-s.foreground.Exited():
		// Both went down together; the foreground exit is what ends the session.
		return
	default:
	}

	code, _ := s.service.Wait(context.Background())
	s.log.Warn("service exited while the foreground is still running",
		"process", s.cfg.Service.Name, "exit_code", code)
}

// Shutdown stops every process that is still alive and releases all handles.
// Stops run concurrently; each gets its own grace period, and the whole call
// is capped by the shutdown budget, after which remaining processes are
// killed. Processes that were never started or already exited are skipped.
//
// Shutdown is idempotent: later calls return the reports of the first.
func (s *Session) Shutdown() []StopReport {
	s.shutdownOnce.Do(func() {
		s.shuttingDown.Store(true)
		s.reports = s.shutdown()
	})
	return s.reports
}

func (s *Session) shutdown() []StopReport {
	startTime := time.Now()
	budget := s.cfg.ShutdownBudget

	ctx, cancel := context.WithTimeout(context.Background(), budget)
	defer cancel()

	reports := make([]StopReport, len(s.members))

	// Stop errors are recorded per member rather than returned, so one
	// failure never cancels the siblings.
	var g errgroup.Group
	for i, m := range s.members {
		i := i
		m := m
		g.Go(func() error {
			reports[i] = s.stopMember(ctx, m)
			return nil
		})
	}
	_ = g.Wait()

	for _, m := range s.members {
		m.proc.Close()
	}

	s.log.Info("shutdown complete", "elapsed", time.Since(startTime), "budget", budget)
	return reports
}

func (s *Session) stopMember(ctx context.Context, m member) StopReport {
	report := StopReport{Name: m.name, Role: m.role, Outcome: process.StopNoop}
	if !m.proc.IsAlive() {
		return report
	}

	began := time.Now()
	outcome, err := m.proc.Stop(ctx, m.grace)
	report.Outcome = outcome
	report.Elapsed = time.Since(began)
	report.Err = err

	switch {
	case err != nil:
		s.log.Error("stop failed", "process", m.name, "role", m.role.String(), "error", err)
	case outcome == process.StopForced:
		s.log.Warn("process killed after graceful stop timed out",
			"process", m.name, "role", m.role.String(), "grace_period", m.grace,
			"error", report.Escalation())
	case outcome == process.StopGraceful:
		s.log.Info("process stopped gracefully", "process", m.name, "role", m.role.String(), "elapsed", report.Elapsed)
	}
	return report
}
