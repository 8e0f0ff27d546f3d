package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/giantswarm/duolaunch"
	"github.com/giantswarm/duolaunch/internal/config"
	"github.com/giantswarm/duolaunch/internal/envcheck"
	"github.com/giantswarm/duolaunch/internal/history"
	"github.com/giantswarm/duolaunch/internal/lock"
	"github.com/giantswarm/duolaunch/internal/logging"
)

// historyWriteTimeout bounds recording a session after it ended. The run
// context may already be canceled by then.
const historyWriteTimeout = 5 * time.Second

func newRunCmd(flags *rootFlags) *cobra.Command {
	var lockWait time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the service, run the foreground app, then shut both down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return launch(cmd.Context(), flags.configPath, lockWait, cmd.ErrOrStderr())
		},
	}
	cmd.Flags().DurationVar(&lockWait, "lock-wait", 0, "how long to wait for another launcher to release the session lock")
	return cmd
}

// launch runs one complete session: configuration, logging, session lock,
// environment validation, the session itself, shutdown, and history.
// Shutdown runs on every path once the session exists.
func launch(ctx context.Context, configPath string, lockWait time.Duration, console io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	res := cfg.Resolve()

	logger, closer, err := newLogger(cfg, res.LogFile, console)
	if err != nil {
		return err
	}
	defer closer.Close() //nolint:errcheck // nothing left to report to

	logger.Info("launcher starting",
		"config", configPath,
		"service", res.Service.Path,
		"foreground", res.Foreground.Path,
		"port", res.Service.Port)

	lk, err := lock.Acquire(ctx, res.LockFile, lockWait, logger)
	if err != nil {
		return err
	}
	defer lk.Release()

	validator := envcheck.New(envcheck.Params{
		Service:    res.Service,
		Foreground: res.Foreground,
		ProbeHost:  res.ProbeHost,
		WorkDir:    cfg.BaseDir(),
		Logger:     logger,
	})
	if err := validator.Validate(ctx); err != nil {
		return err
	}

	sess, err := duolaunch.NewSession(sessionOptions(res, logger)...)
	if err != nil {
		return err
	}

	started := time.Now()
	result, runErr := sess.Run(ctx)
	reports := sess.Shutdown()

	if runErr != nil {
		logger.Error("session failed", "error", runErr)
	}
	if res.HistoryDB != "" {
		entry := historyEntry(res, started, result, runErr, reports)
		if err := recordHistory(ctx, res.HistoryDB, entry, logger); err != nil {
			// History is best effort; it never changes the exit code.
			logger.Warn("failed to record session history", "path", res.HistoryDB, "error", err)
		}
	}

	logger.Info("launcher finished", "exit_code", duolaunch.ExitCode(runErr), "elapsed", time.Since(started))
	return runErr
}

// newLogger builds the launcher logger. logFile may be empty.
func newLogger(cfg *config.Config, logFile string, console io.Writer) (*slog.Logger, io.Closer, error) {
	return logging.New(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		File:      logFile,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
	}, console)
}

// sessionOptions translates a resolved configuration into session options.
// The configuration is already validated, so no option panics.
func sessionOptions(res config.Resolved, logger *slog.Logger) []duolaunch.Option {
	return []duolaunch.Option{
		duolaunch.WithServiceName(res.Service.Name),
		duolaunch.WithServiceBinary(res.Service.Path),
		duolaunch.WithServiceArgs(res.Service.Args...),
		duolaunch.WithServiceDir(res.Service.Dir),
		duolaunch.WithServicePort(res.Service.Port),
		duolaunch.WithStartupTimeout(res.Service.StartupTimeout),
		duolaunch.WithForegroundName(res.Foreground.Name),
		duolaunch.WithForegroundBinary(res.Foreground.Path),
		duolaunch.WithForegroundArgs(res.Foreground.Args...),
		duolaunch.WithForegroundDir(res.Foreground.Dir),
		duolaunch.WithServiceGracePeriod(res.Service.GracePeriod),
		duolaunch.WithForegroundGracePeriod(res.Foreground.GracePeriod),
		duolaunch.WithShutdownBudget(res.ShutdownBudget),
		duolaunch.WithProbeHost(res.ProbeHost),
		duolaunch.WithProbeInterval(res.ProbeInterval),
		duolaunch.WithProbeDialTimeout(res.ProbeDialTimeout),
		duolaunch.WithLogger(logger),
	}
}

// historyEntry summarizes a finished session.
func historyEntry(res config.Resolved, started time.Time, result duolaunch.Result, runErr error, reports []duolaunch.StopReport) history.Entry {
	entry := history.Entry{
		StartedAt:          started,
		EndedAt:            time.Now(),
		Service:            res.Service.Name,
		Foreground:         res.Foreground.Name,
		Outcome:            history.OutcomeCompleted,
		ForegroundExitCode: result.ExitCode,
		ExitCode:           duolaunch.ExitCode(runErr),
	}
	switch {
	case errors.Is(runErr, duolaunch.ErrInterrupted):
		entry.Outcome = history.OutcomeInterrupted
	case runErr != nil:
		entry.Outcome = history.OutcomeFailed
		entry.Error = runErr.Error()
	case result.Interrupted:
		entry.Outcome = history.OutcomeInterrupted
	}
	for _, r := range reports {
		if r.Escalation() != nil {
			entry.ForcedStops++
		}
	}
	return entry
}

func recordHistory(ctx context.Context, path string, entry history.Entry, logger *slog.Logger) (err error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()

	store, err := history.Open(ctx, path, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, store.Close())
	}()

	id, err := store.Record(ctx, entry)
	if err != nil {
		return err
	}
	logger.Debug("session history recorded", "id", id, "outcome", entry.Outcome)
	return nil
}
