package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/giantswarm/duolaunch"
	"github.com/giantswarm/duolaunch/internal/config"
	"github.com/giantswarm/duolaunch/internal/history"
	"github.com/giantswarm/duolaunch/internal/lock"
	"github.com/giantswarm/duolaunch/internal/process"
	"github.com/giantswarm/duolaunch/internal/testutil"
)

func TestRun_CompletedSessionIsRecorded(t *testing.T) {
	t.Parallel()

	fx := newFixture(t,
		testutil.Args(testutil.ModeListen, "{port}"),
		testutil.Args(testutil.ModeExit, "0", "200ms"),
		"history_db: state/history.db\n",
	)

	_, stderr, err := execute(t, "run", "--config", fx.configPath)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, stderr)
	}
	if !strings.Contains(stderr, "service ready") {
		t.Errorf("stderr does not log readiness:\n%s", stderr)
	}

	logData, err := os.ReadFile(filepath.Join(fx.dir, "launcher.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(logData), "launcher finished") {
		t.Errorf("log file misses the final record:\n%s", logData)
	}

	stdout, _, err := execute(t, "history", "--config", fx.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(stdout, history.OutcomeCompleted) {
		t.Errorf("history output does not list a completed session:\n%s", stdout)
	}
}

func TestRun_DefaultCommandIsRun(t *testing.T) {
	t.Parallel()

	fx := newFixture(t,
		testutil.Args(testutil.ModeListen, "{port}"),
		testutil.Args(testutil.ModeExit, "4", "0s"),
		"",
	)

	_, stderr, err := execute(t, "--config", fx.configPath)
	if err != nil {
		t.Fatalf("root command: %v\n%s", err, stderr)
	}
	if !strings.Contains(stderr, "exit_code=4") {
		t.Errorf("foreground exit code not logged:\n%s", stderr)
	}
}

func TestRun_ServiceNeverReady(t *testing.T) {
	t.Parallel()

	fx := newFixture(t,
		testutil.Args(testutil.ModeSleep, "30s"),
		testutil.Args(testutil.ModeSleep, "30s"),
		"history_db: history.db\n",
	)
	// Shorten the startup timeout by overriding the generated value.
	rewriteConfig(t, fx.configPath, "startup_timeout_seconds: 10", "startup_timeout_seconds: 1")

	start := time.Now()
	_, _, err := execute(t, "run", "--config", fx.configPath)
	if !errors.Is(err, duolaunch.ErrServiceNotReady) {
		t.Fatalf("run error = %v, want ErrServiceNotReady", err)
	}
	if code := duolaunch.ExitCode(err); code != duolaunch.ExitStartup {
		t.Errorf("ExitCode = %d, want %d", code, duolaunch.ExitStartup)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("run took %v; the service should be stopped right after the timeout", elapsed)
	}

	store, err := history.Open(context.Background(), filepath.Join(fx.dir, "history.db"), nil)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()

	entries, err := store.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 || entries[0].Outcome != history.OutcomeFailed {
		t.Fatalf("history = %+v, want one failed session", entries)
	}
	if entries[0].ExitCode != duolaunch.ExitStartup {
		t.Errorf("recorded exit code = %d, want %d", entries[0].ExitCode, duolaunch.ExitStartup)
	}
}

func TestRun_InterruptedDuringStartup(t *testing.T) {
	t.Parallel()

	fx := newFixture(t,
		testutil.Args(testutil.ModeSleep, "60s"),
		testutil.Args(testutil.ModeSleep, "60s"),
		"history_db: history.db\n",
	)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(500*time.Millisecond, cancel)

	start := time.Now()
	_, stderr, err := executeContext(ctx, t, "run", "--config", fx.configPath)
	if err != nil {
		t.Fatalf("run error = %v, want nil for an interrupt\n%s", err, stderr)
	}
	if code := duolaunch.ExitCode(err); code != duolaunch.ExitOK {
		t.Errorf("ExitCode = %d, want %d", code, duolaunch.ExitOK)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("run took %v; startup should stop waiting on cancel", elapsed)
	}

	store, err := history.Open(context.Background(), filepath.Join(fx.dir, "history.db"), nil)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()

	entries, err := store.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(entries) != 1 || entries[0].Outcome != history.OutcomeInterrupted {
		t.Fatalf("history = %+v, want one interrupted session", entries)
	}
	if entries[0].ExitCode != duolaunch.ExitOK {
		t.Errorf("recorded exit code = %d, want %d", entries[0].ExitCode, duolaunch.ExitOK)
	}
}

func TestRun_MissingConfig(t *testing.T) {
	t.Parallel()

	_, _, err := execute(t, "run", "--config", filepath.Join(t.TempDir(), "launcher.yaml"))
	if !errors.Is(err, duolaunch.ErrInvalidConfig) {
		t.Fatalf("run error = %v, want ErrInvalidConfig", err)
	}
	if code := duolaunch.ExitCode(err); code != duolaunch.ExitConfig {
		t.Errorf("ExitCode = %d, want %d", code, duolaunch.ExitConfig)
	}
}

func TestRun_LockHeld(t *testing.T) {
	t.Parallel()

	fx := newFixture(t,
		testutil.Args(testutil.ModeListen, "{port}"),
		testutil.Args(testutil.ModeExit, "0", "0s"),
		"",
	)
	held, err := lock.Acquire(context.Background(), filepath.Join(fx.dir, ".duolaunch.lock"), 0, nil)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	defer held.Release()

	_, _, err = execute(t, "run", "--config", fx.configPath)
	if !errors.Is(err, duolaunch.ErrLocked) {
		t.Fatalf("run error = %v, want ErrLocked", err)
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, nil, nil, "")

		stdout, _, err := execute(t, "check", "--config", fx.configPath)
		if err != nil {
			t.Fatalf("check: %v", err)
		}
		if !strings.Contains(stdout, "is valid") {
			t.Errorf("stdout = %q", stdout)
		}
		if _, err := os.Stat(filepath.Join(fx.dir, "launcher.log")); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("check created a log file (stat err = %v)", err)
		}
	})

	t.Run("missing executables", func(t *testing.T) {
		t.Parallel()
		fx := newFixture(t, nil, nil, "")
		exe := strconv.Quote(testutil.Executable(t))
		rewriteConfig(t, fx.configPath, "foreground:\n  path: "+exe, "foreground:\n  path: ./missing/lampa")

		_, _, err := execute(t, "check", "--config", fx.configPath)
		if !errors.Is(err, duolaunch.ErrEnvironment) {
			t.Fatalf("check error = %v, want ErrEnvironment", err)
		}
		if !strings.Contains(err.Error(), "lampa executable not found") {
			t.Errorf("error does not name the missing executable: %v", err)
		}
	})
}

func TestHistory_Disabled(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil, nil, "")
	_, _, err := execute(t, "history", "--config", fx.configPath)
	if !errors.Is(err, errHistoryDisabled) {
		t.Fatalf("history error = %v, want errHistoryDisabled", err)
	}
}

func TestHistory_Empty(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil, nil, "history_db: history.db\n")
	stdout, _, err := execute(t, "history", "--config", fx.configPath, "-n", "3")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if strings.TrimSpace(stdout) != "no sessions recorded" {
		t.Errorf("stdout = %q", stdout)
	}
}

func TestHistoryEntry(t *testing.T) {
	t.Parallel()

	started := time.Now().Add(-time.Minute)
	res := config.Resolved{
		Service:    process.Spec{Name: "torrserver"},
		Foreground: process.Spec{Name: "lampa"},
	}

	tests := map[string]struct {
		result      duolaunch.Result
		err         error
		reports     []duolaunch.StopReport
		wantOutcome string
		wantExit    int
		wantForced  int
	}{
		"completed": {
			result:      duolaunch.Result{ExitCode: 0},
			wantOutcome: history.OutcomeCompleted,
			wantExit:    duolaunch.ExitOK,
		},
		"interrupted": {
			result:      duolaunch.Result{ExitCode: -1, Interrupted: true},
			wantOutcome: history.OutcomeInterrupted,
			wantExit:    duolaunch.ExitOK,
		},
		"interrupted during startup": {
			result:      duolaunch.Result{ExitCode: -1},
			err:         fmt.Errorf("%w: %w", duolaunch.ErrInterrupted, context.Canceled),
			wantOutcome: history.OutcomeInterrupted,
			wantExit:    duolaunch.ExitOK,
		},
		"failed": {
			result:      duolaunch.Result{ExitCode: -1},
			err:         duolaunch.ErrServiceNotReady,
			wantOutcome: history.OutcomeFailed,
			wantExit:    duolaunch.ExitStartup,
		},
		"forced stop": {
			result: duolaunch.Result{ExitCode: 0},
			reports: []duolaunch.StopReport{
				{Name: "lampa", Role: process.RoleForeground, Outcome: process.StopNoop},
				{Name: "torrserver", Role: process.RoleService, Outcome: process.StopForced},
			},
			wantOutcome: history.OutcomeCompleted,
			wantExit:    duolaunch.ExitOK,
			wantForced:  1,
		},
	}

	for name, tc := range tests {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			e := historyEntry(res, started, tc.result, tc.err, tc.reports)
			if e.Outcome != tc.wantOutcome {
				t.Errorf("Outcome = %q, want %q", e.Outcome, tc.wantOutcome)
			}
			if e.ExitCode != tc.wantExit {
				t.Errorf("ExitCode = %d, want %d", e.ExitCode, tc.wantExit)
			}
			if e.ForcedStops != tc.wantForced {
				t.Errorf("ForcedStops = %d, want %d", e.ForcedStops, tc.wantForced)
			}
			if (tc.wantOutcome == history.OutcomeFailed) != (e.Error != "") {
				t.Errorf("Error = %q for run error %v", e.Error, tc.err)
			}
			if e.Duration() < time.Minute {
				t.Errorf("Duration = %v, want at least 1m", e.Duration())
			}
		})
	}
}

func rewriteConfig(t *testing.T, path, old, replacement string) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if !strings.Contains(string(data), old) {
		t.Fatalf("config does not contain %q", old)
	}
	updated := strings.Replace(string(data), old, replacement, 1)
	if err := os.WriteFile(path, []byte(updated), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}
