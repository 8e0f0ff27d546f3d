package process

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/giantswarm/duolaunch/internal/sentinel"
)

// ErrSpawn is returned by Start when the OS could not create the process
// (missing binary, permissions, bad working directory). It is distinct
// from configuration or environment validation failures.
const ErrSpawn = sentinel.Error("spawn process")

// ErrNotStarted is returned by Wait on a handle whose process was never started.
const ErrNotStarted = sentinel.Error("process not started")

// ErrHandleUsed is returned by Start on a handle whose process already
// terminated or failed to spawn. Handles are single-use.
const ErrHandleUsed = sentinel.Error("process handle already used")

// drainFlushTimeout bounds how long Close lets the drains read output that
// is still buffered in the pipes before canceling them.
const drainFlushTimeout = 500 * time.Millisecond

// ExitCodeUnknown is reported when the platform cannot supply an exit code,
// e.g. because the process was terminated by a signal.
const ExitCodeUnknown = -1

// State is the lifecycle state of a Handle.
type State int

const (
	StateNotStarted State = iota // zero value; NewHandle returns in this state
	StateRunning                 // spawned and not yet observed to exit
	StateStopping                // Stop in progress
	StateStopped                 // terminated at the owner's request
	StateExited                  // terminated on its own
	StateFailed                  // spawn failed
)

// String returns the state name used in log attributes.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not-started"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateExited:
		return "exited"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Compile-time interface satisfaction check.
var _ Stoppable = (*Handle)(nil)

// Handle owns one spawned OS process and the two drains attached to its
// output streams.
//
// Handle is safe for concurrent use. In particular one goroutine may block
// in Wait while another calls Stop; exit is observed by a single reaper
// goroutine and broadcast by closing a channel, so cmd.Wait is called
// exactly once.
type Handle struct {
	spec Spec
	log  *slog.Logger

	// exited is closed by the reaper goroutine after cmd.Wait returns.
	exited chan struct{}

	mu        sync.Mutex
	state     State
	cmd       *exec.Cmd
	pid       int
	startedAt time.Time
	exitCode  int
	waitErr   error
	drains    []*Drain
}

// NewHandle creates a Handle for spec in StateNotStarted. It performs no
// I/O. If logger is nil, slog.Default() is used.
func NewHandle(spec Spec, logger *slog.Logger) (*Handle, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s process spec: %w", spec.Role, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handle{
		spec:     spec.clone(),
		log:      logger.With("process", spec.Name, "role", spec.Role.String()),
		exited:   make(chan struct{}),
		exitCode: ExitCodeUnknown,
	}, nil
}

// Spec returns a copy of the handle's spec.
func (h *Handle) Spec() Spec {
	return h.spec.clone()
}

// Name returns the process name from the spec.
func (h *Handle) Name() string {
	return h.spec.Name
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// PID returns the OS process id, or 0 if the process was never spawned.
func (h *Handle) PID() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pid
}

// StartedAt returns the spawn time, or the zero time if never spawned.
func (h *Handle) StartedAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.startedAt
}

// Exited returns a channel that is closed when the process exits. It is
// safe to select on from any number of goroutines. It never closes for a
// handle that was not started.
func (h *Handle) Exited() <-chan struct{} {
	return h.exited
}

// Start spawns the process and attaches drains to its stdout and stderr
// before returning. It never blocks on stream content.
//
// Calling Start on a running handle logs a warning and returns nil. Calling
// it on a handle that already terminated or failed returns ErrHandleUsed.
// A spawn failure moves the handle to StateFailed and returns an error
// wrapping ErrSpawn.
func (h *Handle) Start() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	switch h.state {
	case StateNotStarted:
	case StateRunning, StateStopping:
		h.log.Warn("start requested for a process that is already running; ignoring", "pid", h.pid)
		return nil
	default:
		return fmt.Errorf("%s: %w (state %s)", h.spec.Name, ErrHandleUsed, h.state)
	}

	cmd := exec.Command(h.spec.Path, h.spec.Args...)
	cmd.Dir = h.spec.WorkDir()
	configureSysProcAttr(cmd)

	stdout, err := newOutputPipe()
	if err != nil {
		h.state = StateFailed
		return fmt.Errorf("%w %s: stdout pipe: %w", ErrSpawn, h.spec.Name, err)
	}
	stderr, err := newOutputPipe()
	if err != nil {
		stdout.closeAll()
		h.state = StateFailed
		return fmt.Errorf("%w %s: stderr pipe: %w", ErrSpawn, h.spec.Name, err)
	}
	cmd.Stdout = stdout.w
	cmd.Stderr = stderr.w

	if err := cmd.Start(); err != nil {
		stdout.closeAll()
		stderr.closeAll()
		h.state = StateFailed
		return fmt.Errorf("%w %s: %w", ErrSpawn, h.spec.Name, err)
	}
	// The child holds its own copies of the write ends. Closing ours makes
	// the drains see EOF as soon as the child (and anything it forked) exits.
	stdout.closeWriter()
	stderr.closeWriter()

	h.cmd = cmd
	h.pid = cmd.Process.Pid
	h.startedAt = time.Now()
	h.state = StateRunning
	h.drains = []*Drain{
		StartDrain(stdout.r, DrainConfig{Process: h.spec.Name, Stream: "stdout", Logger: h.log, Level: slog.LevelInfo}),
		StartDrain(stderr.r, DrainConfig{Process: h.spec.Name, Stream: "stderr", Logger: h.log, Level: slog.LevelWarn}),
	}

	go h.reap(cmd)

	h.log.Info("process started", "pid", h.pid, "path", h.spec.Path, "dir", cmd.Dir)
	return nil
}

// reap is the only caller of cmd.Wait for this handle.
func (h *Handle) reap(cmd *exec.Cmd) {
	waitErr := cmd.Wait()
	code := ExitCodeUnknown
	if cmd.ProcessState != nil {
		code = cmd.ProcessState.ExitCode()
	}

	h.mu.Lock()
	h.exitCode = code
	h.waitErr = waitErr
	natural := h.state == StateRunning
	if natural {
		h.state = StateExited
	}
	h.mu.Unlock()

	if natural {
		h.log.Info("process exited", "pid", cmd.Process.Pid, "exit_code", code)
	}
	close(h.exited)
}

// IsAlive reports whether the process has been spawned and has not exited.
// It never blocks.
func (h *Handle) IsAlive() bool {
	h.mu.Lock()
	started := h.cmd != nil
	h.mu.Unlock()
	if !started {
		return false
	}
	select {
	case <-h.exited:
		return false
	default:
		return true
	}
}

// Stop terminates the process: SIGTERM, then SIGKILL once grace elapses or
// ctx is done, whichever comes first. It returns StopNoop without error when
// the process is not alive (never started or already exited). Otherwise it
// reports whether termination was graceful or forced.
//
// A Stop that overlaps another one sends no signals. It waits for the
// process to exit and then returns StopNoop, or returns ctx.Err() wrapped if
// ctx is done first.
func (h *Handle) Stop(ctx context.Context, grace time.Duration) (StopOutcome, error) {
	h.mu.Lock()
	if h.state == StateStopping && h.aliveLocked() {
		h.mu.Unlock()
		return h.awaitStop(ctx)
	}
	if h.state != StateRunning || !h.aliveLocked() {
		h.mu.Unlock()
		return StopNoop, nil
	}
	h.state = StateStopping
	proc := h.cmd.Process
	pid := h.pid
	h.mu.Unlock()

	h.log.Debug("stopping process", "pid", pid, "grace_period", grace)
	began := time.Now()
	outcome, err := terminate(ctx, proc, h.exited, grace)

	h.mu.Lock()
	switch {
	case err != nil:
		// Kill not confirmed; the process may still be around.
		h.state = StateRunning
	case outcome == StopNoop:
		h.state = StateExited
	default:
		h.state = StateStopped
	}
	waitErr := h.waitErr
	h.mu.Unlock()

	if err != nil {
		h.log.Warn("process stop failed; process may be orphaned", "pid", pid, "error", err)
		return outcome, fmt.Errorf("stop %s: %w", h.spec.Name, err)
	}
	if outcome != StopNoop {
		if exitErr := expectSignalExit(waitErr, h.spec.Name); exitErr != nil {
			h.log.Debug("process reported a non-signal exit status after stop", "pid", pid, "error", exitErr)
		}
	}
	h.log.Debug("process stop finished", "pid", pid, "outcome", outcome.String(), "elapsed", time.Since(began))
	return outcome, nil
}

// awaitStop blocks until the in-flight stop reaps the process.
func (h *Handle) awaitStop(ctx context.Context) (StopOutcome, error) {
	h.log.Debug("stop already in progress; waiting for exit", "pid", h.PID())
	select {
	case <-h.exited:
		return StopNoop, nil
	case <-ctx.Done():
		return StopNoop, fmt.Errorf("stop %s: waiting for the in-flight stop: %w", h.spec.Name, ctx.Err())
	}
}

// aliveLocked is IsAlive for callers holding h.mu.
func (h *Handle) aliveLocked() bool {
	if h.cmd == nil {
		return false
	}
	select {
	case <-h.exited:
		return false
	default:
		return true
	}
}

// Wait blocks until the process terminates by any means and returns its
// exit code, or ExitCodeUnknown when the platform cannot provide one. It
// returns early with ctx.Err() if ctx is done first. Any number of callers
// may wait concurrently, including while another goroutine runs Stop.
func (h *Handle) Wait(ctx context.Context) (int, error) {
	h.mu.Lock()
	started := h.cmd != nil
	h.mu.Unlock()
	if !started {
		return ExitCodeUnknown, fmt.Errorf("%s: %w", h.spec.Name, ErrNotStarted)
	}

	select {
	case <-h.exited:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.exitCode, nil
	case <-ctx.Done():
		return ExitCodeUnknown, ctx.Err()
	}
}

// Close releases the handle: it gives the drains a short window to read
// what is left in the pipes, then cancels both and waits for them.
// If the process is still running, Close logs a warning and stops it with
// DefaultGracePeriod first; owners are expected to Stop before Close.
// Safe to call more than once and on handles that never started.
func (h *Handle) Close() {
	if h.IsAlive() {
		h.log.Warn("process handle closed without Stop; stopping automatically")
		if _, err := h.Stop(context.Background(), DefaultGracePeriod); err != nil {
			h.log.Warn("auto-stop during Close failed", "error", err)
		}
	}

	h.mu.Lock()
	drains := h.drains
	h.mu.Unlock()
	if len(drains) == 0 {
		return
	}

	// Output written just before exit may still sit in the pipes.
	ctx, cancel := context.WithTimeout(context.Background(), drainFlushTimeout)
	defer cancel()
	for _, d := range drains {
		select {
		case <-d.Done():
		case <-ctx.Done():
		}
		d.Close()
	}
}

// outputPipe is one os.Pipe whose write end is handed to the child.
type outputPipe struct {
	r *os.File
	w *os.File
}

func newOutputPipe() (outputPipe, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return outputPipe{}, err
	}
	return outputPipe{r: r, w: w}, nil
}

func (p outputPipe) closeWriter() {
	_ = p.w.Close()
}

func (p outputPipe) closeAll() {
	_ = p.r.Close()
	_ = p.w.Close()
}
