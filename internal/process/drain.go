package process

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/giantswarm/duolaunch/internal/sentinel"
)

// ErrDrain marks a stream read failure inside a Drain. It is logged and
// exposed through Drain.Err but never fails the owning Handle.
const ErrDrain = sentinel.Error("output drain failed")

// maxLineBytes caps how much of a single line is buffered. Longer lines are
// forwarded in maxLineBytes chunks so one runaway line cannot stall the drain.
const maxLineBytes = 64 * 1024

// DrainConfig configures a Drain.
type DrainConfig struct {
	Process string // process name, for log attributes
	Stream  string // "stdout" or "stderr"

	// Logger receives one record per line. Nil discards the lines; they
	// are still read and counted.
	Logger *slog.Logger
	// Level is the level lines are logged at.
	Level slog.Level
}

// Drain continuously reads one output stream of a child process so the OS
// pipe buffer never fills and stalls the child. It owns its reader and
// closes it on every exit path: EOF, read error, or Close.
type Drain struct {
	cfg DrainConfig
	r   io.ReadCloser

	done      chan struct{}
	closeOnce sync.Once
	canceled  atomic.Bool
	lines     atomic.Int64
	err       error // written before done is closed
}

// StartDrain starts draining r in a new goroutine and returns immediately.
func StartDrain(r io.ReadCloser, cfg DrainConfig) *Drain {
	d := &Drain{
		cfg:  cfg,
		r:    r,
		done: make(chan struct{}),
	}
	go d.run()
	return d
}

// Done returns a channel that is closed when the drain has stopped reading.
func (d *Drain) Done() <-chan struct{} {
	return d.done
}

// Lines returns the number of lines forwarded so far.
func (d *Drain) Lines() int64 {
	return d.lines.Load()
}

// Err returns the read error that ended the drain, wrapped with ErrDrain.
// It is nil while the drain runs and after a clean EOF or Close.
func (d *Drain) Err() error {
	select {
	case <-d.done:
		return d.err
	default:
		return nil
	}
}

// Close cancels the drain by closing its reader and waits for the reading
// goroutine to return. Safe to call more than once and after EOF.
func (d *Drain) Close() {
	d.canceled.Store(true)
	d.closeReader()
	<-d.done
}

func (d *Drain) closeReader() {
	d.closeOnce.Do(func() {
		_ = d.r.Close() // best-effort; the read loop observes the closure
	})
}

func (d *Drain) run() {
	defer close(d.done)
	defer d.closeReader()

	br := bufio.NewReaderSize(d.r, maxLineBytes)
	for {
		chunk, err := br.ReadSlice('\n')
		if len(chunk) > 0 {
			d.emit(chunk)
		}
		switch {
		case err == nil, errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF), d.canceled.Load():
			return
		default:
			d.err = fmt.Errorf("%w: %s %s: %w", ErrDrain, d.cfg.Process, d.cfg.Stream, err)
			if d.cfg.Logger != nil {
				d.cfg.Logger.Warn("output drain stopped on read error",
					"stream", d.cfg.Stream, "lines", d.lines.Load(), "error", err)
			}
			return
		}
	}
}

func (d *Drain) emit(chunk []byte) {
	d.lines.Add(1)
	if d.cfg.Logger == nil {
		return
	}
	line := string(bytes.TrimRight(chunk, "\r\n"))
	d.cfg.Logger.Log(context.Background(), d.cfg.Level, line, "stream", d.cfg.Stream)
}
