package testutil

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"
)

// Record is one captured log record with its attributes flattened.
type Record struct {
	Level   slog.Level
	Message string
	Attrs   map[string]string
}

// Recorder is a slog.Handler that keeps every record in memory so tests
// can assert on what was logged. Handlers derived through WithAttrs and
// WithGroup share the same store.
type Recorder struct {
	store *recordStore
	attrs []slog.Attr
}

type recordStore struct {
	mu      sync.Mutex
	records []Record
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{store: &recordStore{}}
}

// Logger returns a logger writing into the recorder.
func (r *Recorder) Logger() *slog.Logger {
	return slog.New(r)
}

// Enabled implements slog.Handler; every level is recorded.
func (r *Recorder) Enabled(context.Context, slog.Level) bool {
	return true
}

// Handle implements slog.Handler.
func (r *Recorder) Handle(_ context.Context, rec slog.Record) error {
	attrs := make(map[string]string, len(r.attrs)+rec.NumAttrs())
	for _, a := range r.attrs {
		attrs[a.Key] = a.Value.String()
	}
	rec.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value.String()
		return true
	})

	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.records = append(r.store.records, Record{Level: rec.Level, Message: rec.Message, Attrs: attrs})
	return nil
}

// WithAttrs implements slog.Handler.
func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Recorder{store: r.store, attrs: append(slices.Clone(r.attrs), attrs...)}
}

// WithGroup implements slog.Handler. Groups are flattened.
func (r *Recorder) WithGroup(string) slog.Handler {
	return r
}

// Records returns a snapshot of everything recorded so far.
func (r *Recorder) Records() []Record {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return slices.Clone(r.store.records)
}

// Count returns how many records satisfy match.
func (r *Recorder) Count(match func(Record) bool) int {
	n := 0
	for _, rec := range r.Records() {
		if match(rec) {
			n++
		}
	}
	return n
}

// WithAttr returns a matcher for records carrying key=value.
func WithAttr(key, value string) func(Record) bool {
	return func(rec Record) bool {
		return rec.Attrs[key] == value
	}
}

// WithMessage returns a matcher for records with the given message.
func WithMessage(msg string) func(Record) bool {
	return func(rec Record) bool {
		return rec.Message == msg
	}
}

// WaitFor polls until a record satisfying match shows up or timeout
// elapses, failing the test in the latter case.
func (r *Recorder) WaitFor(tb testing.TB, match func(Record) bool, timeout time.Duration) {
	tb.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if r.Count(match) > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	tb.Fatalf("no matching log record within %s", timeout)
}
