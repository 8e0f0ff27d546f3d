package duolaunch

import (
	"fmt"

	"github.com/giantswarm/duolaunch/internal/session"
)

// Compile-time interface satisfaction check.
var _ Session = (*session.Session)(nil)

// NewSession creates a Session from the given options. It validates the
// resulting configuration but performs no I/O; nothing is spawned until
// Start. WithServiceBinary and WithForegroundBinary are required.
//
// Returns an error wrapping ErrInvalidConfig when the combined options do
// not form a runnable session. Panics if any option receives an invalid
// value; see individual With* functions for constraints.
//
//nolint:ireturn // Session is an interface so callers can substitute a fake.
func NewSession(opts ...Option) (Session, error) {
	cfg := defaultSessionConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s, err := session.New(cfg.toSessionConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return s, nil
}
