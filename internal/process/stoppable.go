package process

import (
	"context"
	"time"
)

// Stoppable is the supervision surface the orchestrator needs from a
// process during shutdown. *Handle implements it; tests substitute fakes.
type Stoppable interface {
	IsAlive() bool
	Stop(ctx context.Context, grace time.Duration) (StopOutcome, error)
	Close()
}
